package types

import "time"

// Conversation pairs two users. Participants are stored in canonical order:
// the smaller id always occupies slot one, so any (A,B) and (B,A) resolve to
// the same row. The remote store enforces uniqueness on the pair.
type Conversation struct {
	ID            ConversationID `json:"id"`
	Participant1  UserID         `json:"participant_1_id"`
	Participant2  UserID         `json:"participant_2_id"`
	LastMessageAt *time.Time     `json:"last_message_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Peer returns the other participant for the given user, and whether the
// user is a participant at all.
func (c Conversation) Peer(me UserID) (UserID, bool) {
	switch me {
	case c.Participant1:
		return c.Participant2, true
	case c.Participant2:
		return c.Participant1, true
	default:
		return "", false
	}
}

// CanonicalPair orders two user ids into participant slots.
func CanonicalPair(a, b UserID) (UserID, UserID) {
	if b < a {
		return b, a
	}
	return a, b
}
