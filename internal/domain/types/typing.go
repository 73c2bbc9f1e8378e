package types

import "time"

// TypingState is the ephemeral typing indicator exchanged live between
// participants. It is best-effort: never queued, never retried, and the
// remote representation expires on its own so a crashed client's indicator
// does not linger.
type TypingState struct {
	ConversationID ConversationID `json:"conversation_id"`
	UserID         UserID         `json:"user_id"`
	Typing         bool           `json:"is_typing"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
