package types

import "time"

// EditWindow bounds how long after creation a message may be edited or
// deleted. The remote store enforces it too; client gating alone is not a
// security boundary.
const EditWindow = 15 * time.Minute

// Message is a row in the authoritative message table. Sequence numbers are
// assigned by the remote store at insert time and are the sole ordering
// authority; clients never choose them.
type Message struct {
	ID             MessageID      `json:"id"`
	ConversationID ConversationID `json:"conversation_id"`
	SenderID       UserID         `json:"sender_id"`
	Ciphertext     []byte         `json:"encrypted_content"`
	IV             []byte         `json:"initialization_vector"`
	Sequence       int64          `json:"sequence_number"`
	Deleted        bool           `json:"deleted"`
	Edited         bool           `json:"edited"`
	EditedAt       *time.Time     `json:"edited_at,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	ReadAt         *time.Time     `json:"read_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`

	// ClientRef carries the local queue id on insert so a retried insert of
	// the same queue entry is deduplicated remotely.
	ClientRef QueueID `json:"client_ref,omitempty"`
}

// DecryptedMessage is a message as presented to the UI. A message that fails
// to decrypt (revoked or rotated peer key) is flagged undecipherable rather
// than failing the whole conversation view.
type DecryptedMessage struct {
	Message
	Plaintext      string `json:"-"`
	Undecipherable bool   `json:"-"`
}
