package types

import "time"

// QueueStatus tracks a queued message through its local lifecycle.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueFailed     QueueStatus = "failed"
	QueueSent       QueueStatus = "sent"
)

// QueuedMessage is a locally persisted outbound message awaiting remote
// delivery. It exists only in the local queue store and is never replicated.
type QueuedMessage struct {
	ID             QueueID        `json:"id"`
	ConversationID ConversationID `json:"conversation_id"`
	SenderID       UserID         `json:"sender_id"`
	Ciphertext     []byte         `json:"ciphertext"`
	IV             []byte         `json:"iv"`
	Status         QueueStatus    `json:"status"`
	RetryCount     int            `json:"retry_count"`
	NotBefore      time.Time      `json:"not_before"`
	EnqueuedAt     time.Time      `json:"enqueued_at"`
}
