package syncengine

import "sealchat/internal/domain"

// EventType labels a state transition reported to subscribers.
type EventType string

const (
	// EventDelivered: the remote store confirmed the insert.
	EventDelivered EventType = "delivered"
	// EventQueued: immediate delivery failed; the message is durably queued.
	EventQueued EventType = "queued"
	// EventRetrying: a queued attempt failed and a retry is scheduled.
	EventRetrying EventType = "retrying"
	// EventFailed: retries are exhausted; the entry awaits a manual retry.
	EventFailed EventType = "failed"
	// EventCancelled: the user withdrew a pending queued message.
	EventCancelled EventType = "cancelled"
	// EventTyping: a peer's typing indicator changed.
	EventTyping EventType = "typing"
)

// Event is what external UI code polls or subscribes for instead of hooking
// into engine internals.
type Event struct {
	Type           EventType
	ConversationID domain.ConversationID
	QueueID        domain.QueueID
	Attempt        int

	// Message is set on EventDelivered with the server-assigned sequence.
	Message *domain.Message

	// Typing is set on EventTyping.
	Typing *domain.TypingState
}
