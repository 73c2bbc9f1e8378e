package interfaces

import (
	"context"
	"time"

	domaintypes "sealchat/internal/domain/types"
)

// QueueStore is the durable local holding area for outbound messages. It is
// owned exclusively by the sync engine; no other component writes to it.
type QueueStore interface {
	Enqueue(ctx context.Context, m domaintypes.QueuedMessage) error

	// Get returns a single entry by id.
	Get(ctx context.Context, id domaintypes.QueueID) (domaintypes.QueuedMessage, bool, error)

	// NextPending returns the oldest pending entry for the conversation whose
	// not-before instant has passed, preserving enqueue order.
	NextPending(
		ctx context.Context,
		conversation domaintypes.ConversationID,
		now time.Time,
	) (domaintypes.QueuedMessage, bool, error)

	// PendingConversations lists conversations that still hold pending work.
	PendingConversations(ctx context.Context) ([]domaintypes.ConversationID, error)

	MarkProcessing(ctx context.Context, id domaintypes.QueueID) error

	// RecordFailure bumps the retry counter and schedules the next attempt.
	RecordFailure(
		ctx context.Context,
		id domaintypes.QueueID,
		retryCount int,
		notBefore time.Time,
	) error

	// MarkFailed parks the entry after retry exhaustion; it stays visible for
	// a manual retry, never silently dropped.
	MarkFailed(ctx context.Context, id domaintypes.QueueID) error

	// ResetForRetry returns a failed entry to pending.
	ResetForRetry(ctx context.Context, id domaintypes.QueueID) error

	// Remove deletes an entry after confirmed delivery or user cancellation.
	Remove(ctx context.Context, id domaintypes.QueueID) error

	List(
		ctx context.Context,
		conversation domaintypes.ConversationID,
	) ([]domaintypes.QueuedMessage, error)

	// CachePeerKey stores the peer's canonical key for a conversation so
	// messages can still be encrypted and enqueued while offline. Each
	// successful online resolution overwrites the entry, so a peer key
	// rotation converges on the next connected send.
	CachePeerKey(
		ctx context.Context,
		conversation domaintypes.ConversationID,
		key domaintypes.UserKey,
	) error

	// CachedPeerKey returns the last known canonical key of the
	// conversation's peer.
	CachedPeerKey(
		ctx context.Context,
		conversation domaintypes.ConversationID,
	) (domaintypes.UserKey, bool, error)

	Close() error
}
