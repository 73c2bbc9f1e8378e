package interfaces

import (
	"context"

	domaintypes "sealchat/internal/domain/types"
)

// RemoteStore is the authoritative relational store, consumed as a remote
// service exposing row-level CRUD with an authenticated identity. It assigns
// message sequence numbers and enforces the conversation uniqueness
// constraint and the edit/delete window; the client never does either alone.
type RemoteStore interface {
	// SaveUserKey inserts a key record for (user, device), revoking any
	// previous current key for the same pair.
	SaveUserKey(ctx context.Context, key domaintypes.UserKey) error

	// CurrentUserKey returns the most recently created non-revoked key for
	// the user, which is canonical for new encryption.
	CurrentUserKey(ctx context.Context, user domaintypes.UserID) (domaintypes.UserKey, bool, error)

	// RevokeUserKeys revokes every non-revoked key for the user. Revoked
	// keys are retained for audit.
	RevokeUserKeys(ctx context.Context, user domaintypes.UserID) error

	// GetConversation looks up the row for a canonical pair.
	GetConversation(ctx context.Context, p1, p2 domaintypes.UserID) (domaintypes.Conversation, bool, error)

	// ConversationByID looks up a conversation row by id.
	ConversationByID(ctx context.Context, id domaintypes.ConversationID) (domaintypes.Conversation, bool, error)

	// CreateConversation inserts a row for a canonical pair. A uniqueness
	// violation surfaces as errs.KindConflict.
	CreateConversation(ctx context.Context, p1, p2 domaintypes.UserID) (domaintypes.Conversation, error)

	// InsertMessage assigns the next per-conversation sequence number at
	// insert time and returns the stored row. Inserts carrying a ClientRef
	// already seen return the original row instead of a duplicate.
	InsertMessage(ctx context.Context, m domaintypes.Message) (domaintypes.Message, error)

	// ListMessages returns messages with sequence numbers greater than
	// afterSeq in authoritative order.
	ListMessages(
		ctx context.Context,
		conversation domaintypes.ConversationID,
		afterSeq int64,
		limit int,
	) ([]domaintypes.Message, error)

	// EditMessage replaces ciphertext and IV. Rejected with
	// errs.KindValidation outside the edit window.
	EditMessage(ctx context.Context, id domaintypes.MessageID, ciphertext, iv []byte) error

	// DeleteMessage tombstones a message. Same window enforcement as edits.
	DeleteMessage(ctx context.Context, id domaintypes.MessageID) error

	// MarkRead records the read receipt timestamp.
	MarkRead(ctx context.Context, id domaintypes.MessageID) error

	// WelcomeSent reads the welcome idempotency flag on the user's profile.
	WelcomeSent(ctx context.Context, user domaintypes.UserID) (bool, error)

	// SetWelcomeSent sets the welcome idempotency flag.
	SetWelcomeSent(ctx context.Context, user domaintypes.UserID) error

	// UpsertTyping publishes an expiring typing indicator row.
	UpsertTyping(ctx context.Context, state domaintypes.TypingState) error
}
