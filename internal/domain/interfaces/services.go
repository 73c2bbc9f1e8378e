package interfaces

import (
	"context"

	domaintypes "sealchat/internal/domain/types"
)

// KeyService owns the lifecycle of a user's encryption identity.
type KeyService interface {
	// InitializeKeys derives a fresh key pair from the password and a new
	// random salt, publishes the public half, and unlocks the session.
	InitializeKeys(ctx context.Context, password string) (domaintypes.KeyPair, error)

	// DeriveKeys re-derives the key pair from the password and the stored
	// salt. The derived public key must match the stored one; a mismatch
	// means the password is wrong.
	DeriveKeys(ctx context.Context, password string) (domaintypes.KeyPair, error)

	// HasKeys reports whether a non-revoked key record exists for the user.
	HasKeys(ctx context.Context) (bool, error)

	// NeedsMigration reports whether the newest non-revoked key was created
	// under the legacy scheme (nil salt) and must be re-initialized.
	NeedsMigration(ctx context.Context) (bool, error)

	// MigrateKeys revokes legacy keys and re-initializes from the password.
	// Content encrypted under the prior unrecoverable key becomes permanently
	// unreadable; callers must obtain explicit confirmation first.
	MigrateKeys(ctx context.Context, password string) (domaintypes.KeyPair, error)
}

// Encryptor derives shared secrets and seals/opens message payloads.
type Encryptor interface {
	SharedSecret(
		own domaintypes.X25519Private,
		peer domaintypes.X25519Public,
	) ([]byte, error)
	Encrypt(plaintext, secret []byte) (ciphertext, iv []byte, err error)
	Decrypt(ciphertext, iv, secret []byte) ([]byte, error)
}

// ConversationService resolves the canonical conversation for a user pair.
type ConversationService interface {
	GetOrCreate(
		ctx context.Context,
		a, b domaintypes.UserID,
	) (domaintypes.Conversation, error)
}

// WelcomeService sends the one-time encrypted bootstrap message from the
// fixed system identity to a newly registered user.
type WelcomeService interface {
	SendWelcome(
		ctx context.Context,
		user domaintypes.UserID,
		keys domaintypes.KeyPair,
	) domaintypes.WelcomeResult
}
