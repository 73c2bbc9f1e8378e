package types

import "time"

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// KeyPair holds both halves of a user's encryption identity. The private
// half lives in memory only for the duration of an authenticated session.
type KeyPair struct {
	Public  X25519Public
	Private X25519Private
}

// UserKey is the remotely stored half of a user's encryption identity.
//
// Salt is nil for keys created under the legacy scheme, which generated an
// unrecoverable random key instead of deriving one from the password. A nil
// salt therefore marks a key that needs migration.
type UserKey struct {
	UserID    UserID     `json:"user_id"`
	PublicJWK string     `json:"public_key"`
	Salt      []byte     `json:"encryption_salt,omitempty"`
	DeviceID  DeviceID   `json:"device_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Revoked   bool       `json:"revoked"`
	CreatedAt time.Time  `json:"created_at"`
}
