package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	"sealchat/internal/domain"
	"sealchat/internal/util/memzero"
)

const (
	KeyBytes  = 32
	SaltBytes = 16

	// Argon2id cost parameters, fixed for cross-device determinism.
	argonMemoryKiB = 64 * 1024
	argonTime      = 3
	argonThreads   = 4
)

// secretInfo domain-separates the HKDF expansion of the raw ECDH output.
var secretInfo = []byte("sealchat-shared-secret-v1")

// NewSalt returns a fresh random derivation salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveKeyPair deterministically derives an X25519 key pair from a password
// and salt via Argon2id. Identical (password, salt) yields an identical pair
// on any device; this is what lets a user recover their encryption identity
// from the password alone.
func DeriveKeyPair(password string, salt []byte) (domain.KeyPair, error) {
	seed := argon2.IDKey([]byte(password), salt, argonTime, argonMemoryKiB, argonThreads, KeyBytes)
	defer memzero.Zero(seed)

	var priv domain.X25519Private
	copy(priv[:], seed)
	clamp(&priv)

	pub, err := PublicFromPrivate(priv)
	if err != nil {
		return domain.KeyPair{}, err
	}
	return domain.KeyPair{Public: pub, Private: priv}, nil
}

// SharedSecret runs X25519 and expands the raw output into a 32-byte
// symmetric key with HKDF-SHA256. Commutative: both sides derive the same
// secret from their own private and the peer's public key.
func SharedSecret(own domain.X25519Private, peer domain.X25519Public) ([]byte, error) {
	raw, err := DH(own, peer)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(raw[:])

	key := make([]byte, KeyBytes)
	if _, err := io.ReadFull(hkdf.New(sha256.New, raw[:], nil, secretInfo), key); err != nil {
		return nil, err
	}
	return key, nil
}
