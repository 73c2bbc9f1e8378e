package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

// IVBytes is the AES-GCM nonce size: 96 bits, random per message.
const IVBytes = 12

var errBadKeySize = errors.New("shared secret must be 32 bytes")

// Encrypt seals plaintext under the shared secret with AES-256-GCM.
// A fresh random IV is generated on every call; IV reuse under the same key
// breaks GCM, so no caller-supplied IV is accepted.
func Encrypt(plaintext, secret []byte) (ciphertext, iv []byte, err error) {
	aead, err := newGCM(secret)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, IVBytes)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, iv, plaintext, nil), iv, nil
}

// Decrypt opens a ciphertext. Authentication failure (wrong secret, revoked
// key, tampering) returns an error rather than garbage.
func Decrypt(ciphertext, iv, secret []byte) ([]byte, error) {
	aead, err := newGCM(secret)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVBytes {
		return nil, errors.New("invalid iv size")
	}
	return aead.Open(nil, iv, ciphertext, nil)
}

func newGCM(secret []byte) (cipher.AEAD, error) {
	if len(secret) != KeyBytes {
		return nil, errBadKeySize
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
