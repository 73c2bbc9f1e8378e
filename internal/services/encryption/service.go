package encryption

import (
	"sealchat/internal/crypto"
	"sealchat/internal/domain"
	"sealchat/internal/errs"
)

// Service implements message encryption over ECDH-derived shared secrets.
type Service struct{}

// New returns the encryption service.
func New() *Service { return &Service{} }

// SharedSecret derives the symmetric key for a pair of parties. Both sides
// compute the same secret from their own private and the peer's public key.
func (s *Service) SharedSecret(
	own domain.X25519Private,
	peer domain.X25519Public,
) ([]byte, error) {
	secret, err := crypto.SharedSecret(own, peer)
	if err != nil {
		return nil, errs.KeyDerivation("derive shared secret", err)
	}
	return secret, nil
}

// Encrypt seals plaintext with a fresh random IV.
func (s *Service) Encrypt(plaintext, secret []byte) (ciphertext, iv []byte, err error) {
	ciphertext, iv, err = crypto.Encrypt(plaintext, secret)
	if err != nil {
		return nil, nil, errs.Encryption("encrypt message", err)
	}
	return ciphertext, iv, nil
}

// Decrypt opens a ciphertext. Failure is classified as errs.KindDecryption;
// callers degrade the affected message to an undecipherable placeholder
// instead of failing the conversation view.
func (s *Service) Decrypt(ciphertext, iv, secret []byte) ([]byte, error) {
	plaintext, err := crypto.Decrypt(ciphertext, iv, secret)
	if err != nil {
		return nil, errs.Decryption("open message", err)
	}
	return plaintext, nil
}

// Compile-time assertion that Service implements domain.Encryptor.
var _ domain.Encryptor = (*Service)(nil)
