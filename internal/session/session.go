package session

import (
	"sync"

	"sealchat/internal/domain"
	"sealchat/internal/errs"
	"sealchat/internal/util/memzero"
)

// Session is the exclusive owner of the in-memory private key.
type Session struct {
	mu   sync.RWMutex
	user domain.UserID
	priv *domain.X25519Private
	pub  domain.X25519Public
}

// New returns a locked session for the given user.
func New(user domain.UserID) *Session { return &Session{user: user} }

// UserID returns the authenticated user.
func (s *Session) UserID() domain.UserID { return s.user }

// Unlock installs freshly derived key material.
func (s *Session) Unlock(keys domain.KeyPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.priv != nil {
		memzero.Zero(s.priv[:])
	}
	priv := keys.Private
	s.priv = &priv
	s.pub = keys.Public
}

// PrivateKey returns the session private key, or errs.KindEncryptionLocked
// when the session holds none.
func (s *Session) PrivateKey() (domain.X25519Private, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.priv == nil {
		return domain.X25519Private{}, errs.EncryptionLocked()
	}
	return *s.priv, nil
}

// PublicKey returns the session public key and whether the session is unlocked.
func (s *Session) PublicKey() (domain.X25519Public, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pub, s.priv != nil
}

// Locked reports whether the session holds no private key.
func (s *Session) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.priv == nil
}

// Lock zeroes and discards the private key.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.priv != nil {
		memzero.Zero(s.priv[:])
		s.priv = nil
	}
	s.pub = domain.X25519Public{}
}
