package keys

import (
	"context"

	"sealchat/internal/crypto"
	"sealchat/internal/domain"
	"sealchat/internal/errs"
	"sealchat/internal/session"
)

// Service derives, registers, and migrates the user's encryption identity.
//
// Derivation is deterministic: identical (password, salt) yields an identical
// key pair on any device, which is what makes the identity recoverable from
// the password without any server-held secret. Only the public key and salt
// leave the process; the private half goes straight into the session.
type Service struct {
	remote  domain.RemoteStore
	session *session.Session
	device  domain.DeviceID
}

// New returns a key service for the session's user.
func New(remote domain.RemoteStore, sess *session.Session, device domain.DeviceID) *Service {
	return &Service{remote: remote, session: sess, device: device}
}

// InitializeKeys generates a fresh salt, derives the key pair from the
// password, registers the public half remotely, and unlocks the session.
func (s *Service) InitializeKeys(ctx context.Context, password string) (domain.KeyPair, error) {
	salt, err := crypto.NewSalt()
	if err != nil {
		return domain.KeyPair{}, errs.KeyDerivation("generate salt", err)
	}
	pair, err := crypto.DeriveKeyPair(password, salt)
	if err != nil {
		return domain.KeyPair{}, errs.KeyDerivation("derive key pair", err)
	}
	publicJWK, err := crypto.EncodePublicJWK(pair.Public)
	if err != nil {
		return domain.KeyPair{}, errs.KeyDerivation("encode public key", err)
	}

	err = s.remote.SaveUserKey(ctx, domain.UserKey{
		UserID:    s.session.UserID(),
		PublicJWK: publicJWK,
		Salt:      salt,
		DeviceID:  s.device,
	})
	if err != nil {
		return domain.KeyPair{}, err
	}

	s.session.Unlock(pair)
	return pair, nil
}

// DeriveKeys re-derives the key pair from the stored salt. A derived public
// key that does not match the registered one means the password is wrong.
func (s *Service) DeriveKeys(ctx context.Context, password string) (domain.KeyPair, error) {
	key, ok, err := s.remote.CurrentUserKey(ctx, s.session.UserID())
	if err != nil {
		return domain.KeyPair{}, err
	}
	if !ok {
		return domain.KeyPair{}, errs.NotFound("no encryption key registered for user")
	}
	if key.Salt == nil {
		return domain.KeyPair{}, errs.Migration(
			"key was created under the legacy scheme and has no salt", nil)
	}

	pair, err := crypto.DeriveKeyPair(password, key.Salt)
	if err != nil {
		return domain.KeyPair{}, errs.KeyDerivation("derive key pair", err)
	}
	storedPub, err := crypto.DecodePublicJWK(key.PublicJWK)
	if err != nil {
		return domain.KeyPair{}, errs.KeyDerivation("decode stored public key", err)
	}
	if pair.Public != storedPub {
		return domain.KeyPair{}, errs.KeyMismatch("derived key does not match stored key; wrong password")
	}

	s.session.Unlock(pair)
	return pair, nil
}

// HasKeys reports whether a non-revoked key record exists for the user.
func (s *Service) HasKeys(ctx context.Context) (bool, error) {
	_, ok, err := s.remote.CurrentUserKey(ctx, s.session.UserID())
	return ok, err
}

// NeedsMigration reports whether the newest non-revoked key has no salt,
// which marks it as a legacy unrecoverable random key.
func (s *Service) NeedsMigration(ctx context.Context) (bool, error) {
	key, ok, err := s.remote.CurrentUserKey(ctx, s.session.UserID())
	if err != nil {
		return false, err
	}
	return ok && key.Salt == nil, nil
}

// MigrateKeys revokes the legacy keys and re-initializes from the password.
//
// Messages encrypted under the prior unrecoverable key become permanently
// unreadable. The service performs the migration unconditionally once called;
// obtaining the user's explicit confirmation is the caller's responsibility.
func (s *Service) MigrateKeys(ctx context.Context, password string) (domain.KeyPair, error) {
	needed, err := s.NeedsMigration(ctx)
	if err != nil {
		return domain.KeyPair{}, err
	}
	if !needed {
		return domain.KeyPair{}, errs.Migration("current key does not need migration", nil)
	}
	if err := s.remote.RevokeUserKeys(ctx, s.session.UserID()); err != nil {
		return domain.KeyPair{}, errs.Migration("revoke legacy keys", err)
	}
	pair, err := s.InitializeKeys(ctx, password)
	if err != nil {
		return domain.KeyPair{}, errs.Migration("re-initialize keys", err)
	}
	return pair, nil
}

// Compile-time assertion that Service implements domain.KeyService.
var _ domain.KeyService = (*Service)(nil)
