package welcome

import (
	"context"
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"sealchat/internal/crypto"
	"sealchat/internal/domain"
)

// DefaultText is the canned explanatory message every new user receives.
const DefaultText = "Welcome! Messages in this chat are end-to-end encrypted: " +
	"they are sealed with a key derived from your password and can only be " +
	"read by you and the person you write to."

// Service performs the welcome bootstrap.
type Service struct {
	remote     domain.RemoteStore
	convs      domain.ConversationService
	enc        domain.Encryptor
	systemUser domain.UserID
	text       string

	mu       sync.Mutex
	inFlight map[domain.UserID]*sync.Mutex
}

// New returns a welcome service sending from the given system identity.
func New(
	remote domain.RemoteStore,
	convs domain.ConversationService,
	enc domain.Encryptor,
	systemUser domain.UserID,
) *Service {
	return &Service{
		remote:     remote,
		convs:      convs,
		enc:        enc,
		systemUser: systemUser,
		text:       DefaultText,
		inFlight:   make(map[domain.UserID]*sync.Mutex),
	}
}

// SendWelcome delivers the bootstrap message exactly once per user.
//
// The idempotency flag is checked first and set last, mirroring the remote
// profile contract; concurrent calls for the same user are serialized in
// process so only the first one inserts.
func (s *Service) SendWelcome(
	ctx context.Context,
	user domain.UserID,
	keys domain.KeyPair,
) domain.WelcomeResult {
	lock := s.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	sent, err := s.remote.WelcomeSent(ctx, user)
	if err != nil {
		return s.swallow(user, "read welcome flag", err)
	}
	if sent {
		return domain.WelcomeResult{Success: true, Skipped: true}
	}

	systemKey, ok, err := s.remote.CurrentUserKey(ctx, s.systemUser)
	if err != nil {
		return s.swallow(user, "fetch system key", err)
	}
	if !ok {
		// Soft failure: the system identity has not been provisioned yet.
		return domain.WelcomeResult{Skipped: true, Reason: "Admin public key not found"}
	}

	systemPub, err := crypto.DecodePublicJWK(systemKey.PublicJWK)
	if err != nil {
		return s.swallow(user, "decode system key", err)
	}
	secret, err := s.enc.SharedSecret(keys.Private, systemPub)
	if err != nil {
		return s.swallow(user, "derive shared secret", err)
	}
	ciphertext, iv, err := s.enc.Encrypt([]byte(s.text), secret)
	if err != nil {
		return s.swallow(user, "encrypt welcome", err)
	}

	conv, err := s.convs.GetOrCreate(ctx, user, s.systemUser)
	if err != nil {
		return s.swallow(user, "resolve conversation", err)
	}
	_, err = s.remote.InsertMessage(ctx, domain.Message{
		ConversationID: conv.ID,
		SenderID:       s.systemUser,
		Ciphertext:     ciphertext,
		IV:             iv,
	})
	if err != nil {
		return s.swallow(user, "insert welcome message", err)
	}

	if err := s.remote.SetWelcomeSent(ctx, user); err != nil {
		// The message is in; a failed flag write only risks a skipped=false
		// rerun, which the flag check above absorbs next time it succeeds.
		jww.WARN.Printf("[welcome] set flag for %s: %v", user, err)
	}
	return domain.WelcomeResult{Success: true}
}

func (s *Service) userLock(user domain.UserID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.inFlight[user]
	if !ok {
		lock = &sync.Mutex{}
		s.inFlight[user] = lock
	}
	return lock
}

func (s *Service) swallow(user domain.UserID, step string, err error) domain.WelcomeResult {
	jww.WARN.Printf("[welcome] %s for %s: %v", step, user, err)
	return domain.WelcomeResult{Reason: step + " failed"}
}

// Compile-time assertion that Service implements domain.WelcomeService.
var _ domain.WelcomeService = (*Service)(nil)
