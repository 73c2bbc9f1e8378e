package conversation

import (
	"context"

	"sealchat/internal/domain"
	"sealchat/internal/errs"
)

// Service resolves conversations against the remote store.
type Service struct {
	remote domain.RemoteStore
}

// New returns a conversation service backed by the given remote store.
func New(remote domain.RemoteStore) *Service { return &Service{remote: remote} }

// GetOrCreate returns the single conversation row for the unordered pair
// {a, b}, creating it if absent. When two devices race to create the same
// conversation, the loser's uniqueness conflict is absorbed by re-reading
// the winner's row, so callers never observe two rows for one pair.
func (s *Service) GetOrCreate(
	ctx context.Context,
	a, b domain.UserID,
) (domain.Conversation, error) {
	if a == b {
		return domain.Conversation{}, errs.Validation("conversation requires two distinct participants")
	}
	p1, p2 := domain.CanonicalPair(a, b)

	conv, ok, err := s.remote.GetConversation(ctx, p1, p2)
	if err != nil {
		return domain.Conversation{}, err
	}
	if ok {
		return conv, nil
	}

	conv, err = s.remote.CreateConversation(ctx, p1, p2)
	if err == nil {
		return conv, nil
	}
	if !errs.Is(err, errs.KindConflict) {
		return domain.Conversation{}, err
	}

	// Lost the creation race: another device inserted first. Return the winner.
	conv, ok, err = s.remote.GetConversation(ctx, p1, p2)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !ok {
		return domain.Conversation{}, errs.NotFound("conversation vanished after create conflict")
	}
	return conv, nil
}

// Compile-time assertion that Service implements domain.ConversationService.
var _ domain.ConversationService = (*Service)(nil)
