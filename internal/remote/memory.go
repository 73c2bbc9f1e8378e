package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sealchat/internal/domain"
	"sealchat/internal/errs"
)

// Memory implements the remote store contract in process: per-conversation
// sequence assignment at insert time, the participant-pair uniqueness
// constraint, client-ref deduplication, and edit-window enforcement.
type Memory struct {
	mu sync.Mutex

	// Now is the clock used for timestamps and window checks. Tests override it.
	Now func() time.Time

	offline bool

	keys          map[domain.UserID][]domain.UserKey
	conversations map[string]domain.Conversation
	messages      map[domain.ConversationID][]domain.Message
	sequences     map[domain.ConversationID]int64
	byRef         map[domain.QueueID]domain.Message
	welcomed      map[domain.UserID]bool
	typing        map[string]domain.TypingState

	nextConv int
	nextMsg  int
}

// NewMemory returns an empty in-memory remote store.
func NewMemory() *Memory {
	return &Memory{
		Now:           time.Now,
		keys:          make(map[domain.UserID][]domain.UserKey),
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[domain.ConversationID][]domain.Message),
		sequences:     make(map[domain.ConversationID]int64),
		byRef:         make(map[domain.QueueID]domain.Message),
		welcomed:      make(map[domain.UserID]bool),
		typing:        make(map[string]domain.TypingState),
	}
}

// SetOffline makes every call fail with errs.KindConnection until restored.
func (m *Memory) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

func (m *Memory) reachable() error {
	if m.offline {
		return errs.Connection("remote store unreachable", fmt.Errorf("offline"))
	}
	return nil
}

func pairKey(p1, p2 domain.UserID) string { return p1.String() + "\x00" + p2.String() }

func (m *Memory) SaveUserKey(_ context.Context, key domain.UserKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return err
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = m.Now()
	}
	existing := m.keys[key.UserID]
	for i := range existing {
		if existing[i].DeviceID == key.DeviceID && !existing[i].Revoked {
			existing[i].Revoked = true
		}
	}
	m.keys[key.UserID] = append(existing, key)
	return nil
}

func (m *Memory) CurrentUserKey(_ context.Context, user domain.UserID) (domain.UserKey, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return domain.UserKey{}, false, err
	}
	var current domain.UserKey
	found := false
	for _, k := range m.keys[user] {
		if k.Revoked {
			continue
		}
		if !found || !k.CreatedAt.Before(current.CreatedAt) {
			current, found = k, true
		}
	}
	return current, found, nil
}

func (m *Memory) RevokeUserKeys(_ context.Context, user domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return err
	}
	ks := m.keys[user]
	for i := range ks {
		ks[i].Revoked = true
	}
	return nil
}

func (m *Memory) GetConversation(_ context.Context, p1, p2 domain.UserID) (domain.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return domain.Conversation{}, false, err
	}
	c, ok := m.conversations[pairKey(p1, p2)]
	return c, ok, nil
}

func (m *Memory) ConversationByID(_ context.Context, id domain.ConversationID) (domain.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return domain.Conversation{}, false, err
	}
	for _, c := range m.conversations {
		if c.ID == id {
			return c, true, nil
		}
	}
	return domain.Conversation{}, false, nil
}

func (m *Memory) CreateConversation(_ context.Context, p1, p2 domain.UserID) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return domain.Conversation{}, err
	}
	key := pairKey(p1, p2)
	if _, exists := m.conversations[key]; exists {
		return domain.Conversation{}, errs.Conflict("conversation already exists for pair")
	}
	m.nextConv++
	c := domain.Conversation{
		ID:           domain.ConversationID(fmt.Sprintf("conv-%d", m.nextConv)),
		Participant1: p1,
		Participant2: p2,
		CreatedAt:    m.Now(),
	}
	m.conversations[key] = c
	return c, nil
}

func (m *Memory) InsertMessage(_ context.Context, msg domain.Message) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return domain.Message{}, err
	}
	if msg.ClientRef != "" {
		if prior, seen := m.byRef[msg.ClientRef]; seen {
			return prior, nil
		}
	}
	m.sequences[msg.ConversationID]++
	m.nextMsg++
	msg.ID = domain.MessageID(fmt.Sprintf("msg-%d", m.nextMsg))
	msg.Sequence = m.sequences[msg.ConversationID]
	msg.CreatedAt = m.Now()
	now := msg.CreatedAt
	msg.DeliveredAt = &now

	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], msg)
	if msg.ClientRef != "" {
		m.byRef[msg.ClientRef] = msg
	}
	for k, c := range m.conversations {
		if c.ID == msg.ConversationID {
			c.LastMessageAt = &now
			m.conversations[k] = c
		}
	}
	return msg, nil
}

func (m *Memory) ListMessages(
	_ context.Context,
	conversation domain.ConversationID,
	afterSeq int64,
	limit int,
) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return nil, err
	}
	var out []domain.Message
	for _, msg := range m.messages[conversation] {
		if msg.Sequence > afterSeq {
			out = append(out, msg)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) EditMessage(_ context.Context, id domain.MessageID, ciphertext, iv []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return err
	}
	return m.mutate(id, func(msg *domain.Message) {
		now := m.Now()
		msg.Ciphertext = append([]byte(nil), ciphertext...)
		msg.IV = append([]byte(nil), iv...)
		msg.Edited = true
		msg.EditedAt = &now
	})
}

func (m *Memory) DeleteMessage(_ context.Context, id domain.MessageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return err
	}
	return m.mutate(id, func(msg *domain.Message) {
		msg.Deleted = true
		msg.Ciphertext = nil
		msg.IV = nil
	})
}

// mutate applies fn to the message if it is still inside the edit window.
func (m *Memory) mutate(id domain.MessageID, fn func(*domain.Message)) error {
	for conv, msgs := range m.messages {
		for i := range msgs {
			if msgs[i].ID != id {
				continue
			}
			if m.Now().Sub(msgs[i].CreatedAt) > domain.EditWindow {
				return errs.Validation("edit window has closed")
			}
			fn(&m.messages[conv][i])
			return nil
		}
	}
	return errs.NotFound("message " + id.String() + " not found")
}

func (m *Memory) MarkRead(_ context.Context, id domain.MessageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return err
	}
	for conv, msgs := range m.messages {
		for i := range msgs {
			if msgs[i].ID == id {
				now := m.Now()
				m.messages[conv][i].ReadAt = &now
				return nil
			}
		}
	}
	return errs.NotFound("message " + id.String() + " not found")
}

func (m *Memory) WelcomeSent(_ context.Context, user domain.UserID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return false, err
	}
	return m.welcomed[user], nil
}

func (m *Memory) SetWelcomeSent(_ context.Context, user domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return err
	}
	m.welcomed[user] = true
	return nil
}

func (m *Memory) UpsertTyping(_ context.Context, state domain.TypingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reachable(); err != nil {
		return err
	}
	state.UpdatedAt = m.Now()
	m.typing[state.ConversationID.String()+"\x00"+state.UserID.String()] = state
	return nil
}

// Typing returns indicators for a conversation that have not yet expired.
func (m *Memory) Typing(conversation domain.ConversationID) []domain.TypingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	const expiry = 5 * time.Second
	var out []domain.TypingState
	for _, s := range m.typing {
		if s.ConversationID == conversation && s.Typing && m.Now().Sub(s.UpdatedAt) < expiry {
			out = append(out, s)
		}
	}
	return out
}

// Compile-time assertion that Memory implements domain.RemoteStore.
var _ domain.RemoteStore = (*Memory)(nil)
