package syncengine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	jww "github.com/spf13/jwalterweatherman"

	"sealchat/internal/crypto"
	"sealchat/internal/domain"
	"sealchat/internal/errs"
	"sealchat/internal/session"
)

const (
	// MinContentLength and MaxContentLength bound message content after
	// trimming, in characters.
	MinContentLength = 1
	MaxContentLength = 10000

	// MaxAttempts is the number of delivery attempts before an entry is
	// parked as failed.
	MaxAttempts = 5

	eventBuffer = 64
)

// SendReceipt reports how a send concluded.
type SendReceipt struct {
	// Delivered is true when the remote store confirmed the insert; Message
	// then carries the server-assigned sequence number.
	Delivered bool
	Message   domain.Message

	// Queued is true when the message was durably queued for later delivery.
	Queued  bool
	QueueID domain.QueueID
}

// Engine owns the outbound path and the local queue store exclusively.
type Engine struct {
	session *session.Session
	enc     domain.Encryptor
	convs   domain.ConversationService
	remote  domain.RemoteStore
	queue   domain.QueueStore
	typing  domain.TypingTransport

	backoffBase time.Duration
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	workers      map[domain.ConversationID]chan struct{}
	typingTimers map[domain.ConversationID]*typingSession

	events chan Event
}

// Option adjusts engine timing; used by tests.
type Option func(*Engine)

// WithBackoffBase overrides the first retry delay the schedule doubles from.
func WithBackoffBase(d time.Duration) Option {
	return func(e *Engine) { e.backoffBase = d }
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New constructs an engine. Call Resume to pick up queue contents from a
// previous run, and Close before discarding session key material.
func New(
	sess *session.Session,
	enc domain.Encryptor,
	convs domain.ConversationService,
	remote domain.RemoteStore,
	queue domain.QueueStore,
	typing domain.TypingTransport,
	opts ...Option,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		session:      sess,
		enc:          enc,
		convs:        convs,
		remote:       remote,
		queue:        queue,
		typing:       typing,
		backoffBase:  time.Second,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		workers:      make(map[domain.ConversationID]chan struct{}),
		typingTimers: make(map[domain.ConversationID]*typingSession),
		events:       make(chan Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(e)
	}
	if typing != nil {
		e.wg.Add(1)
		go e.forwardTyping()
	}
	return e
}

// Events is the engine's observer surface: a buffered stream the UI drains.
// Publishing never blocks; a full buffer drops the oldest semantics in favor
// of dropping the new event, which only affects cosmetic state.
func (e *Engine) Events() <-chan Event { return e.events }

// Send encrypts plaintext for the conversation's peer and attempts immediate
// delivery, falling back to the durable queue on connection failure.
func (e *Engine) Send(
	ctx context.Context,
	conversation domain.ConversationID,
	plaintext string,
) (SendReceipt, error) {
	text := strings.TrimSpace(plaintext)
	if n := utf8.RuneCountInString(text); n < MinContentLength || n > MaxContentLength {
		return SendReceipt{}, errs.Validation("message content must be 1-10000 characters")
	}

	secret, err := e.conversationSecret(ctx, conversation)
	if err != nil {
		return SendReceipt{}, err
	}
	ciphertext, iv, err := e.enc.Encrypt([]byte(text), secret)
	if err != nil {
		return SendReceipt{}, err
	}
	e.StopTyping(conversation)

	ref, err := newQueueID()
	if err != nil {
		return SendReceipt{}, err
	}
	msg := domain.Message{
		ConversationID: conversation,
		SenderID:       e.session.UserID(),
		Ciphertext:     ciphertext,
		IV:             iv,
		ClientRef:      ref,
	}

	stored, err := e.remote.InsertMessage(ctx, msg)
	if err == nil {
		e.publish(Event{Type: EventDelivered, ConversationID: conversation, Message: &stored})
		return SendReceipt{Delivered: true, Message: stored}, nil
	}
	if !errs.Is(err, errs.KindConnection) {
		return SendReceipt{}, err
	}

	// Offline or the remote call bounced: park the message durably and let
	// the conversation worker deliver it.
	queued := domain.QueuedMessage{
		ID:             ref,
		ConversationID: conversation,
		SenderID:       msg.SenderID,
		Ciphertext:     ciphertext,
		IV:             iv,
		Status:         domain.QueuePending,
		NotBefore:      e.now(),
		EnqueuedAt:     e.now(),
	}
	if qerr := e.queue.Enqueue(ctx, queued); qerr != nil {
		return SendReceipt{}, qerr
	}
	e.ensureWorker(conversation)
	e.publish(Event{Type: EventQueued, ConversationID: conversation, QueueID: ref})
	return SendReceipt{Queued: true, QueueID: ref}, nil
}

// Resume restarts queue workers for conversations with pending work, e.g.
// after a process restart with messages composed offline.
func (e *Engine) Resume(ctx context.Context) error {
	convs, err := e.queue.PendingConversations(ctx)
	if err != nil {
		return err
	}
	for _, conv := range convs {
		e.ensureWorker(conv)
	}
	return nil
}

// CancelQueued withdraws a message that has not yet left pending. Once an
// attempt is in flight the message can no longer be recalled, only edited or
// deleted within the edit window after delivery.
func (e *Engine) CancelQueued(ctx context.Context, id domain.QueueID) error {
	m, ok, err := e.queue.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NotFound("queued message " + id.String() + " not found")
	}
	if m.Status != domain.QueuePending {
		return errs.Validation("message already " + string(m.Status) + "; only pending sends can be cancelled")
	}
	if err := e.queue.Remove(ctx, id); err != nil {
		return err
	}
	e.publish(Event{Type: EventCancelled, ConversationID: m.ConversationID, QueueID: id})
	return nil
}

// RetryFailed returns a failed entry to the queue with a fresh retry budget.
func (e *Engine) RetryFailed(ctx context.Context, id domain.QueueID) error {
	m, ok, err := e.queue.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NotFound("queued message " + id.String() + " not found")
	}
	if m.Status != domain.QueueFailed {
		return errs.Validation("only failed messages can be retried manually")
	}
	if err := e.queue.ResetForRetry(ctx, id); err != nil {
		return err
	}
	e.ensureWorker(m.ConversationID)
	return nil
}

// Queued lists local queue entries for a conversation, failed ones included.
func (e *Engine) Queued(
	ctx context.Context,
	conversation domain.ConversationID,
) ([]domain.QueuedMessage, error) {
	return e.queue.List(ctx, conversation)
}

// History reads messages back in authoritative sequence order and decrypts
// them. A message that cannot be opened is flagged undecipherable and the
// rest of the view is unaffected.
func (e *Engine) History(
	ctx context.Context,
	conversation domain.ConversationID,
	afterSeq int64,
	limit int,
) ([]domain.DecryptedMessage, error) {
	secret, err := e.conversationSecret(ctx, conversation)
	if err != nil {
		return nil, err
	}
	msgs, err := e.remote.ListMessages(ctx, conversation, afterSeq, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DecryptedMessage, 0, len(msgs))
	for _, m := range msgs {
		dm := domain.DecryptedMessage{Message: m}
		if !m.Deleted {
			plaintext, derr := e.enc.Decrypt(m.Ciphertext, m.IV, secret)
			if derr != nil {
				dm.Undecipherable = true
			} else {
				dm.Plaintext = string(plaintext)
			}
		}
		// Viewing the conversation doubles as the read receipt for the
		// peer's messages. Best effort.
		if m.SenderID != e.session.UserID() && m.ReadAt == nil && !m.Deleted {
			if rerr := e.remote.MarkRead(ctx, m.ID); rerr != nil {
				jww.DEBUG.Printf("[sync] mark %s read: %v", m.ID, rerr)
			}
		}
		out = append(out, dm)
	}
	return out, nil
}

// Edit re-encrypts a delivered message within the edit window. The remote
// store enforces the window again; the local check just fails fast.
func (e *Engine) Edit(
	ctx context.Context,
	msg domain.Message,
	newPlaintext string,
) error {
	text := strings.TrimSpace(newPlaintext)
	if n := utf8.RuneCountInString(text); n < MinContentLength || n > MaxContentLength {
		return errs.Validation("message content must be 1-10000 characters")
	}
	if msg.SenderID != e.session.UserID() {
		return errs.Validation("only own messages can be edited")
	}
	if e.now().Sub(msg.CreatedAt) > domain.EditWindow {
		return errs.Validation("edit window has closed")
	}
	secret, err := e.conversationSecret(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	ciphertext, iv, err := e.enc.Encrypt([]byte(text), secret)
	if err != nil {
		return err
	}
	return e.remote.EditMessage(ctx, msg.ID, ciphertext, iv)
}

// Delete tombstones a delivered message within the edit window.
func (e *Engine) Delete(ctx context.Context, msg domain.Message) error {
	if msg.SenderID != e.session.UserID() {
		return errs.Validation("only own messages can be deleted")
	}
	if e.now().Sub(msg.CreatedAt) > domain.EditWindow {
		return errs.Validation("delete window has closed")
	}
	return e.remote.DeleteMessage(ctx, msg.ID)
}

// Close cancels workers and retry timers. Call it before clearing session
// key material so no timer fires afterwards.
func (e *Engine) Close() {
	e.cancel()
	e.mu.Lock()
	for conv, ts := range e.typingTimers {
		ts.timer.Stop()
		delete(e.typingTimers, conv)
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// conversationSecret resolves the peer's canonical key and derives the
// shared secret. Resolution happens per call so a peer key rotation or
// migration is picked up on the next send; each successful resolution
// refreshes the local cache so the secret can still be derived offline.
func (e *Engine) conversationSecret(
	ctx context.Context,
	conversation domain.ConversationID,
) ([]byte, error) {
	priv, err := e.session.PrivateKey()
	if err != nil {
		return nil, err
	}
	conv, ok, err := e.remote.ConversationByID(ctx, conversation)
	if errs.Is(err, errs.KindConnection) {
		return e.cachedSecret(ctx, conversation, priv, err)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NotFound("conversation " + conversation.String() + " not found")
	}
	peer, ok := conv.Peer(e.session.UserID())
	if !ok {
		return nil, errs.Validation("user is not a participant of the conversation")
	}
	key, ok, err := e.remote.CurrentUserKey(ctx, peer)
	if errs.Is(err, errs.KindConnection) {
		return e.cachedSecret(ctx, conversation, priv, err)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NotFound("peer has no encryption key")
	}
	peerPub, err := crypto.DecodePublicJWK(key.PublicJWK)
	if err != nil {
		return nil, errs.KeyDerivation("decode peer key", err)
	}
	if cerr := e.queue.CachePeerKey(ctx, conversation, key); cerr != nil {
		jww.DEBUG.Printf("[sync] cache peer key for %s: %v", conversation, cerr)
	}
	return e.enc.SharedSecret(priv, peerPub)
}

// cachedSecret derives the shared secret from the locally cached peer key
// when the remote store is unreachable. A conversation never used while
// connected has no cache entry; the original connection error surfaces.
func (e *Engine) cachedSecret(
	ctx context.Context,
	conversation domain.ConversationID,
	priv domain.X25519Private,
	cause error,
) ([]byte, error) {
	key, ok, err := e.queue.CachedPeerKey(ctx, conversation)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, cause
	}
	peerPub, err := crypto.DecodePublicJWK(key.PublicJWK)
	if err != nil {
		return nil, errs.KeyDerivation("decode cached peer key", err)
	}
	return e.enc.SharedSecret(priv, peerPub)
}

func (e *Engine) publish(ev Event) {
	select {
	case e.events <- ev:
	default:
		jww.DEBUG.Printf("[sync] event buffer full, dropping %s", ev.Type)
	}
}

func (e *Engine) forwardTyping() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case state, ok := <-e.typing.Updates():
			if !ok {
				return
			}
			s := state
			e.publish(Event{Type: EventTyping, ConversationID: state.ConversationID, Typing: &s})
		}
	}
}

func newQueueID() (domain.QueueID, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return domain.QueueID("q-" + hex.EncodeToString(b[:])), nil
}
