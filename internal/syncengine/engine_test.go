package syncengine_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sealchat/internal/crypto"
	"sealchat/internal/domain"
	"sealchat/internal/errs"
	"sealchat/internal/realtime"
	"sealchat/internal/remote"
	"sealchat/internal/services/conversation"
	"sealchat/internal/services/encryption"
	"sealchat/internal/session"
	"sealchat/internal/store"
	"sealchat/internal/syncengine"
)

const (
	alice = domain.UserID("alice")
	bob   = domain.UserID("bob")
)

// fakeClock is a settable clock shared by the engine and the remote store so
// retry schedules and edit windows can be driven without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	remote  *remote.Memory
	queue   *store.QueueStore
	engine  *syncengine.Engine
	conv    domain.Conversation
	bobPriv domain.X25519Private
	aliceKP domain.KeyPair
	sess    *session.Session
	loop    *realtime.Loopback
}

func newFixture(t *testing.T, opts ...syncengine.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	mem := remote.NewMemory()
	q, err := store.OpenQueue(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	alicePriv, alicePub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	bobPriv, bobPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	for user, pub := range map[domain.UserID]domain.X25519Public{alice: alicePub, bob: bobPub} {
		jwk, jerr := crypto.EncodePublicJWK(pub)
		require.NoError(t, jerr)
		require.NoError(t, mem.SaveUserKey(ctx, domain.UserKey{
			UserID:    user,
			PublicJWK: jwk,
			Salt:      []byte("0123456789abcdef"),
			DeviceID:  "dev-1",
		}))
	}

	conv, err := conversation.New(mem).GetOrCreate(ctx, alice, bob)
	require.NoError(t, err)

	sess := session.New(alice)
	sess.Unlock(domain.KeyPair{Public: alicePub, Private: alicePriv})

	loop := realtime.NewLoopback()
	eng := syncengine.New(sess, encryption.New(), conversation.New(mem), mem, q, loop, opts...)
	t.Cleanup(eng.Close)
	t.Cleanup(func() { _ = loop.Close() })

	return &fixture{
		remote:  mem,
		queue:   q,
		engine:  eng,
		conv:    conv,
		bobPriv: bobPriv,
		aliceKP: domain.KeyPair{Public: alicePub, Private: alicePriv},
		sess:    sess,
		loop:    loop,
	}
}

// prime performs one online send so the peer's canonical key lands in the
// local cache, matching any conversation that has been used while connected.
// It drains its own delivered event.
func (f *fixture) prime(t *testing.T) domain.Message {
	t.Helper()
	receipt, err := f.engine.Send(context.Background(), f.conv.ID, "hi")
	require.NoError(t, err)
	require.True(t, receipt.Delivered)
	f.waitEvent(t, syncengine.EventDelivered, time.Second)
	return receipt.Message
}

// decryptAsBob opens a stored message the way the peer would.
func (f *fixture) decryptAsBob(t *testing.T, m domain.Message) string {
	t.Helper()
	secret, err := crypto.SharedSecret(f.bobPriv, f.aliceKP.Public)
	require.NoError(t, err)
	plaintext, err := crypto.Decrypt(m.Ciphertext, m.IV, secret)
	require.NoError(t, err)
	return string(plaintext)
}

func (f *fixture) waitEvent(t *testing.T, want syncengine.EventType, timeout time.Duration) syncengine.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-f.engine.Events():
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event within %s", want, timeout)
		}
	}
}

func TestSend_OnlineDeliversWithSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.engine.Send(ctx, f.conv.ID, "hello bob")
	require.NoError(t, err)
	require.True(t, first.Delivered)
	require.EqualValues(t, 1, first.Message.Sequence)
	require.NotEmpty(t, first.Message.ID)
	require.NotNil(t, first.Message.DeliveredAt)

	second, err := f.engine.Send(ctx, f.conv.ID, "still there?")
	require.NoError(t, err)
	require.EqualValues(t, 2, second.Message.Sequence)

	require.Equal(t, "hello bob", f.decryptAsBob(t, first.Message))
	require.Equal(t, "still there?", f.decryptAsBob(t, second.Message))

	ev := f.waitEvent(t, syncengine.EventDelivered, time.Second)
	require.Equal(t, f.conv.ID, ev.ConversationID)
}

func TestSend_ContentBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, content := range []string{"", "   \t\n", strings.Repeat("x", 10001)} {
		_, err := f.engine.Send(ctx, f.conv.ID, content)
		require.True(t, errs.Is(err, errs.KindValidation), "content %q: got %v", content[:min(len(content), 10)], err)
	}

	// Exactly at the cap is fine.
	receipt, err := f.engine.Send(ctx, f.conv.ID, strings.Repeat("y", 10000))
	require.NoError(t, err)
	require.True(t, receipt.Delivered)
}

func TestSend_LockedSessionRefused(t *testing.T) {
	f := newFixture(t)
	f.sess.Lock()

	_, err := f.engine.Send(context.Background(), f.conv.ID, "hello")
	require.True(t, errs.Is(err, errs.KindEncryptionLocked), "got %v", err)
}

func TestSend_OfflineQueuesThenDrains(t *testing.T) {
	f := newFixture(t, syncengine.WithBackoffBase(10*time.Millisecond))
	ctx := context.Background()
	f.prime(t)

	f.remote.SetOffline(true)
	receipt, err := f.engine.Send(ctx, f.conv.ID, "composed offline")
	require.NoError(t, err)
	require.True(t, receipt.Queued)
	require.NotEmpty(t, receipt.QueueID)
	f.waitEvent(t, syncengine.EventQueued, time.Second)

	f.remote.SetOffline(false)
	ev := f.waitEvent(t, syncengine.EventDelivered, 3*time.Second)
	require.Equal(t, receipt.QueueID, ev.QueueID)
	require.NotNil(t, ev.Message)

	// Delivered exactly once and removed from the local queue.
	msgs, err := f.remote.ListMessages(ctx, f.conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "composed offline", f.decryptAsBob(t, msgs[1]))

	left, err := f.engine.Queued(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestSend_OfflineRequiresCachedPeerKey(t *testing.T) {
	f := newFixture(t, syncengine.WithBackoffBase(10*time.Millisecond))
	ctx := context.Background()

	// A conversation never used while connected has no cached peer key, so
	// nothing can be encrypted and the connection error surfaces.
	f.remote.SetOffline(true)
	_, err := f.engine.Send(ctx, f.conv.ID, "no key material yet")
	require.True(t, errs.Is(err, errs.KindConnection), "got %v", err)
	left, err := f.engine.Queued(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Empty(t, left)

	// One connected use caches the key; offline sends queue from then on.
	f.remote.SetOffline(false)
	f.prime(t)
	f.remote.SetOffline(true)
	receipt, err := f.engine.Send(ctx, f.conv.ID, "queued offline")
	require.NoError(t, err)
	require.True(t, receipt.Queued)
}

func TestSend_OfflineOrderPreserved(t *testing.T) {
	f := newFixture(t, syncengine.WithBackoffBase(10*time.Millisecond))
	ctx := context.Background()
	f.prime(t)

	f.remote.SetOffline(true)
	for _, text := range []string{"first", "second", "third"} {
		receipt, err := f.engine.Send(ctx, f.conv.ID, text)
		require.NoError(t, err)
		require.True(t, receipt.Queued)
	}

	f.remote.SetOffline(false)
	for i := 0; i < 3; i++ {
		f.waitEvent(t, syncengine.EventDelivered, 3*time.Second)
	}

	msgs, err := f.remote.ListMessages(ctx, f.conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i, want := range []string{"first", "second", "third"} {
		require.EqualValues(t, i+2, msgs[i+1].Sequence)
		require.Equal(t, want, f.decryptAsBob(t, msgs[i+1]))
	}
}

func TestWorker_BackoffScheduleDoubles(t *testing.T) {
	clock := newFakeClock()
	base := 50 * time.Millisecond
	f := newFixture(t, syncengine.WithBackoffBase(base), syncengine.WithClock(clock.Now))
	f.remote.Now = clock.Now
	ctx := context.Background()
	f.prime(t)

	f.remote.SetOffline(true)
	receipt, err := f.engine.Send(ctx, f.conv.ID, "will retry")
	require.NoError(t, err)
	require.True(t, receipt.Queued)

	// First failure: deferred by the base delay from the frozen clock.
	ev := f.waitEvent(t, syncengine.EventRetrying, 3*time.Second)
	require.Equal(t, 1, ev.Attempt)
	entry, ok, err := f.queue.Get(ctx, receipt.QueueID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, entry.RetryCount)
	require.Equal(t, clock.Now().Add(base).UnixMilli(), entry.NotBefore.UnixMilli())

	// The clock is frozen short of not_before, so no further attempt happens.
	select {
	case ev := <-f.engine.Events():
		t.Fatalf("unexpected %s event before backoff elapsed", ev.Type)
	case <-time.After(4 * base):
	}

	// Second failure: the delay doubles.
	clock.Advance(base)
	ev = f.waitEvent(t, syncengine.EventRetrying, 3*time.Second)
	require.Equal(t, 2, ev.Attempt)
	entry, ok, err = f.queue.Get(ctx, receipt.QueueID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, entry.RetryCount)
	require.Equal(t, clock.Now().Add(2*base).UnixMilli(), entry.NotBefore.UnixMilli())
}

func TestWorker_FailsAfterMaxAttemptsThenManualRetry(t *testing.T) {
	f := newFixture(t, syncengine.WithBackoffBase(time.Millisecond))
	ctx := context.Background()
	f.prime(t)

	f.remote.SetOffline(true)
	receipt, err := f.engine.Send(ctx, f.conv.ID, "doomed for now")
	require.NoError(t, err)
	require.True(t, receipt.Queued)

	ev := f.waitEvent(t, syncengine.EventFailed, 5*time.Second)
	require.Equal(t, syncengine.MaxAttempts, ev.Attempt)
	entry, ok, err := f.queue.Get(ctx, receipt.QueueID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.QueueFailed, entry.Status)

	// Failed entries do not retry on their own.
	select {
	case ev := <-f.engine.Events():
		t.Fatalf("unexpected %s event for parked entry", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}

	f.remote.SetOffline(false)
	require.NoError(t, f.engine.RetryFailed(ctx, receipt.QueueID))
	f.waitEvent(t, syncengine.EventDelivered, 3*time.Second)

	msgs, err := f.remote.ListMessages(ctx, f.conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
}

func TestRetryFailed_RequiresFailedStatus(t *testing.T) {
	clock := newFakeClock()
	f := newFixture(t, syncengine.WithBackoffBase(time.Minute), syncengine.WithClock(clock.Now))
	f.remote.Now = clock.Now
	ctx := context.Background()
	f.prime(t)

	f.remote.SetOffline(true)
	receipt, err := f.engine.Send(ctx, f.conv.ID, "pending")
	require.NoError(t, err)
	f.waitEvent(t, syncengine.EventRetrying, 3*time.Second)

	err = f.engine.RetryFailed(ctx, receipt.QueueID)
	require.True(t, errs.Is(err, errs.KindValidation), "got %v", err)
}

func TestCancelQueued(t *testing.T) {
	clock := newFakeClock()
	f := newFixture(t, syncengine.WithBackoffBase(time.Minute), syncengine.WithClock(clock.Now))
	f.remote.Now = clock.Now
	ctx := context.Background()
	f.prime(t)

	f.remote.SetOffline(true)
	receipt, err := f.engine.Send(ctx, f.conv.ID, "never mind")
	require.NoError(t, err)

	// After the first failed attempt the entry sits pending until its backoff
	// elapses, which the frozen clock never lets happen.
	f.waitEvent(t, syncengine.EventRetrying, 3*time.Second)

	require.NoError(t, f.engine.CancelQueued(ctx, receipt.QueueID))
	ev := f.waitEvent(t, syncengine.EventCancelled, time.Second)
	require.Equal(t, receipt.QueueID, ev.QueueID)

	_, ok, err := f.queue.Get(ctx, receipt.QueueID)
	require.NoError(t, err)
	require.False(t, ok)

	err = f.engine.CancelQueued(ctx, receipt.QueueID)
	require.True(t, errs.Is(err, errs.KindNotFound), "got %v", err)
}

func TestResume_DrainsQueueFromPreviousRun(t *testing.T) {
	f := newFixture(t, syncengine.WithBackoffBase(50*time.Millisecond))
	ctx := context.Background()
	f.prime(t)

	f.remote.SetOffline(true)
	receipt, err := f.engine.Send(ctx, f.conv.ID, "survives restart")
	require.NoError(t, err)
	require.True(t, receipt.Queued)
	f.engine.Close()

	f.remote.SetOffline(false)
	restarted := syncengine.New(
		f.sess, encryption.New(), conversation.New(f.remote), f.remote, f.queue, nil,
		syncengine.WithBackoffBase(10*time.Millisecond),
	)
	defer restarted.Close()
	require.NoError(t, restarted.Resume(ctx))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-restarted.Events():
			if ev.Type == syncengine.EventDelivered {
				msgs, lerr := f.remote.ListMessages(ctx, f.conv.ID, 0, 0)
				require.NoError(t, lerr)
				require.Len(t, msgs, 2)
				require.Equal(t, "survives restart", f.decryptAsBob(t, msgs[1]))
				return
			}
		case <-deadline:
			t.Fatal("queued message not delivered after resume")
		}
	}
}

func TestHistory_DecryptsAndDegradesPerMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two"} {
		_, err := f.engine.Send(ctx, f.conv.ID, text)
		require.NoError(t, err)
	}
	// A message sealed under a key this session cannot reach, e.g. one sent
	// before a password migration.
	_, err := f.remote.InsertMessage(ctx, domain.Message{
		ConversationID: f.conv.ID,
		SenderID:       bob,
		Ciphertext:     []byte("not a real ciphertext"),
		IV:             []byte("bad-iv-bytes"),
	})
	require.NoError(t, err)

	history, err := f.engine.History(ctx, f.conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)

	require.Equal(t, "one", history[0].Plaintext)
	require.Equal(t, "two", history[1].Plaintext)
	require.False(t, history[1].Undecipherable)
	require.True(t, history[2].Undecipherable)
	require.Empty(t, history[2].Plaintext)

	// Viewing marks the peer's messages read but not our own.
	msgs, err := f.remote.ListMessages(ctx, f.conv.ID, 0, 0)
	require.NoError(t, err)
	require.Nil(t, msgs[0].ReadAt)
	require.Nil(t, msgs[1].ReadAt)
	require.NotNil(t, msgs[2].ReadAt)
}

func TestHistory_SkipsDecryptingTombstones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.engine.Send(ctx, f.conv.ID, "delete me")
	require.NoError(t, err)
	require.NoError(t, f.engine.Delete(ctx, receipt.Message))

	history, err := f.engine.History(ctx, f.conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.True(t, history[0].Deleted)
	require.False(t, history[0].Undecipherable)
	require.Empty(t, history[0].Plaintext)
}

func TestEdit_WithinWindow(t *testing.T) {
	clock := newFakeClock()
	f := newFixture(t, syncengine.WithClock(clock.Now))
	f.remote.Now = clock.Now
	ctx := context.Background()

	receipt, err := f.engine.Send(ctx, f.conv.ID, "teh message")
	require.NoError(t, err)

	clock.Advance(14 * time.Minute)
	require.NoError(t, f.engine.Edit(ctx, receipt.Message, "the message"))

	history, err := f.engine.History(ctx, f.conv.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "the message", history[0].Plaintext)
	require.True(t, history[0].Edited)
}

func TestEditDelete_WindowClosed(t *testing.T) {
	clock := newFakeClock()
	f := newFixture(t, syncengine.WithClock(clock.Now))
	f.remote.Now = clock.Now
	ctx := context.Background()

	receipt, err := f.engine.Send(ctx, f.conv.ID, "too late")
	require.NoError(t, err)

	clock.Advance(domain.EditWindow + time.Second)
	err = f.engine.Edit(ctx, receipt.Message, "way too late")
	require.True(t, errs.Is(err, errs.KindValidation), "edit: got %v", err)
	err = f.engine.Delete(ctx, receipt.Message)
	require.True(t, errs.Is(err, errs.KindValidation), "delete: got %v", err)
}

func TestEditDelete_OwnMessagesOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.engine.Send(ctx, f.conv.ID, "hers not mine")
	require.NoError(t, err)
	theirs := receipt.Message
	theirs.SenderID = bob

	err = f.engine.Edit(ctx, theirs, "rewritten")
	require.True(t, errs.Is(err, errs.KindValidation), "edit: got %v", err)
	err = f.engine.Delete(ctx, theirs)
	require.True(t, errs.Is(err, errs.KindValidation), "delete: got %v", err)
}
