package remote_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"sealchat/internal/domain"
	"sealchat/internal/errs"
	"sealchat/internal/remote"
)

func TestCreateConversation_DuplicateConflicts(t *testing.T) {
	ctx := context.Background()
	m := remote.NewMemory()

	if _, err := m.CreateConversation(ctx, "alice", "bob"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := m.CreateConversation(ctx, "alice", "bob")
	if !errs.Is(err, errs.KindConflict) {
		t.Fatalf("err = %v, want %s", err, errs.KindConflict)
	}
}

func TestInsertMessage_ConcurrentSequencesAreDense(t *testing.T) {
	ctx := context.Background()
	m := remote.NewMemory()
	conv, err := m.CreateConversation(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 50
	seqs := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, err := m.InsertMessage(ctx, domain.Message{
				ConversationID: conv.ID,
				SenderID:       "alice",
				Ciphertext:     []byte{byte(i)},
				IV:             []byte{0},
			})
			if err != nil {
				t.Errorf("insert %d: %v", i, err)
				return
			}
			seqs[i] = stored.Sequence
		}(i)
	}
	wg.Wait()

	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for i, s := range seqs {
		if s != int64(i+1) {
			t.Fatalf("sequence numbers are not a dense permutation: %v", seqs)
		}
	}
}

func TestInsertMessage_ClientRefDeduplicates(t *testing.T) {
	ctx := context.Background()
	m := remote.NewMemory()
	conv, err := m.CreateConversation(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	msg := domain.Message{
		ConversationID: conv.ID,
		SenderID:       "alice",
		Ciphertext:     []byte("ct"),
		IV:             []byte("iv"),
		ClientRef:      "queue-1",
	}
	first, err := m.InsertMessage(ctx, msg)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	second, err := m.InsertMessage(ctx, msg)
	if err != nil {
		t.Fatalf("replay insert: %v", err)
	}
	if first.ID != second.ID || first.Sequence != second.Sequence {
		t.Fatalf("replay created a new row: %+v vs %+v", first, second)
	}
	rows, err := m.ListMessages(ctx, conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("stored %d rows, want 1", len(rows))
	}
}

func TestEditMessage_WindowBoundary(t *testing.T) {
	ctx := context.Background()
	m := remote.NewMemory()
	now := time.Unix(1_700_000_000, 0)
	m.Now = func() time.Time { return now }

	conv, err := m.CreateConversation(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stored, err := m.InsertMessage(ctx, domain.Message{
		ConversationID: conv.ID,
		SenderID:       "alice",
		Ciphertext:     []byte("ct"),
		IV:             []byte("iv"),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	now = stored.CreatedAt.Add(14*time.Minute + 59*time.Second)
	if err := m.EditMessage(ctx, stored.ID, []byte("ct2"), []byte("iv2")); err != nil {
		t.Fatalf("edit at 14m59s: %v", err)
	}

	now = stored.CreatedAt.Add(15*time.Minute + 1*time.Second)
	err = m.EditMessage(ctx, stored.ID, []byte("ct3"), []byte("iv3"))
	if !errs.Is(err, errs.KindValidation) {
		t.Fatalf("edit at 15m01s: err = %v, want %s", err, errs.KindValidation)
	}
	err = m.DeleteMessage(ctx, stored.ID)
	if !errs.Is(err, errs.KindValidation) {
		t.Fatalf("delete at 15m01s: err = %v, want %s", err, errs.KindValidation)
	}
}

func TestCurrentUserKey_NewestNonRevokedWins(t *testing.T) {
	ctx := context.Background()
	m := remote.NewMemory()
	base := time.Unix(1_700_000_000, 0)

	for i, dev := range []domain.DeviceID{"phone", "laptop"} {
		err := m.SaveUserKey(ctx, domain.UserKey{
			UserID:    "alice",
			PublicJWK: string(rune('a' + i)),
			DeviceID:  dev,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("save key: %v", err)
		}
	}

	key, ok, err := m.CurrentUserKey(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("current key: ok=%v err=%v", ok, err)
	}
	if key.DeviceID != "laptop" {
		t.Fatalf("canonical key from %q, want newest (laptop)", key.DeviceID)
	}

	if err := m.RevokeUserKeys(ctx, "alice"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, ok, _ := m.CurrentUserKey(ctx, "alice"); ok {
		t.Fatal("revoked keys still reported current")
	}
}

func TestOffline_SurfacesConnectionKind(t *testing.T) {
	ctx := context.Background()
	m := remote.NewMemory()
	m.SetOffline(true)

	_, err := m.InsertMessage(ctx, domain.Message{ConversationID: "conv-1"})
	if !errs.Is(err, errs.KindConnection) {
		t.Fatalf("err = %v, want %s", err, errs.KindConnection)
	}
}
