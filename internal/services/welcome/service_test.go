package welcome_test

import (
	"context"
	"sync"
	"testing"

	"sealchat/internal/crypto"
	"sealchat/internal/domain"
	"sealchat/internal/remote"
	"sealchat/internal/services/conversation"
	"sealchat/internal/services/encryption"
	"sealchat/internal/services/welcome"
)

const systemUser = domain.UserID("system")

func newFixture(t *testing.T, provisionSystem bool) (*welcome.Service, *remote.Memory, domain.KeyPair) {
	t.Helper()
	ctx := context.Background()
	store := remote.NewMemory()

	if provisionSystem {
		_, sysPub, err := crypto.GenerateX25519()
		if err != nil {
			t.Fatalf("generate system key: %v", err)
		}
		jwk, err := crypto.EncodePublicJWK(sysPub)
		if err != nil {
			t.Fatalf("encode system key: %v", err)
		}
		err = store.SaveUserKey(ctx, domain.UserKey{UserID: systemUser, PublicJWK: jwk})
		if err != nil {
			t.Fatalf("save system key: %v", err)
		}
	}

	userPriv, userPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("generate user key: %v", err)
	}
	svc := welcome.New(store, conversation.New(store), encryption.New(), systemUser)
	return svc, store, domain.KeyPair{Public: userPub, Private: userPriv}
}

func TestSendWelcome_DeliversDecryptableMessage(t *testing.T) {
	ctx := context.Background()
	svc, store, userKeys := newFixture(t, true)

	res := svc.SendWelcome(ctx, "newbie", userKeys)
	if !res.Success || res.Skipped {
		t.Fatalf("result = %+v", res)
	}

	p1, p2 := domain.CanonicalPair("newbie", systemUser)
	conv, ok, err := store.GetConversation(ctx, p1, p2)
	if err != nil || !ok {
		t.Fatalf("conversation: ok=%v err=%v", ok, err)
	}
	msgs, err := store.ListMessages(ctx, conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("stored %d messages, want 1", len(msgs))
	}
	if msgs[0].SenderID != systemUser {
		t.Fatalf("sender = %q, want system identity", msgs[0].SenderID)
	}

	// The new user can open it with ECDH(user priv, system pub).
	sysKey, _, err := store.CurrentUserKey(ctx, systemUser)
	if err != nil {
		t.Fatalf("system key: %v", err)
	}
	sysPub, err := crypto.DecodePublicJWK(sysKey.PublicJWK)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	secret, err := crypto.SharedSecret(userKeys.Private, sysPub)
	if err != nil {
		t.Fatalf("secret: %v", err)
	}
	plaintext, err := crypto.Decrypt(msgs[0].Ciphertext, msgs[0].IV, secret)
	if err != nil {
		t.Fatalf("decrypt welcome: %v", err)
	}
	if string(plaintext) != welcome.DefaultText {
		t.Fatalf("unexpected welcome text %q", plaintext)
	}
}

func TestSendWelcome_SecondCallSkips(t *testing.T) {
	ctx := context.Background()
	svc, _, userKeys := newFixture(t, true)

	if res := svc.SendWelcome(ctx, "newbie", userKeys); !res.Success {
		t.Fatalf("first call: %+v", res)
	}
	res := svc.SendWelcome(ctx, "newbie", userKeys)
	if !res.Success || !res.Skipped {
		t.Fatalf("second call = %+v, want success+skipped", res)
	}
}

func TestSendWelcome_ConcurrentCallsInsertOnce(t *testing.T) {
	ctx := context.Background()
	svc, store, userKeys := newFixture(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.SendWelcome(ctx, "newbie", userKeys)
		}()
	}
	wg.Wait()

	p1, p2 := domain.CanonicalPair("newbie", systemUser)
	conv, ok, err := store.GetConversation(ctx, p1, p2)
	if err != nil || !ok {
		t.Fatalf("conversation: ok=%v err=%v", ok, err)
	}
	msgs, err := store.ListMessages(ctx, conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("concurrent bootstrap inserted %d messages, want 1", len(msgs))
	}
}

func TestSendWelcome_MissingSystemKeyIsSoft(t *testing.T) {
	ctx := context.Background()
	svc, _, userKeys := newFixture(t, false)

	res := svc.SendWelcome(ctx, "newbie", userKeys)
	if res.Success || !res.Skipped {
		t.Fatalf("result = %+v, want soft skip", res)
	}
	if res.Reason != "Admin public key not found" {
		t.Fatalf("reason = %q", res.Reason)
	}
}

func TestSendWelcome_RemoteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	svc, store, userKeys := newFixture(t, true)
	store.SetOffline(true)

	res := svc.SendWelcome(ctx, "newbie", userKeys)
	if res.Success {
		t.Fatalf("result = %+v, want absorbed failure", res)
	}
}
