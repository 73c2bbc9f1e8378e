package encryption_test

import (
	"bytes"
	"testing"

	"sealchat/internal/crypto"
	"sealchat/internal/errs"
	"sealchat/internal/services/encryption"
)

func TestSharedSecret_RoundTripBetweenSides(t *testing.T) {
	svc := encryption.New()

	alicePriv, alicePub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	bobPriv, bobPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	aliceSecret, err := svc.SharedSecret(alicePriv, bobPub)
	if err != nil {
		t.Fatalf("alice secret: %v", err)
	}
	bobSecret, err := svc.SharedSecret(bobPriv, alicePub)
	if err != nil {
		t.Fatalf("bob secret: %v", err)
	}

	ct, iv, err := svc.Encrypt([]byte("the meeting is at noon"), aliceSecret)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	pt, err := svc.Decrypt(ct, iv, bobSecret)
	if err != nil {
		t.Fatalf("decrypt on the other side: %v", err)
	}
	if string(pt) != "the meeting is at noon" {
		t.Fatalf("got %q", pt)
	}
}

func TestEncrypt_BadSecretIsEncryptionKind(t *testing.T) {
	svc := encryption.New()

	_, _, err := svc.Encrypt([]byte("Hello"), []byte("too short for AES-256"))
	if !errs.Is(err, errs.KindEncryption) {
		t.Fatalf("err = %v, want %s", err, errs.KindEncryption)
	}
}

func TestDecrypt_WrongSecretIsDecryptionKind(t *testing.T) {
	svc := encryption.New()
	secret := bytes.Repeat([]byte{0x42}, crypto.KeyBytes)
	other := bytes.Repeat([]byte{0x24}, crypto.KeyBytes)

	ct, iv, err := svc.Encrypt([]byte("Hello"), secret)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	_, err = svc.Decrypt(ct, iv, other)
	if !errs.Is(err, errs.KindDecryption) {
		t.Fatalf("err = %v, want %s", err, errs.KindDecryption)
	}
}
