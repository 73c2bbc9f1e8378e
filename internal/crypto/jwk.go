package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"sealchat/internal/domain"
)

// jwk is the JSON key-interchange form of an X25519 public key (RFC 8037).
type jwk struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
}

// EncodePublicJWK renders a public key as an OKP/X25519 JWK string.
func EncodePublicJWK(pub domain.X25519Public) (string, error) {
	b, err := json.Marshal(jwk{
		Kty: "OKP",
		Crv: "X25519",
		X:   base64.RawURLEncoding.EncodeToString(pub.Slice()),
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePublicJWK parses an OKP/X25519 JWK string back into key bytes.
func DecodePublicJWK(s string) (domain.X25519Public, error) {
	var pub domain.X25519Public
	var k jwk
	if err := json.Unmarshal([]byte(s), &k); err != nil {
		return pub, fmt.Errorf("parse jwk: %w", err)
	}
	if k.Kty != "OKP" || k.Crv != "X25519" {
		return pub, fmt.Errorf("unsupported jwk type %s/%s", k.Kty, k.Crv)
	}
	raw, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return pub, fmt.Errorf("decode jwk x: %w", err)
	}
	if len(raw) != KeyBytes {
		return pub, fmt.Errorf("jwk x is %d bytes, want %d", len(raw), KeyBytes)
	}
	copy(pub[:], raw)
	return pub, nil
}
