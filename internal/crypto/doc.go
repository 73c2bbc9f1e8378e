// Package crypto is the shared primitive layer: X25519 key handling,
// password-based key derivation, authenticated message encryption, and the
// JWK interchange codec.
//
// Parameters are fixed for interoperability with every other client of the
// platform and must not drift: ECDH over X25519, AES-256-GCM with a 96-bit
// random IV per message, and Argon2id with 64 MiB memory, 3 passes, 4 lanes,
// a 16-byte salt and a 32-byte output.
package crypto
