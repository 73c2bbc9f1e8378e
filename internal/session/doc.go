// Package session holds the private key for the authenticated session.
//
// The key lives in memory only: it is never written to durable storage, and
// Lock zeroes it on sign-out or when a session is restored without
// re-authentication. Encryption operations attempted while locked fail with
// errs.KindEncryptionLocked so the caller can prompt for the password again.
package session
