package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the failure modes callers branch on.
type Kind string

const (
	KindUnknown          Kind = "UNKNOWN"
	KindKeyDerivation    Kind = "KEY_DERIVATION"
	KindKeyMismatch      Kind = "KEY_MISMATCH"
	KindMigration        Kind = "MIGRATION"
	KindEncryptionLocked Kind = "ENCRYPTION_LOCKED"
	KindEncryption       Kind = "ENCRYPTION"
	KindDecryption       Kind = "DECRYPTION"
	KindConnection       Kind = "CONNECTION"
	KindValidation       Kind = "VALIDATION"
	KindAuthentication   Kind = "AUTHENTICATION"
	KindConflict         Kind = "CONFLICT"
	KindNotFound         Kind = "NOT_FOUND"
)

// Error carries a kind, a human-readable message, and an optional cause.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an error of the given kind.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf returns an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to a cause. A nil cause yields nil.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf reports the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err (or anything it wraps) carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// Convenience constructors for the kinds used across service boundaries.

func KeyDerivation(msg string, cause error) error { return Wrap(KindKeyDerivation, msg, cause) }
func KeyMismatch(msg string) error                { return New(KindKeyMismatch, msg) }
func Migration(msg string, cause error) error {
	if cause == nil {
		return New(KindMigration, msg)
	}
	return Wrap(KindMigration, msg, cause)
}
func EncryptionLocked() error {
	return New(KindEncryptionLocked, "no private key in memory; re-authentication required")
}
func Encryption(msg string, cause error) error { return Wrap(KindEncryption, msg, cause) }
func Decryption(msg string, cause error) error { return Wrap(KindDecryption, msg, cause) }
func Connection(msg string, cause error) error { return Wrap(KindConnection, msg, cause) }
func Validation(msg string) error              { return New(KindValidation, msg) }
func Conflict(msg string) error                { return New(KindConflict, msg) }
func NotFound(msg string) error                { return New(KindNotFound, msg) }
