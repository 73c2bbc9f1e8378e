// Package errs defines the closed error taxonomy shared across the module.
//
// Every failure mode callers are expected to branch on carries a Kind.
// Kinds are matched with KindOf or Is; the underlying cause is preserved
// through Unwrap so errors.Is/As keep working on wrapped I/O errors.
package errs
