// Package memzero clears sensitive byte slices.
package memzero

import "crypto/subtle"

// Zero overwrites b in place. ConstantTimeCopy keeps the write from being
// elided as a dead store.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
}
