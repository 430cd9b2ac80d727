// Package memzero clears secret buffers.
package memzero

import "crypto/subtle"

// Zero overwrites b with zeros using a constant-time copy so the write is
// not optimised away as a dead store.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
}

// ZeroAll zeroes every buffer in bufs.
func ZeroAll(bufs ...[]byte) {
	for _, b := range bufs {
		Zero(b)
	}
}
