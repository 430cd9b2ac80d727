// Package ratchet seeds the Double Ratchet from a handshake.
//
// A RootKey combined with a DH between ratchet keys yields the next RootKey
// and a ChainKey at index 0. Only chain creation lives here; advancing a
// chain per message belongs to the message layer.
//
// Concurrency: RootKey and ChainKey are immutable values and safe to share.
package ratchet
