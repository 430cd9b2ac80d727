// Package store provides file-based persistence for local key material.
//
// Every file is JSON sealed in a passphrase envelope (scrypt key
// derivation, ChaCha20-Poly1305). Writes go through a temp file and a
// rename. All methods are concurrency-safe via internal locking.
//
// The package includes stores for:
//   - Identity key pair (IdentityFileStore)
//   - Signed and one-time pre-keys (PreKeyFileStore)
//
// Sessions are not persisted here; callers own their session records.
package store
