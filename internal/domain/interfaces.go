package domain

import (
	"sessionkit/internal/identity"
	"sessionkit/internal/session"
)

// IdentityStore persists your long-term identity keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id identity.KeyPair) error
	LoadIdentity(passphrase string) (identity.KeyPair, error)
}

// PreKeyStore manages signed and one-time pre-keys on disk.
type PreKeyStore interface {
	// Signed pre-key
	SaveSignedPreKey(passphrase string, rec SignedPreKeyRecord) error
	LoadSignedPreKey(passphrase string, id SignedPreKeyID) (SignedPreKeyRecord, bool, error)

	// One-time pre-keys
	SaveOneTimePreKeys(passphrase string, recs []OneTimePreKeyRecord) error
	ConsumeOneTimePreKey(passphrase string, id OneTimePreKeyID) (OneTimePreKeyRecord, bool, error)
	ListOneTimePreKeyPublics(passphrase string) ([]OneTimePreKeyPublic, error)

	// Current signed pre-key selection
	SetCurrentSignedPreKeyID(passphrase string, id SignedPreKeyID) error
	CurrentSignedPreKeyID(passphrase string) (SignedPreKeyID, bool, error)
}

// IdentityService creates, retrieves, and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(passphrase string) (identity.KeyPair, Fingerprint, error)
	LoadIdentity(passphrase string) (identity.KeyPair, error)
	FingerprintIdentity(passphrase string) (Fingerprint, error)
}

// PreKeyService generates and assembles your pre-key bundles.
type PreKeyService interface {
	GenerateAndStorePreKeys(passphrase string, count int) (SignedPreKeyID, []OneTimePreKeyID, error)
	LoadPreKeyBundle(passphrase string) (PreKeyBundle, error)
}

// SessionService runs the handshake from either side and records the
// resulting state in a caller-owned session record.
type SessionService interface {
	InitiateSession(passphrase string, rec *session.Record, bundle PreKeyBundle) (PreKeyMessage, error)
	RespondSession(passphrase string, rec *session.Record, msg PreKeyMessage) error
}
