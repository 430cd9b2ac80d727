package store

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/samber/oops"

	"sessionkit/internal/domain"
	"sessionkit/internal/identity"
	"sessionkit/internal/util/logger"
	"sessionkit/internal/util/memzero"
)

var log = logger.GetLogger()

const idFilename = "identity.enc"

// ErrNoIdentity is returned by LoadIdentity before an identity was saved.
var ErrNoIdentity = errors.New("no identity found; run init first")

// IdentityFileStore persists the local identity to disk.
type IdentityFileStore struct {
	dir string
	kdf KDFParams
	mu  sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string, kdf KDFParams) *IdentityFileStore {
	return &IdentityFileStore{dir: dir, kdf: kdf}
}

// SaveIdentity writes the encrypted identity to disk.
func (s *IdentityFileStore) SaveIdentity(passphrase string, id identity.KeyPair) error {
	if id.IsZero() {
		return oops.In("store").Errorf("refusing to save an empty identity")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := id.Serialize()
	defer memzero.Zero(raw)
	if err := writeSealed(filepath.Join(s.dir, idFilename), passphrase, raw, s.kdf); err != nil {
		return err
	}
	log.WithField("fingerprint", id.IdentityKey().Fingerprint()).Debug("Saved identity")
	return nil
}

// LoadIdentity reads and decrypts the identity.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (identity.KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := readSealed(filepath.Join(s.dir, idFilename), passphrase)
	if err != nil {
		return identity.KeyPair{}, err
	}
	if raw == nil {
		return identity.KeyPair{}, oops.In("store").With("dir", s.dir).Wrap(ErrNoIdentity)
	}
	defer memzero.Zero(raw)
	return identity.NewKeyPair(raw)
}

// Compile-time assertion that IdentityFileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*IdentityFileStore)(nil)
