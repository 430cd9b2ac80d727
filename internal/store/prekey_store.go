package store

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"sessionkit/internal/curve"
	"sessionkit/internal/domain"
	"sessionkit/internal/util/logger"
	"sessionkit/internal/util/memzero"
)

const preKeysFilename = "prekeys.enc"

// PreKeyFileStore persists Signed Pre-Key and One-Time Pre-Key state to disk.
type PreKeyFileStore struct {
	dir string
	kdf KDFParams
	mu  sync.Mutex
}

// NewPreKeyFileStore returns a PreKeyFileStore rooted at dir.
func NewPreKeyFileStore(dir string, kdf KDFParams) *PreKeyFileStore {
	return &PreKeyFileStore{dir: dir, kdf: kdf}
}

// Internal record types. Public keys are stored in typed form.
type spkPair struct {
	Pub  []byte `json:"pub"`
	Priv []byte `json:"priv"`
	Sig  []byte `json:"sig"`
	At   int64  `json:"at"`
}

type opkPair struct {
	Pub  []byte `json:"pub"`
	Priv []byte `json:"priv"`
}

type preKeyFile struct {
	CurrentSignedPreKeyID domain.SignedPreKeyID              `json:"current_signed_pre_key_id,omitempty"`
	Signed                map[domain.SignedPreKeyID]spkPair  `json:"signed"`
	OneTime               map[domain.OneTimePreKeyID]opkPair `json:"one_time"`
}

func (s *PreKeyFileStore) path() string { return filepath.Join(s.dir, preKeysFilename) }

// load must be called with s.mu held. A missing file is an empty store.
func (s *PreKeyFileStore) load(passphrase string) (*preKeyFile, error) {
	f := &preKeyFile{
		Signed:  map[domain.SignedPreKeyID]spkPair{},
		OneTime: map[domain.OneTimePreKeyID]opkPair{},
	}
	raw, err := readSealed(s.path(), passphrase)
	if err != nil || raw == nil {
		return f, err
	}
	defer memzero.Zero(raw)
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, oops.In("store").With("path", s.path()).Wrapf(err, "parsing pre-key file")
	}
	if f.Signed == nil {
		f.Signed = map[domain.SignedPreKeyID]spkPair{}
	}
	if f.OneTime == nil {
		f.OneTime = map[domain.OneTimePreKeyID]opkPair{}
	}
	return f, nil
}

// save must be called with s.mu held.
func (s *PreKeyFileStore) save(passphrase string, f *preKeyFile) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return oops.In("store").Wrap(err)
	}
	defer memzero.Zero(raw)
	return writeSealed(s.path(), passphrase, raw, s.kdf)
}

func (s *PreKeyFileStore) update(passphrase string, fn func(*preKeyFile) error) error {
	f, err := s.load(passphrase)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return s.save(passphrase, f)
}

func pairFrom(pub, priv []byte) (curve.KeyPair, error) {
	pk, err := curve.DeserializeTypedPublicKey(pub)
	if err != nil {
		return curve.KeyPair{}, err
	}
	sk, err := curve.NewPrivateKey(pk.Curve(), priv)
	if err != nil {
		return curve.KeyPair{}, err
	}
	return curve.NewKeyPair(pk, sk)
}

// SaveSignedPreKey stores a signed pre-key by id.
func (s *PreKeyFileStore) SaveSignedPreKey(passphrase string, rec domain.SignedPreKeyRecord) error {
	if rec.ID == "" || rec.KeyPair.IsZero() {
		return oops.In("store").Errorf("signed pre-key record is incomplete")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(passphrase, func(f *preKeyFile) error {
		f.Signed[rec.ID] = spkPair{
			Pub:  rec.KeyPair.PublicKey().SerializeTyped(),
			Priv: rec.KeyPair.PrivateKey().Serialize(),
			Sig:  rec.Signature,
			At:   rec.CreatedAt.Unix(),
		}
		return nil
	})
}

// LoadSignedPreKey retrieves a signed pre-key by id.
func (s *PreKeyFileStore) LoadSignedPreKey(
	passphrase string,
	id domain.SignedPreKeyID,
) (domain.SignedPreKeyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(passphrase)
	if err != nil {
		return domain.SignedPreKeyRecord{}, false, err
	}
	p, ok := f.Signed[id]
	if !ok {
		return domain.SignedPreKeyRecord{}, false, nil
	}
	kp, err := pairFrom(p.Pub, p.Priv)
	if err != nil {
		return domain.SignedPreKeyRecord{}, false, oops.In("store").With("signed_pre_key_id", id).Wrap(err)
	}
	return domain.SignedPreKeyRecord{
		ID:        id,
		KeyPair:   kp,
		Signature: p.Sig,
		CreatedAt: time.Unix(p.At, 0).UTC(),
	}, true, nil
}

// SaveOneTimePreKeys merges the provided one-time pre-key pairs into the store.
func (s *PreKeyFileStore) SaveOneTimePreKeys(passphrase string, recs []domain.OneTimePreKeyRecord) error {
	for _, r := range recs {
		if r.ID == "" || r.KeyPair.IsZero() {
			return oops.In("store").Errorf("one-time pre-key record is incomplete")
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(passphrase, func(f *preKeyFile) error {
		for _, r := range recs {
			f.OneTime[r.ID] = opkPair{
				Pub:  r.KeyPair.PublicKey().SerializeTyped(),
				Priv: r.KeyPair.PrivateKey().Serialize(),
			}
		}
		return nil
	})
}

// ConsumeOneTimePreKey removes and returns a single one-time pre-key by id.
func (s *PreKeyFileStore) ConsumeOneTimePreKey(
	passphrase string,
	id domain.OneTimePreKeyID,
) (domain.OneTimePreKeyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(passphrase)
	if err != nil {
		return domain.OneTimePreKeyRecord{}, false, err
	}
	p, ok := f.OneTime[id]
	if !ok {
		return domain.OneTimePreKeyRecord{}, false, nil
	}
	kp, err := pairFrom(p.Pub, p.Priv)
	if err != nil {
		return domain.OneTimePreKeyRecord{}, false, oops.In("store").With("one_time_pre_key_id", id).Wrap(err)
	}
	delete(f.OneTime, id)
	if err := s.save(passphrase, f); err != nil {
		return domain.OneTimePreKeyRecord{}, false, err
	}
	log.WithFields(logger.Fields{
		"one_time_pre_key_id": id,
		"remaining":           len(f.OneTime),
	}).Debug("Consumed one-time pre-key")
	return domain.OneTimePreKeyRecord{ID: id, KeyPair: kp}, true, nil
}

// ListOneTimePreKeyPublics exposes only the public halves for bundling,
// ordered by id.
func (s *PreKeyFileStore) ListOneTimePreKeyPublics(passphrase string) ([]domain.OneTimePreKeyPublic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(passphrase)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OneTimePreKeyPublic, 0, len(f.OneTime))
	for id, p := range f.OneTime {
		pub, err := curve.DeserializeTypedPublicKey(p.Pub)
		if err != nil {
			return nil, oops.In("store").With("one_time_pre_key_id", id).Wrap(err)
		}
		out = append(out, domain.OneTimePreKeyPublic{ID: id, Key: pub})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetCurrentSignedPreKeyID records which signed pre-key id is current.
func (s *PreKeyFileStore) SetCurrentSignedPreKeyID(passphrase string, id domain.SignedPreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(passphrase, func(f *preKeyFile) error {
		if _, ok := f.Signed[id]; !ok {
			return oops.In("store").
				With("signed_pre_key_id", id).
				Errorf("unknown signed pre-key %s", id)
		}
		f.CurrentSignedPreKeyID = id
		return nil
	})
}

// CurrentSignedPreKeyID returns the recorded current signed pre-key id.
func (s *PreKeyFileStore) CurrentSignedPreKeyID(passphrase string) (domain.SignedPreKeyID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(passphrase)
	if err != nil {
		return "", false, err
	}
	if f.CurrentSignedPreKeyID == "" {
		return "", false, nil
	}
	return f.CurrentSignedPreKeyID, true, nil
}

// Compile-time assertion that PreKeyFileStore implements domain.PreKeyStore.
var _ domain.PreKeyStore = (*PreKeyFileStore)(nil)
