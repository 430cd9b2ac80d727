package prekey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/samber/oops"

	"sessionkit/internal/curve"
	"sessionkit/internal/domain"
	"sessionkit/internal/util/logger"
)

var log = logger.GetLogger()

// MaxOneTimePreKeys bounds a single generation batch.
const MaxOneTimePreKeys = 100

// ErrNoSignedPreKey is returned when a bundle is requested before any
// signed pre-key was generated.
var ErrNoSignedPreKey = errors.New("no signed pre-key available")

// Service manages pre-key pairs and builds the public bundle.
type Service struct {
	ids  domain.IdentityStore
	ps   domain.PreKeyStore
	rand io.Reader
	now  func() time.Time
}

// New returns a pre-key service. A nil r uses crypto/rand.
func New(ids domain.IdentityStore, ps domain.PreKeyStore, r io.Reader) *Service {
	if r == nil {
		r = rand.Reader
	}
	return &Service{ids: ids, ps: ps, rand: r, now: time.Now}
}

// GenerateAndStorePreKeys creates a signed pre-key and count one-time
// pre-keys, and marks the new signed pre-key as current.
func (s *Service) GenerateAndStorePreKeys(
	passphrase string,
	count int,
) (domain.SignedPreKeyID, []domain.OneTimePreKeyID, error) {
	if count < 0 || count > MaxOneTimePreKeys {
		return "", nil, oops.In("prekey").
			With("count", count).
			Errorf("one-time pre-key count must be between 0 and %d", MaxOneTimePreKeys)
	}
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return "", nil, err
	}
	batch, err := s.batchTag()
	if err != nil {
		return "", nil, err
	}

	// Signed pre-key, signed over its typed encoding.
	spk, err := curve.GenerateKeyPair(id.PublicKey().Curve(), s.rand)
	if err != nil {
		return "", nil, err
	}
	sig, err := curve.CalculateSignature(s.rand, id.PrivateKey(), spk.PublicKey().SerializeTyped())
	if err != nil {
		return "", nil, err
	}
	spkID := domain.SignedPreKeyID(fmt.Sprintf("spk-%s", batch))
	rec := domain.SignedPreKeyRecord{ID: spkID, KeyPair: spk, Signature: sig, CreatedAt: s.now().UTC()}
	if err := s.ps.SaveSignedPreKey(passphrase, rec); err != nil {
		return "", nil, err
	}
	if err := s.ps.SetCurrentSignedPreKeyID(passphrase, spkID); err != nil {
		return "", nil, err
	}

	// One-time pre-keys
	recs := make([]domain.OneTimePreKeyRecord, 0, count)
	ids := make([]domain.OneTimePreKeyID, 0, count)
	for i := 0; i < count; i++ {
		kp, err := curve.GenerateKeyPair(id.PublicKey().Curve(), s.rand)
		if err != nil {
			return "", nil, err
		}
		opkID := domain.OneTimePreKeyID(fmt.Sprintf("opk-%s-%03d", batch, i))
		recs = append(recs, domain.OneTimePreKeyRecord{ID: opkID, KeyPair: kp})
		ids = append(ids, opkID)
	}
	if count > 0 {
		if err := s.ps.SaveOneTimePreKeys(passphrase, recs); err != nil {
			return "", nil, err
		}
	}

	log.WithFields(logger.Fields{
		"signed_pre_key_id": spkID,
		"one_time_count":    count,
	}).Info("Generated pre-keys")
	return spkID, ids, nil
}

// LoadPreKeyBundle builds the public bundle from the current signed pre-key
// and the remaining one-time pre-keys.
func (s *Service) LoadPreKeyBundle(passphrase string) (domain.PreKeyBundle, error) {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}

	spkID, ok, err := s.ps.CurrentSignedPreKeyID(passphrase)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	if !ok {
		return domain.PreKeyBundle{}, oops.In("prekey").Wrap(ErrNoSignedPreKey)
	}
	spk, found, err := s.ps.LoadSignedPreKey(passphrase, spkID)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	if !found {
		return domain.PreKeyBundle{}, oops.In("prekey").With("signed_pre_key_id", spkID).Wrap(ErrNoSignedPreKey)
	}

	oneTime, err := s.ps.ListOneTimePreKeyPublics(passphrase)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}

	return domain.PreKeyBundle{
		IdentityKey:           id.IdentityKey(),
		SignedPreKeyID:        spkID,
		SignedPreKey:          spk.KeyPair.PublicKey(),
		SignedPreKeySignature: spk.Signature,
		OneTimePreKeys:        oneTime,
	}, nil
}

// batchTag names one generation run: its unix time plus random bits so
// two runs in the same second do not collide.
func (s *Service) batchTag() (string, error) {
	var suffix [4]byte
	if _, err := io.ReadFull(s.rand, suffix[:]); err != nil {
		return "", oops.In("prekey").Wrapf(err, "reading id suffix")
	}
	return fmt.Sprintf("%d-%s", s.now().Unix(), hex.EncodeToString(suffix[:])), nil
}

// Compile-time assertion that Service implements domain.PreKeyService.
var _ domain.PreKeyService = (*Service)(nil)
