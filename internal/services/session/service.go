package session

import (
	"crypto/rand"
	"errors"
	"io"

	"github.com/samber/oops"

	"sessionkit/internal/curve"
	"sessionkit/internal/domain"
	"sessionkit/internal/protocol/x3dh"
	"sessionkit/internal/session"
	"sessionkit/internal/util/logger"
)

var log = logger.GetLogger()

var (
	// ErrBadSignature is returned when the bundle's signed pre-key does not
	// verify under the bundle's identity key.
	ErrBadSignature = errors.New("signed pre-key signature does not verify")

	// ErrUnknownPreKey is returned when a pre-key message references a pre-key
	// we do not hold (never generated, or a one-time key already used).
	ErrUnknownPreKey = errors.New("unknown pre-key")

	// ErrUnsupportedVersion is returned for pre-key messages of another
	// session version.
	ErrUnsupportedVersion = errors.New("unsupported session version")

	// ErrSessionExists is returned when the record already holds a session
	// for the message's base key.
	ErrSessionExists = errors.New("session already established for this base key")
)

// Service performs X3DH from either side.
type Service struct {
	ids  domain.IdentityStore
	ps   domain.PreKeyStore
	rand io.Reader
}

// New constructs a session service. A nil r uses crypto/rand.
func New(ids domain.IdentityStore, ps domain.PreKeyStore, r io.Reader) *Service {
	if r == nil {
		r = rand.Reader
	}
	return &Service{ids: ids, ps: ps, rand: r}
}

// InitiateSession runs X3DH against bundle, promotes the new state into rec
// and returns the message the responder needs.
//
// Steps:
//  1. Verify the signed pre-key signature with the bundle's identity key.
//  2. Generate an ephemeral base key.
//  3. Use the first offered one-time pre-key, if any.
//  4. Run the initiator handshake with the signed pre-key as the peer's
//     initial ratchet key.
func (s *Service) InitiateSession(
	passphrase string,
	rec *session.Record,
	bundle domain.PreKeyBundle,
) (domain.PreKeyMessage, error) {
	if rec == nil {
		return domain.PreKeyMessage{}, oops.In("session").Errorf("session record is nil")
	}
	if !curve.VerifySignature(
		bundle.IdentityKey.PublicKey(),
		bundle.SignedPreKey.SerializeTyped(),
		bundle.SignedPreKeySignature,
	) {
		return domain.PreKeyMessage{}, oops.In("session").
			With("signed_pre_key_id", bundle.SignedPreKeyID, "peer", bundle.IdentityKey.Fingerprint()).
			Wrap(ErrBadSignature)
	}

	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return domain.PreKeyMessage{}, err
	}
	base, err := curve.GenerateKeyPair(id.PublicKey().Curve(), s.rand)
	if err != nil {
		return domain.PreKeyMessage{}, err
	}

	opk := x3dh.None[curve.PublicKey]()
	var opkID domain.OneTimePreKeyID
	if len(bundle.OneTimePreKeys) > 0 {
		opk = x3dh.Some(bundle.OneTimePreKeys[0].Key)
		opkID = bundle.OneTimePreKeys[0].ID
	}

	params, err := x3dh.NewInitiatorParameters(
		id, base,
		bundle.IdentityKey, bundle.SignedPreKey, opk, bundle.SignedPreKey,
	)
	if err != nil {
		return domain.PreKeyMessage{}, err
	}
	state, err := x3dh.InitializeInitiatorSession(params, s.rand)
	if err != nil {
		return domain.PreKeyMessage{}, err
	}
	rec.PromoteState(state)

	log.WithFields(logger.Fields{
		"peer":                bundle.IdentityKey.Fingerprint(),
		"signed_pre_key_id":   bundle.SignedPreKeyID,
		"one_time_pre_key_id": opkID,
	}).Info("Initiated session")
	return domain.PreKeyMessage{
		Version:         state.Version(),
		IdentityKey:     id.IdentityKey(),
		BaseKey:         base.PublicKey(),
		SignedPreKeyID:  bundle.SignedPreKeyID,
		OneTimePreKeyID: opkID,
	}, nil
}

// RespondSession derives the responder's side of the session announced by
// msg and promotes it into rec. The referenced one-time pre-key is removed
// from the store.
func (s *Service) RespondSession(
	passphrase string,
	rec *session.Record,
	msg domain.PreKeyMessage,
) error {
	if rec == nil {
		return oops.In("session").Errorf("session record is nil")
	}
	if msg.Version != session.CurrentVersion {
		return oops.In("session").With("version", msg.Version).Wrap(ErrUnsupportedVersion)
	}
	if msg.BaseKey.IsZero() {
		return oops.In("session").Wrapf(curve.ErrInvalidKey, "pre-key message has no base key")
	}
	if rec.HasSessionState(msg.Version, msg.BaseKey.Serialize()) {
		return oops.In("session").
			With("peer", msg.IdentityKey.Fingerprint()).
			Wrap(ErrSessionExists)
	}

	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return err
	}
	spk, ok, err := s.ps.LoadSignedPreKey(passphrase, msg.SignedPreKeyID)
	if err != nil {
		return err
	}
	if !ok {
		return oops.In("session").With("signed_pre_key_id", msg.SignedPreKeyID).Wrap(ErrUnknownPreKey)
	}

	opk := x3dh.None[curve.KeyPair]()
	if msg.OneTimePreKeyID != "" {
		r, ok, err := s.ps.ConsumeOneTimePreKey(passphrase, msg.OneTimePreKeyID)
		if err != nil {
			return err
		}
		if !ok {
			return oops.In("session").With("one_time_pre_key_id", msg.OneTimePreKeyID).Wrap(ErrUnknownPreKey)
		}
		opk = x3dh.Some(r.KeyPair)
	}

	params, err := x3dh.NewResponderParameters(
		id, spk.KeyPair, opk, spk.KeyPair,
		msg.IdentityKey, msg.BaseKey,
	)
	if err != nil {
		return err
	}
	state, err := x3dh.InitializeResponderSession(params)
	if err != nil {
		return err
	}
	rec.PromoteState(state)

	log.WithFields(logger.Fields{
		"peer":                msg.IdentityKey.Fingerprint(),
		"signed_pre_key_id":   msg.SignedPreKeyID,
		"one_time_pre_key_id": msg.OneTimePreKeyID,
	}).Info("Accepted session")
	return nil
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
