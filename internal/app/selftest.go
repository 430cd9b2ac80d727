package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/samber/oops"

	"sessionkit/internal/config"
	"sessionkit/internal/domain"
	"sessionkit/internal/session"
	"sessionkit/internal/util/logger"
)

var log = logger.GetLogger()

// ErrSelfTestMismatch is returned when the two sides of the self-test
// derive different secrets.
var ErrSelfTestMismatch = errors.New("initiator and responder derived different sessions")

// SelfTestResult summarizes a successful self-test handshake.
type SelfTestResult struct {
	InitiatorFingerprint domain.Fingerprint
	ResponderFingerprint domain.Fingerprint
	OneTimePreKeyID      domain.OneTimePreKeyID
}

// RunSelfTest creates two throwaway identities under dir, runs a full
// handshake between them through the JSON wire format and checks that both
// sides agree.
func RunSelfTest(base config.Config, dir, passphrase string, withOneTimePreKey bool) (SelfTestResult, error) {
	newSide := func(name string) (*Wire, domain.Fingerprint, error) {
		cfg := base
		cfg.Home = filepath.Join(dir, name)
		w, err := NewWire(cfg)
		if err != nil {
			return nil, "", err
		}
		_, fp, err := w.Identity.GenerateIdentity(passphrase)
		return w, fp, err
	}

	initiator, ifp, err := newSide("initiator")
	if err != nil {
		return SelfTestResult{}, err
	}
	responder, rfp, err := newSide("responder")
	if err != nil {
		return SelfTestResult{}, err
	}

	count := 0
	if withOneTimePreKey {
		count = 1
	}
	if _, _, err := responder.PreKeys.GenerateAndStorePreKeys(passphrase, count); err != nil {
		return SelfTestResult{}, err
	}
	bundle, err := responder.PreKeys.LoadPreKeyBundle(passphrase)
	if err != nil {
		return SelfTestResult{}, err
	}
	if err := roundTrip(&bundle); err != nil {
		return SelfTestResult{}, err
	}

	initiatorRec := session.NewRecord(nil)
	msg, err := initiator.Sessions.InitiateSession(passphrase, initiatorRec, bundle)
	if err != nil {
		return SelfTestResult{}, err
	}
	if err := roundTrip(&msg); err != nil {
		return SelfTestResult{}, err
	}
	responderRec := session.NewRecord(nil)
	if err := responder.Sessions.RespondSession(passphrase, responderRec, msg); err != nil {
		return SelfTestResult{}, err
	}

	a, b := initiatorRec.State(), responderRec.State()
	defer a.Wipe()
	defer b.Wipe()
	rc, ok := a.ReceiverChain()
	if !ok ||
		!bytes.Equal(a.RootSecret(), b.RootSecret()) ||
		!bytes.Equal(rc.ChainKey.Bytes(), b.SenderChain().ChainKey.Bytes()) {
		return SelfTestResult{}, oops.In("app").Wrap(ErrSelfTestMismatch)
	}

	log.WithFields(logger.Fields{
		"initiator":        ifp,
		"responder":        rfp,
		"one_time_pre_key": msg.OneTimePreKeyID != "",
	}).Info("Self-test handshake agreed")
	return SelfTestResult{
		InitiatorFingerprint: ifp,
		ResponderFingerprint: rfp,
		OneTimePreKeyID:      msg.OneTimePreKeyID,
	}, nil
}

// roundTrip re-decodes v from its own JSON encoding.
func roundTrip(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return oops.In("app").Wrap(err)
	}
	return json.Unmarshal(raw, v)
}
