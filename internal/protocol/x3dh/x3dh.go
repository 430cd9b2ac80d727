package x3dh

import (
	"errors"
	"io"

	"github.com/samber/oops"

	"sessionkit/internal/curve"
	"sessionkit/internal/protocol/ratchet"
	"sessionkit/internal/session"
	"sessionkit/internal/util/logger"
	"sessionkit/internal/util/memzero"
)

var log = logger.GetLogger()

// ErrSessionInitialization reports a missing handshake parameter or a
// failed DH or KDF step.
var ErrSessionInitialization = errors.New("session initialization failed")

// agreement is one labelled DH input to the KDF.
type agreement struct {
	step string
	priv curve.PrivateKey
	pub  curve.PublicKey
}

// agree runs each agreement in order and stops at the first failure.
func agree(steps []agreement) ([][]byte, error) {
	out := make([][]byte, 0, len(steps))
	for _, a := range steps {
		s, err := curve.DH(a.priv, a.pub)
		if err != nil {
			memzero.ZeroAll(out...)
			return nil, oops.In("x3dh").
				With("dh_step", a.step).
				Wrapf(ErrSessionInitialization, "agreement %s: %v", a.step, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func deriveFrom(steps []agreement) (root, chain []byte, err error) {
	secrets, err := agree(steps)
	if err != nil {
		return nil, nil, err
	}
	defer memzero.ZeroAll(secrets...)
	return deriveKeys(secrets)
}

// InitializeInitiatorSession derives the initiator's session. rand supplies
// the sending ratchet key; the rest of the computation is deterministic.
func InitializeInitiatorSession(p *InitiatorParameters, rand io.Reader) (*session.State, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if rand == nil {
		return nil, oops.In("x3dh").Wrapf(ErrSessionInitialization, "random source is nil")
	}

	ourIdentity := p.ourIdentity.PrivateKey()
	ourBase := p.ourBaseKey.PrivateKey()
	steps := []agreement{
		{"a", ourIdentity, p.theirSignedPreKey},
		{"b", ourBase, p.theirIdentity.PublicKey()},
		{"c", ourBase, p.theirSignedPreKey},
	}
	opk, hasOPK := p.theirOneTimePreKey.Get()
	if hasOPK {
		steps = append(steps, agreement{"d", ourBase, opk})
	}

	root, chain, err := deriveFrom(steps)
	if err != nil {
		return nil, err
	}
	defer memzero.ZeroAll(root, chain)

	rootKey, err := ratchet.NewRootKey(root)
	if err != nil {
		return nil, oops.In("x3dh").Wrapf(ErrSessionInitialization, "%v", err)
	}
	defer rootKey.Wipe()
	receiverChain, err := ratchet.NewChainKey(chain, 0)
	if err != nil {
		return nil, oops.In("x3dh").Wrapf(ErrSessionInitialization, "%v", err)
	}

	sending, err := curve.GenerateKeyPair(p.theirRatchetKey.Curve(), rand)
	if err != nil {
		return nil, oops.In("x3dh").Wrapf(ErrSessionInitialization, "generating ratchet key: %v", err)
	}
	nextRoot, senderChain, err := rootKey.CreateChain(p.theirRatchetKey, sending)
	if err != nil {
		return nil, oops.In("x3dh").
			With("dh_step", "ratchet").
			Wrapf(ErrSessionInitialization, "stepping root: %v", err)
	}

	state, err := session.NewState(session.Params{
		Version:        session.CurrentVersion,
		LocalIdentity:  p.ourIdentity.IdentityKey(),
		RemoteIdentity: p.theirIdentity,
		RootSecret:     root,
		RootKey:        nextRoot,
		SenderChain:    session.SenderChain{RatchetKey: sending, ChainKey: senderChain},
		ReceiverChain:  &session.ReceiverChain{RatchetKey: p.theirRatchetKey, ChainKey: receiverChain},
		BaseKey:        p.ourBaseKey.PublicKey(),
	})
	if err != nil {
		return nil, oops.In("x3dh").Wrapf(ErrSessionInitialization, "%v", err)
	}

	log.WithFields(logger.Fields{
		"role":             "initiator",
		"version":          state.Version(),
		"one_time_pre_key": hasOPK,
		"remote":           p.theirIdentity.Fingerprint(),
	}).Debug("Initialized session")
	return state, nil
}

// InitializeResponderSession derives the responder's session. It consumes
// no randomness, so equal inputs give byte-identical states.
func InitializeResponderSession(p *ResponderParameters) (*session.State, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	ourSPK := p.ourSignedPreKey.PrivateKey()
	theirBase := p.theirBaseKey
	steps := []agreement{
		{"a", ourSPK, p.theirIdentity.PublicKey()},
		{"b", p.ourIdentity.PrivateKey(), theirBase},
		{"c", ourSPK, theirBase},
	}
	opk, hasOPK := p.ourOneTimePreKey.Get()
	if hasOPK {
		steps = append(steps, agreement{"d", opk.PrivateKey(), theirBase})
	}

	root, chain, err := deriveFrom(steps)
	if err != nil {
		return nil, err
	}
	defer memzero.ZeroAll(root, chain)

	rootKey, err := ratchet.NewRootKey(root)
	if err != nil {
		return nil, oops.In("x3dh").Wrapf(ErrSessionInitialization, "%v", err)
	}
	senderChain, err := ratchet.NewChainKey(chain, 0)
	if err != nil {
		return nil, oops.In("x3dh").Wrapf(ErrSessionInitialization, "%v", err)
	}

	state, err := session.NewState(session.Params{
		Version:        session.CurrentVersion,
		LocalIdentity:  p.ourIdentity.IdentityKey(),
		RemoteIdentity: p.theirIdentity,
		RootSecret:     root,
		RootKey:        rootKey,
		SenderChain:    session.SenderChain{RatchetKey: p.ourRatchetKey, ChainKey: senderChain},
		BaseKey:        theirBase,
	})
	if err != nil {
		return nil, oops.In("x3dh").Wrapf(ErrSessionInitialization, "%v", err)
	}

	log.WithFields(logger.Fields{
		"role":             "responder",
		"version":          state.Version(),
		"one_time_pre_key": hasOPK,
		"remote":           p.theirIdentity.Fingerprint(),
	}).Debug("Initialized session")
	return state, nil
}
