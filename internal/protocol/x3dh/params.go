package x3dh

import (
	"github.com/samber/oops"

	"sessionkit/internal/curve"
	"sessionkit/internal/identity"
)

// Optional holds a value that may be absent. The zero value is absent.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] { return Optional[T]{value: v, ok: true} }

// None is the absent value.
func None[T any]() Optional[T] { return Optional[T]{} }

func (o Optional[T]) Get() (T, bool) { return o.value, o.ok }

func (o Optional[T]) IsPresent() bool { return o.ok }

// InitiatorParameters is the initiator's view of a handshake.
type InitiatorParameters struct {
	ourIdentity        identity.KeyPair
	ourBaseKey         curve.KeyPair
	theirIdentity      identity.Key
	theirSignedPreKey  curve.PublicKey
	theirOneTimePreKey Optional[curve.PublicKey]
	theirRatchetKey    curve.PublicKey
}

// NewInitiatorParameters checks that every mandatory key is set and that
// all keys share one curve.
func NewInitiatorParameters(
	ourIdentity identity.KeyPair,
	ourBaseKey curve.KeyPair,
	theirIdentity identity.Key,
	theirSignedPreKey curve.PublicKey,
	theirOneTimePreKey Optional[curve.PublicKey],
	theirRatchetKey curve.PublicKey,
) (*InitiatorParameters, error) {
	p := &InitiatorParameters{
		ourIdentity:        ourIdentity,
		ourBaseKey:         ourBaseKey,
		theirIdentity:      theirIdentity,
		theirSignedPreKey:  theirSignedPreKey,
		theirOneTimePreKey: theirOneTimePreKey,
		theirRatchetKey:    theirRatchetKey,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *InitiatorParameters) OurIdentityKeyPair() identity.KeyPair { return p.ourIdentity }
func (p *InitiatorParameters) OurBaseKeyPair() curve.KeyPair        { return p.ourBaseKey }
func (p *InitiatorParameters) TheirIdentityKey() identity.Key       { return p.theirIdentity }
func (p *InitiatorParameters) TheirSignedPreKey() curve.PublicKey   { return p.theirSignedPreKey }
func (p *InitiatorParameters) TheirRatchetKey() curve.PublicKey     { return p.theirRatchetKey }
func (p *InitiatorParameters) TheirOneTimePreKey() Optional[curve.PublicKey] {
	return p.theirOneTimePreKey
}

func (p *InitiatorParameters) validate() error {
	if p == nil {
		return oops.In("x3dh").Wrapf(ErrSessionInitialization, "initiator parameters are nil")
	}
	missing := requireAll(
		field{"our_identity", p.ourIdentity.IsZero()},
		field{"our_base_key", p.ourBaseKey.IsZero()},
		field{"their_identity", p.theirIdentity.IsZero()},
		field{"their_signed_pre_key", p.theirSignedPreKey.IsZero()},
		field{"their_ratchet_key", p.theirRatchetKey.IsZero()},
	)
	if missing != "" {
		return oops.In("x3dh").
			With("field", missing).
			Wrapf(ErrSessionInitialization, "initiator parameter %s is missing", missing)
	}
	curves := []curve.Curve{
		p.ourIdentity.PublicKey().Curve(),
		p.ourBaseKey.PublicKey().Curve(),
		p.theirIdentity.PublicKey().Curve(),
		p.theirSignedPreKey.Curve(),
		p.theirRatchetKey.Curve(),
	}
	if opk, ok := p.theirOneTimePreKey.Get(); ok {
		if opk.IsZero() {
			return oops.In("x3dh").Wrapf(curve.ErrInvalidKey, "one-time pre-key is present but unset")
		}
		curves = append(curves, opk.Curve())
	}
	return oneCurve(curves)
}

// ResponderParameters is the responder's view of a handshake.
type ResponderParameters struct {
	ourIdentity      identity.KeyPair
	ourSignedPreKey  curve.KeyPair
	ourOneTimePreKey Optional[curve.KeyPair]
	ourRatchetKey    curve.KeyPair
	theirIdentity    identity.Key
	theirBaseKey     curve.PublicKey
}

// NewResponderParameters checks that every mandatory key is set and that
// all keys share one curve.
func NewResponderParameters(
	ourIdentity identity.KeyPair,
	ourSignedPreKey curve.KeyPair,
	ourOneTimePreKey Optional[curve.KeyPair],
	ourRatchetKey curve.KeyPair,
	theirIdentity identity.Key,
	theirBaseKey curve.PublicKey,
) (*ResponderParameters, error) {
	p := &ResponderParameters{
		ourIdentity:      ourIdentity,
		ourSignedPreKey:  ourSignedPreKey,
		ourOneTimePreKey: ourOneTimePreKey,
		ourRatchetKey:    ourRatchetKey,
		theirIdentity:    theirIdentity,
		theirBaseKey:     theirBaseKey,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ResponderParameters) OurIdentityKeyPair() identity.KeyPair { return p.ourIdentity }
func (p *ResponderParameters) OurSignedPreKeyPair() curve.KeyPair   { return p.ourSignedPreKey }
func (p *ResponderParameters) OurRatchetKeyPair() curve.KeyPair     { return p.ourRatchetKey }
func (p *ResponderParameters) TheirIdentityKey() identity.Key       { return p.theirIdentity }
func (p *ResponderParameters) TheirBaseKey() curve.PublicKey        { return p.theirBaseKey }
func (p *ResponderParameters) OurOneTimePreKeyPair() Optional[curve.KeyPair] {
	return p.ourOneTimePreKey
}

func (p *ResponderParameters) validate() error {
	if p == nil {
		return oops.In("x3dh").Wrapf(ErrSessionInitialization, "responder parameters are nil")
	}
	missing := requireAll(
		field{"our_identity", p.ourIdentity.IsZero()},
		field{"our_signed_pre_key", p.ourSignedPreKey.IsZero()},
		field{"our_ratchet_key", p.ourRatchetKey.IsZero()},
		field{"their_identity", p.theirIdentity.IsZero()},
		field{"their_base_key", p.theirBaseKey.IsZero()},
	)
	if missing != "" {
		return oops.In("x3dh").
			With("field", missing).
			Wrapf(ErrSessionInitialization, "responder parameter %s is missing", missing)
	}
	curves := []curve.Curve{
		p.ourIdentity.PublicKey().Curve(),
		p.ourSignedPreKey.PublicKey().Curve(),
		p.ourRatchetKey.PublicKey().Curve(),
		p.theirIdentity.PublicKey().Curve(),
		p.theirBaseKey.Curve(),
	}
	if opk, ok := p.ourOneTimePreKey.Get(); ok {
		if opk.IsZero() {
			return oops.In("x3dh").Wrapf(curve.ErrInvalidKey, "one-time pre-key is present but unset")
		}
		curves = append(curves, opk.PublicKey().Curve())
	}
	return oneCurve(curves)
}

type field struct {
	name  string
	unset bool
}

// requireAll returns the name of the first unset field.
func requireAll(fields ...field) string {
	for _, f := range fields {
		if f.unset {
			return f.name
		}
	}
	return ""
}

func oneCurve(curves []curve.Curve) error {
	first := curves[0]
	for _, c := range curves[1:] {
		if c.Type() != first.Type() {
			return oops.In("x3dh").
				With("curve", first.Name(), "other_curve", c.Name()).
				Wrapf(curve.ErrInvalidKey, "handshake keys are on different curves")
		}
	}
	return nil
}
