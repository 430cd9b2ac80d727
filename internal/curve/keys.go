package curve

import (
	"crypto/subtle"
	"encoding/hex"
	"io"

	"github.com/samber/oops"
)

// PublicKey is a validated curve point. The zero value is "unset" and is
// rejected by every operation that needs a key.
type PublicKey struct {
	curve Curve
	point []byte
}

// NewPublicKey validates point on c.
func NewPublicKey(c Curve, point []byte) (PublicKey, error) {
	if c == nil {
		return PublicKey{}, oops.In("curve").Wrapf(ErrInvalidKey, "no curve for public key")
	}
	if err := c.ValidatePoint(point); err != nil {
		log.WithField("length", len(point)).Debug("Rejected public key")
		return PublicKey{}, err
	}
	return PublicKey{curve: c, point: append([]byte(nil), point...)}, nil
}

// DeserializePublicKey parses an X25519 public key.
func DeserializePublicKey(b []byte) (PublicKey, error) {
	return NewPublicKey(X25519, b)
}

// Serialize returns a copy of the point bytes.
func (k PublicKey) Serialize() []byte {
	return append([]byte(nil), k.point...)
}

// SerializeTyped returns the curve type tag followed by the point, the
// form signatures and wire messages use.
func (k PublicKey) SerializeTyped() []byte {
	if k.IsZero() {
		return nil
	}
	out := make([]byte, 0, 1+len(k.point))
	out = append(out, k.curve.Type())
	return append(out, k.point...)
}

// DeserializeTypedPublicKey parses the output of SerializeTyped.
func DeserializeTypedPublicKey(b []byte) (PublicKey, error) {
	if len(b) < 1 {
		return PublicKey{}, oops.In("curve").Wrapf(ErrInvalidKey, "empty public key")
	}
	c, err := ForType(b[0])
	if err != nil {
		return PublicKey{}, err
	}
	return NewPublicKey(c, b[1:])
}

func (k PublicKey) Curve() Curve { return k.curve }

// IsZero reports whether k was never constructed.
func (k PublicKey) IsZero() bool { return k.curve == nil }

func (k PublicKey) Equal(o PublicKey) bool {
	if !sameCurve(k.curve, o.curve) {
		return k.IsZero() && o.IsZero()
	}
	return subtle.ConstantTimeCompare(k.point, o.point) == 1
}

func (k PublicKey) String() string {
	if k.IsZero() {
		return "<unset>"
	}
	return k.curve.Name() + ":" + hex.EncodeToString(k.point)
}

// PrivateKey is a curve scalar. Only its length is checked.
type PrivateKey struct {
	curve  Curve
	scalar []byte
}

// NewPrivateKey checks scalar length on c.
func NewPrivateKey(c Curve, scalar []byte) (PrivateKey, error) {
	if c == nil {
		return PrivateKey{}, oops.In("curve").Wrapf(ErrInvalidKey, "no curve for private key")
	}
	if len(scalar) != c.PrivateKeySize() {
		return PrivateKey{}, oops.In("curve").
			With("length", len(scalar)).
			Wrapf(ErrInvalidKey, "%s private key must be %d bytes", c.Name(), c.PrivateKeySize())
	}
	return PrivateKey{curve: c, scalar: append([]byte(nil), scalar...)}, nil
}

// DeserializePrivateKey parses an X25519 private key.
func DeserializePrivateKey(b []byte) (PrivateKey, error) {
	return NewPrivateKey(X25519, b)
}

// Serialize returns a copy of the scalar bytes.
func (k PrivateKey) Serialize() []byte {
	return append([]byte(nil), k.scalar...)
}

func (k PrivateKey) Curve() Curve { return k.curve }

func (k PrivateKey) IsZero() bool { return k.curve == nil }

func (k PrivateKey) Equal(o PrivateKey) bool {
	if !sameCurve(k.curve, o.curve) {
		return k.IsZero() && o.IsZero()
	}
	return subtle.ConstantTimeCompare(k.scalar, o.scalar) == 1
}

// PublicKey derives the matching public key.
func (k PrivateKey) PublicKey() (PublicKey, error) {
	if k.IsZero() {
		return PublicKey{}, oops.In("curve").Wrapf(ErrInvalidKey, "private key is unset")
	}
	point, err := k.curve.PublicFromPrivate(k.scalar)
	if err != nil {
		return PublicKey{}, oops.In("curve").Wrapf(ErrInvalidKey, "deriving public key: %v", err)
	}
	return NewPublicKey(k.curve, point)
}

func (k PrivateKey) String() string   { return "<private key>" }
func (k PrivateKey) GoString() string { return "curve.PrivateKey{<redacted>}" }

// KeyPair owns a private key and its public key.
type KeyPair struct {
	public  PublicKey
	private PrivateKey
}

// GenerateKeyPair draws a fresh key pair on c from rand.
func GenerateKeyPair(c Curve, rand io.Reader) (KeyPair, error) {
	scalar, err := c.GeneratePrivate(rand)
	if err != nil {
		return KeyPair{}, err
	}
	priv, err := NewPrivateKey(c, scalar)
	if err != nil {
		return KeyPair{}, err
	}
	pub, err := priv.PublicKey()
	if err != nil {
		return KeyPair{}, err
	}
	log.WithField("curve", c.Name()).Debug("Generated key pair")
	return KeyPair{public: pub, private: priv}, nil
}

// NewKeyPair joins an existing public and private key. The pair is not
// re-derived; the private key is trusted input.
func NewKeyPair(pub PublicKey, priv PrivateKey) (KeyPair, error) {
	if pub.IsZero() || priv.IsZero() {
		return KeyPair{}, oops.In("curve").Wrapf(ErrInvalidKey, "key pair needs both halves")
	}
	if !sameCurve(pub.curve, priv.curve) {
		return KeyPair{}, oops.In("curve").
			With("public_curve", pub.curve.Name(), "private_curve", priv.curve.Name()).
			Wrapf(ErrInvalidKey, "key pair halves are on different curves")
	}
	return KeyPair{public: pub, private: priv}, nil
}

func (kp KeyPair) PublicKey() PublicKey   { return kp.public }
func (kp KeyPair) PrivateKey() PrivateKey { return kp.private }
func (kp KeyPair) IsZero() bool           { return kp.public.IsZero() || kp.private.IsZero() }

// DH computes the shared secret between priv and pub.
func DH(priv PrivateKey, pub PublicKey) ([]byte, error) {
	if priv.IsZero() || pub.IsZero() {
		return nil, oops.In("curve").Wrapf(ErrInvalidKey, "agreement needs both keys")
	}
	if !sameCurve(priv.curve, pub.curve) {
		return nil, oops.In("curve").
			With("private_curve", priv.curve.Name(), "public_curve", pub.curve.Name()).
			Wrapf(ErrInvalidKey, "agreement across different curves")
	}
	if err := pub.curve.ValidatePoint(pub.point); err != nil {
		return nil, err
	}
	return priv.curve.Agreement(priv.scalar, pub.point)
}

// CalculateSignature signs message with priv if its curve can sign.
func CalculateSignature(rand io.Reader, priv PrivateKey, message []byte) ([]byte, error) {
	if priv.IsZero() {
		return nil, oops.In("curve").Wrapf(ErrInvalidKey, "signing needs a private key")
	}
	s, ok := priv.curve.(Signer)
	if !ok {
		return nil, oops.In("curve").
			With("curve", priv.curve.Name()).
			Wrapf(ErrInvalidKey, "%s keys cannot sign", priv.curve.Name())
	}
	sig, err := s.Sign(rand, priv.scalar, message)
	if err != nil {
		return nil, oops.In("curve").Wrapf(err, "signing with %s", priv.curve.Name())
	}
	return sig, nil
}

// VerifySignature reports whether signature is valid for message under pub.
func VerifySignature(pub PublicKey, message, signature []byte) bool {
	if pub.IsZero() {
		return false
	}
	s, ok := pub.curve.(Signer)
	if !ok {
		return false
	}
	return s.Verify(pub.point, message, signature)
}
