package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/samber/oops"

	"sessionkit/internal/curve"
	"sessionkit/internal/util/logger"
)

var log = logger.GetLogger()

// FingerprintBytes is how many digest bytes Fingerprint keeps.
const FingerprintBytes = 10

// Key is a long-term public identity key.
type Key struct {
	public curve.PublicKey
}

// NewKey parses tag || point.
func NewKey(b []byte) (Key, error) {
	if len(b) < 1 {
		return Key{}, oops.In("identity").Wrapf(curve.ErrInvalidKey, "empty identity key")
	}
	c, err := curve.ForType(b[0])
	if err != nil {
		return Key{}, err
	}
	if len(b) != 1+c.PublicKeySize() {
		return Key{}, oops.In("identity").
			With("length", len(b), "curve", c.Name()).
			Wrapf(curve.ErrInvalidKey, "identity key must be %d bytes", 1+c.PublicKeySize())
	}
	pub, err := curve.NewPublicKey(c, b[1:])
	if err != nil {
		return Key{}, oops.In("identity").Wrapf(err, "identity key point")
	}
	return Key{public: pub}, nil
}

// NewKeyFromPublic wraps an already validated public key.
func NewKeyFromPublic(pub curve.PublicKey) (Key, error) {
	if pub.IsZero() {
		return Key{}, oops.In("identity").Wrapf(curve.ErrInvalidKey, "identity key is unset")
	}
	return Key{public: pub}, nil
}

// Serialize returns tag || point.
func (k Key) Serialize() []byte {
	if k.IsZero() {
		return nil
	}
	point := k.public.Serialize()
	out := make([]byte, 0, 1+len(point))
	out = append(out, k.public.Curve().Type())
	return append(out, point...)
}

func (k Key) PublicKey() curve.PublicKey { return k.public }

func (k Key) IsZero() bool { return k.public.IsZero() }

func (k Key) Equal(o Key) bool { return k.public.Equal(o.public) }

// Fingerprint returns a short hex digest of the serialized key.
//
// It hashes with SHA-256 and truncates to FingerprintBytes.
func (k Key) Fingerprint() string {
	sum := sha256.Sum256(k.Serialize())
	return hex.EncodeToString(sum[:FingerprintBytes])
}

// KeyPair is a long-term identity key and its private scalar.
type KeyPair struct {
	key     Key
	private curve.PrivateKey
}

// GenerateKeyPair creates an X25519 identity from rand.
func GenerateKeyPair(rand io.Reader) (KeyPair, error) {
	return GenerateKeyPairOn(curve.X25519, rand)
}

// GenerateKeyPairOn creates an identity on c from rand.
func GenerateKeyPairOn(c curve.Curve, rand io.Reader) (KeyPair, error) {
	kp, err := curve.GenerateKeyPair(c, rand)
	if err != nil {
		return KeyPair{}, oops.In("identity").Wrapf(err, "generating identity key pair")
	}
	log.WithField("curve", c.Name()).Debug("Generated identity key pair")
	return KeyPair{key: Key{public: kp.PublicKey()}, private: kp.PrivateKey()}, nil
}

// NewKeyPair parses IdentityKey || scalar.
func NewKeyPair(b []byte) (KeyPair, error) {
	if len(b) < 1 {
		return KeyPair{}, oops.In("identity").Wrapf(curve.ErrInvalidKey, "empty identity key pair")
	}
	c, err := curve.ForType(b[0])
	if err != nil {
		return KeyPair{}, err
	}
	keyLen := 1 + c.PublicKeySize()
	if len(b) != keyLen+c.PrivateKeySize() {
		return KeyPair{}, oops.In("identity").
			With("length", len(b), "curve", c.Name()).
			Wrapf(curve.ErrInvalidKey, "identity key pair must be %d bytes", keyLen+c.PrivateKeySize())
	}
	key, err := NewKey(b[:keyLen])
	if err != nil {
		return KeyPair{}, err
	}
	priv, err := curve.NewPrivateKey(c, b[keyLen:])
	if err != nil {
		return KeyPair{}, err
	}
	return NewKeyPairFromKeys(key, priv)
}

// NewKeyPairFromKeys joins key and priv after checking that key is
// derived from priv.
func NewKeyPairFromKeys(key Key, priv curve.PrivateKey) (KeyPair, error) {
	if key.IsZero() || priv.IsZero() {
		return KeyPair{}, oops.In("identity").Wrapf(curve.ErrInvalidKey, "identity key pair needs both halves")
	}
	derived, err := priv.PublicKey()
	if err != nil {
		return KeyPair{}, err
	}
	if !derived.Equal(key.public) {
		return KeyPair{}, oops.In("identity").Wrapf(curve.ErrInvalidKey, "identity key does not match private key")
	}
	return KeyPair{key: key, private: priv}, nil
}

// Serialize returns IdentityKey || scalar.
func (kp KeyPair) Serialize() []byte {
	if kp.IsZero() {
		return nil
	}
	out := kp.key.Serialize()
	return append(out, kp.private.Serialize()...)
}

func (kp KeyPair) IdentityKey() Key             { return kp.key }
func (kp KeyPair) PublicKey() curve.PublicKey   { return kp.key.public }
func (kp KeyPair) PrivateKey() curve.PrivateKey { return kp.private }
func (kp KeyPair) IsZero() bool                 { return kp.key.IsZero() || kp.private.IsZero() }

// KeyPair returns the identity as a plain curve key pair.
func (kp KeyPair) KeyPair() curve.KeyPair {
	if kp.IsZero() {
		return curve.KeyPair{}
	}
	pair, err := curve.NewKeyPair(kp.key.public, kp.private)
	if err != nil {
		// Both halves were checked at construction.
		panic(oops.In("identity").Wrapf(err, "identity key pair invariant"))
	}
	return pair
}
