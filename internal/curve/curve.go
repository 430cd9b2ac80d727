package curve

import (
	"errors"
	"io"
	"sync"

	"github.com/samber/oops"

	"sessionkit/internal/util/logger"
)

var log = logger.GetLogger()

// ErrInvalidKey reports malformed key bytes, an invalid point, or a failed
// parse of a structure embedding a key.
var ErrInvalidKey = errors.New("invalid key")

// Curve is the opaque DH primitive. Implementations must be deterministic,
// symmetric (Agreement(a, B) == Agreement(b, A)) and constant time.
type Curve interface {
	// Type is the one-byte tag written in front of serialized identity keys.
	Type() byte
	Name() string
	PublicKeySize() int
	PrivateKeySize() int
	// GeneratePrivate draws a fresh scalar from rand.
	GeneratePrivate(rand io.Reader) ([]byte, error)
	// PublicFromPrivate derives the point for scalar.
	PublicFromPrivate(scalar []byte) ([]byte, error)
	// ValidatePoint rejects encodings that are not usable public keys.
	ValidatePoint(point []byte) error
	// Agreement computes the shared secret for scalar and point.
	Agreement(scalar, point []byte) ([]byte, error)
}

// Signer is implemented by curves whose key pairs can also sign.
type Signer interface {
	Sign(rand io.Reader, scalar, message []byte) ([]byte, error)
	Verify(point, message, signature []byte) bool
}

var (
	registryMu sync.RWMutex
	registry   = map[byte]Curve{}
)

func init() {
	if err := Register(X25519); err != nil {
		panic(err)
	}
}

// Register makes c available to ForType. Registering the same curve twice
// is a no-op; registering a different curve under a taken tag fails.
func Register(c Curve) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if prev, ok := registry[c.Type()]; ok {
		if prev.Name() == c.Name() {
			return nil
		}
		return oops.In("curve").
			With("type", c.Type()).
			Errorf("curve type 0x%02x already registered as %s", c.Type(), prev.Name())
	}
	registry[c.Type()] = c
	log.WithFields(logger.Fields{
		"type": c.Type(),
		"name": c.Name(),
	}).Debug("Registered curve")
	return nil
}

// ForType returns the curve registered under tag.
func ForType(tag byte) (Curve, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	c, ok := registry[tag]
	if !ok {
		return nil, oops.In("curve").
			With("type", tag).
			Wrapf(ErrInvalidKey, "unknown key type 0x%02x", tag)
	}
	return c, nil
}

func sameCurve(a, b Curve) bool {
	return a != nil && b != nil && a.Type() == b.Type()
}
