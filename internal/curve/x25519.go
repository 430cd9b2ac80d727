package curve

import (
	"crypto/sha256"
	"io"

	"github.com/samber/oops"
	stepx25519 "go.step.sm/crypto/x25519"
	"golang.org/x/crypto/curve25519"
)

const (
	// DjbType is the key type tag used for Curve25519 keys.
	DjbType byte = 0x05

	x25519KeySize = curve25519.ScalarSize
)

// X25519 is the production curve.
var X25519 Curve = x25519Curve{}

// probeScalar is multiplied with candidate points during validation. Its
// clamped form is a multiple of the cofactor, so any point of small order
// maps to the identity and curve25519.X25519 reports it.
var probeScalar = func() []byte {
	sum := sha256.Sum256([]byte("sessionkit x25519 point probe"))
	return sum[:]
}()

// fieldPrime is 2^255-19 in little-endian order.
var fieldPrime = [x25519KeySize]byte{
	0xed, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f,
}

type x25519Curve struct{}

func (x25519Curve) Type() byte          { return DjbType }
func (x25519Curve) Name() string        { return "x25519" }
func (x25519Curve) PublicKeySize() int  { return x25519KeySize }
func (x25519Curve) PrivateKeySize() int { return x25519KeySize }

// GeneratePrivate returns a scalar clamped per RFC 7748.
func (x25519Curve) GeneratePrivate(rand io.Reader) ([]byte, error) {
	scalar := make([]byte, x25519KeySize)
	if _, err := io.ReadFull(rand, scalar); err != nil {
		return nil, oops.In("curve").Wrapf(err, "reading x25519 scalar")
	}
	clamp(scalar)
	return scalar, nil
}

func (x25519Curve) PublicFromPrivate(scalar []byte) ([]byte, error) {
	if len(scalar) != x25519KeySize {
		return nil, oops.In("curve").
			With("length", len(scalar)).
			Wrapf(ErrInvalidKey, "x25519 private key must be %d bytes", x25519KeySize)
	}
	return curve25519.X25519(scalar, curve25519.Basepoint)
}

// ValidatePoint rejects wrong lengths, non-canonical u-coordinates and
// points of small order.
func (x25519Curve) ValidatePoint(point []byte) error {
	if len(point) != x25519KeySize {
		return oops.In("curve").
			With("length", len(point)).
			Wrapf(ErrInvalidKey, "x25519 public key must be %d bytes", x25519KeySize)
	}
	if !canonical(point) {
		return oops.In("curve").Wrapf(ErrInvalidKey, "x25519 public key is not canonically encoded")
	}
	if _, err := curve25519.X25519(probeScalar, point); err != nil {
		return oops.In("curve").Wrapf(ErrInvalidKey, "x25519 public key has small order")
	}
	return nil
}

func (x25519Curve) Agreement(scalar, point []byte) ([]byte, error) {
	secret, err := curve25519.X25519(scalar, point)
	if err != nil {
		return nil, oops.In("curve").Wrapf(ErrInvalidKey, "x25519 agreement: %v", err)
	}
	return secret, nil
}

// Sign produces an XEdDSA signature with the X25519 scalar.
func (x25519Curve) Sign(rand io.Reader, scalar, message []byte) ([]byte, error) {
	return stepx25519.Sign(rand, stepx25519.PrivateKey(scalar), message)
}

func (x25519Curve) Verify(point, message, signature []byte) bool {
	if len(signature) != stepx25519.SignatureSize {
		return false
	}
	return stepx25519.Verify(stepx25519.PublicKey(point), message, signature)
}

func clamp(k []byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}

// canonical reports whether point encodes a u-coordinate below 2^255-19.
// Only public data is inspected here.
func canonical(point []byte) bool {
	for i := x25519KeySize - 1; i >= 0; i-- {
		switch {
		case point[i] < fieldPrime[i]:
			return true
		case point[i] > fieldPrime[i]:
			return false
		}
	}
	return false
}
