package x3dh_test

import (
	"errors"
	"io"
	"math/big"

	"sessionkit/internal/curve"
)

// modpCurve is a deterministic stand-in for a real curve: DH in the
// multiplicative group mod 2^255-19 with generator 2. It is not secure and
// only exercises the composition logic.
type modpCurve struct{}

const modpType byte = 0x7E

var (
	modpP = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(19))
	modpG = big.NewInt(2)
)

func (modpCurve) Type() byte          { return modpType }
func (modpCurve) Name() string        { return "modp-test" }
func (modpCurve) PublicKeySize() int  { return 32 }
func (modpCurve) PrivateKeySize() int { return 32 }

func (modpCurve) GeneratePrivate(rand io.Reader) ([]byte, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand, b); err != nil {
		return nil, err
	}
	x := new(big.Int).SetBytes(b)
	x.Mod(x, new(big.Int).Sub(modpP, big.NewInt(3)))
	x.Add(x, big.NewInt(2))
	return x.FillBytes(make([]byte, 32)), nil
}

func (c modpCurve) PublicFromPrivate(scalar []byte) ([]byte, error) {
	if len(scalar) != 32 {
		return nil, curve.ErrInvalidKey
	}
	y := new(big.Int).Exp(modpG, new(big.Int).SetBytes(scalar), modpP)
	return y.FillBytes(make([]byte, 32)), nil
}

func (modpCurve) ValidatePoint(point []byte) error {
	if len(point) != 32 {
		return curve.ErrInvalidKey
	}
	v := new(big.Int).SetBytes(point)
	if v.Cmp(big.NewInt(1)) <= 0 || v.Cmp(new(big.Int).Sub(modpP, big.NewInt(1))) >= 0 {
		return curve.ErrInvalidKey
	}
	return nil
}

func (c modpCurve) Agreement(scalar, point []byte) ([]byte, error) {
	if err := c.ValidatePoint(point); err != nil {
		return nil, err
	}
	s := new(big.Int).Exp(new(big.Int).SetBytes(point), new(big.Int).SetBytes(scalar), modpP)
	return s.FillBytes(make([]byte, 32)), nil
}

// brokenCurve is modpCurve with an agreement that always fails.
type brokenCurve struct{ modpCurve }

const brokenType byte = 0x7D

var errBrokenAgreement = errors.New("agreement unavailable")

func (brokenCurve) Type() byte   { return brokenType }
func (brokenCurve) Name() string { return "broken-test" }

func (brokenCurve) Agreement([]byte, []byte) ([]byte, error) { return nil, errBrokenAgreement }

func init() {
	for _, c := range []curve.Curve{modpCurve{}, brokenCurve{}} {
		if err := curve.Register(c); err != nil {
			panic(err)
		}
	}
}
