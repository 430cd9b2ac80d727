package ratchet

import (
	"crypto/sha256"
	"io"

	"github.com/samber/oops"
	"golang.org/x/crypto/hkdf"

	"sessionkit/internal/curve"
	"sessionkit/internal/util/memzero"
)

const (
	// KeySize is the length of root and chain keys.
	KeySize = 32

	rootInfo = "WhisperRatchet"
)

// RootKey is the top of the ratchet.
type RootKey struct {
	key []byte
}

// NewRootKey copies key, which must be KeySize bytes.
func NewRootKey(key []byte) (RootKey, error) {
	if len(key) != KeySize {
		return RootKey{}, oops.In("ratchet").
			With("length", len(key)).
			Errorf("root key must be %d bytes", KeySize)
	}
	return RootKey{key: append([]byte(nil), key...)}, nil
}

// Bytes returns a copy of the key.
func (r RootKey) Bytes() []byte { return append([]byte(nil), r.key...) }

// CreateChain mixes DH(ours, theirs) into r and returns the next root key
// and a fresh chain key.
func (r RootKey) CreateChain(theirRatchetKey curve.PublicKey, ourRatchetKey curve.KeyPair) (RootKey, ChainKey, error) {
	if len(r.key) != KeySize {
		return RootKey{}, ChainKey{}, oops.In("ratchet").Errorf("root key is uninitialised")
	}
	shared, err := curve.DH(ourRatchetKey.PrivateKey(), theirRatchetKey)
	if err != nil {
		return RootKey{}, ChainKey{}, oops.In("ratchet").Wrapf(err, "ratchet agreement")
	}
	defer memzero.Zero(shared)

	newRoot, chain, err := kdfRK(r.key, shared)
	if err != nil {
		return RootKey{}, ChainKey{}, err
	}
	return RootKey{key: newRoot}, ChainKey{key: chain, index: 0}, nil
}

// Wipe zeroes the key in place.
func (r RootKey) Wipe() { memzero.Zero(r.key) }

// ChainKey seeds one sending or receiving chain.
type ChainKey struct {
	key   []byte
	index uint32
}

// NewChainKey copies key, which must be KeySize bytes.
func NewChainKey(key []byte, index uint32) (ChainKey, error) {
	if len(key) != KeySize {
		return ChainKey{}, oops.In("ratchet").
			With("length", len(key)).
			Errorf("chain key must be %d bytes", KeySize)
	}
	return ChainKey{key: append([]byte(nil), key...), index: index}, nil
}

// Bytes returns a copy of the key.
func (c ChainKey) Bytes() []byte { return append([]byte(nil), c.key...) }

func (c ChainKey) Index() uint32 { return c.index }

func (c ChainKey) IsZero() bool { return len(c.key) == 0 }

func (c ChainKey) Wipe() { memzero.Zero(c.key) }

// kdfRK is HKDF-SHA256 with the root key as salt.
func kdfRK(rk, dh []byte) (newRK, ck []byte, err error) {
	r := hkdf.New(sha256.New, dh, rk, []byte(rootInfo))
	newRK = make([]byte, KeySize)
	ck = make([]byte, KeySize)
	if _, err = io.ReadFull(r, newRK); err != nil {
		return nil, nil, oops.In("ratchet").Wrapf(err, "deriving root key")
	}
	if _, err = io.ReadFull(r, ck); err != nil {
		return nil, nil, oops.In("ratchet").Wrapf(err, "deriving chain key")
	}
	return newRK, ck, nil
}
