package ratchet_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionkit/internal/curve"
	"sessionkit/internal/protocol/ratchet"
)

func makeKeyPair(t *testing.T) curve.KeyPair {
	t.Helper()
	kp, err := curve.GenerateKeyPair(curve.X25519, rand.Reader)
	require.NoError(t, err)
	return kp
}

func TestCreateChain_BothSidesAgree(t *testing.T) {
	// Shared root key from a prior handshake (simulate).
	rk, err := ratchet.NewRootKey(bytes.Repeat([]byte{0x42}, ratchet.KeySize))
	require.NoError(t, err)

	a := makeKeyPair(t)
	b := makeKeyPair(t)

	rootA, chainA, err := rk.CreateChain(b.PublicKey(), a)
	require.NoError(t, err)
	rootB, chainB, err := rk.CreateChain(a.PublicKey(), b)
	require.NoError(t, err)

	assert.Equal(t, rootA.Bytes(), rootB.Bytes())
	assert.Equal(t, chainA.Bytes(), chainB.Bytes())
	assert.Equal(t, uint32(0), chainA.Index())
	assert.NotEqual(t, rk.Bytes(), rootA.Bytes())
	assert.NotEqual(t, rootA.Bytes(), chainA.Bytes())
}

func TestCreateChain_Errors(t *testing.T) {
	kp := makeKeyPair(t)

	_, _, err := ratchet.RootKey{}.CreateChain(kp.PublicKey(), kp)
	assert.Error(t, err)

	rk, err := ratchet.NewRootKey(make([]byte, ratchet.KeySize))
	require.NoError(t, err)
	_, _, err = rk.CreateChain(curve.PublicKey{}, kp)
	assert.ErrorIs(t, err, curve.ErrInvalidKey)
}

func TestKeyLengths(t *testing.T) {
	_, err := ratchet.NewRootKey(make([]byte, 31))
	assert.Error(t, err)
	_, err = ratchet.NewChainKey(make([]byte, 33), 0)
	assert.Error(t, err)

	ck, err := ratchet.NewChainKey(bytes.Repeat([]byte{7}, ratchet.KeySize), 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), ck.Index())

	ck.Wipe()
	assert.Equal(t, make([]byte, ratchet.KeySize), ck.Bytes())
	assert.True(t, ratchet.ChainKey{}.IsZero())
}
