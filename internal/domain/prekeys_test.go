package domain_test

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionkit/internal/curve"
	"sessionkit/internal/domain"
	"sessionkit/internal/identity"
)

func newBundle(t *testing.T) domain.PreKeyBundle {
	t.Helper()
	id, err := identity.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	spk, err := curve.GenerateKeyPair(curve.X25519, rand.Reader)
	require.NoError(t, err)
	opk, err := curve.GenerateKeyPair(curve.X25519, rand.Reader)
	require.NoError(t, err)
	sig, err := curve.CalculateSignature(rand.Reader, id.PrivateKey(), spk.PublicKey().SerializeTyped())
	require.NoError(t, err)

	return domain.PreKeyBundle{
		IdentityKey:           id.IdentityKey(),
		SignedPreKeyID:        "spk-1",
		SignedPreKey:          spk.PublicKey(),
		SignedPreKeySignature: sig,
		OneTimePreKeys:        []domain.OneTimePreKeyPublic{{ID: "opk-1", Key: opk.PublicKey()}},
	}
}

func TestPreKeyBundle_JSONRoundTrip(t *testing.T) {
	b := newBundle(t)

	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var got domain.PreKeyBundle
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.True(t, got.IdentityKey.Equal(b.IdentityKey))
	assert.True(t, got.SignedPreKey.Equal(b.SignedPreKey))
	assert.Equal(t, b.SignedPreKeyID, got.SignedPreKeyID)
	assert.Equal(t, b.SignedPreKeySignature, got.SignedPreKeySignature)
	require.Len(t, got.OneTimePreKeys, 1)
	assert.Equal(t, domain.OneTimePreKeyID("opk-1"), got.OneTimePreKeys[0].ID)
	assert.True(t, got.OneTimePreKeys[0].Key.Equal(b.OneTimePreKeys[0].Key))
}

// corrupt rewrites one base64 field of a marshalled object.
func corrupt(t *testing.T, v any, field string, value []byte) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	m[field] = base64.StdEncoding.EncodeToString(value)
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return out
}

func lowOrderTyped() []byte {
	point := make([]byte, 32)
	point[0] = 1
	return append([]byte{curve.DjbType}, point...)
}

func TestPreKeyBundle_RejectsInvalidKeys(t *testing.T) {
	b := newBundle(t)
	valid := b.SignedPreKey.SerializeTyped()

	cases := map[string][]byte{
		"identity_key":   lowOrderTyped(),
		"signed_pre_key": lowOrderTyped(),
	}
	for field, value := range cases {
		var got domain.PreKeyBundle
		err := json.Unmarshal(corrupt(t, b, field, value), &got)
		assert.ErrorIs(t, err, curve.ErrInvalidKey, field)
	}

	var got domain.PreKeyBundle
	err := json.Unmarshal(corrupt(t, b, "signed_pre_key", valid[:20]), &got)
	assert.ErrorIs(t, err, curve.ErrInvalidKey)
	err = json.Unmarshal(corrupt(t, b, "identity_key", append([]byte{0x42}, valid[1:]...)), &got)
	assert.ErrorIs(t, err, curve.ErrInvalidKey)
}

func TestPreKeyBundle_RejectsMissingFields(t *testing.T) {
	var got domain.PreKeyBundle
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"signed_pre_key_signature":"AA=="}`), &got), domain.ErrMalformed)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"signed_pre_key_id":"spk-1"}`), &got), domain.ErrMalformed)
	assert.ErrorIs(t, json.Unmarshal([]byte(`[]`), &got), domain.ErrMalformed)
}

func TestPreKeyMessage_JSON(t *testing.T) {
	id, err := identity.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	base, err := curve.GenerateKeyPair(curve.X25519, rand.Reader)
	require.NoError(t, err)

	msg := domain.PreKeyMessage{
		Version:        3,
		IdentityKey:    id.IdentityKey(),
		BaseKey:        base.PublicKey(),
		SignedPreKeyID: "spk-1",
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "one_time_pre_key_id")

	var got domain.PreKeyMessage
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, uint8(3), got.Version)
	assert.True(t, got.IdentityKey.Equal(msg.IdentityKey))
	assert.True(t, got.BaseKey.Equal(msg.BaseKey))
	assert.Empty(t, got.OneTimePreKeyID)

	err = json.Unmarshal(corrupt(t, msg, "base_key", lowOrderTyped()), &got)
	assert.ErrorIs(t, err, curve.ErrInvalidKey)

	assert.ErrorIs(t, json.Unmarshal([]byte(`{"signed_pre_key_id":"spk-1"}`), &got), domain.ErrMalformed)
}
