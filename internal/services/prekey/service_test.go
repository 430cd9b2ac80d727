package prekey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionkit/internal/curve"
	identitysvc "sessionkit/internal/services/identity"
	prekeysvc "sessionkit/internal/services/prekey"
	"sessionkit/internal/store"
)

const pass = "Pre-Key-Test-42!"

func newService(t *testing.T) (*prekeysvc.Service, *identitysvc.Service) {
	t.Helper()
	dir := t.TempDir()
	kdf := store.KDFParams{N: 1 << 10, R: 8, P: 1}
	is := store.NewIdentityFileStore(dir, kdf)
	ids := identitysvc.New(is, nil)
	_, _, err := ids.GenerateIdentity(pass)
	require.NoError(t, err)
	return prekeysvc.New(is, store.NewPreKeyFileStore(dir, kdf), nil), ids
}

func TestGenerateAndBundle(t *testing.T) {
	svc, ids := newService(t)

	spkID, opkIDs, err := svc.GenerateAndStorePreKeys(pass, 5)
	require.NoError(t, err)
	assert.Len(t, opkIDs, 5)

	bundle, err := svc.LoadPreKeyBundle(pass)
	require.NoError(t, err)
	assert.Equal(t, spkID, bundle.SignedPreKeyID)
	require.Len(t, bundle.OneTimePreKeys, 5)
	for i, opk := range bundle.OneTimePreKeys {
		assert.Equal(t, opkIDs[i], opk.ID)
	}

	id, err := ids.LoadIdentity(pass)
	require.NoError(t, err)
	assert.True(t, bundle.IdentityKey.Equal(id.IdentityKey()))
	assert.True(t, curve.VerifySignature(
		bundle.IdentityKey.PublicKey(),
		bundle.SignedPreKey.SerializeTyped(),
		bundle.SignedPreKeySignature,
	))
}

func TestGenerate_RotatesSignedPreKey(t *testing.T) {
	svc, _ := newService(t)

	first, _, err := svc.GenerateAndStorePreKeys(pass, 1)
	require.NoError(t, err)
	second, _, err := svc.GenerateAndStorePreKeys(pass, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	bundle, err := svc.LoadPreKeyBundle(pass)
	require.NoError(t, err)
	assert.Equal(t, second, bundle.SignedPreKeyID)
	assert.Len(t, bundle.OneTimePreKeys, 2)
}

func TestGenerate_Limits(t *testing.T) {
	svc, _ := newService(t)
	_, _, err := svc.GenerateAndStorePreKeys(pass, -1)
	assert.Error(t, err)
	_, _, err = svc.GenerateAndStorePreKeys(pass, prekeysvc.MaxOneTimePreKeys+1)
	assert.Error(t, err)

	_, ids, err := svc.GenerateAndStorePreKeys(pass, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGenerate_WrongPassphrase(t *testing.T) {
	svc, _ := newService(t)
	_, _, err := svc.GenerateAndStorePreKeys("Wrong-Pass-000!", 1)
	assert.ErrorIs(t, err, store.ErrWrongPassphrase)
}
