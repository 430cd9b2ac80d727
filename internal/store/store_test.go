package store_test

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionkit/internal/curve"
	"sessionkit/internal/domain"
	"sessionkit/internal/identity"
	"sessionkit/internal/store"
)

// fastKDF keeps scrypt cheap in tests.
var fastKDF = store.KDFParams{N: 1 << 10, R: 8, P: 1}

const pass = "Correct-Horse-9"

func keyPair(t *testing.T) curve.KeyPair {
	t.Helper()
	kp, err := curve.GenerateKeyPair(curve.X25519, rand.Reader)
	require.NoError(t, err)
	return kp
}

func TestIdentity_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	var ids domain.IdentityStore = store.NewIdentityFileStore(home, fastKDF)

	id, err := identity.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	require.NoError(t, ids.SaveIdentity(pass, id))

	got, err := ids.LoadIdentity(pass)
	require.NoError(t, err)
	assert.Equal(t, id.Serialize(), got.Serialize())

	info, err := os.Stat(filepath.Join(home, "identity.enc"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir(), fastKDF)

	id, err := identity.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	require.NoError(t, ids.SaveIdentity("correct", id))

	_, err = ids.LoadIdentity("wrong")
	assert.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestIdentity_Missing(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir(), fastKDF)
	_, err := ids.LoadIdentity(pass)
	assert.ErrorIs(t, err, store.ErrNoIdentity)

	assert.Error(t, ids.SaveIdentity(pass, identity.KeyPair{}))
}

func TestIdentity_CorruptFile(t *testing.T) {
	home := t.TempDir()
	ids := store.NewIdentityFileStore(home, fastKDF)
	require.NoError(t, os.WriteFile(filepath.Join(home, "identity.enc"), []byte("not json"), 0o600))

	_, err := ids.LoadIdentity(pass)
	assert.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestPreKeys_SignedRoundTrip(t *testing.T) {
	var ps domain.PreKeyStore = store.NewPreKeyFileStore(t.TempDir(), fastKDF)

	_, ok, err := ps.CurrentSignedPreKeyID(pass)
	require.NoError(t, err)
	assert.False(t, ok)

	rec := domain.SignedPreKeyRecord{
		ID:        "spk-1",
		KeyPair:   keyPair(t),
		Signature: []byte{1, 2, 3},
		CreatedAt: time.Unix(1_700_000_000, 0).UTC(),
	}
	require.NoError(t, ps.SaveSignedPreKey(pass, rec))
	require.NoError(t, ps.SetCurrentSignedPreKeyID(pass, rec.ID))
	assert.Error(t, ps.SetCurrentSignedPreKeyID(pass, "spk-unknown"))

	cur, ok, err := ps.CurrentSignedPreKeyID(pass)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.ID, cur)

	got, ok, err := ps.LoadSignedPreKey(pass, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.KeyPair.PublicKey().Equal(rec.KeyPair.PublicKey()))
	assert.True(t, got.KeyPair.PrivateKey().Equal(rec.KeyPair.PrivateKey()))
	assert.Equal(t, rec.Signature, got.Signature)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)

	_, ok, err = ps.LoadSignedPreKey(pass, "spk-2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ps.LoadSignedPreKey("wrong", rec.ID)
	assert.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestPreKeys_OneTimeConsumedOnce(t *testing.T) {
	ps := store.NewPreKeyFileStore(t.TempDir(), fastKDF)

	recs := []domain.OneTimePreKeyRecord{
		{ID: "opk-b", KeyPair: keyPair(t)},
		{ID: "opk-a", KeyPair: keyPair(t)},
	}
	require.NoError(t, ps.SaveOneTimePreKeys(pass, recs))

	pubs, err := ps.ListOneTimePreKeyPublics(pass)
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	assert.Equal(t, domain.OneTimePreKeyID("opk-a"), pubs[0].ID)
	assert.True(t, pubs[0].Key.Equal(recs[1].KeyPair.PublicKey()))

	got, ok, err := ps.ConsumeOneTimePreKey(pass, "opk-b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.KeyPair.PrivateKey().Equal(recs[0].KeyPair.PrivateKey()))

	_, ok, err = ps.ConsumeOneTimePreKey(pass, "opk-b")
	require.NoError(t, err)
	assert.False(t, ok)

	pubs, err = ps.ListOneTimePreKeyPublics(pass)
	require.NoError(t, err)
	assert.Len(t, pubs, 1)
}

func TestPreKeys_RejectIncompleteRecords(t *testing.T) {
	ps := store.NewPreKeyFileStore(t.TempDir(), fastKDF)
	assert.Error(t, ps.SaveSignedPreKey(pass, domain.SignedPreKeyRecord{ID: "spk-1"}))
	assert.Error(t, ps.SaveOneTimePreKeys(pass, []domain.OneTimePreKeyRecord{{KeyPair: keyPair(t)}}))
}
