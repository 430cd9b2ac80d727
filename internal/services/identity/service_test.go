package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identitysvc "sessionkit/internal/services/identity"
	"sessionkit/internal/store"
)

const strong = "Tr0ub4dor&3-horse"

func newService(t *testing.T) *identitysvc.Service {
	t.Helper()
	return identitysvc.New(store.NewIdentityFileStore(t.TempDir(), store.KDFParams{N: 1 << 10, R: 8, P: 1}), nil)
}

func TestGenerateIdentity(t *testing.T) {
	svc := newService(t)

	id, fp, err := svc.GenerateIdentity(strong)
	require.NoError(t, err)
	assert.Len(t, fp.String(), 20)
	assert.Equal(t, id.IdentityKey().Fingerprint(), fp.String())

	loaded, err := svc.LoadIdentity(strong)
	require.NoError(t, err)
	assert.Equal(t, id.Serialize(), loaded.Serialize())

	again, err := svc.FingerprintIdentity(strong)
	require.NoError(t, err)
	assert.Equal(t, fp, again)
}

func TestGenerateIdentity_WeakPassphrase(t *testing.T) {
	svc := newService(t)
	for _, p := range []string{"", "short1!A", "alllowercase123!", "ALLUPPERCASE123!", "NoDigitsHere!!", "NoSymbols12345"} {
		_, _, err := svc.GenerateIdentity(p)
		assert.ErrorIs(t, err, identitysvc.ErrWeakPassphrase, p)
	}
}

func TestLoadIdentity_WrongPassphrase(t *testing.T) {
	svc := newService(t)
	_, _, err := svc.GenerateIdentity(strong)
	require.NoError(t, err)

	_, err = svc.FingerprintIdentity("Wrong-passphrase-1")
	assert.ErrorIs(t, err, store.ErrWrongPassphrase)
}
