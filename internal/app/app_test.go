package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionkit/internal/app"
	"sessionkit/internal/config"
)

const pass = "App-Wire-Test-7!"

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Home = t.TempDir()
	cfg.Keystore.ScryptN = 1 << 10
	return cfg
}

func TestNewWire(t *testing.T) {
	w, err := app.NewWire(testConfig(t))
	require.NoError(t, err)

	_, fp, err := w.Identity.GenerateIdentity(pass)
	require.NoError(t, err)
	got, err := w.Identity.FingerprintIdentity(pass)
	require.NoError(t, err)
	assert.Equal(t, fp, got)

	_, _, err = w.PreKeys.GenerateAndStorePreKeys(pass, 2)
	require.NoError(t, err)
	bundle, err := w.PreKeys.LoadPreKeyBundle(pass)
	require.NoError(t, err)
	assert.Len(t, bundle.OneTimePreKeys, 2)
}

func TestNewWire_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Keystore.ScryptN = 3
	_, err := app.NewWire(cfg)
	assert.Error(t, err)
}

func TestRunSelfTest(t *testing.T) {
	for _, withOPK := range []bool{false, true} {
		res, err := app.RunSelfTest(testConfig(t), t.TempDir(), pass, withOPK)
		require.NoError(t, err)
		assert.NotEqual(t, res.InitiatorFingerprint, res.ResponderFingerprint)
		assert.Equal(t, withOPK, res.OneTimePreKeyID != "")
	}
}
