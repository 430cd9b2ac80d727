package session_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identitysvc "sessionkit/internal/services/identity"
	prekeysvc "sessionkit/internal/services/prekey"
	sessionsvc "sessionkit/internal/services/session"
	"sessionkit/internal/session"
	"sessionkit/internal/store"
)

const pass = "Sess10n-Kit-Test!"

var fastKDF = store.KDFParams{N: 1 << 10, R: 8, P: 1}

type party struct {
	ids      *identitysvc.Service
	prekeys  *prekeysvc.Service
	sessions *sessionsvc.Service
	ps       *store.PreKeyFileStore
}

func newParty(t *testing.T) party {
	t.Helper()
	dir := t.TempDir()
	is := store.NewIdentityFileStore(dir, fastKDF)
	ps := store.NewPreKeyFileStore(dir, fastKDF)
	p := party{
		ids:      identitysvc.New(is, nil),
		prekeys:  prekeysvc.New(is, ps, nil),
		sessions: sessionsvc.New(is, ps, nil),
		ps:       ps,
	}
	_, _, err := p.ids.GenerateIdentity(pass)
	require.NoError(t, err)
	return p
}

// overTheWire round-trips v through its JSON form.
func overTheWire[T any](t *testing.T, v T) T {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHandshake(t *testing.T) {
	for _, opks := range []int{0, 3} {
		alice, bob := newParty(t), newParty(t)

		_, opkIDs, err := bob.prekeys.GenerateAndStorePreKeys(pass, opks)
		require.NoError(t, err)
		require.Len(t, opkIDs, opks)

		bundle, err := bob.prekeys.LoadPreKeyBundle(pass)
		require.NoError(t, err)

		aliceRec := session.NewRecord(nil)
		msg, err := alice.sessions.InitiateSession(pass, aliceRec, overTheWire(t, bundle))
		require.NoError(t, err)
		require.NotNil(t, aliceRec.State())

		bobRec := session.NewRecord(nil)
		require.NoError(t, bob.sessions.RespondSession(pass, bobRec, overTheWire(t, msg)))
		require.NotNil(t, bobRec.State())

		a, b := aliceRec.State(), bobRec.State()
		assert.Equal(t, a.RootSecret(), b.RootSecret())
		rc, ok := a.ReceiverChain()
		require.True(t, ok)
		assert.Equal(t, b.SenderChain().ChainKey.Bytes(), rc.ChainKey.Bytes())
		assert.True(t, rc.RatchetKey.Equal(bundle.SignedPreKey))

		if opks == 0 {
			assert.Empty(t, msg.OneTimePreKeyID)
			continue
		}
		assert.Equal(t, opkIDs[0], msg.OneTimePreKeyID)
		remaining, err := bob.ps.ListOneTimePreKeyPublics(pass)
		require.NoError(t, err)
		assert.Len(t, remaining, opks-1)

		// Replaying into the same record is refused; into a fresh one the
		// one-time pre-key is gone.
		err = bob.sessions.RespondSession(pass, bobRec, msg)
		assert.ErrorIs(t, err, sessionsvc.ErrSessionExists)
		err = bob.sessions.RespondSession(pass, session.NewRecord(nil), msg)
		assert.ErrorIs(t, err, sessionsvc.ErrUnknownPreKey)
	}
}

func TestInitiateSession_RejectsBadSignature(t *testing.T) {
	alice, bob, mallory := newParty(t), newParty(t), newParty(t)

	_, _, err := bob.prekeys.GenerateAndStorePreKeys(pass, 1)
	require.NoError(t, err)
	bundle, err := bob.prekeys.LoadPreKeyBundle(pass)
	require.NoError(t, err)

	malloryID, err := mallory.ids.LoadIdentity(pass)
	require.NoError(t, err)

	forged := bundle
	forged.IdentityKey = malloryID.IdentityKey()
	_, err = alice.sessions.InitiateSession(pass, session.NewRecord(nil), forged)
	assert.ErrorIs(t, err, sessionsvc.ErrBadSignature)

	tampered := bundle
	tampered.SignedPreKeySignature = append([]byte(nil), bundle.SignedPreKeySignature...)
	tampered.SignedPreKeySignature[0] ^= 0x01
	_, err = alice.sessions.InitiateSession(pass, session.NewRecord(nil), tampered)
	assert.ErrorIs(t, err, sessionsvc.ErrBadSignature)
}

func TestRespondSession_Rejects(t *testing.T) {
	alice, bob := newParty(t), newParty(t)

	_, _, err := bob.prekeys.GenerateAndStorePreKeys(pass, 1)
	require.NoError(t, err)
	bundle, err := bob.prekeys.LoadPreKeyBundle(pass)
	require.NoError(t, err)
	msg, err := alice.sessions.InitiateSession(pass, session.NewRecord(nil), bundle)
	require.NoError(t, err)

	wrongVersion := msg
	wrongVersion.Version = 2
	assert.ErrorIs(t, bob.sessions.RespondSession(pass, session.NewRecord(nil), wrongVersion), sessionsvc.ErrUnsupportedVersion)

	unknownSPK := msg
	unknownSPK.SignedPreKeyID = "spk-missing"
	assert.ErrorIs(t, bob.sessions.RespondSession(pass, session.NewRecord(nil), unknownSPK), sessionsvc.ErrUnknownPreKey)

	unknownOPK := msg
	unknownOPK.OneTimePreKeyID = "opk-missing"
	assert.ErrorIs(t, bob.sessions.RespondSession(pass, session.NewRecord(nil), unknownOPK), sessionsvc.ErrUnknownPreKey)

	assert.Error(t, bob.sessions.RespondSession(pass, nil, msg))
}

func TestInitiateSession_ArchivesPreviousState(t *testing.T) {
	alice, bob := newParty(t), newParty(t)
	_, _, err := bob.prekeys.GenerateAndStorePreKeys(pass, 2)
	require.NoError(t, err)

	rec := session.NewRecord(nil)
	for i := 0; i < 2; i++ {
		bundle, err := bob.prekeys.LoadPreKeyBundle(pass)
		require.NoError(t, err)
		_, err = alice.sessions.InitiateSession(pass, rec, bundle)
		require.NoError(t, err)
	}
	assert.NotNil(t, rec.State())
	assert.Len(t, rec.PreviousStates(), 1)
}

func TestPreKeyBundle_RequiresSignedPreKey(t *testing.T) {
	bob := newParty(t)
	_, err := bob.prekeys.LoadPreKeyBundle(pass)
	assert.ErrorIs(t, err, prekeysvc.ErrNoSignedPreKey)
}
