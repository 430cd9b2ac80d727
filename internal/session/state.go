package session

import (
	"github.com/samber/oops"

	"sessionkit/internal/curve"
	"sessionkit/internal/identity"
	"sessionkit/internal/protocol/ratchet"
	"sessionkit/internal/util/memzero"
)

const (
	// CurrentVersion is the session (message) protocol version written into
	// every State.
	CurrentVersion uint8 = 3

	stateFormatVersion byte = 1
)

const (
	tagSessionVersion byte = iota + 1
	tagLocalIdentity
	tagRemoteIdentity
	tagRootSecret
	tagRootKey
	tagSenderRatchetPublic
	tagSenderRatchetPrivate
	tagSenderChainKey
	tagSenderChainIndex
	tagReceiverRatchetPublic
	tagReceiverChainKey
	tagReceiverChainIndex
	tagBaseKey
)

var stateTags = map[byte]bool{
	tagSessionVersion:        true,
	tagLocalIdentity:         true,
	tagRemoteIdentity:        true,
	tagRootSecret:            true,
	tagRootKey:               true,
	tagSenderRatchetPublic:   true,
	tagSenderRatchetPrivate:  true,
	tagSenderChainKey:        true,
	tagSenderChainIndex:      true,
	tagReceiverRatchetPublic: true,
	tagReceiverChainKey:      true,
	tagReceiverChainIndex:    true,
	tagBaseKey:               true,
}

// SenderChain is our current ratchet key pair and its chain.
type SenderChain struct {
	RatchetKey curve.KeyPair
	ChainKey   ratchet.ChainKey
}

// ReceiverChain is the peer's ratchet key and the chain derived for it.
type ReceiverChain struct {
	RatchetKey curve.PublicKey
	ChainKey   ratchet.ChainKey
}

// Params collects everything needed to build a State.
type Params struct {
	Version        uint8
	LocalIdentity  identity.Key
	RemoteIdentity identity.Key
	// RootSecret is the handshake output shared by both parties.
	RootSecret []byte
	// RootKey is the current ratchet root. It equals RootSecret until a
	// party ratchets.
	RootKey       ratchet.RootKey
	SenderChain   SenderChain
	ReceiverChain *ReceiverChain
	// BaseKey is the initiator's ephemeral public key.
	BaseKey curve.PublicKey
}

// State is the initial session produced by a handshake.
type State struct {
	version        uint8
	localIdentity  identity.Key
	remoteIdentity identity.Key
	rootSecret     []byte
	rootKey        ratchet.RootKey
	senderChain    SenderChain
	receiverChain  *ReceiverChain
	baseKey        curve.PublicKey
}

// NewState checks p for completeness and copies it into a State.
func NewState(p Params) (*State, error) {
	switch {
	case p.Version == 0:
		return nil, oops.In("session").Errorf("session version is unset")
	case p.LocalIdentity.IsZero() || p.RemoteIdentity.IsZero():
		return nil, oops.In("session").Wrapf(curve.ErrInvalidKey, "session needs both identity keys")
	case len(p.RootSecret) != ratchet.KeySize:
		return nil, oops.In("session").Errorf("root secret must be %d bytes", ratchet.KeySize)
	case len(p.RootKey.Bytes()) != ratchet.KeySize:
		return nil, oops.In("session").Errorf("root key is unset")
	case p.SenderChain.RatchetKey.IsZero() || p.SenderChain.ChainKey.IsZero():
		return nil, oops.In("session").Errorf("sender chain is incomplete")
	case p.ReceiverChain != nil && (p.ReceiverChain.RatchetKey.IsZero() || p.ReceiverChain.ChainKey.IsZero()):
		return nil, oops.In("session").Errorf("receiver chain is incomplete")
	case p.BaseKey.IsZero():
		return nil, oops.In("session").Wrapf(curve.ErrInvalidKey, "base key is unset")
	}

	s := &State{
		version:        p.Version,
		localIdentity:  p.LocalIdentity,
		remoteIdentity: p.RemoteIdentity,
		rootSecret:     append([]byte(nil), p.RootSecret...),
		rootKey:        p.RootKey,
		senderChain:    p.SenderChain,
		baseKey:        p.BaseKey,
	}
	if p.ReceiverChain != nil {
		rc := *p.ReceiverChain
		s.receiverChain = &rc
	}
	return s, nil
}

func (s *State) Version() uint8               { return s.version }
func (s *State) LocalIdentity() identity.Key  { return s.localIdentity }
func (s *State) RemoteIdentity() identity.Key { return s.remoteIdentity }
func (s *State) RootKey() ratchet.RootKey     { return s.rootKey }
func (s *State) SenderChain() SenderChain     { return s.senderChain }
func (s *State) BaseKey() curve.PublicKey     { return s.baseKey }
func (s *State) RootSecret() []byte           { return append([]byte(nil), s.rootSecret...) }
func (s *State) LocalRatchetKey() curve.PublicKey {
	return s.senderChain.RatchetKey.PublicKey()
}

// ReceiverChain returns the chain for the peer's ratchet key, if one has
// been derived yet.
func (s *State) ReceiverChain() (ReceiverChain, bool) {
	if s.receiverChain == nil {
		return ReceiverChain{}, false
	}
	return *s.receiverChain, true
}

// PeerRatchetKey returns the peer's current ratchet public key, if known.
func (s *State) PeerRatchetKey() (curve.PublicKey, bool) {
	if s.receiverChain == nil {
		return curve.PublicKey{}, false
	}
	return s.receiverChain.RatchetKey, true
}

// Wipe zeroes the root secret, root key and chain keys.
func (s *State) Wipe() {
	memzero.Zero(s.rootSecret)
	s.rootKey.Wipe()
	s.senderChain.ChainKey.Wipe()
	if s.receiverChain != nil {
		s.receiverChain.ChainKey.Wipe()
	}
}

// Serialize encodes the state. The encoding is deterministic.
func (s *State) Serialize() []byte {
	w := newTLVWriter(stateFormatVersion)
	w.put(tagSessionVersion, []byte{s.version})
	w.put(tagLocalIdentity, s.localIdentity.Serialize())
	w.put(tagRemoteIdentity, s.remoteIdentity.Serialize())
	w.put(tagRootSecret, s.rootSecret)
	w.put(tagRootKey, s.rootKey.Bytes())
	w.putPublicKey(tagSenderRatchetPublic, s.senderChain.RatchetKey.PublicKey())
	w.put(tagSenderRatchetPrivate, s.senderChain.RatchetKey.PrivateKey().Serialize())
	w.put(tagSenderChainKey, s.senderChain.ChainKey.Bytes())
	w.putUint32(tagSenderChainIndex, s.senderChain.ChainKey.Index())
	if s.receiverChain != nil {
		w.putPublicKey(tagReceiverRatchetPublic, s.receiverChain.RatchetKey)
		w.put(tagReceiverChainKey, s.receiverChain.ChainKey.Bytes())
		w.putUint32(tagReceiverChainIndex, s.receiverChain.ChainKey.Index())
	}
	w.putPublicKey(tagBaseKey, s.baseKey)
	return w.bytes()
}

// DeserializeState parses the output of Serialize.
func DeserializeState(b []byte) (*State, error) {
	fields, err := decodeTLVs(b, stateFormatVersion)
	if err != nil {
		return nil, err
	}
	m, _, err := indexFields(fields, stateTags, 0)
	if err != nil {
		return nil, err
	}
	for _, tag := range []byte{
		tagSessionVersion, tagLocalIdentity, tagRemoteIdentity, tagRootSecret, tagRootKey,
		tagSenderRatchetPublic, tagSenderRatchetPrivate, tagSenderChainKey, tagSenderChainIndex,
		tagBaseKey,
	} {
		if _, ok := m[tag]; !ok {
			return nil, oops.In("session").
				With("tag", tag).
				Wrapf(ErrMalformed, "missing field 0x%02x", tag)
		}
	}
	if len(m[tagSessionVersion]) != 1 {
		return nil, oops.In("session").Wrapf(ErrMalformed, "session version must be 1 byte")
	}

	var p Params
	p.Version = m[tagSessionVersion][0]
	if p.LocalIdentity, err = identity.NewKey(m[tagLocalIdentity]); err != nil {
		return nil, oops.In("session").Wrapf(err, "local identity")
	}
	if p.RemoteIdentity, err = identity.NewKey(m[tagRemoteIdentity]); err != nil {
		return nil, oops.In("session").Wrapf(err, "remote identity")
	}
	p.RootSecret = m[tagRootSecret]
	if p.RootKey, err = ratchet.NewRootKey(m[tagRootKey]); err != nil {
		return nil, oops.In("session").Wrapf(ErrMalformed, "root key: %v", err)
	}

	senderPub, err := decodePublicKey(m[tagSenderRatchetPublic])
	if err != nil {
		return nil, oops.In("session").Wrapf(err, "sender ratchet key")
	}
	senderPriv, err := curve.NewPrivateKey(senderPub.Curve(), m[tagSenderRatchetPrivate])
	if err != nil {
		return nil, oops.In("session").Wrapf(err, "sender ratchet private key")
	}
	if p.SenderChain.RatchetKey, err = curve.NewKeyPair(senderPub, senderPriv); err != nil {
		return nil, err
	}
	if p.SenderChain.ChainKey, err = decodeChainKey(m[tagSenderChainKey], m[tagSenderChainIndex]); err != nil {
		return nil, err
	}

	_, hasPub := m[tagReceiverRatchetPublic]
	_, hasKey := m[tagReceiverChainKey]
	_, hasIndex := m[tagReceiverChainIndex]
	switch {
	case hasPub && hasKey && hasIndex:
		var rc ReceiverChain
		if rc.RatchetKey, err = decodePublicKey(m[tagReceiverRatchetPublic]); err != nil {
			return nil, oops.In("session").Wrapf(err, "receiver ratchet key")
		}
		if rc.ChainKey, err = decodeChainKey(m[tagReceiverChainKey], m[tagReceiverChainIndex]); err != nil {
			return nil, err
		}
		p.ReceiverChain = &rc
	case hasPub || hasKey || hasIndex:
		return nil, oops.In("session").Wrapf(ErrMalformed, "partial receiver chain")
	}

	if p.BaseKey, err = decodePublicKey(m[tagBaseKey]); err != nil {
		return nil, oops.In("session").Wrapf(err, "base key")
	}

	s, err := NewState(p)
	if err != nil {
		return nil, oops.In("session").Wrapf(ErrMalformed, "%v", err)
	}
	return s, nil
}

func decodeChainKey(key, index []byte) (ratchet.ChainKey, error) {
	n, err := decodeUint32(index)
	if err != nil {
		return ratchet.ChainKey{}, err
	}
	ck, err := ratchet.NewChainKey(key, n)
	if err != nil {
		return ratchet.ChainKey{}, oops.In("session").Wrapf(ErrMalformed, "chain key: %v", err)
	}
	return ck, nil
}
