package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/samber/oops"

	"sessionkit/internal/curve"
	"sessionkit/internal/identity"
)

// ErrMalformed is returned for wire messages that are structurally wrong
// in a way unrelated to key validity.
var ErrMalformed = errors.New("malformed message")

// SignedPreKeyRecord is a signed pre-key pair as kept locally.
type SignedPreKeyRecord struct {
	ID        SignedPreKeyID
	KeyPair   curve.KeyPair
	Signature []byte
	CreatedAt time.Time
}

// OneTimePreKeyRecord is a one-time pre-key pair as kept locally.
type OneTimePreKeyRecord struct {
	ID      OneTimePreKeyID
	KeyPair curve.KeyPair
}

// OneTimePreKeyPublic is only the public half (sent in bundles).
type OneTimePreKeyPublic struct {
	ID  OneTimePreKeyID
	Key curve.PublicKey
}

// PreKeyBundle is the set of public keys a responder publishes.
// SignedPreKeySignature covers SignedPreKey.SerializeTyped().
type PreKeyBundle struct {
	IdentityKey           identity.Key
	SignedPreKeyID        SignedPreKeyID
	SignedPreKey          curve.PublicKey
	SignedPreKeySignature []byte
	OneTimePreKeys        []OneTimePreKeyPublic
}

type oneTimeJSON struct {
	ID  OneTimePreKeyID `json:"id"`
	Key []byte          `json:"key"`
}

type bundleJSON struct {
	IdentityKey           []byte         `json:"identity_key"`
	SignedPreKeyID        SignedPreKeyID `json:"signed_pre_key_id"`
	SignedPreKey          []byte         `json:"signed_pre_key"`
	SignedPreKeySignature []byte         `json:"signed_pre_key_signature"`
	OneTimePreKeys        []oneTimeJSON  `json:"one_time_pre_keys,omitempty"`
}

// MarshalJSON encodes keys in their typed byte form, base64 wrapped.
func (b PreKeyBundle) MarshalJSON() ([]byte, error) {
	aux := bundleJSON{
		IdentityKey:           b.IdentityKey.Serialize(),
		SignedPreKeyID:        b.SignedPreKeyID,
		SignedPreKey:          b.SignedPreKey.SerializeTyped(),
		SignedPreKeySignature: b.SignedPreKeySignature,
	}
	for _, opk := range b.OneTimePreKeys {
		aux.OneTimePreKeys = append(aux.OneTimePreKeys, oneTimeJSON{ID: opk.ID, Key: opk.Key.SerializeTyped()})
	}
	return json.Marshal(aux)
}

// UnmarshalJSON validates every key; bad keys fail with curve.ErrInvalidKey.
func (b *PreKeyBundle) UnmarshalJSON(data []byte) error {
	var aux bundleJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return oops.In("domain").Wrapf(ErrMalformed, "pre-key bundle: %v", err)
	}
	if aux.SignedPreKeyID == "" {
		return oops.In("domain").Wrapf(ErrMalformed, "pre-key bundle has no signed pre-key id")
	}
	if len(aux.SignedPreKeySignature) == 0 {
		return oops.In("domain").Wrapf(ErrMalformed, "pre-key bundle has no signature")
	}

	var out PreKeyBundle
	var err error
	if out.IdentityKey, err = identity.NewKey(aux.IdentityKey); err != nil {
		return oops.In("domain").With("field", "identity_key").Wrap(err)
	}
	if out.SignedPreKey, err = curve.DeserializeTypedPublicKey(aux.SignedPreKey); err != nil {
		return oops.In("domain").With("field", "signed_pre_key").Wrap(err)
	}
	out.SignedPreKeyID = aux.SignedPreKeyID
	out.SignedPreKeySignature = aux.SignedPreKeySignature
	for i, opk := range aux.OneTimePreKeys {
		if opk.ID == "" {
			return oops.In("domain").With("index", i).Wrapf(ErrMalformed, "one-time pre-key has no id")
		}
		key, err := curve.DeserializeTypedPublicKey(opk.Key)
		if err != nil {
			return oops.In("domain").With("field", "one_time_pre_keys", "index", i).Wrap(err)
		}
		out.OneTimePreKeys = append(out.OneTimePreKeys, OneTimePreKeyPublic{ID: opk.ID, Key: key})
	}
	*b = out
	return nil
}

// PreKeyMessage carries the handshake parameters an initiator sends so the
// responder can derive the same session.
type PreKeyMessage struct {
	Version        uint8
	IdentityKey    identity.Key
	BaseKey        curve.PublicKey
	SignedPreKeyID SignedPreKeyID
	// OneTimePreKeyID is empty when the bundle offered no one-time pre-key.
	OneTimePreKeyID OneTimePreKeyID
}

type preKeyMessageJSON struct {
	Version         uint8           `json:"version"`
	IdentityKey     []byte          `json:"identity_key"`
	BaseKey         []byte          `json:"base_key"`
	SignedPreKeyID  SignedPreKeyID  `json:"signed_pre_key_id"`
	OneTimePreKeyID OneTimePreKeyID `json:"one_time_pre_key_id,omitempty"`
}

func (m PreKeyMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(preKeyMessageJSON{
		Version:         m.Version,
		IdentityKey:     m.IdentityKey.Serialize(),
		BaseKey:         m.BaseKey.SerializeTyped(),
		SignedPreKeyID:  m.SignedPreKeyID,
		OneTimePreKeyID: m.OneTimePreKeyID,
	})
}

func (m *PreKeyMessage) UnmarshalJSON(data []byte) error {
	var aux preKeyMessageJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return oops.In("domain").Wrapf(ErrMalformed, "pre-key message: %v", err)
	}
	if aux.Version == 0 {
		return oops.In("domain").Wrapf(ErrMalformed, "pre-key message has no version")
	}
	if aux.SignedPreKeyID == "" {
		return oops.In("domain").Wrapf(ErrMalformed, "pre-key message has no signed pre-key id")
	}

	out := PreKeyMessage{
		Version:         aux.Version,
		SignedPreKeyID:  aux.SignedPreKeyID,
		OneTimePreKeyID: aux.OneTimePreKeyID,
	}
	var err error
	if out.IdentityKey, err = identity.NewKey(aux.IdentityKey); err != nil {
		return oops.In("domain").With("field", "identity_key").Wrap(err)
	}
	if out.BaseKey, err = curve.DeserializeTypedPublicKey(aux.BaseKey); err != nil {
		return oops.In("domain").With("field", "base_key").Wrap(err)
	}
	*m = out
	return nil
}
