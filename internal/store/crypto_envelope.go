package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	// The current supported version of the encrypted blob format stored on disk.
	keystoreFormatVersion = 1

	saltSize = 16
)

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// ciphertext has been modified.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key file")

// KDFParams are the scrypt cost parameters used when sealing.
type KDFParams struct {
	N int
	R int
	P int
}

// DefaultKDFParams are the interactive-login scrypt costs.
func DefaultKDFParams() KDFParams { return KDFParams{N: 1 << 15, R: 8, P: 1} }

// blob is the on-disk JSON structure holding the ciphertext and KDF parameters.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// encrypt derives a key from passphrase and seals raw into a JSON blob.
func encrypt(passphrase string, raw []byte, kdf KDFParams) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, oops.In("store").Wrapf(err, "reading salt")
	}
	key, err := scrypt.Key([]byte(passphrase), salt, kdf.N, kdf.R, kdf.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, oops.In("store").
			With("scrypt_N", kdf.N, "scrypt_r", kdf.R, "scrypt_p", kdf.P).
			Wrapf(err, "deriving key")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, oops.In("store").Wrap(err)
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; the salt makes every key unique
	ct := aead.Seal(nil, nonce[:], raw, salt)

	return json.Marshal(blob{
		V:      keystoreFormatVersion,
		Salt:   salt,
		N:      kdf.N,
		R:      kdf.R,
		P:      kdf.P,
		Cipher: ct,
	})
}

// decrypt opens the JSON blob using a key derived from passphrase.
func decrypt(passphrase string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, oops.In("store").Wrapf(ErrWrongPassphrase, "parsing envelope: %v", err)
	}
	if bl.V != keystoreFormatVersion {
		return nil, oops.In("store").
			With("version", bl.V).
			Errorf("unsupported keystore version %d", bl.V)
	}

	key, err := scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, oops.In("store").Wrapf(err, "deriving key")
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, oops.In("store").Wrap(err)
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, bl.Salt)
	if err != nil {
		return nil, oops.In("store").Wrap(ErrWrongPassphrase)
	}
	return pt, nil
}
