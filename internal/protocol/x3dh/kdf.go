package x3dh

import (
	"bytes"
	"crypto/sha256"
	"io"

	"github.com/samber/oops"
	"golang.org/x/crypto/hkdf"

	"sessionkit/internal/protocol/ratchet"
	"sessionkit/internal/util/memzero"
)

const (
	discriminatorSize = 32
	rootInfo          = "WhisperText"
)

// discriminator separates these DH outputs from any other use of the same
// keys.
var discriminator = bytes.Repeat([]byte{0xFF}, discriminatorSize)

// deriveKeys runs HKDF-SHA256 with a zero salt over the discriminator and
// the DH outputs in order. The result is the root secret and the first
// chain key.
func deriveKeys(secrets [][]byte) (root, chain []byte, err error) {
	n := discriminatorSize
	for _, s := range secrets {
		n += len(s)
	}
	ikm := make([]byte, 0, n)
	ikm = append(ikm, discriminator...)
	for _, s := range secrets {
		ikm = append(ikm, s...)
	}
	defer memzero.Zero(ikm)

	salt := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, ikm, salt, []byte(rootInfo))
	okm := make([]byte, 2*ratchet.KeySize)
	if _, err := io.ReadFull(r, okm); err != nil {
		memzero.Zero(okm)
		return nil, nil, oops.In("x3dh").Wrapf(ErrSessionInitialization, "deriving root secret: %v", err)
	}
	return okm[:ratchet.KeySize], okm[ratchet.KeySize:], nil
}
