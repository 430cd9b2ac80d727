package identity

import (
	"crypto/rand"
	"errors"
	"io"
	"unicode"

	"github.com/samber/oops"

	"sessionkit/internal/domain"
	"sessionkit/internal/identity"
	"sessionkit/internal/util/logger"
)

var log = logger.GetLogger()

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
var ErrWeakPassphrase = errors.New(
	"passphrase is too weak (must be at least 12 characters and include upper, lower, " +
		"number, and symbol)",
)

// Service manages identity key creation and access using a backing store.
type Service struct {
	store domain.IdentityStore
	rand  io.Reader
}

// New returns an identity service backed by the given store. A nil r
// uses crypto/rand.
func New(s domain.IdentityStore, r io.Reader) *Service {
	if r == nil {
		r = rand.Reader
	}
	return &Service{store: s, rand: r}
}

// GenerateIdentity creates a new identity, saves it encrypted with the passphrase,
// and returns the identity plus its fingerprint.
func (s *Service) GenerateIdentity(passphrase string) (identity.KeyPair, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return identity.KeyPair{}, "", oops.In("identity").
			With("min_length", minPassphraseLength).
			Wrap(ErrWeakPassphrase)
	}

	id, err := identity.GenerateKeyPair(s.rand)
	if err != nil {
		return identity.KeyPair{}, "", err
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return identity.KeyPair{}, "", err
	}
	fp := domain.Fingerprint(id.IdentityKey().Fingerprint())
	log.WithField("fingerprint", fp).Info("Generated identity")
	return id, fp, nil
}

// LoadIdentity decrypts and returns the local identity.
func (s *Service) LoadIdentity(passphrase string) (identity.KeyPair, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity returns the fingerprint of the local identity key.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(id.IdentityKey().Fingerprint()), nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len([]rune(passphrase)) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
