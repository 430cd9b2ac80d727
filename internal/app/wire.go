package app

import (
	"os"

	"github.com/samber/oops"

	"sessionkit/internal/config"
	"sessionkit/internal/domain"
	identitysvc "sessionkit/internal/services/identity"
	prekeysvc "sessionkit/internal/services/prekey"
	sessionsvc "sessionkit/internal/services/session"
	"sessionkit/internal/store"
)

// Wire bundles all stores and services for the CLI.
type Wire struct {
	Config   config.Config
	Identity domain.IdentityService
	PreKeys  domain.PreKeyService
	Sessions domain.SessionService
}

// KDFParams converts the keystore settings for the file stores.
func KDFParams(cfg config.Config) store.KDFParams {
	return store.KDFParams{N: cfg.Keystore.ScryptN, R: cfg.Keystore.ScryptR, P: cfg.Keystore.ScryptP}
}

// NewWire constructs the dependency graph from cfg, creating the home
// directory if needed.
func NewWire(cfg config.Config) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, oops.In("app").With("home", cfg.Home).Wrapf(err, "creating home directory")
	}

	// File-based stores
	kdf := KDFParams(cfg)
	identityStore := store.NewIdentityFileStore(cfg.Home, kdf)
	preKeyStore := store.NewPreKeyFileStore(cfg.Home, kdf)

	// High-level services
	return &Wire{
		Config:   cfg,
		Identity: identitysvc.New(identityStore, nil),
		PreKeys:  prekeysvc.New(identityStore, preKeyStore, nil),
		Sessions: sessionsvc.New(identityStore, preKeyStore, nil),
	}, nil
}
