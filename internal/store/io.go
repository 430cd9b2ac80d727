package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

// readFile reads the file at path; a missing file returns nil, nil.
func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.In("store").With("path", path).Wrap(err)
	}
	return b, nil
}

// writeFile writes bytes via a temp file, then atomically replaces the target.
func writeFile(path string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return oops.In("store").With("dir", dir).Wrap(err)
	}
	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return oops.In("store").With("dir", dir).Wrap(err)
	}
	tmp := f.Name()

	// Best-effort cleanup if anything fails before rename.
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return oops.In("store").With("path", tmp).Wrap(err)
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return oops.In("store").With("path", tmp).Wrap(err)
	}
	if err := f.Close(); err != nil {
		return oops.In("store").With("path", tmp).Wrap(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return oops.In("store").With("path", path).Wrap(err)
	}
	return nil
}

// readSealed reads and opens a sealed file; a missing file returns nil, nil.
func readSealed(path, passphrase string) ([]byte, error) {
	b, err := readFile(path)
	if err != nil || b == nil {
		return nil, err
	}
	return decrypt(passphrase, b)
}

// writeSealed seals raw under passphrase and writes it to path.
func writeSealed(path, passphrase string, raw []byte, kdf KDFParams) error {
	ct, err := encrypt(passphrase, raw, kdf)
	if err != nil {
		return err
	}
	return writeFile(path, ct, 0o600)
}
