package vault

import (
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/lovincyrus/cifscloak/internal/crypto"
)

// loadOrCreateKey returns the key stored at path, generating it first if the
// file does not exist. An existing file is never replaced: regenerating the
// key would orphan every stored record.
func loadOrCreateKey(path string) (key []byte, created bool, err error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := writeNewKey(path); err != nil {
			return nil, false, err
		}
		created = true
	} else if err != nil {
		return nil, false, &StorageInitError{Op: "stat key file", Path: path, Err: err}
	}

	key, err = os.ReadFile(path)
	if err != nil {
		return nil, false, &StorageInitError{Op: "read key file", Path: path, Err: err}
	}
	if len(key) != crypto.KeyLen {
		crypto.Zero(key)
		return nil, false, &StorageInitError{
			Op:   "read key file",
			Path: path,
			Err:  errors.Newf("expected %d bytes, found %d", crypto.KeyLen, len(key)),
		}
	}
	return key, created, nil
}

// writeNewKey creates the key file with owner-read-only permission.
// O_EXCL makes a concurrent creator lose instead of overwriting.
func writeNewKey(path string) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return &StorageInitError{Op: "generate key", Path: path, Err: err}
	}
	defer crypto.Zero(key)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0400)
	if err != nil {
		return &StorageInitError{Op: "create key file", Path: path, Err: err}
	}
	if _, err := f.Write(key); err != nil {
		f.Close()
		os.Remove(path)
		return &StorageInitError{Op: "write key file", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return &StorageInitError{Op: "write key file", Path: path, Err: err}
	}
	return nil
}
