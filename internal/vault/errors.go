package vault

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrDuplicateName is returned by Add when the name is already stored.
	ErrDuplicateName = errors.New("cifs mount name must be unique")
	// ErrNotFound is returned by Get when no record has the name.
	ErrNotFound = errors.New("name not found in cifstab")
)

// StorageInitError means the vault could not be opened at all. It is fatal.
type StorageInitError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageInitError) Error() string {
	return fmt.Sprintf("initialize vault: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageInitError) Unwrap() error { return e.Err }

// DecryptionError means one column of one record failed authentication.
// Only that record is unusable.
type DecryptionError struct {
	Name   string
	Column string
	Err    error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decrypt %s of %q: %v", e.Column, e.Name, e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// IsDecryptionError reports whether err carries a DecryptionError.
func IsDecryptionError(err error) bool {
	var e *DecryptionError
	return errors.As(err, &e)
}

// IsStorageInitError reports whether err carries a StorageInitError.
func IsStorageInitError(err error) bool {
	var e *StorageInitError
	return errors.As(err, &e)
}
