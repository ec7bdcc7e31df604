package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// subkeySalt domain-separates column subkeys from any other use of the key.
var subkeySalt = []byte("cifscloak/column/v1")

// DeriveSubkey derives a 256-bit subkey from the master key for one
// credential column. A ciphertext moved to a different column no longer
// authenticates.
func DeriveSubkey(masterKey []byte, column string) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, subkeySalt, []byte(column))
	subkey := make([]byte, KeyLen)
	if _, err := io.ReadFull(r, subkey); err != nil {
		return nil, fmt.Errorf("deriving subkey for %s: %w", column, err)
	}
	return subkey, nil
}
