package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// KeyLen is the size of the master key and every derived subkey (AES-256).
const KeyLen = 32

// GenerateKey returns a fresh random master key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Fingerprint returns the hex SHA-256 of the key. It identifies which key a
// store was written with without revealing the key.
func Fingerprint(key []byte) string {
	h := sha256.Sum256(key)
	return hex.EncodeToString(h[:])
}

// Zero overwrites b in place.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
