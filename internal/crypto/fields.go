package crypto

import (
	"fmt"
	"sync"
)

// FieldCipher seals and opens individual credential columns. Each column is
// encrypted under its own HKDF subkey of the master key.
type FieldCipher struct {
	mu      sync.Mutex
	master  []byte
	subkeys map[string][]byte
}

// NewFieldCipher copies masterKey; the caller may zero its own copy.
func NewFieldCipher(masterKey []byte) (*FieldCipher, error) {
	if len(masterKey) != KeyLen {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", KeyLen, len(masterKey))
	}
	m := make([]byte, KeyLen)
	copy(m, masterKey)
	return &FieldCipher{master: m, subkeys: make(map[string][]byte)}, nil
}

func (c *FieldCipher) subkey(column string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k, ok := c.subkeys[column]; ok {
		return k, nil
	}
	k, err := DeriveSubkey(c.master, column)
	if err != nil {
		return nil, err
	}
	c.subkeys[column] = k
	return k, nil
}

// Seal encrypts value for column and returns base64 text.
func (c *FieldCipher) Seal(column, value string) (string, error) {
	k, err := c.subkey(column)
	if err != nil {
		return "", err
	}
	return EncryptToBase64(k, []byte(value))
}

// Open decrypts base64 text sealed for column.
func (c *FieldCipher) Open(column, sealed string) (string, error) {
	k, err := c.subkey(column)
	if err != nil {
		return "", err
	}
	plaintext, err := DecryptFromBase64(k, sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// MasterKey exposes the underlying key buffer so callers can pin it in memory.
func (c *FieldCipher) MasterKey() []byte {
	return c.master
}

// Destroy zeroes the master key and all derived subkeys.
func (c *FieldCipher) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	Zero(c.master)
	for col, k := range c.subkeys {
		Zero(k)
		delete(c.subkeys, col)
	}
}
