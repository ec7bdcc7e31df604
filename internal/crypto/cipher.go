package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const nonceLen = 12 // 96-bit nonce for GCM

// ErrAuthFailed is returned when a ciphertext fails GCM authentication:
// it was sealed under another key, or it has been modified.
var ErrAuthFailed = errors.New("message authentication failed")

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aead, nil
}

// Encrypt seals plaintext with AES-256-GCM under a random 12-byte nonce.
// Returns nonce || ciphertext+tag.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceLen, nonceLen+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens data produced by Encrypt.
func Decrypt(key, data []byte) ([]byte, error) {
	if len(data) < nonceLen+1 {
		return nil, fmt.Errorf("ciphertext too short: %w", ErrAuthFailed)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, data[:nonceLen], data[nonceLen:], nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// EncryptToBase64 encrypts plaintext and returns base64-encoded ciphertext.
func EncryptToBase64(key, plaintext []byte) (string, error) {
	data, err := Encrypt(key, plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecryptFromBase64 decodes base64 and decrypts. Undecodable input is
// reported as ErrAuthFailed, same as a bad tag.
func DecryptFromBase64(key []byte, encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %v: %w", err, ErrAuthFailed)
	}
	return Decrypt(key, data)
}
