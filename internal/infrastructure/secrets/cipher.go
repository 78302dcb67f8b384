package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

var (
	// ErrInvalidKey is returned for a key that is not 32 bytes of hex.
	ErrInvalidKey = errors.New("token cipher key must be 64 hex characters")
	// ErrCiphertextTooShort is returned for a ciphertext missing its nonce.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	// ErrDecryptFailed is returned when authentication of a ciphertext fails.
	ErrDecryptFailed = errors.New("decryption failed")
)

const nonceSize = 24

// SecretBox encrypts aggregator access tokens at rest with
// nacl/secretbox. Ciphertexts carry their nonce as a prefix.
type SecretBox struct {
	key [32]byte
}

// NewSecretBox creates a SecretBox from a 64-character hex key.
func NewSecretBox(hexKey string) (*SecretBox, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidKey
	}
	var sb SecretBox
	copy(sb.key[:], raw)
	return &sb, nil
}

// Encrypt seals a plaintext with a fresh random nonce.
func (c *SecretBox) Encrypt(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *SecretBox) Decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) < nonceSize {
		return "", ErrCiphertextTooShort
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])
	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}
