// Package pickupcode generates and protects the 6-digit codes exchanged at
// in-person handoff. Codes are encrypted at rest; plaintext only exists
// inside the generate and decrypt-and-compare paths.
package pickupcode

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
)

// CodeLength is the fixed length of pickup and claim codes.
const CodeLength = 6

var codeSpace = big.NewInt(1000000)

// Codec encrypts, decrypts and compares pickup codes using AES-256-GCM.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec creates a codec from a 32-byte key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("pickup code key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Generate returns a uniformly random zero-padded 6-digit code.
func (c *Codec) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Encrypt seals a plaintext code into an opaque base64 string. A fresh nonce
// is prepended to the ciphertext, so equal codes encrypt differently.
func (c *Codec) Encrypt(code string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(code), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any failure (wrong key,
// corruption, truncation) is returned as an error for the caller to map to
// an invalid-code failure rather than a crash.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt code: %w", err)
	}

	return string(plain), nil
}

// Matches compares two codes in constant time.
func (c *Codec) Matches(code, input string) bool {
	return subtle.ConstantTimeCompare([]byte(code), []byte(input)) == 1
}

// ValidFormat reports whether the input is exactly 6 ASCII digits.
func ValidFormat(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
