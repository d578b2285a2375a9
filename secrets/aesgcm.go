package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedCiphertext is returned when a ciphertext is missing the
// version prefix or is too short to contain a nonce.
var ErrMalformedCiphertext = errors.New("secrets: malformed ciphertext")

// AESGCM implements Encryptor with AES-GCM and a random per-secret nonce.
type AESGCM struct {
	aead cipher.AEAD
}

var _ Encryptor = (*AESGCM)(nil)

// NewAESGCM creates an AESGCM encryptor. The key must be 16, 24, or 32
// bytes (AES-128/192/256).
func NewAESGCM(key []byte) (*AESGCM, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: create GCM: %w", err)
	}

	return &AESGCM{aead: aead}, nil
}

// Encrypt seals the plaintext under a fresh random nonce and returns
// "enc:v1:" + base64(nonce | ciphertext).
func (a *AESGCM) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}

	sealed := a.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It fails on a missing prefix, undecodable
// payload, truncated nonce, or authentication failure (wrong key).
func (a *AESGCM) Decrypt(ciphertext string) (string, error) {
	if !IsEncrypted(ciphertext) {
		return "", ErrMalformedCiphertext
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext[len(Prefix):])
	if err != nil {
		return "", fmt.Errorf("secrets: decode ciphertext: %w", err)
	}
	if len(raw) < a.aead.NonceSize() {
		return "", ErrMalformedCiphertext
	}

	nonce, sealed := raw[:a.aead.NonceSize()], raw[a.aead.NonceSize():]
	plain, err := a.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("secrets: decrypt: %w", err)
	}

	return string(plain), nil
}
