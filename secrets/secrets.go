// Package secrets defines the encrypt/decrypt capability consumed by the
// configuration store, plus an AES-GCM implementation of it.
//
// Secrets are held in memory as plaintext and persisted only in the
// versioned ciphertext format "enc:v1:<base64>". The format prefix lets the
// configuration store detect legacy plaintext records at startup and
// re-encrypt them in place.
package secrets

import "strings"

// Prefix marks a string as versioned ciphertext.
const Prefix = "enc:v1:"

// Encryptor is the secret-at-rest capability.
type Encryptor interface {
	// Encrypt returns the versioned ciphertext for a plaintext secret.
	Encrypt(plaintext string) (string, error)

	// Decrypt recovers the plaintext from a versioned ciphertext.
	// It returns an error on a bad key or malformed ciphertext.
	Decrypt(ciphertext string) (string, error)
}

// IsEncrypted reports whether s carries the versioned ciphertext prefix.
func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// SafeDecrypt is the non-throwing decrypt variant: it returns fallback
// instead of failing on a bad key or malformed ciphertext.
func SafeDecrypt(e Encryptor, ciphertext, fallback string) string {
	plain, err := e.Decrypt(ciphertext)
	if err != nil {
		return fallback
	}
	return plain
}
