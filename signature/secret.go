package signature

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateSecret creates a cryptographically random signing secret.
// Format: "nsec_" + 32 bytes hex = 69 characters total.
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("notify: failed to generate random secret: " + err.Error())
	}
	return "nsec_" + hex.EncodeToString(b)
}
