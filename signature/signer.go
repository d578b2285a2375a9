// Package signature provides HMAC-SHA256 webhook signing and verification.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign generates the HMAC-SHA256 signature for a webhook delivery.
// The signed content is "{timestamp}.{id}.{event}.{body}" so that the
// receiver can bind the signature to the exact envelope it received.
// Returns a versioned signature in the format "sha256=<hex>".
func Sign(secret, timestamp, id, event string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s.%s.%s", timestamp, id, event, body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks whether the given signature matches the expected
// HMAC-SHA256 signature for the same inputs.
func Verify(secret, timestamp, id, event string, body []byte, sig string) bool {
	expected := Sign(secret, timestamp, id, event, body)
	return hmac.Equal([]byte(expected), []byte(sig))
}
