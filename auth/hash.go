package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintLen is the number of hex characters Fingerprint keeps.
const fingerprintLen = 12

// HashToken creates a SHA-256 hash of a token for secure storage.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Fingerprint returns a short, non-reversible identifier for a credential,
// safe to log. Returns "" for an empty credential.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	return "sha256:" + HashToken(token)[:fingerprintLen]
}
