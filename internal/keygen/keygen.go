// Package keygen generates license keys and derives their stored form.
// A key's canonical form and digest must match bit-exactly between
// generation and redemption, so every caller goes through Canonicalize
// and Digest rather than hashing ad hoc.
package keygen

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// New draws a fresh license key: 32 bytes from crypto/rand encoded as
// unpadded base64url, already in canonical form. The plaintext is 43
// characters long and is never persisted; callers store only the hash.
func New() (key string, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}

	key = Canonicalize(base64.RawURLEncoding.EncodeToString(bytes))
	hash = Digest(key)

	return key, hash, nil
}

// Canonicalize normalizes a plaintext key for hashing: surrounding
// whitespace trimmed, uppercased, nothing else.
func Canonicalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Digest returns the hex SHA-256 of the canonical form's UTF-8 bytes.
// The digest is the only representation of a key that is ever stored.
func Digest(canonical string) string {
	h := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(h[:])
}

// Mask renders a key for display. Keys longer than 10 characters show
// only their first and last 4 characters; shorter keys are shown whole.
func Mask(canonical string) string {
	if len(canonical) > 10 {
		return canonical[:4] + "..." + canonical[len(canonical)-4:]
	}
	return canonical
}
