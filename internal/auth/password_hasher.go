package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultHashIterations is the PBKDF2 work factor used when none is configured
	DefaultHashIterations = 100000
	// saltBytes is the length of the random salt before hex encoding
	saltBytes = 32
	// digestBytes is the length of the derived key before hex encoding
	digestBytes = sha256.Size
)

// PasswordHasher derives and verifies salted password digests using
// PBKDF2-HMAC-SHA256. Hashing is deliberately slow; the iteration count is
// the tunable cost knob.
type PasswordHasher struct {
	iterations int
}

// NewPasswordHasher creates a PasswordHasher with the given iteration count.
// Non-positive values fall back to DefaultHashIterations.
func NewPasswordHasher(iterations int) *PasswordHasher {
	if iterations <= 0 {
		iterations = DefaultHashIterations
	}
	return &PasswordHasher{iterations: iterations}
}

// Hash derives a hex-encoded digest from the password and salt. The result is
// deterministic for a given (password, salt, iterations) triple.
func (h *PasswordHasher) Hash(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), h.iterations, digestBytes, sha256.New)
	return hex.EncodeToString(key)
}

// Verify recomputes the digest and compares it against the stored one in
// constant time, so mismatch position leaks nothing.
func (h *PasswordHasher) Verify(password, salt, digest string) bool {
	computed := h.Hash(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// NewSalt returns a fresh hex-encoded salt from a cryptographically secure source
func (h *PasswordHasher) NewSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Iterations returns the configured PBKDF2 work factor
func (h *PasswordHasher) Iterations() int {
	return h.iterations
}
