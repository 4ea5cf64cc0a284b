package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionTokenBytes is the entropy of a session token before encoding.
// 32 bytes gives 256 bits, well beyond brute-force reach.
const sessionTokenBytes = 32

// NewSessionToken returns an unguessable, URL-safe, opaque session token
func NewSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
