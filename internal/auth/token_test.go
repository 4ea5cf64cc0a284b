package auth

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestNewSessionToken_Length(t *testing.T) {
	token, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken() error = %v", err)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not valid base64url: %v", err)
	}
	if len(decoded) != sessionTokenBytes {
		t.Errorf("token entropy = %d bytes, want %d", len(decoded), sessionTokenBytes)
	}
}

func TestNewSessionToken_URLSafe(t *testing.T) {
	const urlSafe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	for i := 0; i < 20; i++ {
		token, err := NewSessionToken()
		if err != nil {
			t.Fatalf("NewSessionToken() error = %v", err)
		}
		for _, c := range token {
			if !strings.ContainsRune(urlSafe, c) {
				t.Fatalf("token contains non-URL-safe character %q", c)
			}
		}
	}
}

func TestNewSessionToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token, err := NewSessionToken()
		if err != nil {
			t.Fatalf("NewSessionToken() error = %v", err)
		}
		if seen[token] {
			t.Fatal("NewSessionToken() returned a duplicate token")
		}
		seen[token] = true
	}
}
