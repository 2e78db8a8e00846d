// package auth implements OAuth2 Authorization-Code-with-PKCE against the
// TIDAL identity provider and owns the resulting credential for the life of
// the process.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// MinVerifierLength and MaxVerifierLength are the RFC 7636 bounds for a
	// code verifier.
	MinVerifierLength = 43
	MaxVerifierLength = 128

	// DefaultVerifierLength is used when no explicit length is requested.
	DefaultVerifierLength = 64

	// StateLength is the length of the anti-CSRF state token.
	StateLength = 32
)

// PKCE holds the verifier, challenge, and state for one authorization
// attempt. A value is generated per attempt and never reused.
type PKCE struct {
	Verifier  string
	Challenge string
	State     string
}

// NewPKCE generates PKCE parameters with the default verifier length.
func NewPKCE() (*PKCE, error) {
	return NewPKCEWithLength(DefaultVerifierLength)
}

// NewPKCEWithLength generates PKCE parameters with a verifier of the given
// length. A failing secure random source is a fatal configuration error, not
// something callers should retry.
func NewPKCEWithLength(length int) (*PKCE, error) {
	if length < MinVerifierLength || length > MaxVerifierLength {
		return nil, fmt.Errorf("verifier length must be between %d and %d, got %d", MinVerifierLength, MaxVerifierLength, length)
	}

	verifier, err := randomString(length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verifier: %w", err)
	}

	state, err := randomString(StateLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	return &PKCE{
		Verifier:  verifier,
		Challenge: Challenge(verifier),
		State:     state,
	}, nil
}

// Challenge computes the S256 code challenge for a verifier:
// base64url(sha256(verifier)) without padding.
func Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// randomString creates a cryptographically secure random string drawn from
// the base64url alphabet (A-Z, a-z, 0-9, -, _), trimmed to length.
func randomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(bytes)
	return encoded[:length], nil
}
