// Package pkce generates RFC 7636 Proof Key for Code Exchange material
// for the authorization-code flow.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// ChallengeMethodS256 is the code_challenge_method declared to the
// authorization server. The challenge derivation below must match it.
const ChallengeMethodS256 = "S256"

// DefaultVerifierBytes is the number of random bytes in a generated code
// verifier. 96 bytes encode to 128 characters, the RFC 7636 maximum.
const DefaultVerifierBytes = 96

// GenerateVerifier fills byteLength cryptographically secure random bytes
// and encodes them URL-safely without padding. Predictable randomness here
// would defeat PKCE entirely, so only crypto/rand is acceptable.
func GenerateVerifier(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DeriveChallenge computes the S256 code challenge for a verifier:
// the SHA-256 digest of the verifier, URL-safe base64 without padding.
// Deterministic for a given verifier.
func DeriveChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
