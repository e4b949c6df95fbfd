// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns a hex-encoded token built from byteLength bytes
// of cryptographically secure randomness.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("auth: failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// Opaque tokens (refresh tokens, backup codes) are stored only as digests so
// a database leak does not expose usable credentials. SHA-256 is sufficient
// here: the inputs are high-entropy random strings, not passwords.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
