// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package auth

import (
	"fmt"

	"github.com/pquerna/otp/totp"

	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/sec"
)

// # Two-Factor Primitives

/*
generateTOTPKey provisions a fresh TOTP secret for an account.

Description: The returned URL is the otpauth:// provisioning URI that
authenticator apps consume as a QR code; the secret is persisted (disabled)
until the user confirms a first valid code.

Parameters:
  - username: string (Account name shown in the authenticator app)

Returns:
  - string: Base32 secret
  - string: otpauth:// provisioning URI
  - error: Key generation failures
*/
func generateTOTPKey(username string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      constants.AuthIssuer,
		AccountName: username,
	})
	if err != nil {
		return "", "", fmt.Errorf("auth_totp_generate_failed: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// validateTOTPCode checks a 6-digit code against the stored secret.
func validateTOTPCode(code, secret string) bool {
	return totp.Validate(code, secret)
}

/*
generateBackupCodes creates the one-time recovery code set.

Description: The plain codes are shown to the user exactly once; only their
SHA-256 digests are persisted. Each digest is removed atomically on use.

Returns:
  - []string: Plain codes (for display)
  - []string: Digests (for storage)
  - error: Randomness failures
*/
func generateBackupCodes() ([]string, []string, error) {
	plain := make([]string, 0, constants.BackupCodeCount)
	hashes := make([]string, 0, constants.BackupCodeCount)

	for i := 0; i < constants.BackupCodeCount; i++ {
		code, err := sec.GenerateSecureToken(BackupCodeLength)
		if err != nil {
			return nil, nil, fmt.Errorf("auth_backup_code_generation_failed: %w", err)
		}
		plain = append(plain, code)
		hashes = append(hashes, sec.HashToken(code))
	}
	return plain, hashes, nil
}
