// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package auth

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the duration a session/refresh token remains valid.
	// Long-lived (30 days) to provide a good user experience.
	RefreshTokenTTL = 30 * 24 * time.Hour

	// RefreshTokenLength is the byte length of the random secure token.
	RefreshTokenLength = 32

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// BackupCodeLength is the byte length of a single two-factor backup code.
	// Short (5 bytes, 10 hex characters) so codes can be written down.
	BackupCodeLength = 5
)
