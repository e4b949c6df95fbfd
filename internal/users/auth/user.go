// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, Session) and logic for
authentication, account lifecycle, two-factor enrollment, and the global
moderation switches (admin, ban).

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity. The
[User] entity doubles as the permission engine's subject view: the engine asks
only three questions (who, admin?, banned?) and this package answers them.
*/
package auth

import (
	"time"

	"github.com/starbasehq/starbase/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the Starbase platform.
//
// Relations that other subsystems mutate (Following, Blocked) and the derived
// quota counter (UsedBytes) are updated exclusively through atomic
// single-statement repository operations, never read-modify-write.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string       `json:"display_name"`
	AvatarURL    string       `json:"avatar_url,omitempty"`
	Bio          string       `json:"bio,omitempty"`
	Role         sec.UserRole `json:"role"`
	Banned       bool         `json:"banned"`

	// Following holds planet ids the user follows; Blocked holds user ids
	// whose direct messages and notifications are suppressed.
	Following []string `json:"following"`
	Blocked   []string `json:"blocked"`

	// UsedBytes is the derived storage counter maintained by the file
	// lifecycle (upload completion, deletion, copy). CapWaived disables the
	// quota ceiling for this account.
	UsedBytes int64 `json:"used_bytes"`
	CapWaived bool  `json:"cap_waived"`

	// Two-factor state. The secret and backup-code digests never leave the
	// server; BackupCodes stores SHA-256 digests of the one-time codes.
	TOTPSecret  string   `json:"-"`
	TOTPEnabled bool     `json:"totp_enabled"`
	BackupCodes []string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// # Permission Subject View

// SubjectID returns the account id for permission checks.
func (user *User) SubjectID() string { return user.ID }

// IsAdmin reports whether the global operator flag is set.
func (user *User) IsAdmin() bool { return user.Role == sec.RoleAdmin }

// IsBanned reports whether the account is globally banned.
func (user *User) IsBanned() bool { return user.Banned }

// IsFollowing reports whether the user follows the given planet.
func (user *User) IsFollowing(planetID string) bool {
	for _, id := range user.Following {
		if id == planetID {
			return true
		}
	}
	return false
}

// HasBlocked reports whether the user has blocked the given account.
func (user *User) HasBlocked(userID string) bool {
	for _, id := range user.Blocked {
		if id == userID {
			return true
		}
	}
	return false
}

// # Public Projection

// PublicUser is the redacted, public-safe projection of an account. It is
// the only user shape ever embedded in another user's response (profiles,
// message authors, member lists).
type PublicUser struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Public returns the redacted projection of the account.
func (user *User) Public() *PublicUser {
	return &PublicUser{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Bio:         user.Bio,
		CreatedAt:   user.CreatedAt,
	}
}

// Session represents an active refresh-token session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // Hashed value of the refresh token. Omitted for security.
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldDisplayName     = "display_name"
	FieldBio             = "bio"
	FieldLogin           = "login"
	FieldToken           = "token"
	FieldCode            = "code"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldAccessToken     = "access_token"
	FieldTokenType       = "token_type"
	FieldExpiresIn       = "expires_in"
	FieldUser            = "user"
	FieldMessage         = "message"
)
