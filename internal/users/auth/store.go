// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindManyByIDs returns all accounts matching the given ids, keyed by id.

		Description: Batch resolution used by the per-request loader. IDs that
		do not resolve are simply absent from the result map, never an error.

		Parameters:
		  - context: context.Context
		  - ids: []string

		Returns:
		  - map[string]*User: Found entities keyed by id
		  - error: Database retrieval failures
	*/
	FindManyByIDs(context context.Context, ids []string) (map[string]*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		Update persists changes to mutable profile fields.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		SetRole replaces the account's global role (admin grant/revoke).

		Parameters:
		  - context: context.Context
		  - userID: string
		  - role: string

		Returns:
		  - error: Persistence failures
	*/
	SetRole(context context.Context, userID, role string) error

	/*
		SetBanned toggles the global ban flag.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - banned: bool

		Returns:
		  - error: Persistence failures
	*/
	SetBanned(context context.Context, userID string, banned bool) error

	/*
		SetCapWaived toggles the storage quota waiver.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - waived: bool

		Returns:
		  - error: Persistence failures
	*/
	SetCapWaived(context context.Context, userID string, waived bool) error

	/*
		AddUsedBytes atomically adjusts the derived storage counter by delta
		(positive on upload completion and copy, negative on deletion).

		Parameters:
		  - context: context.Context
		  - userID: string
		  - delta: int64

		Returns:
		  - error: Persistence failures
	*/
	AddUsedBytes(context context.Context, userID string, delta int64) error

	/*
		SetTwoFactor replaces the account's two-factor state in one statement.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - secret: string (empty disables)
		  - enabled: bool
		  - backupCodeHashes: []string

		Returns:
		  - error: Persistence failures
	*/
	SetTwoFactor(context context.Context, userID, secret string, enabled bool, backupCodeHashes []string) error

	/*
		ConsumeBackupCode atomically removes one backup-code digest if present.

		Description: The removal and the presence check are one conditional
		statement, so a code can never be redeemed twice by racing logins.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - codeHash: string

		Returns:
		  - bool: Whether the digest was present and consumed
		  - error: Persistence failures
	*/
	ConsumeBackupCode(context context.Context, userID, codeHash string) (bool, error)

	/*
		SetFollowing atomically adds or removes a planet id from the user's
		following set.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - planetID: string
		  - follow: bool

		Returns:
		  - error: Persistence failures
	*/
	SetFollowing(context context.Context, userID, planetID string, follow bool) error

	/*
		SetBlocked atomically adds or removes a user id from the caller's
		blocked set.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - targetID: string
		  - blocked: bool

		Returns:
		  - error: Persistence failures
	*/
	SetBlocked(context context.Context, userID, targetID string, blocked bool) error
}

// # Session Data Access

// SessionRepository defines the data access contract for refresh-token sessions.
type SessionRepository interface {

	/*
		Create persists a new tracking session for an authenticated login.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByTokenHash returns the active session matching the given token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	/*
		Revoke marks a specific session as permanently invalidated.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - error: Persistence failures
	*/
	Revoke(context context.Context, sessionID string) error

	/*
		RevokeAll revokes every active session belonging to the userID.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	RevokeAll(context context.Context, userID string) error

	/*
		RevokeOthers revokes all sessions belonging to the userID except for the current session.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - currentSessionID: string

		Returns:
		  - error: Persistence failures
	*/
	RevokeOthers(context context.Context, userID, currentSessionID string) error

	/*
		DeleteExpired physically removes sessions whose ExpiresAt is in the past.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Persistence failures
	*/
	DeleteExpired(context context.Context) error
}

// # Volatile Data Access

// ResetTokenRepository defines the contract for storing volatile password reset tokens.
type ResetTokenRepository interface {

	/*
		Set stores a reset token associated with a userID for a limited duration.

		Parameters:
		  - context: context.Context
		  - token: string
		  - userID: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Set(context context.Context, token string, userID string, ttl time.Duration) error

	/*
		Consume atomically retrieves AND removes the userID associated with a
		reset token, guaranteeing single use.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - string: UserID
		  - error: apperr NOT_FOUND if absent, expired, or already used
	*/
	Consume(context context.Context, token string) (string, error)
}
