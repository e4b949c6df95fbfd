// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

// PostgreSQL implementations of the auth repositories.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types via [dberr.Wrap] to avoid leaking storage
// implementation details.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/dberr"
)

// userColumns is the canonical select list for users.account.
const userColumns = `
	id, username, email, passwordhash, displayname, avatarurl, bio,
	role, banned, following, blocked, usedbytes, capwaived,
	totpsecret, totpenabled, backupcodes, createdat, updatedat`

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// scanUser hydrates a User from a row carrying [userColumns].
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.AvatarURL,
		&user.Bio,
		&user.Role,
		&user.Banned,
		&user.Following,
		&user.Blocked,
		&user.UsedBytes,
		&user.CapWaived,
		&user.TOTPSecret,
		&user.TOTPEnabled,
		&user.BackupCodes,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

/*
Create persists a new user record into the users.account table.

Description: Deep-persists account metadata, ensuring timestamps are initialized
if not provided. Relation sets start empty.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Conflict on duplicate username/email, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, username, email, passwordhash, displayname, avatarurl, bio,
			role, banned, following, blocked, usedbytes, capwaived,
			totpsecret, totpenabled, backupcodes, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Following == nil {
		user.Following = []string{}
	}
	if user.Blocked == nil {
		user.Blocked = []string{}
	}
	if user.BackupCodes == nil {
		user.BackupCodes = []string{}
	}

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.AvatarURL,
		user.Bio,
		user.Role,
		user.Banned,
		user.Following,
		user.Blocked,
		user.UsedBytes,
		user.CapWaived,
		user.TOTPSecret,
		user.TOTPEnabled,
		user.BackupCodes,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return dberr.Wrap(err)
}

/*
FindByID retrieves a user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr NOT_FOUND or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE id = $1 AND deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err)
	}
	return user, nil
}

/*
FindManyByIDs retrieves all accounts matching the given ids.

Description: Single-query batch resolution for the per-request loader. Missing
ids are absent from the result map; the loader turns absence into its own
missing marker.

Parameters:
  - context: context.Context
  - ids: []string

Returns:
  - map[string]*User: Found entities keyed by id
  - error: Execution errors
*/
func (repository *PostgresUserRepository) FindManyByIDs(context context.Context, ids []string) (map[string]*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE id = ANY($1) AND deletedat IS NULL`

	rows, err := repository.pool.Query(context, query, ids)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	found := make(map[string]*User, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, dberr.Wrap(err)
		}
		found[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}
	return found, nil
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr NOT_FOUND or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE email = $1 AND deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err)
	}
	return user, nil
}

/*
FindByUsername retrieves a user record by their unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: apperr NOT_FOUND or database errors
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE username = $1 AND deletedat IS NULL`

	user, err := scanUser(repository.pool.QueryRow(context, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err)
	}
	return user, nil
}

/*
Update persists changes to a user's mutable profile fields.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: Update failures
*/
func (repository *PostgresUserRepository) Update(context context.Context, user *User) error {
	const query = `
		UPDATE users.account
		SET displayname = $2, avatarurl = $3, bio = $4, updatedat = $5
		WHERE id = $1 AND deletedat IS NULL`

	user.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.DisplayName,
		user.AvatarURL,
		user.Bio,
		user.UpdatedAt,
	)
	return dberr.Wrap(err)
}

/*
UpdatePassword updates only the password hash for a specific user.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now())
	return dberr.Wrap(err)
}

/*
SetRole replaces the account's global role.

Parameters:
  - context: context.Context
  - userID: string
  - role: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SetRole(context context.Context, userID, role string) error {
	const query = "UPDATE users.account SET role = $2, updatedat = $3 WHERE id = $1 AND deletedat IS NULL"
	_, err := repository.pool.Exec(context, query, userID, role, time.Now())
	return dberr.Wrap(err)
}

/*
SetBanned toggles the global ban flag.

Parameters:
  - context: context.Context
  - userID: string
  - banned: bool

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SetBanned(context context.Context, userID string, banned bool) error {
	const query = "UPDATE users.account SET banned = $2, updatedat = $3 WHERE id = $1 AND deletedat IS NULL"
	_, err := repository.pool.Exec(context, query, userID, banned, time.Now())
	return dberr.Wrap(err)
}

/*
SetCapWaived toggles the storage quota waiver.

Parameters:
  - context: context.Context
  - userID: string
  - waived: bool

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SetCapWaived(context context.Context, userID string, waived bool) error {
	const query = "UPDATE users.account SET capwaived = $2, updatedat = $3 WHERE id = $1 AND deletedat IS NULL"
	_, err := repository.pool.Exec(context, query, userID, waived, time.Now())
	return dberr.Wrap(err)
}

/*
AddUsedBytes atomically adjusts the derived storage counter.

Description: Single-statement increment so concurrent upload completions and
deletions never lose an update. The counter is clamped at zero: cascade
cleanup is fire-and-forget and may occasionally reconcile low.

Parameters:
  - context: context.Context
  - userID: string
  - delta: int64

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) AddUsedBytes(context context.Context, userID string, delta int64) error {
	const query = `
		UPDATE users.account
		SET usedbytes = GREATEST(usedbytes + $2, 0), updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	_, err := repository.pool.Exec(context, query, userID, delta, time.Now())
	return dberr.Wrap(err)
}

/*
SetTwoFactor replaces the account's two-factor state in one statement.

Parameters:
  - context: context.Context
  - userID: string
  - secret: string
  - enabled: bool
  - backupCodeHashes: []string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SetTwoFactor(context context.Context, userID, secret string, enabled bool, backupCodeHashes []string) error {
	const query = `
		UPDATE users.account
		SET totpsecret = $2, totpenabled = $3, backupcodes = $4, updatedat = $5
		WHERE id = $1 AND deletedat IS NULL`

	if backupCodeHashes == nil {
		backupCodeHashes = []string{}
	}
	_, err := repository.pool.Exec(context, query, userID, secret, enabled, backupCodeHashes, time.Now())
	return dberr.Wrap(err)
}

/*
ConsumeBackupCode atomically removes one backup-code digest if present.

Description: The presence check lives in the WHERE clause, so two racing
logins redeeming the same code serialize on the row and only one succeeds.

Parameters:
  - context: context.Context
  - userID: string
  - codeHash: string

Returns:
  - bool: Whether the digest was present and consumed
  - error: Execution errors
*/
func (repository *PostgresUserRepository) ConsumeBackupCode(context context.Context, userID, codeHash string) (bool, error) {
	const query = `
		UPDATE users.account
		SET backupcodes = array_remove(backupcodes, $2), updatedat = $3
		WHERE id = $1 AND deletedat IS NULL AND $2 = ANY(backupcodes)`

	tag, err := repository.pool.Exec(context, query, userID, codeHash, time.Now())
	if err != nil {
		return false, dberr.Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

/*
SetFollowing atomically adds or removes a planet id from the following set.

Description: Both directions are idempotent single statements; re-following an
already followed planet affects zero rows and is not an error.

Parameters:
  - context: context.Context
  - userID: string
  - planetID: string
  - follow: bool

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SetFollowing(context context.Context, userID, planetID string, follow bool) error {
	const followQuery = `
		UPDATE users.account
		SET following = array_append(following, $2), updatedat = $3
		WHERE id = $1 AND deletedat IS NULL AND NOT ($2 = ANY(following))`
	const unfollowQuery = `
		UPDATE users.account
		SET following = array_remove(following, $2), updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	query := unfollowQuery
	if follow {
		query = followQuery
	}
	_, err := repository.pool.Exec(context, query, userID, planetID, time.Now())
	return dberr.Wrap(err)
}

/*
SetBlocked atomically adds or removes a user id from the blocked set.

Parameters:
  - context: context.Context
  - userID: string
  - targetID: string
  - blocked: bool

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SetBlocked(context context.Context, userID, targetID string, blocked bool) error {
	const blockQuery = `
		UPDATE users.account
		SET blocked = array_append(blocked, $2), updatedat = $3
		WHERE id = $1 AND deletedat IS NULL AND NOT ($2 = ANY(blocked))`
	const unblockQuery = `
		UPDATE users.account
		SET blocked = array_remove(blocked, $2), updatedat = $3
		WHERE id = $1 AND deletedat IS NULL`

	query := unblockQuery
	if blocked {
		query = blockQuery
	}
	_, err := repository.pool.Exec(context, query, userID, targetID, time.Now())
	return dberr.Wrap(err)
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create persists a new session record into the users.session table.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO users.session (
			id, userid, tokenhash, useragent, ipaddress, expiresat, isrevoked, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.IsRevoked,
		session.CreatedAt,
	)
	return dberr.Wrap(err)
}

/*
FindByTokenHash retrieves an active session by its unique token hash.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Session: Hydrated session metadata
  - error: apperr NOT_FOUND or execution errors
*/
func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	const query = `
		SELECT id, userid, tokenhash, useragent, ipaddress, expiresat, isrevoked, createdat
		FROM users.session
		WHERE tokenhash = $1 AND isrevoked = FALSE AND expiresat > NOW()`

	session := &Session{}
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.IsRevoked,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, dberr.Wrap(err)
	}
	return session, nil
}

/*
Revoke marks a specific session as revoked.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - error: Revocation failures
*/
func (repository *PostgresSessionRepository) Revoke(context context.Context, sessionID string) error {
	const query = "UPDATE users.session SET isrevoked = TRUE WHERE id = $1"
	_, err := repository.pool.Exec(context, query, sessionID)
	return dberr.Wrap(err)
}

/*
RevokeAll marks all active sessions for a user as revoked.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Batch revocation failures
*/
func (repository *PostgresSessionRepository) RevokeAll(context context.Context, userID string) error {
	const query = "UPDATE users.session SET isrevoked = TRUE WHERE userid = $1 AND isrevoked = FALSE"
	_, err := repository.pool.Exec(context, query, userID)
	return dberr.Wrap(err)
}

/*
RevokeOthers marks all active sessions for a user as revoked, except for one.

Parameters:
  - context: context.Context
  - userID: string
  - currentSessionID: string

Returns:
  - error: Filtered revocation failures
*/
func (repository *PostgresSessionRepository) RevokeOthers(context context.Context, userID, currentSessionID string) error {
	const query = "UPDATE users.session SET isrevoked = TRUE WHERE userid = $1 AND id != $2 AND isrevoked = FALSE"
	_, err := repository.pool.Exec(context, query, userID, currentSessionID)
	return dberr.Wrap(err)
}

/*
DeleteExpired permanently removes all sessions that have passed their expiration.

Parameters:
  - context: context.Context

Returns:
  - error: Cleanup failures
*/
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context) error {
	const query = "DELETE FROM users.session WHERE expiresat <= NOW()"
	_, err := repository.pool.Exec(context, query)
	return dberr.Wrap(err)
}
