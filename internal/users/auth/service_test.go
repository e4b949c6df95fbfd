// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/sec"
	"github.com/starbasehq/starbase/internal/users/auth"
)

// # In-Memory Fakes

type fakeUserRepo struct {
	users map[string]*auth.User // keyed by id
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*auth.User{}}
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (r *fakeUserRepo) FindManyByIDs(_ context.Context, ids []string) (map[string]*auth.User, error) {
	found := map[string]*auth.User{}
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			found[id] = user
		}
	}
	return found, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *fakeUserRepo) Create(_ context.Context, user *auth.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *auth.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	if user, ok := r.users[userID]; ok {
		user.PasswordHash = newHash
	}
	return nil
}

func (r *fakeUserRepo) SetRole(_ context.Context, userID, role string) error {
	r.users[userID].Role = sec.UserRole(role)
	return nil
}

func (r *fakeUserRepo) SetBanned(_ context.Context, userID string, banned bool) error {
	r.users[userID].Banned = banned
	return nil
}

func (r *fakeUserRepo) SetCapWaived(_ context.Context, userID string, waived bool) error {
	r.users[userID].CapWaived = waived
	return nil
}

func (r *fakeUserRepo) AddUsedBytes(_ context.Context, userID string, delta int64) error {
	r.users[userID].UsedBytes += delta
	return nil
}

func (r *fakeUserRepo) SetTwoFactor(_ context.Context, userID, secret string, enabled bool, backupCodeHashes []string) error {
	user := r.users[userID]
	user.TOTPSecret = secret
	user.TOTPEnabled = enabled
	user.BackupCodes = backupCodeHashes
	return nil
}

func (r *fakeUserRepo) ConsumeBackupCode(_ context.Context, userID, codeHash string) (bool, error) {
	user := r.users[userID]
	for i, hash := range user.BackupCodes {
		if hash == codeHash {
			user.BackupCodes = append(user.BackupCodes[:i], user.BackupCodes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) SetFollowing(_ context.Context, userID, planetID string, follow bool) error {
	user := r.users[userID]
	if follow {
		if !user.IsFollowing(planetID) {
			user.Following = append(user.Following, planetID)
		}
		return nil
	}
	for i, id := range user.Following {
		if id == planetID {
			user.Following = append(user.Following[:i], user.Following[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeUserRepo) SetBlocked(_ context.Context, userID, targetID string, blocked bool) error {
	user := r.users[userID]
	if blocked {
		if !user.HasBlocked(targetID) {
			user.Blocked = append(user.Blocked, targetID)
		}
		return nil
	}
	for i, id := range user.Blocked {
		if id == targetID {
			user.Blocked = append(user.Blocked[:i], user.Blocked[i+1:]...)
			break
		}
	}
	return nil
}

type fakeSessionRepo struct {
	sessions map[string]*auth.Session // keyed by id
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*auth.Session{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	for _, session := range r.sessions {
		if session.TokenHash == tokenHash && !session.IsRevoked && session.ExpiresAt.After(time.Now()) {
			return session, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

func (r *fakeSessionRepo) Revoke(_ context.Context, sessionID string) error {
	if session, ok := r.sessions[sessionID]; ok {
		session.IsRevoked = true
	}
	return nil
}

func (r *fakeSessionRepo) RevokeAll(_ context.Context, userID string) error {
	for _, session := range r.sessions {
		if session.UserID == userID {
			session.IsRevoked = true
		}
	}
	return nil
}

func (r *fakeSessionRepo) RevokeOthers(_ context.Context, userID, currentSessionID string) error {
	for _, session := range r.sessions {
		if session.UserID == userID && session.ID != currentSessionID {
			session.IsRevoked = true
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context) error { return nil }

func (r *fakeSessionRepo) activeCount(userID string) int {
	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID && !session.IsRevoked {
			count++
		}
	}
	return count
}

type fakeResetRepo struct {
	tokens map[string]string // token -> userID
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: map[string]string{}}
}

func (r *fakeResetRepo) Set(_ context.Context, token, userID string, _ time.Duration) error {
	r.tokens[token] = userID
	return nil
}

func (r *fakeResetRepo) Consume(_ context.Context, token string) (string, error) {
	userID, ok := r.tokens[token]
	if !ok {
		return "", apperr.NotFound("Reset token")
	}
	delete(r.tokens, token)
	return userID, nil
}

type fakeTokenProvider struct{}

func (fakeTokenProvider) GenerateAccessToken(userID, _, _ string, _ time.Duration) (string, error) {
	return "access-" + userID, nil
}

type fakeMailSender struct {
	sentTo    []string
	lastToken string
}

func (m *fakeMailSender) SendPasswordReset(to, _, token string) error {
	m.sentTo = append(m.sentTo, to)
	m.lastToken = token
	return nil
}

// # Test Harness

type authFixture struct {
	service  *auth.Service
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	resets   *fakeResetRepo
	mailer   *fakeMailSender
}

func newAuthFixture() *authFixture {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	resets := newFakeResetRepo()
	mailer := &fakeMailSender{}

	return &authFixture{
		service:  auth.NewService(users, sessions, resets, fakeTokenProvider{}, mailer),
		users:    users,
		sessions: sessions,
		resets:   resets,
		mailer:   mailer,
	}
}

func (fixture *authFixture) register(t *testing.T, username, email, password string) *auth.User {
	t.Helper()
	user, err := fixture.service.Register(context.Background(), auth.RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return user
}

/*
TestRegister verifies enrollment, hashing, and identity conflict detection.
*/
func TestRegister(t *testing.T) {
	fixture := newAuthFixture()
	ctx := context.Background()

	user := fixture.register(t, "nova", "nova@example.com", "hunter2hunter2")

	// 1. The password is never stored in plain text
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("hunter2hunter2", user.PasswordHash))

	// 2. Duplicate email is a Conflict
	_, err := fixture.service.Register(ctx, auth.RegisterInput{
		Username: "other", Email: "nova@example.com", Password: "hunter2hunter2",
	})
	requireCode(t, err, "CONFLICT")

	// 3. Duplicate username is a Conflict
	_, err = fixture.service.Register(ctx, auth.RegisterInput{
		Username: "nova", Email: "other@example.com", Password: "hunter2hunter2",
	})
	requireCode(t, err, "CONFLICT")
}

/*
TestLogin verifies credential checks and session establishment.
*/
func TestLogin(t *testing.T) {
	fixture := newAuthFixture()
	ctx := context.Background()
	user := fixture.register(t, "nova", "nova@example.com", "hunter2hunter2")

	t.Run("by_email", func(t *testing.T) {
		session, err := fixture.service.Login(ctx, auth.LoginInput{
			Login: "nova@example.com", Password: "hunter2hunter2",
		})
		require.NoError(t, err)
		assert.Equal(t, "access-"+user.ID, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)
	})

	t.Run("by_username", func(t *testing.T) {
		_, err := fixture.service.Login(ctx, auth.LoginInput{
			Login: "nova", Password: "hunter2hunter2",
		})
		require.NoError(t, err)
	})

	t.Run("wrong_password", func(t *testing.T) {
		_, err := fixture.service.Login(ctx, auth.LoginInput{
			Login: "nova", Password: "wrong-password",
		})
		requireCode(t, err, "UNAUTHORIZED")
	})

	t.Run("unknown_account", func(t *testing.T) {
		_, err := fixture.service.Login(ctx, auth.LoginInput{
			Login: "ghost", Password: "hunter2hunter2",
		})
		requireCode(t, err, "UNAUTHORIZED")
	})
}

/*
TestTwoFactorLifecycle drives enrollment, confirmation, gated login, and
single-use backup codes end to end.
*/
func TestTwoFactorLifecycle(t *testing.T) {
	fixture := newAuthFixture()
	ctx := context.Background()
	user := fixture.register(t, "nova", "nova@example.com", "hunter2hunter2")

	// 1. Confirming before enrollment is rejected
	_, err := fixture.service.ConfirmTwoFactor(ctx, user.ID, "000000")
	requireCode(t, err, "UNPROCESSABLE")

	// 2. Begin enrollment: secret stored but not yet enforced
	provision, err := fixture.service.BeginTwoFactor(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, provision.Secret)
	assert.Contains(t, provision.ProvisioningURI, "otpauth://")
	assert.False(t, fixture.users.users[user.ID].TOTPEnabled)

	// 3. Confirm with a live code; backup codes are issued once
	code, err := totp.GenerateCode(provision.Secret, time.Now())
	require.NoError(t, err)
	backupCodes, err := fixture.service.ConfirmTwoFactor(ctx, user.ID, code)
	require.NoError(t, err)
	require.Len(t, backupCodes, constants.BackupCodeCount)
	assert.True(t, fixture.users.users[user.ID].TOTPEnabled)

	// 4. Login now demands the second factor
	_, err = fixture.service.Login(ctx, auth.LoginInput{Login: "nova", Password: "hunter2hunter2"})
	requireCode(t, err, "UNAUTHORIZED")

	code, err = totp.GenerateCode(provision.Secret, time.Now())
	require.NoError(t, err)
	_, err = fixture.service.Login(ctx, auth.LoginInput{
		Login: "nova", Password: "hunter2hunter2", TwoFactorCode: code,
	})
	require.NoError(t, err)

	// 5. A backup code works exactly once
	_, err = fixture.service.Login(ctx, auth.LoginInput{
		Login: "nova", Password: "hunter2hunter2", TwoFactorCode: backupCodes[0],
	})
	require.NoError(t, err)
	_, err = fixture.service.Login(ctx, auth.LoginInput{
		Login: "nova", Password: "hunter2hunter2", TwoFactorCode: backupCodes[0],
	})
	requireCode(t, err, "UNAUTHORIZED")

	// 6. Disabling requires the password and clears the secret
	err = fixture.service.DisableTwoFactor(ctx, user.ID, "wrong")
	requireCode(t, err, "UNAUTHORIZED")
	require.NoError(t, fixture.service.DisableTwoFactor(ctx, user.ID, "hunter2hunter2"))
	assert.False(t, fixture.users.users[user.ID].TOTPEnabled)
	assert.Empty(t, fixture.users.users[user.ID].TOTPSecret)
}

/*
TestPasswordReset verifies the mail delivery, single-use token, and session
cleanup of the forgot-password flow.
*/
func TestPasswordReset(t *testing.T) {
	fixture := newAuthFixture()
	ctx := context.Background()
	user := fixture.register(t, "nova", "nova@example.com", "hunter2hunter2")

	// An active session that the reset must kill
	_, err := fixture.service.Login(ctx, auth.LoginInput{Login: "nova", Password: "hunter2hunter2"})
	require.NoError(t, err)
	require.Equal(t, 1, fixture.sessions.activeCount(user.ID))

	// 1. Unknown email is silently accepted (no enumeration)
	require.NoError(t, fixture.service.RequestPasswordReset(ctx, "ghost@example.com"))
	assert.Empty(t, fixture.mailer.sentTo)

	// 2. Known email receives a token
	require.NoError(t, fixture.service.RequestPasswordReset(ctx, "nova@example.com"))
	require.Equal(t, []string{"nova@example.com"}, fixture.mailer.sentTo)
	token := fixture.mailer.lastToken
	require.NotEmpty(t, token)

	// 3. Redemption updates the password and revokes all sessions
	require.NoError(t, fixture.service.ResetPassword(ctx, token, "newpassword99"))
	assert.Equal(t, 0, fixture.sessions.activeCount(user.ID))
	_, err = fixture.service.Login(ctx, auth.LoginInput{Login: "nova", Password: "newpassword99"})
	require.NoError(t, err)

	// 4. The token is single-use
	err = fixture.service.ResetPassword(ctx, token, "anotherpass99")
	requireCode(t, err, "NOT_FOUND")
}

/*
TestRefreshSession verifies refresh-token rotation and replay rejection.
*/
func TestRefreshSession(t *testing.T) {
	fixture := newAuthFixture()
	ctx := context.Background()
	fixture.register(t, "nova", "nova@example.com", "hunter2hunter2")

	session, err := fixture.service.Login(ctx, auth.LoginInput{Login: "nova", Password: "hunter2hunter2"})
	require.NoError(t, err)

	// 1. Rotation succeeds and yields a different refresh token
	rotated, err := fixture.service.RefreshSession(ctx, session.RefreshToken, "ua", "ip")
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	// 2. The old token is dead: replaying it is Unauthorized
	_, err = fixture.service.RefreshSession(ctx, session.RefreshToken, "ua", "ip")
	requireCode(t, err, "UNAUTHORIZED")
}

/*
TestGlobalModeration verifies the operator ban/admin/waiver toggles.
*/
func TestGlobalModeration(t *testing.T) {
	fixture := newAuthFixture()
	ctx := context.Background()
	user := fixture.register(t, "nova", "nova@example.com", "hunter2hunter2")

	_, err := fixture.service.Login(ctx, auth.LoginInput{Login: "nova", Password: "hunter2hunter2"})
	require.NoError(t, err)

	// 1. Banning flips the flag and revokes every session
	require.NoError(t, fixture.service.SetGlobalBan(ctx, user.ID, true))
	assert.True(t, fixture.users.users[user.ID].Banned)
	assert.Equal(t, 0, fixture.sessions.activeCount(user.ID))

	// 2. Unbanning restores write eligibility
	require.NoError(t, fixture.service.SetGlobalBan(ctx, user.ID, false))
	assert.False(t, fixture.users.users[user.ID].Banned)

	// 3. Admin grant and revoke
	require.NoError(t, fixture.service.SetAdmin(ctx, user.ID, true))
	assert.True(t, fixture.users.users[user.ID].IsAdmin())
	require.NoError(t, fixture.service.SetAdmin(ctx, user.ID, false))
	assert.False(t, fixture.users.users[user.ID].IsAdmin())

	// 4. Unknown target is NOT_FOUND
	requireCode(t, fixture.service.SetGlobalBan(ctx, "missing", true), "NOT_FOUND")
	requireCode(t, fixture.service.SetQuotaWaiver(ctx, "missing", true), "NOT_FOUND")
}

/*
TestBlockUser verifies the blocked-set rules.
*/
func TestBlockUser(t *testing.T) {
	fixture := newAuthFixture()
	ctx := context.Background()
	alice := fixture.register(t, "alice", "alice@example.com", "password-one")
	bob := fixture.register(t, "bob", "bob@example.com", "password-two")

	// 1. Self-block is a validation error
	requireCode(t, fixture.service.BlockUser(ctx, alice.ID, alice.ID), "VALIDATION_ERROR")

	// 2. Blocking a missing account is NOT_FOUND
	requireCode(t, fixture.service.BlockUser(ctx, alice.ID, "missing"), "NOT_FOUND")

	// 3. Block then unblock round-trips
	require.NoError(t, fixture.service.BlockUser(ctx, alice.ID, bob.ID))
	assert.True(t, fixture.users.users[alice.ID].HasBlocked(bob.ID))
	require.NoError(t, fixture.service.UnblockUser(ctx, alice.ID, bob.ID))
	assert.False(t, fixture.users.users[alice.ID].HasBlocked(bob.ID))
}

/*
TestPublicProjection verifies that the redacted profile never leaks
credential or quota material.
*/
func TestPublicProjection(t *testing.T) {
	fixture := newAuthFixture()
	fixture.register(t, "nova", "nova@example.com", "hunter2hunter2")

	profile, err := fixture.service.GetPublicProfile(context.Background(), "nova")
	require.NoError(t, err)
	assert.Equal(t, "nova", profile.Username)

	// The projection type itself carries no email, hash, quota, or relations.
	assert.IsType(t, &auth.PublicUser{}, profile)
}

// requireCode asserts that err is an AppError with the given machine code.
func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var appError *apperr.AppError
	require.ErrorAs(t, err, &appError)
	require.Equal(t, code, appError.Code)
}
