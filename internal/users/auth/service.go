// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/mail"
	"github.com/starbasehq/starbase/internal/platform/sec"
	"github.com/starbasehq/starbase/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - username: The username of the account.
	//   - role: The role of the account.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	GenerateAccessToken(userID, username, role string, timeToLive time.Duration) (string, error)
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or login logic must be reviewed by the security team.
type Service struct {
	userRepository       UserRepository
	sessionRepository    SessionRepository
	resetTokenRepository ResetTokenRepository
	tokenProvider        TokenProvider
	mailSender           mail.Sender
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	resetRepo ResetTokenRepository,
	tokenProv TokenProvider,
	mailSender mail.Sender,
) *Service {
	return &Service{
		userRepository:       userRepo,
		sessionRepository:    sessionRepo,
		resetTokenRepository: resetRepo,
		tokenProvider:        tokenProv,
		mailSender:           mailSender,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Deep-enrollment of a new member, handling password hashing and
initial relation state. Username shape and length are validated at the
transport boundary; uniqueness is enforced here.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Verify username uniqueness. Return a client-safe Conflict err.
	_, err = service.userRepository.FindByUsername(context, input.Username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		DisplayName:  input.DisplayName,
		Role:         sec.RoleMember,
	}

	// Persist the user to the database
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Login         string // Can be Username or Email
	Password      string
	TwoFactorCode string // TOTP code or backup code; required when 2FA is enabled
	UserAgent     string
	IPAddress     string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

/*
Login validates user credentials and issues security tokens.

Description: Verifies identity, performs constant-time password comparison,
enforces the second factor when enrolled, and initializes a new session with
rotated security tokens. Globally banned accounts may still log in: the ban
removes write access, not visibility.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session identifiers
  - err: Unauthorized or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	var user *User
	var err error
	// Flexible login: look up by Email or Username
	user, err = service.userRepository.FindByEmail(context, input.Login)
	if err != nil {
		user, err = service.userRepository.FindByUsername(context, input.Login)
	}

	// If (err != nil) the user does not exist. Generic message to prevent enumeration.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Verify password hash using constant-time comparison in bcrypt to prevent timing attacks
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Enforce the second factor when the account is enrolled
	if user.TOTPEnabled {
		if err := service.checkSecondFactor(context, user, input.TwoFactorCode); err != nil {
			return nil, err
		}
	}

	return service.establishSession(context, user, input.UserAgent, input.IPAddress)
}

// checkSecondFactor accepts either a live TOTP code or an unused backup code.
func (service *Service) checkSecondFactor(context context.Context, user *User, code string) error {
	if code == "" {
		return apperr.Unauthorized("Two-factor code required")
	}

	if validateTOTPCode(code, user.TOTPSecret) {
		return nil
	}

	// Fall back to the one-time backup codes. Consumption is atomic, so a
	// code replayed by a concurrent login fails here.
	consumed, err := service.userRepository.ConsumeBackupCode(context, user.ID, sec.HashToken(code))
	if err != nil {
		return err
	}
	if !consumed {
		return apperr.Unauthorized("Invalid two-factor code")
	}
	return nil
}

// establishSession issues the access/refresh token pair and records the session.
func (service *Service) establishSession(context context.Context, user *User, userAgent, ipAddress string) (*LoginSession, error) {

	// Generate short-lived Access Token
	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Username, string(user.Role), AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	// Generate long-lived Refresh Token
	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	// Create and persist the tracking session
	expiresAt := time.Now().Add(RefreshTokenTTL)
	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

/*
Logout permanently revokes the user's active session.

Description: Ensures that a tracked refresh token can never be used again.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - err: Revocation failures
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {

	// Hash the refresh token
	tokenHash := sec.HashToken(refreshToken)

	// Find the session by token hash
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)

	// If (err != nil) session is already gone or invalid, we consider logout successful (idempotent operation).
	if err != nil {
		return nil
	}

	// If (err == nil) Revoke the session
	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

/*
LogoutAll revokes every active session belonging to the user.

Description: "Sign out everywhere" — all refresh tokens die at once; issued
access tokens age out within their short TTL.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - err: Revocation failures
*/
func (service *Service) LogoutAll(context context.Context, userID string) error {
	if err := service.sessionRepository.RevokeAll(context, userID); err != nil {
		return fmt.Errorf("auth_service_logout_all_failed: %w", err)
	}
	return nil
}

// # Session Management

/*
RefreshSession implements the Refresh Token Rotation mechanism.

Description: Verifies the existing refresh token, revokes it to prevent reuse
(replay attack mitigation), and issues a fresh pair of rotated tokens.

Parameters:
  - context: context.Context
  - refreshToken: string
  - userAgent: string
  - ipAddress: string

Returns:
  - *LoginSession: New session credentials
  - err: Unauthorized or storage failures
*/
func (service *Service) RefreshSession(context context.Context, refreshToken, userAgent, ipAddress string) (*LoginSession, error) {

	// Hash the incoming refresh token to look it up
	tokenHash := sec.HashToken(refreshToken)
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)

	// If (err != nil) the token is either expired, already revoked, or completely invalid.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// Rotation: Revoke the old session to prevent replay attacks
	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_revoke_failed: %w", err)
	}

	// Fetch the user associated with this session
	user, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("User not found or suspended")
	}

	return service.establishSession(context, user, userAgent, ipAddress)
}

// # Password Recovery

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Generates a secure token, saves it to Redis with a bounded TTL,
and mails it to the account's address. A missing account is silently ignored
to prevent user enumeration.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - err: Generation or delivery errors
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) error {
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		return nil
	}

	// Generate reset token
	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	// Save to Redis
	if err := service.resetTokenRepository.Set(context, token, user.ID, constants.ResetTokenTTL); err != nil {
		return fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	// Deliver the token. Mail is an external collaborator: failure here is
	// surfaced so the handler can report a delivery problem.
	if err := service.mailSender.SendPasswordReset(user.Email, user.Username, token); err != nil {
		return fmt.Errorf("auth_service_reset_mail_failed: %w", err)
	}

	return nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Consumes the single-use token, hashes the new password, updates
the DB, and revokes all active sessions for security cleanup.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - err: Validation or update failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {

	// Consume the reset token: retrieval and deletion are one atomic step
	userID, err := service.resetTokenRepository.Consume(context, token)
	if err != nil {
		return err
	}

	// Hash the new password securely
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	// Update the user's password in persistent storage
	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	// Security Cleanup: Revoke EVERY active session for this user
	_ = service.sessionRepository.RevokeAll(context, userID)

	return nil
}

/*
ChangePassword allows an authenticated user to update their credentials.

Description: Verifies the current password and then rotates all OTHER refresh sessions
to ensure high security across devices.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string
  - currentRefreshToken: string

Returns:
  - err: Unauthorized or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID, currentPassword, newPassword, currentRefreshToken string) error {

	// Fetch user by ID
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	// Verify the current password before allowing change
	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	// Hash the brand new password
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	// Update the database with the new hash
	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_update_failed: %w", err)
	}

	// Security Side Effect: Revoke all other sessions to force re-login on other devices
	tokenHash := sec.HashToken(currentRefreshToken)
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)
	if err == nil {
		_ = service.sessionRepository.RevokeOthers(context, userID, session.ID)
	}

	return nil
}

// # Profile

// UpdateProfileInput holds the caller-mutable profile fields.
type UpdateProfileInput struct {
	DisplayName string
	AvatarURL   string
	Bio         string
}

/*
UpdateProfile replaces the user's mutable profile fields.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *User: Updated entity
  - err: Storage failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	user.DisplayName = input.DisplayName
	user.AvatarURL = input.AvatarURL
	user.Bio = input.Bio

	if err := service.userRepository.Update(context, user); err != nil {
		return nil, err
	}
	return user, nil
}

/*
GetProfile returns the caller's own full account record.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *User: Hydrated entity
  - err: NOT_FOUND or storage failures
*/
func (service *Service) GetProfile(context context.Context, userID string) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}

/*
GetPublicProfile resolves a username into the redacted public projection.

Description: This is the ONLY profile shape served for other accounts —
credential material, quota, and relation sets never leave the server.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *PublicUser: Redacted projection
  - err: NOT_FOUND or storage failures
*/
func (service *Service) GetPublicProfile(context context.Context, username string) (*PublicUser, error) {
	user, err := service.userRepository.FindByUsername(context, username)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// # Two-Factor Enrollment

// TwoFactorProvision carries the pending enrollment material.
type TwoFactorProvision struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

/*
BeginTwoFactor provisions a TOTP secret for the account.

Description: The secret is persisted immediately but NOT enabled; logins stay
single-factor until [Service.ConfirmTwoFactor] sees a first valid code. Calling
this again before confirmation simply rotates the pending secret.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *TwoFactorProvision: Secret and otpauth URI for the authenticator app
  - err: Conflict when already enabled, or storage failures
*/
func (service *Service) BeginTwoFactor(context context.Context, userID string) (*TwoFactorProvision, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, apperr.Conflict("Two-factor authentication is already enabled")
	}

	secret, uri, err := generateTOTPKey(user.Username)
	if err != nil {
		return nil, err
	}

	if err := service.userRepository.SetTwoFactor(context, userID, secret, false, nil); err != nil {
		return nil, err
	}

	return &TwoFactorProvision{Secret: secret, ProvisioningURI: uri}, nil
}

/*
ConfirmTwoFactor activates two-factor authentication.

Description: Validates the first code against the pending secret, flips the
enabled flag, and issues the one-time backup codes. The plain codes are
returned exactly once.

Parameters:
  - context: context.Context
  - userID: string
  - code: string

Returns:
  - []string: Plain backup codes (display once)
  - err: Validation, state, or storage failures
*/
func (service *Service) ConfirmTwoFactor(context context.Context, userID, code string) ([]string, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, apperr.Conflict("Two-factor authentication is already enabled")
	}
	if user.TOTPSecret == "" {
		return nil, apperr.Unprocessable("Two-factor enrollment has not been started")
	}
	if !validateTOTPCode(code, user.TOTPSecret) {
		return nil, apperr.Unauthorized("Invalid two-factor code")
	}

	plainCodes, codeHashes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	if err := service.userRepository.SetTwoFactor(context, userID, user.TOTPSecret, true, codeHashes); err != nil {
		return nil, err
	}

	return plainCodes, nil
}

/*
DisableTwoFactor turns off two-factor authentication.

Description: Requires the account password so a hijacked session cannot
silently weaken the account.

Parameters:
  - context: context.Context
  - userID: string
  - password: string

Returns:
  - err: Unauthorized or storage failures
*/
func (service *Service) DisableTwoFactor(context context.Context, userID, password string) error {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}
	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return apperr.Unauthorized("Password is incorrect")
	}

	return service.userRepository.SetTwoFactor(context, userID, "", false, nil)
}

// # Social Relations

/*
BlockUser adds a target account to the caller's blocked set.

Parameters:
  - context: context.Context
  - userID: string
  - targetID: string

Returns:
  - err: Validation, NOT_FOUND, or storage failures
*/
func (service *Service) BlockUser(context context.Context, userID, targetID string) error {
	if userID == targetID {
		return apperr.ValidationError("You cannot block yourself")
	}

	// Verify the target exists so the blocked set never collects dangling ids
	if _, err := service.userRepository.FindByID(context, targetID); err != nil {
		return err
	}

	return service.userRepository.SetBlocked(context, userID, targetID, true)
}

/*
UnblockUser removes a target account from the caller's blocked set.

Parameters:
  - context: context.Context
  - userID: string
  - targetID: string

Returns:
  - err: Storage failures
*/
func (service *Service) UnblockUser(context context.Context, userID, targetID string) error {
	return service.userRepository.SetBlocked(context, userID, targetID, false)
}

// # Global Moderation (operator only; gated at the router)

/*
SetAdmin grants or revokes the global operator role.

Parameters:
  - context: context.Context
  - targetID: string
  - admin: bool

Returns:
  - err: NOT_FOUND or storage failures
*/
func (service *Service) SetAdmin(context context.Context, targetID string, admin bool) error {
	if _, err := service.userRepository.FindByID(context, targetID); err != nil {
		return err
	}

	role := sec.RoleMember
	if admin {
		role = sec.RoleAdmin
	}
	return service.userRepository.SetRole(context, targetID, string(role))
}

/*
SetGlobalBan toggles the platform-wide ban flag.

Description: Banning also revokes every active session; the ban itself removes
write access on the next permission check even for tokens still in flight.

Parameters:
  - context: context.Context
  - targetID: string
  - banned: bool

Returns:
  - err: NOT_FOUND or storage failures
*/
func (service *Service) SetGlobalBan(context context.Context, targetID string, banned bool) error {
	if _, err := service.userRepository.FindByID(context, targetID); err != nil {
		return err
	}

	if err := service.userRepository.SetBanned(context, targetID, banned); err != nil {
		return err
	}

	if banned {
		_ = service.sessionRepository.RevokeAll(context, targetID)
	}
	return nil
}

/*
SetQuotaWaiver toggles the storage-cap waiver for an account.

Parameters:
  - context: context.Context
  - targetID: string
  - waived: bool

Returns:
  - err: NOT_FOUND or storage failures
*/
func (service *Service) SetQuotaWaiver(context context.Context, targetID string, waived bool) error {
	if _, err := service.userRepository.FindByID(context, targetID); err != nil {
		return err
	}
	return service.userRepository.SetCapWaived(context, targetID, waived)
}
