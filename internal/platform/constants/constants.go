// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: JWT issuers and cookie configuration.
  - Content Limits: Size ceilings for user-generated content and file quotas.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "starbase-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "starbase.social"

	// AccessTokenTTL is the lifetime of an issued access token.
	AccessTokenTTL = 24 * time.Hour

	// ResetTokenTTL is the lifetime of a password-reset token.
	ResetTokenTTL = 30 * time.Minute

	// BackupCodeCount is the number of one-time two-factor backup codes
	// issued when TOTP is enabled.
	BackupCodeCount = 8

	// RefreshTokenCookieName is the HttpOnly cookie carrying the refresh token.
	RefreshTokenCookieName = "starbase_refresh"

	// RefreshTokenCookiePath scopes the refresh cookie to the auth endpoints.
	RefreshTokenCookiePath = "/api/v1/auth"
)

// # Content Limits

const (
	// MaxUsernameLen bounds usernames; the shape is enforced separately.
	MaxUsernameLen = 32

	// MaxPlanetNameLen bounds planet and component display names.
	MaxPlanetNameLen = 64

	// MaxMessageLen bounds a single chat message's content.
	MaxMessageLen = 4000

	// MaxPostLen bounds forum post and reply bodies.
	MaxPostLen = 40000

	// MaxPageLen bounds page and wiki-page content.
	MaxPageLen = 100000

	// MaxFileNameLen bounds file and folder display names.
	MaxFileNameLen = 255

	// MaxBatchTargets bounds the number of targets in one bulk file
	// operation (delete, move).
	MaxBatchTargets = 50
)

// # File Storage

const (
	// DefaultFileQuotaBytes is the per-user storage ceiling. The cap gates
	// new uploads only; it can be waived per account.
	DefaultFileQuotaBytes = int64(25) << 30 // 25 GiB

	// UploadURLTTL bounds how long an issued upload URL stays valid.
	UploadURLTTL = 15 * time.Minute

	// DownloadURLTTL bounds how long an issued download URL stays valid.
	DownloadURLTTL = 6 * time.Hour

	// DownloadTicketTTL bounds how long an unused bulk-download ticket
	// survives before Redis expires it.
	DownloadTicketTTL = 10 * time.Minute
)

// # Live Stream

const (
	// WSWriteWait bounds a single WebSocket write.
	WSWriteWait = 10 * time.Second

	// WSPongWait is how long a peer may stay silent before the connection is
	// considered dead.
	WSPongWait = 60 * time.Second

	// WSPingPeriod is the keepalive ping interval; must be below WSPongWait.
	WSPingPeriod = 50 * time.Second
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldCode  = "code"
	FieldError = "error"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixResetToken     = "auth:reset_token:"
	RedisPrefixDownloadTicket = "files:ticket:"
	RedisPrefixInvite         = "planet:invite:"
)
