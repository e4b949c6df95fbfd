// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package planet

import "time"

const (
	// InviteTTL is how long an unredeemed invite code survives before Redis
	// expires it.
	InviteTTL = 72 * time.Hour

	// InviteCodeLength is the entropy (in bytes) of a generated invite code.
	InviteCodeLength = 16
)
