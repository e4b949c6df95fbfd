// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package access provides the shared permission-check helpers used by every
component variant's service layer.

# Error Shape

Failing the Read tier yields NOT_FOUND, never FORBIDDEN: a private planet is
indistinguishable from a missing one, so probing cannot reveal existence.
Write tiers first require visibility (NOT_FOUND on failure) and only then
report FORBIDDEN, which tells a caller "this exists, you may read it, but you
may not do that".
*/
package access

import (
	"context"

	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
)

// RequireRead fails with NOT_FOUND unless userID may see planetID.
//
// userID may be empty for anonymous callers.
func RequireRead(ctx context.Context, engine *perm.Engine, userID, planetID string) error {
	allowed, err := engine.ReadByID(ctx, userID, planetID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.NotFound("Planet")
	}
	return nil
}

// RequirePublicWrite gates content creation (posts, messages, reactions).
//
// Visibility is checked first so a denied caller cannot distinguish a private
// planet from a missing one.
func RequirePublicWrite(ctx context.Context, engine *perm.Engine, userID, planetID string) error {
	if userID == "" {
		return apperr.Unauthorized("Authentication required")
	}

	subject, err := engine.ResolveSubject(ctx, userID)
	if err != nil {
		return err
	}
	realm, err := engine.ResolveRealm(ctx, planetID)
	if err != nil {
		return err
	}

	if !perm.Read(subject, realm) {
		return apperr.NotFound("Planet")
	}
	if !perm.PublicWrite(subject, realm) {
		return apperr.Forbidden("You do not have write access to this planet")
	}
	return nil
}

// RequireFullWrite gates structural edits and moderation.
func RequireFullWrite(ctx context.Context, engine *perm.Engine, userID, planetID string) error {
	if userID == "" {
		return apperr.Unauthorized("Authentication required")
	}

	subject, err := engine.ResolveSubject(ctx, userID)
	if err != nil {
		return err
	}
	realm, err := engine.ResolveRealm(ctx, planetID)
	if err != nil {
		return err
	}

	if !perm.Read(subject, realm) {
		return apperr.NotFound("Planet")
	}
	if !perm.FullWrite(subject, realm) {
		return apperr.Forbidden("Only members may modify this planet")
	}
	return nil
}
