// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package perm implements the four-tier access-control engine for planets.

Every operation against a planet or one of its components is gated by exactly
one of four tiers, each a pure predicate over the caller and the target planet:

  - Read: visibility. Public planets are readable by anyone (including
    anonymous callers); private planets require admin, membership, or ownership.
  - PublicWrite: drive-by content creation (forum posts, reactions, chat
    messages). Open on public planets unless the caller is banned.
  - FullWrite: structural edits and moderation (renames, deletions, pins).
    Never granted merely because a planet is public.
  - Admin: the global operator flag.

# Check Ordering

The global ban is checked before the admin bypass: a globally banned account
loses all write access, even if its admin flag is still set. The admin bypass
is checked before the planet-level ban, so a global operator can still
moderate a planet that has banned them.

# Purity

The tier predicates ([Read], [PublicWrite], [FullWrite], [Admin]) perform no
I/O and are safe to re-evaluate on every delivered event. The [Engine] wraps
them with id resolution for callers that only hold identifiers.
*/
package perm

import (
	"context"

	"github.com/starbasehq/starbase/internal/platform/apperr"
)

// # Access-Control Views

// Subject is the access-control view of a user account.
//
// A nil Subject represents an anonymous caller.
type Subject interface {
	// SubjectID returns the account's unique id.
	SubjectID() string
	// IsAdmin reports whether the global admin flag is set.
	IsAdmin() bool
	// IsBanned reports whether the account is globally banned.
	IsBanned() bool
}

// Realm is the access-control view of a planet.
type Realm interface {
	// RealmID returns the planet's unique id.
	RealmID() string
	// OwnerID returns the id of the planet's single owner.
	OwnerID() string
	// IsPrivate reports whether the planet is members-only.
	IsPrivate() bool
	// HasMember reports whether the given user id is in the member set.
	// The owner is NOT required to appear in the member set.
	HasMember(userID string) bool
	// HasBanned reports whether the given user id is banned from this planet.
	HasBanned(userID string) bool
}

// # Tier Predicates

// Read reports whether subject may see realm and its contents.
//
// Public realms are readable by everyone, anonymous callers included. Private
// realms require a resolved subject that is a global admin, the owner, or a
// member. The owner is implicitly a full member even when absent from the
// member set.
func Read(subject Subject, realm Realm) bool {
	if !realm.IsPrivate() {
		return true
	}
	if subject == nil {
		return false
	}
	if subject.IsAdmin() {
		return true
	}
	return realm.OwnerID() == subject.SubjectID() || realm.HasMember(subject.SubjectID())
}

// PublicWrite reports whether subject may create content inside realm.
//
// Requires a resolved subject. A global ban blocks unconditionally. Admins
// bypass the remaining checks. A planet-level ban blocks non-admins even if
// they are otherwise members. Public realms accept writes from any remaining
// caller; private realms require membership or ownership.
func PublicWrite(subject Subject, realm Realm) bool {
	if subject == nil {
		return false
	}
	if subject.IsBanned() {
		return false
	}
	if subject.IsAdmin() {
		return true
	}
	if realm.HasBanned(subject.SubjectID()) {
		return false
	}
	if !realm.IsPrivate() {
		return true
	}
	return realm.OwnerID() == subject.SubjectID() || realm.HasMember(subject.SubjectID())
}

// FullWrite reports whether subject may perform structural edits on realm.
//
// Identical in shape to [PublicWrite] except that publicness grants nothing:
// membership, ownership, or the admin flag is always required.
func FullWrite(subject Subject, realm Realm) bool {
	if subject == nil {
		return false
	}
	if subject.IsBanned() {
		return false
	}
	if subject.IsAdmin() {
		return true
	}
	if realm.HasBanned(subject.SubjectID()) {
		return false
	}
	return realm.OwnerID() == subject.SubjectID() || realm.HasMember(subject.SubjectID())
}

// Admin reports whether subject carries the global admin flag.
func Admin(subject Subject) bool {
	return subject != nil && subject.IsAdmin()
}

// # Resolving Engine

// SubjectSource resolves user ids into [Subject] views.
type SubjectSource interface {
	// FindSubject returns the subject for the given user id, or
	// apperr NOT_FOUND if no such account exists.
	FindSubject(ctx context.Context, id string) (Subject, error)
}

// RealmSource resolves planet ids into [Realm] views.
type RealmSource interface {
	// FindRealm returns the realm for the given planet id, or
	// apperr NOT_FOUND if no such planet exists.
	FindRealm(ctx context.Context, id string) (Realm, error)
}

// Engine evaluates tier predicates for callers that hold identifiers rather
// than pre-resolved entities. Hot paths that already hold both entities
// should call the pure predicates directly and skip the redundant lookups.
type Engine struct {
	subjects SubjectSource
	realms   RealmSource
}

// NewEngine constructs an [Engine] over the given entity sources.
func NewEngine(subjects SubjectSource, realms RealmSource) *Engine {
	return &Engine{subjects: subjects, realms: realms}
}

// ResolveSubject resolves userID into a [Subject].
//
// An empty userID resolves to nil (anonymous), not an error. A non-empty id
// that does not exist is a NOT_FOUND failure, distinct from "no access".
func (engine *Engine) ResolveSubject(ctx context.Context, userID string) (Subject, error) {
	if userID == "" {
		return nil, nil
	}
	return engine.subjects.FindSubject(ctx, userID)
}

// ResolveRealm resolves planetID into a [Realm], failing with NOT_FOUND when
// the planet does not exist.
func (engine *Engine) ResolveRealm(ctx context.Context, planetID string) (Realm, error) {
	return engine.realms.FindRealm(ctx, planetID)
}

// ReadByID resolves both ids and evaluates the [Read] tier.
//
// userID may be empty for anonymous callers. An unknown planet id fails with
// NOT_FOUND rather than returning false.
func (engine *Engine) ReadByID(ctx context.Context, userID, planetID string) (bool, error) {
	subject, realm, err := engine.resolve(ctx, userID, planetID)
	if err != nil {
		return false, err
	}
	return Read(subject, realm), nil
}

// PublicWriteByID resolves both ids and evaluates the [PublicWrite] tier.
func (engine *Engine) PublicWriteByID(ctx context.Context, userID, planetID string) (bool, error) {
	subject, realm, err := engine.resolve(ctx, userID, planetID)
	if err != nil {
		return false, err
	}
	return PublicWrite(subject, realm), nil
}

// FullWriteByID resolves both ids and evaluates the [FullWrite] tier.
func (engine *Engine) FullWriteByID(ctx context.Context, userID, planetID string) (bool, error) {
	subject, realm, err := engine.resolve(ctx, userID, planetID)
	if err != nil {
		return false, err
	}
	return FullWrite(subject, realm), nil
}

// AdminByID resolves userID and evaluates the [Admin] tier.
//
// Unlike the other tiers an empty userID is a usage error here: the caller
// must be authenticated before an admin check makes sense.
func (engine *Engine) AdminByID(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, apperr.Unauthorized("Authentication required")
	}
	subject, err := engine.subjects.FindSubject(ctx, userID)
	if err != nil {
		return false, err
	}
	return Admin(subject), nil
}

// resolve loads the subject (possibly anonymous) and the realm.
func (engine *Engine) resolve(ctx context.Context, userID, planetID string) (Subject, Realm, error) {
	subject, err := engine.ResolveSubject(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	realm, err := engine.realms.FindRealm(ctx, planetID)
	if err != nil {
		return nil, nil, err
	}
	return subject, realm, nil
}
