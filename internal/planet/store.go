// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package planet

import (
	"context"
	"time"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/pkg/pagination"
)

// # Planet Data Access

// PlanetRepository defines the data access contract for planets.
//
// Shared-mutable sets (members, bans, component references) are mutated only
// through atomic single-statement operations so concurrent requests never
// lose updates to a read-modify-write race.
type PlanetRepository interface {

	/*
		Create persists a brand-new planet.

		Parameters:
		  - context: context.Context
		  - planet: *Planet

		Returns:
		  - error: Conflict on duplicate slug, or persistence failures
	*/
	Create(context context.Context, planet *Planet) error

	/*
		FindByID returns the planet with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Planet: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindByID(context context.Context, id string) (*Planet, error)

	/*
		FindManyByIDs returns all planets matching the given ids, keyed by id.

		Description: Batch resolution for the per-request loader. Missing ids
		are absent from the map, never an error.

		Parameters:
		  - context: context.Context
		  - ids: []string

		Returns:
		  - map[string]*Planet: Found entities keyed by id
		  - error: Retrieval failures
	*/
	FindManyByIDs(context context.Context, ids []string) (map[string]*Planet, error)

	/*
		FindBySlug returns the planet with the given slug.

		Parameters:
		  - context: context.Context
		  - slug: string

		Returns:
		  - *Planet: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindBySlug(context context.Context, slug string) (*Planet, error)

	/*
		ListPublic returns a page of public planets, newest first, with the
		total count. Featured planets can be filtered.

		Parameters:
		  - context: context.Context
		  - params: pagination.Params
		  - featuredOnly: bool

		Returns:
		  - []*Planet: Page of planets
		  - int: Total matching count
		  - error: Retrieval failures
	*/
	ListPublic(context context.Context, params pagination.Params, featuredOnly bool) ([]*Planet, int, error)

	/*
		Update persists changes to the planet's mutable settings (name, slug,
		privacy).

		Parameters:
		  - context: context.Context
		  - planet: *Planet

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, planet *Planet) error

	/*
		Delete permanently removes the planet row. Component cascade happens
		at the service layer before this call.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, id string) error

	/*
		AddMember atomically appends userID to the member set if absent.

		Parameters:
		  - context: context.Context
		  - planetID: string
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	AddMember(context context.Context, planetID, userID string) error

	/*
		RemoveMember atomically removes userID from the member set.

		Parameters:
		  - context: context.Context
		  - planetID: string
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	RemoveMember(context context.Context, planetID, userID string) error

	/*
		SetBan atomically toggles a per-planet ban. Banning also removes the
		target from the member set in the same statement, keeping the two
		sets disjoint under concurrency.

		Parameters:
		  - context: context.Context
		  - planetID: string
		  - userID: string
		  - banned: bool

		Returns:
		  - error: Persistence failures
	*/
	SetBan(context context.Context, planetID, userID string, banned bool) error

	/*
		AppendComponent atomically appends a component reference to the
		planet's ordered component list.

		Parameters:
		  - context: context.Context
		  - planetID: string
		  - ref: component.Ref

		Returns:
		  - error: Persistence failures
	*/
	AppendComponent(context context.Context, planetID string, ref component.Ref) error

	/*
		RemoveComponent atomically removes the reference with the given
		component id from the planet's component list.

		Parameters:
		  - context: context.Context
		  - planetID: string
		  - componentID: string

		Returns:
		  - error: Persistence failures
	*/
	RemoveComponent(context context.Context, planetID, componentID string) error

	/*
		FindManyComponents returns the component references matching the given
		component ids, keyed by component id, each paired with its planet.

		Description: Batch resolution for the per-request loader. Missing ids
		are absent from the map, never an error.

		Parameters:
		  - context: context.Context
		  - ids: []string

		Returns:
		  - map[string]AttachedComponent: Found references keyed by component id
		  - error: Retrieval failures
	*/
	FindManyComponents(context context.Context, ids []string) (map[string]AttachedComponent, error)

	/*
		SetFlag toggles one operator-controlled metadata flag.

		Parameters:
		  - context: context.Context
		  - planetID: string
		  - flag: Flag
		  - value: bool

		Returns:
		  - error: Validation on unknown flag, or persistence failures
	*/
	SetFlag(context context.Context, planetID string, flag Flag, value bool) error
}

// AttachedComponent pairs a component reference with the planet carrying it.
type AttachedComponent struct {
	Ref      component.Ref
	PlanetID string
}

// # Volatile Data Access

// InviteRepository defines the contract for single-use planet invite codes.
type InviteRepository interface {

	/*
		Create stores an invite code resolving to a planet id for a limited
		duration.

		Parameters:
		  - context: context.Context
		  - code: string
		  - planetID: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, code, planetID string, ttl time.Duration) error

	/*
		Peek retrieves the planet id for an invite code without consuming it,
		so eligibility can be checked before the code is spent.

		Parameters:
		  - context: context.Context
		  - code: string

		Returns:
		  - string: Planet id
		  - error: apperr NOT_FOUND if absent, expired, or already used
	*/
	Peek(context context.Context, code string) (string, error)

	/*
		Consume atomically retrieves AND removes the planet id for an invite
		code, guaranteeing single use.

		Parameters:
		  - context: context.Context
		  - code: string

		Returns:
		  - string: Planet id
		  - error: apperr NOT_FOUND if absent, expired, or already used
	*/
	Consume(context context.Context, code string) (string, error)
}

// # Collaborator Contracts

// FollowerStore is the narrow slice of the user store the planet service
// needs: atomically toggling a planet id inside a user's following set.
type FollowerStore interface {
	SetFollowing(context context.Context, userID, planetID string, follow bool) error
}
