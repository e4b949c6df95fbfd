// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package planet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/sec"
	"github.com/starbasehq/starbase/pkg/pagination"
	"github.com/starbasehq/starbase/pkg/slug"
	"github.com/starbasehq/starbase/pkg/uuid"
)

// Service implements planet lifecycle, membership, and component use cases.
//
// Access decisions follow one shape everywhere: a caller that fails the Read
// tier gets NOT_FOUND (existence stays hidden); a caller that can read but
// lacks the required write tier gets FORBIDDEN.
type Service struct {
	planetRepository PlanetRepository
	inviteRepository InviteRepository
	followerStore    FollowerStore
	engine           *perm.Engine
	registry         *component.Registry
	logger           *slog.Logger
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	planetRepo PlanetRepository,
	inviteRepo InviteRepository,
	followerStore FollowerStore,
	engine *perm.Engine,
	registry *component.Registry,
	logger *slog.Logger,
) *Service {
	return &Service{
		planetRepository: planetRepo,
		inviteRepository: inviteRepo,
		followerStore:    followerStore,
		engine:           engine,
		registry:         registry,
		logger:           logger,
	}
}

// # Lifecycle

// CreateInput holds the data required to found a new planet.
type CreateInput struct {
	Name    string
	Private bool
}

/*
Create founds a new planet owned by the caller.

Description: The slug is derived from the name at creation time and stays
stable afterwards, so links keep working across renames.

Parameters:
  - context: context.Context
  - ownerID: string
  - input: CreateInput

Returns:
  - *Planet: Created entity
  - error: Conflict on a taken slug, or storage errors
*/
func (service *Service) Create(context context.Context, ownerID string, input CreateInput) (*Planet, error) {
	handle := slug.From(input.Name)
	if handle == "" {
		return nil, apperr.ValidationError("Planet name must contain at least one letter or digit",
			apperr.FieldError{Field: FieldName, Message: "cannot be reduced to a slug"})
	}

	// Verify slug uniqueness. Return a client-safe Conflict error.
	_, err := service.planetRepository.FindBySlug(context, handle)
	if err == nil {
		return nil, apperr.Conflict("A planet with this name already exists")
	}

	planet := &Planet{
		ID:         uuid.New(),
		Name:       input.Name,
		Slug:       handle,
		Owner:      ownerID,
		Private:    input.Private,
		Members:    []string{},
		Banned:     []string{},
		Components: []component.Ref{},
	}

	if err := service.planetRepository.Create(context, planet); err != nil {
		return nil, err
	}
	return planet, nil
}

/*
Get returns the planet with the given id, gated by the Read tier.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - planetID: string

Returns:
  - *Planet: Hydrated entity
  - error: apperr NOT_FOUND when missing OR not visible
*/
func (service *Service) Get(context context.Context, userID, planetID string) (*Planet, error) {
	return service.requireRead(context, userID, planetID)
}

/*
GetBySlug returns the planet with the given slug, gated by the Read tier.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - handle: string

Returns:
  - *Planet: Hydrated entity
  - error: apperr NOT_FOUND when missing OR not visible
*/
func (service *Service) GetBySlug(context context.Context, userID, handle string) (*Planet, error) {
	planet, err := service.planetRepository.FindBySlug(context, handle)
	if err != nil {
		return nil, err
	}
	return service.gateRead(context, userID, planet)
}

/*
ListPublic returns a page of publicly visible planets.

Parameters:
  - context: context.Context
  - params: pagination.Params
  - featuredOnly: bool

Returns:
  - []*Planet: Page of planets
  - int: Total matching count
  - error: Storage errors
*/
func (service *Service) ListPublic(context context.Context, params pagination.Params, featuredOnly bool) ([]*Planet, int, error) {
	return service.planetRepository.ListPublic(context, params, featuredOnly)
}

// UpdateInput holds the mutable planet settings. Nil fields are unchanged.
type UpdateInput struct {
	Name    *string
	Private *bool
}

/*
Update modifies the planet's settings. Requires the FullWrite tier.

Parameters:
  - context: context.Context
  - userID: string
  - planetID: string
  - input: UpdateInput

Returns:
  - *Planet: Updated entity
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) Update(context context.Context, userID, planetID string, input UpdateInput) (*Planet, error) {
	planet, err := service.requireFullWrite(context, userID, planetID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		planet.Name = *input.Name
	}
	if input.Private != nil {
		planet.Private = *input.Private
	}

	if err := service.planetRepository.Update(context, planet); err != nil {
		return nil, err
	}
	return planet, nil
}

/*
Delete permanently removes a planet and cascades all attached components.

Description: Restricted to the owner and global admins; ordinary members with
FullWrite cannot destroy the community. Component cascade is best-effort: a
variant failure is logged and the deletion proceeds, leaving at worst orphaned
component rows rather than a half-deleted planet.

Parameters:
  - context: context.Context
  - userID: string
  - planetID: string

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) Delete(context context.Context, userID, planetID string) error {
	planet, err := service.requireRead(context, userID, planetID)
	if err != nil {
		return err
	}

	isAdmin, err := service.engine.AdminByID(context, userID)
	if err != nil {
		return err
	}
	if planet.Owner != userID && !isAdmin {
		return apperr.Forbidden("Only the owner may delete this planet")
	}

	for _, ref := range planet.Components {
		if err := service.registry.Delete(context, ref.Kind, ref.ComponentID); err != nil {
			service.logger.Error("planet_component_cascade_failed",
				slog.String("planet_id", planetID),
				slog.String("component_id", ref.ComponentID),
				slog.String("error", err.Error()),
			)
		}
	}

	return service.planetRepository.Delete(context, planetID)
}

// # Membership

/*
Join adds the caller to a public planet's member set.

Description: Private planets are joined through invites only; to a non-member
they are indistinguishable from missing planets. Planet-banned users may not
join. Joining is idempotent.

Parameters:
  - context: context.Context
  - userID: string
  - planetID: string

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, VALIDATION_ERROR, or storage errors
*/
func (service *Service) Join(context context.Context, userID, planetID string) error {
	if userID == "" {
		return apperr.Unauthorized("Authentication required")
	}

	planet, err := service.requireRead(context, userID, planetID)
	if err != nil {
		return err
	}
	if planet.Owner == userID {
		return apperr.ValidationError("The owner is already a full member")
	}
	if planet.HasMember(userID) {
		return apperr.Conflict("You are already a member of this planet")
	}
	if planet.HasBanned(userID) {
		return apperr.Forbidden("You are banned from this planet")
	}
	if planet.Private {
		return apperr.Forbidden("This planet is invite-only")
	}

	return service.planetRepository.AddMember(context, planetID, userID)
}

/*
Leave removes the caller from the planet's member set.

Description: The owner cannot leave; ownership would dangle. Leaving when not
a member is a no-op.

Parameters:
  - context: context.Context
  - userID: string
  - planetID: string

Returns:
  - error: apperr NOT_FOUND, VALIDATION_ERROR, or storage errors
*/
func (service *Service) Leave(context context.Context, userID, planetID string) error {
	if userID == "" {
		return apperr.Unauthorized("Authentication required")
	}

	planet, err := service.requireRead(context, userID, planetID)
	if err != nil {
		return err
	}
	if planet.Owner == userID {
		return apperr.ValidationError("The owner cannot leave their own planet")
	}

	return service.planetRepository.RemoveMember(context, planetID, userID)
}

/*
BanMember bans a user from the planet. Requires the FullWrite tier.

Description: Banning strips membership in the same statement. The owner can
never be banned.

Parameters:
  - context: context.Context
  - userID: string (the moderator)
  - planetID: string
  - targetID: string

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, VALIDATION_ERROR, or storage errors
*/
func (service *Service) BanMember(context context.Context, userID, planetID, targetID string) error {
	planet, err := service.requireFullWrite(context, userID, planetID)
	if err != nil {
		return err
	}
	if targetID == planet.Owner {
		return apperr.ValidationError("The owner cannot be banned from their own planet")
	}
	if targetID == userID {
		return apperr.ValidationError("You cannot ban yourself")
	}

	return service.planetRepository.SetBan(context, planetID, targetID, true)
}

/*
UnbanMember lifts a planet-level ban. Requires the FullWrite tier.

Parameters:
  - context: context.Context
  - userID: string (the moderator)
  - planetID: string
  - targetID: string

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) UnbanMember(context context.Context, userID, planetID, targetID string) error {
	if _, err := service.requireFullWrite(context, userID, planetID); err != nil {
		return err
	}
	return service.planetRepository.SetBan(context, planetID, targetID, false)
}

// # Following

/*
Follow adds the planet to the caller's following set. Requires the Read tier.

Parameters:
  - context: context.Context
  - userID: string
  - planetID: string

Returns:
  - error: apperr NOT_FOUND or storage errors
*/
func (service *Service) Follow(context context.Context, userID, planetID string) error {
	if userID == "" {
		return apperr.Unauthorized("Authentication required")
	}
	if _, err := service.requireRead(context, userID, planetID); err != nil {
		return err
	}
	return service.followerStore.SetFollowing(context, userID, planetID, true)
}

/*
Unfollow removes the planet from the caller's following set.

Parameters:
  - context: context.Context
  - userID: string
  - planetID: string

Returns:
  - error: Storage errors
*/
func (service *Service) Unfollow(context context.Context, userID, planetID string) error {
	if userID == "" {
		return apperr.Unauthorized("Authentication required")
	}
	// No read gate: unfollowing something you can no longer see must work.
	return service.followerStore.SetFollowing(context, userID, planetID, false)
}

// # Components

/*
AttachComponent creates a new component of the given kind and appends its
reference to the planet. Requires the FullWrite tier.

Description: Creation happens variant-first. If appending the reference
fails afterwards, the freshly created component is deleted again so no
unreachable component survives.

Parameters:
  - context: context.Context
  - userID: string
  - planetID: string
  - kind: component.Kind
  - name: string

Returns:
  - component.Ref: Reference to the new component
  - error: apperr NOT_FOUND, FORBIDDEN, VALIDATION_ERROR, or storage errors
*/
func (service *Service) AttachComponent(context context.Context, userID, planetID string, kind component.Kind, name string) (component.Ref, error) {
	if !kind.Valid() {
		return component.Ref{}, apperr.ValidationError("Unknown component kind",
			apperr.FieldError{Field: FieldKind, Message: "must be one of: page, wiki, forum, files, chat"})
	}

	if _, err := service.requireFullWrite(context, userID, planetID); err != nil {
		return component.Ref{}, err
	}

	componentID, err := service.registry.Create(context, kind, planetID, userID, name)
	if err != nil {
		return component.Ref{}, err
	}

	ref := component.Ref{ComponentID: componentID, Kind: kind, Name: name}
	if err := service.planetRepository.AppendComponent(context, planetID, ref); err != nil {
		// Compensate so the component does not leak outside any planet.
		if deleteErr := service.registry.Delete(context, kind, componentID); deleteErr != nil {
			service.logger.Error("planet_component_compensation_failed",
				slog.String("component_id", componentID),
				slog.String("error", deleteErr.Error()),
			)
		}
		return component.Ref{}, err
	}
	return ref, nil
}

/*
DetachComponent removes a component reference and cascades the component's
data. Requires the FullWrite tier.

Parameters:
  - context: context.Context
  - userID: string
  - planetID: string
  - componentID: string

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) DetachComponent(context context.Context, userID, planetID, componentID string) error {
	planet, err := service.requireFullWrite(context, userID, planetID)
	if err != nil {
		return err
	}

	ref, attached := planet.HasComponent(componentID)
	if !attached {
		return apperr.NotFound("Component")
	}

	// Drop the reference first: the component becomes unreachable immediately,
	// then its data is cascaded.
	if err := service.planetRepository.RemoveComponent(context, planetID, componentID); err != nil {
		return err
	}
	if err := service.registry.Delete(context, ref.Kind, componentID); err != nil {
		service.logger.Error("planet_component_cascade_failed",
			slog.String("planet_id", planetID),
			slog.String("component_id", componentID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// # Invites

/*
CreateInvite issues a single-use invite code for the planet. Requires the
FullWrite tier.

Parameters:
  - context: context.Context
  - userID: string
  - planetID: string

Returns:
  - string: The invite code, shown exactly once
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) CreateInvite(context context.Context, userID, planetID string) (string, error) {
	if _, err := service.requireFullWrite(context, userID, planetID); err != nil {
		return "", err
	}

	code, err := sec.GenerateSecureToken(InviteCodeLength)
	if err != nil {
		return "", fmt.Errorf("planet_service_invite_generation_failed: %w", err)
	}
	if err := service.inviteRepository.Create(context, code, planetID, InviteTTL); err != nil {
		return "", err
	}
	return code, nil
}

/*
RedeemInvite consumes an invite code and adds the caller to the planet.

Description: Eligibility is checked on a peek first, so a planet-banned
caller is refused without spending the code and it stays valid for someone
else. The consume itself is atomic, so a code grants membership at most once
even under concurrent redemption.

Parameters:
  - context: context.Context
  - userID: string
  - code: string

Returns:
  - *Planet: The joined planet
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) RedeemInvite(context context.Context, userID, code string) (*Planet, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}

	planetID, err := service.inviteRepository.Peek(context, code)
	if err != nil {
		return nil, err
	}

	planet, err := service.planetRepository.FindByID(context, planetID)
	if err != nil {
		return nil, err
	}
	if planet.HasBanned(userID) {
		return nil, apperr.Forbidden("You are banned from this planet")
	}

	// A concurrent redeemer may win between the peek and here; single use
	// still holds because only one GETDEL observes the key.
	if _, err := service.inviteRepository.Consume(context, code); err != nil {
		return nil, err
	}

	if planet.Owner != userID && !planet.HasMember(userID) {
		if err := service.planetRepository.AddMember(context, planetID, userID); err != nil {
			return nil, err
		}
	}
	return service.planetRepository.FindByID(context, planetID)
}

// # Operator Flags

/*
SetFlag toggles one operator-controlled metadata flag. Requires the Admin
tier.

Parameters:
  - context: context.Context
  - userID: string
  - planetID: string
  - flag: Flag
  - value: bool

Returns:
  - error: apperr FORBIDDEN, VALIDATION_ERROR, NOT_FOUND, or storage errors
*/
func (service *Service) SetFlag(context context.Context, userID, planetID string, flag Flag, value bool) error {
	if !flag.Valid() {
		return apperr.ValidationError("Unknown planet flag",
			apperr.FieldError{Field: FieldFlag, Message: "must be one of: featured, verified, partnered"})
	}

	isAdmin, err := service.engine.AdminByID(context, userID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return apperr.Forbidden("Only platform operators may change planet flags")
	}

	if _, err := service.planetRepository.FindByID(context, planetID); err != nil {
		return err
	}
	return service.planetRepository.SetFlag(context, planetID, flag, value)
}

// # Gate Helpers

// requireRead loads the planet and enforces the Read tier, mapping a denial
// to NOT_FOUND so private planets stay invisible.
func (service *Service) requireRead(context context.Context, userID, planetID string) (*Planet, error) {
	planet, err := service.planetRepository.FindByID(context, planetID)
	if err != nil {
		return nil, err
	}
	return service.gateRead(context, userID, planet)
}

// gateRead enforces the Read tier on an already-loaded planet.
func (service *Service) gateRead(context context.Context, userID string, planet *Planet) (*Planet, error) {
	subject, err := service.engine.ResolveSubject(context, userID)
	if err != nil {
		return nil, err
	}
	if !perm.Read(subject, planet) {
		return nil, apperr.NotFound("Planet")
	}
	return planet, nil
}

// requireFullWrite loads the planet and enforces the FullWrite tier.
// Visibility is checked first so a denied caller cannot probe existence.
func (service *Service) requireFullWrite(context context.Context, userID, planetID string) (*Planet, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}

	planet, err := service.planetRepository.FindByID(context, planetID)
	if err != nil {
		return nil, err
	}
	subject, err := service.engine.ResolveSubject(context, userID)
	if err != nil {
		return nil, err
	}
	if !perm.Read(subject, planet) {
		return nil, apperr.NotFound("Planet")
	}
	if !perm.FullWrite(subject, planet) {
		return nil, apperr.Forbidden("Only members may modify this planet")
	}
	return planet, nil
}
