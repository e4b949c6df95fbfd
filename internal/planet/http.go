// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
HTTP delivery layer for planet management.

It exposes the planet lifecycle, membership, invites, component attachment,
and operator flags over a RESTful JSON interface. Read endpoints accept
anonymous callers; the permission engine decides per planet what they see.
*/
package planet

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/loader"
	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/middleware"
	requestutil "github.com/starbasehq/starbase/internal/platform/request"
	"github.com/starbasehq/starbase/internal/platform/respond"
	"github.com/starbasehq/starbase/internal/platform/sec"
	"github.com/starbasehq/starbase/internal/platform/validate"
	"github.com/starbasehq/starbase/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements planet-related HTTP endpoints.
type Handler struct {
	planetService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{planetService: service}
}

// Routes returns a [chi.Router] configured with planet-specific routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints (anonymous callers allowed; visibility is decided
	// per planet by the permission engine)
	router.Get("/", handler.listPublic)
	router.Get("/{id}", handler.get)
	router.Get("/slug/{slug}", handler.getBySlug)

	// Authenticated endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/", handler.create)
		r.Patch("/{id}", handler.update)
		r.Delete("/{id}", handler.delete)

		r.Put("/{id}/membership", handler.join)
		r.Delete("/{id}/membership", handler.leave)
		r.Put("/{id}/members/{userId}/ban", handler.setBan(true))
		r.Delete("/{id}/members/{userId}/ban", handler.setBan(false))

		r.Put("/{id}/follow", handler.follow)
		r.Delete("/{id}/follow", handler.unfollow)

		r.Post("/{id}/components", handler.attachComponent)
		r.Delete("/{id}/components/{componentId}", handler.detachComponent)

		r.Post("/{id}/invites", handler.createInvite)
		r.Post("/invites/redeem", handler.redeemInvite)
	})

	// Global operator controls
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(sec.RoleAdmin))
		r.Put("/{id}/flags/{flag}", handler.setFlag(true))
		r.Delete("/{id}/flags/{flag}", handler.setFlag(false))
	})

	return router
}

// # Request Payloads

type createPlanetRequest struct {
	Name    string `json:"name"`
	Private bool   `json:"private"`
}

type updatePlanetRequest struct {
	Name    *string `json:"name,omitempty"`
	Private *bool   `json:"private,omitempty"`
}

type attachComponentRequest struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

type redeemInviteRequest struct {
	Code string `json:"code"`
}

// # Lifecycle Endpoints

/*
ListPublic returns a page of publicly visible planets.

GET /api/v1/planets?page=&limit=&featured=

Response:
  - 200: []Planet with pagination metadata
*/
func (handler *Handler) listPublic(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	featuredOnly := request.URL.Query().Get("featured") == "true"

	planets, total, err := handler.planetService.ListPublic(request.Context(), params, featuredOnly)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, planets, pagination.NewMeta(params.Page, params.Limit, total))
}

// planetDetail is a planet with its owner resolved through the per-request
// loader.
type planetDetail struct {
	*Planet
	OwnerProfile *loader.User `json:"owner_profile,omitempty"`
}

/*
Get resolves a planet by id.

GET /api/v1/planets/{id}

Response:
  - 200: planetDetail
  - 404: ErrNotFound: Missing, or private and not visible to the caller
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	planet, err := handler.planetService.Get(request.Context(), callerID(request), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, attachOwner(request, planet))
}

/*
GetBySlug resolves a planet by its handle.

GET /api/v1/planets/slug/{slug}

Response:
  - 200: planetDetail
  - 404: ErrNotFound: Missing, or private and not visible to the caller
*/
func (handler *Handler) getBySlug(writer http.ResponseWriter, request *http.Request) {
	planet, err := handler.planetService.GetBySlug(request.Context(), callerID(request), requestutil.Param(request, "slug"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, attachOwner(request, planet))
}

// attachOwner resolves the owner's public profile through the request bundle.
// Outside the loader middleware the profile field is simply absent.
func attachOwner(request *http.Request, planet *Planet) planetDetail {
	detail := planetDetail{Planet: planet}

	bundle := loader.FromRequest(request)
	if bundle == nil {
		return detail
	}

	owner, found, err := bundle.Users.Load(request.Context(), planet.Owner)
	if err == nil && found {
		detail.OwnerProfile = &owner
	}
	return detail
}

/*
Create founds a new planet owned by the caller.

POST /api/v1/planets

Request:
  - Body: createPlanetRequest (Name, Private)

Response:
  - 201: Planet: Created planet
  - 409: ErrConflict: Slug already taken
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createPlanetRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, constants.MaxPlanetNameLen)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	planet, err := handler.planetService.Create(request.Context(), userID, CreateInput{
		Name:    input.Name,
		Private: input.Private,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, planet)
}

/*
Update modifies the planet's settings.

PATCH /api/v1/planets/{id}

Request:
  - Body: updatePlanetRequest (Name?, Private?)

Response:
  - 200: Planet: Updated planet
  - 403: ErrForbidden: Caller lacks FullWrite
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updatePlanetRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Name != nil {
		v := &validate.Validator{}
		v.Required(FieldName, *input.Name).
			MaxLen(FieldName, *input.Name, constants.MaxPlanetNameLen)
		if err := v.Err(); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	planet, err := handler.planetService.Update(request.Context(), userID, requestutil.ID(request, "id"), UpdateInput{
		Name:    input.Name,
		Private: input.Private,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, planet)
}

/*
Delete destroys a planet and cascades its components.

DELETE /api/v1/planets/{id}

Response:
  - 204: No Content
  - 403: ErrForbidden: Caller is neither owner nor operator
*/
func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.planetService.Delete(request.Context(), userID, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Membership Endpoints

/*
Join adds the caller to a public planet.

PUT /api/v1/planets/{id}/membership
*/
func (handler *Handler) join(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.planetService.Join(request.Context(), userID, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Leave removes the caller from the planet.

DELETE /api/v1/planets/{id}/membership
*/
func (handler *Handler) leave(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.planetService.Leave(request.Context(), userID, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// setBan returns a handler toggling a planet-level ban on a member.
//
// PUT|DELETE /api/v1/planets/{id}/members/{userId}/ban
func (handler *Handler) setBan(banned bool) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		userID, err := requestutil.RequiredUserID(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		planetID := requestutil.ID(request, "id")
		targetID := requestutil.ID(request, "userId")

		if banned {
			err = handler.planetService.BanMember(request.Context(), userID, planetID, targetID)
		} else {
			err = handler.planetService.UnbanMember(request.Context(), userID, planetID, targetID)
		}
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		respond.NoContent(writer)
	}
}

// # Following Endpoints

/*
Follow adds the planet to the caller's following set.

PUT /api/v1/planets/{id}/follow
*/
func (handler *Handler) follow(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.planetService.Follow(request.Context(), userID, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Unfollow removes the planet from the caller's following set.

DELETE /api/v1/planets/{id}/follow
*/
func (handler *Handler) unfollow(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.planetService.Unfollow(request.Context(), userID, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Component Endpoints

/*
AttachComponent creates and attaches a new component.

POST /api/v1/planets/{id}/components

Request:
  - Body: attachComponentRequest (Kind, Name)

Response:
  - 201: component.Ref: Reference to the new component
  - 400: ErrInvalidJSON: Unknown kind
  - 403: ErrForbidden: Caller lacks FullWrite
*/
func (handler *Handler) attachComponent(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input attachComponentRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldKind, input.Kind).
		Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, constants.MaxPlanetNameLen)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	ref, err := handler.planetService.AttachComponent(
		request.Context(),
		userID,
		requestutil.ID(request, "id"),
		component.Kind(input.Kind),
		input.Name,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, ref)
}

/*
DetachComponent removes a component and cascades its data.

DELETE /api/v1/planets/{id}/components/{componentId}

Response:
  - 204: No Content
  - 404: ErrNotFound: Component not attached to this planet
*/
func (handler *Handler) detachComponent(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.planetService.DetachComponent(
		request.Context(),
		userID,
		requestutil.ID(request, "id"),
		requestutil.ID(request, "componentId"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Invite Endpoints

/*
CreateInvite issues a single-use invite code.

POST /api/v1/planets/{id}/invites

Response:
  - 201: {code}: The invite code, shown once
  - 403: ErrForbidden: Caller lacks FullWrite
*/
func (handler *Handler) createInvite(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	code, err := handler.planetService.CreateInvite(request.Context(), userID, requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusCreated, map[string]string{FieldCode: code})
}

/*
RedeemInvite consumes an invite code and joins the planet.

POST /api/v1/planets/invites/redeem

Request:
  - Body: redeemInviteRequest (Code)

Response:
  - 200: Planet: The joined planet
  - 404: ErrNotFound: Code absent, expired, or already used
*/
func (handler *Handler) redeemInvite(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input redeemInviteRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if input.Code == "" {
		respond.Error(writer, request, validate.RequiredError(FieldCode, "is required"))
		return
	}

	planet, err := handler.planetService.RedeemInvite(request.Context(), userID, input.Code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, planet)
}

// # Operator Endpoints

// setFlag returns a handler toggling one operator metadata flag.
//
// PUT|DELETE /api/v1/planets/{id}/flags/{flag}
func (handler *Handler) setFlag(value bool) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		userID, err := requestutil.RequiredUserID(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		err = handler.planetService.SetFlag(
			request.Context(),
			userID,
			requestutil.ID(request, "id"),
			Flag(requestutil.Param(request, "flag")),
			value,
		)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		respond.NoContent(writer)
	}
}

// # Identity Helpers

// callerID extracts the authenticated user id, or "" for anonymous callers.
func callerID(request *http.Request) string {
	if claims := requestutil.Claims(request); claims != nil {
		return claims.UserID
	}
	return ""
}
