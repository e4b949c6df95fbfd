// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package wiki

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/middleware"
	requestutil "github.com/starbasehq/starbase/internal/platform/request"
	"github.com/starbasehq/starbase/internal/platform/respond"
	"github.com/starbasehq/starbase/internal/platform/validate"
)

// Handler implements wiki component HTTP endpoints.
type Handler struct {
	wikiService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{wikiService: service}
}

// Routes returns a [chi.Router] configured with wiki-specific routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{id}", handler.get)
	router.Get("/{id}/pages/{slug}", handler.getPage)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/{id}/pages", handler.createPage)
		r.Put("/{id}/pages/{slug}", handler.updatePage)
		r.Delete("/{id}/pages/{slug}", handler.deletePage)
	})

	return router
}

type pageRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// validatePageRequest applies the shared title/content bounds.
func validatePageRequest(input pageRequest) error {
	v := &validate.Validator{}
	v.Required(FieldTitle, input.Title).
		MaxLen(FieldTitle, input.Title, constants.MaxPlanetNameLen).
		MaxLen(FieldContent, input.Content, constants.MaxPageLen)
	return v.Err()
}

/*
Get returns the wiki root and its page listing.

GET /api/v1/wikis/{id}

Response:
  - 200: {wiki, pages}
  - 404: ErrNotFound: Missing, or the planet is not visible to the caller
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	wiki, pages, err := handler.wikiService.Get(request.Context(), callerID(request), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"wiki":  wiki,
		"pages": pages,
	})
}

/*
GetPage returns one wiki page by slug.

GET /api/v1/wikis/{id}/pages/{slug}

Response:
  - 200: Page
  - 404: ErrNotFound
*/
func (handler *Handler) getPage(writer http.ResponseWriter, request *http.Request) {
	page, err := handler.wikiService.GetPage(
		request.Context(),
		callerID(request),
		requestutil.ID(request, "id"),
		requestutil.Param(request, "slug"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, page)
}

/*
CreatePage adds a new page to the wiki.

POST /api/v1/wikis/{id}/pages

Request:
  - Body: pageRequest (Title, Content)

Response:
  - 201: Page: Created page
  - 409: ErrConflict: Slug already taken within the wiki
*/
func (handler *Handler) createPage(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input pageRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if err := validatePageRequest(input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	page, err := handler.wikiService.CreatePage(request.Context(), userID, requestutil.ID(request, "id"), PageInput{
		Title:   input.Title,
		Content: input.Content,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, page)
}

/*
UpdatePage edits an existing wiki page.

PUT /api/v1/wikis/{id}/pages/{slug}

Request:
  - Body: pageRequest (Title, Content)

Response:
  - 200: Page: Updated page
*/
func (handler *Handler) updatePage(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input pageRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if err := validatePageRequest(input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	page, err := handler.wikiService.UpdatePage(
		request.Context(),
		userID,
		requestutil.ID(request, "id"),
		requestutil.Param(request, "slug"),
		PageInput{Title: input.Title, Content: input.Content},
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, page)
}

/*
DeletePage removes a wiki page.

DELETE /api/v1/wikis/{id}/pages/{slug}

Response:
  - 204: No Content
  - 403: ErrForbidden: Caller lacks FullWrite on the planet
*/
func (handler *Handler) deletePage(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.wikiService.DeletePage(
		request.Context(),
		userID,
		requestutil.ID(request, "id"),
		requestutil.Param(request, "slug"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// callerID extracts the authenticated user id, or "" for anonymous callers.
func callerID(request *http.Request) string {
	if claims := requestutil.Claims(request); claims != nil {
		return claims.UserID
	}
	return ""
}
