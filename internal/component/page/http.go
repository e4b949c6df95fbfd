// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package page

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/middleware"
	requestutil "github.com/starbasehq/starbase/internal/platform/request"
	"github.com/starbasehq/starbase/internal/platform/respond"
	"github.com/starbasehq/starbase/internal/platform/validate"
)

// Handler implements page component HTTP endpoints.
type Handler struct {
	pageService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{pageService: service}
}

// Routes returns a [chi.Router] configured with page-specific routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{id}", handler.get)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Put("/{id}", handler.update)
	})

	return router
}

type updatePageRequest struct {
	Name    *string `json:"name,omitempty"`
	Content *string `json:"content,omitempty"`
}

/*
Get returns a page component.

GET /api/v1/pages/{id}

Response:
  - 200: Page
  - 404: ErrNotFound: Missing, or the planet is not visible to the caller
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	var userID string
	if claims := requestutil.Claims(request); claims != nil {
		userID = claims.UserID
	}

	page, err := handler.pageService.Get(request.Context(), userID, requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, page)
}

/*
Update edits a page component.

PUT /api/v1/pages/{id}

Request:
  - Body: updatePageRequest (Name?, Content?)

Response:
  - 200: Page: Updated page
  - 403: ErrForbidden: Caller lacks FullWrite on the planet
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updatePageRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	if input.Name != nil {
		v.Required(FieldName, *input.Name).
			MaxLen(FieldName, *input.Name, constants.MaxPlanetNameLen)
	}
	if input.Content != nil {
		v.MaxLen(FieldContent, *input.Content, constants.MaxPageLen)
	}
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	page, err := handler.pageService.Update(request.Context(), userID, requestutil.ID(request, "id"), UpdateInput{
		Name:    input.Name,
		Content: input.Content,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, page)
}
