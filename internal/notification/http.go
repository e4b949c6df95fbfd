// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starbasehq/starbase/internal/platform/middleware"
	requestutil "github.com/starbasehq/starbase/internal/platform/request"
	"github.com/starbasehq/starbase/internal/platform/respond"
	"github.com/starbasehq/starbase/pkg/pagination"
)

// Handler implements notification HTTP endpoints. Every route requires
// authentication; the caller only ever sees their own notifications.
type Handler struct {
	notificationService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{notificationService: service}
}

// Routes returns a [chi.Router] configured with notification routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.list)
	router.Put("/{id}/read", handler.markRead)
	router.Put("/read", handler.markAllRead)
	router.Delete("/", handler.clear)

	return router
}

/*
List returns a page of the caller's notifications, newest first.

GET /api/v1/notifications?page=&limit=
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	notifications, total, err := handler.notificationService.List(request.Context(), userID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, notifications, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
MarkRead flags a single notification as read.

PUT /api/v1/notifications/{id}/read
*/
func (handler *Handler) markRead(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.notificationService.MarkRead(request.Context(), userID, requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

/*
MarkAllRead flags every unread notification as read.

PUT /api/v1/notifications/read
*/
func (handler *Handler) markAllRead(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.notificationService.MarkAllRead(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

/*
Clear removes every notification of the caller.

DELETE /api/v1/notifications
*/
func (handler *Handler) clear(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.notificationService.Clear(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
