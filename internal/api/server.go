// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.

Besides the versioned JSON API it mounts two long-lived side channels that sit
outside the global request deadline: the WebSocket event stream (/ws) and the
ticket-gated bulk zip download (/downloads/{ticketId}).
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/starbasehq/starbase/internal/component/chat"
	"github.com/starbasehq/starbase/internal/component/files"
	"github.com/starbasehq/starbase/internal/component/forum"
	"github.com/starbasehq/starbase/internal/component/page"
	"github.com/starbasehq/starbase/internal/component/wiki"
	"github.com/starbasehq/starbase/internal/loader"
	"github.com/starbasehq/starbase/internal/notification"
	"github.com/starbasehq/starbase/internal/planet"
	"github.com/starbasehq/starbase/internal/platform/config"
	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/middleware"
	"github.com/starbasehq/starbase/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles the authentication lifecycle and account profiles.
	Auth *auth.Handler

	// Planet handles planet lifecycle, membership, and component attachment.
	Planet *planet.Handler

	// Page, Wiki, Forum, Chat, and Files are the component variant surfaces.
	Page  *page.Handler
	Wiki  *wiki.Handler
	Forum *forum.Handler
	Chat  *chat.Handler
	Files *files.Handler

	// Notification handles the caller's notification feed.
	Notification *notification.Handler

	// Stream is the WebSocket endpoint merging chat and notification events.
	Stream http.HandlerFunc
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, sources loader.SourceSet, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(verifier))

	// # Application API
	// Request/response endpoints carry the global deadline, the per-IP rate
	// limiter, and a fresh loader bundle per request. The bundle is mounted
	// after authentication so every handler in one request shares one
	// batching cache.
	r.Group(func(g chi.Router) {
		g.Use(chimw.Timeout(constants.GlobalRequestTimeout))
		g.Use(middleware.RateLimit(context))
		g.Use(loader.Middleware(sources))
		g.Use(middleware.CORS(cfg))
		g.Use(chimw.CleanPath)

		// Unauthenticated health probes for container orchestration.
		g.Get("/health", h.Liveness)
		g.Get("/ready", h.Readiness)

		// Domain-specific route groups mounted under versioned prefix.
		g.Route("/api/v1", func(api chi.Router) {
			api.Mount("/auth", h.Auth.Routes())
			api.Mount("/users", h.Auth.ProfileRoutes())
			api.Mount("/planets", h.Planet.Routes())
			api.Mount("/pages", h.Page.Routes())
			api.Mount("/wikis", h.Wiki.Routes())
			api.Mount("/forums", h.Forum.Routes())
			api.Mount("/chats", h.Chat.Routes())
			api.Mount("/files", h.Files.Routes())
			api.Mount("/notifications", h.Notification.Routes())
		})
	})

	// # Long-Lived Side Channels
	// The WebSocket stream and the zip download outlive any sane request
	// deadline, so they mount outside the Timeout group. The download link is
	// followed by the browser directly; the single-use ticket replaces the
	// Authorization header.
	r.Group(func(g chi.Router) {
		g.Get("/ws", h.Stream)
		g.Get("/downloads/{ticketId}", h.Files.DownloadZip)
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
