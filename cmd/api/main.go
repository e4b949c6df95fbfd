// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

// Command api is the entry point for the Starbase HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Initialize platform services (tokens, mail, object storage, event bus).
//  7. Wire domain services and HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/starbasehq/starbase/internal/api"
	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/component/chat"
	"github.com/starbasehq/starbase/internal/component/files"
	"github.com/starbasehq/starbase/internal/component/forum"
	"github.com/starbasehq/starbase/internal/component/page"
	"github.com/starbasehq/starbase/internal/component/wiki"
	"github.com/starbasehq/starbase/internal/notification"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/planet"
	"github.com/starbasehq/starbase/internal/platform/config"
	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/mail"
	"github.com/starbasehq/starbase/internal/platform/migration"
	pgstore "github.com/starbasehq/starbase/internal/platform/postgres"
	redisstore "github.com/starbasehq/starbase/internal/platform/redis"
	"github.com/starbasehq/starbase/internal/platform/sec"
	"github.com/starbasehq/starbase/internal/platform/storage"
	"github.com/starbasehq/starbase/internal/pubsub"
	"github.com/starbasehq/starbase/internal/users/auth"
)

// brokerPrefix namespaces the Redis pub/sub channels when several
// applications share one Redis instance.
const brokerPrefix = "starbase"

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "starbase"))
	slog.SetDefault(log)

	log.Info("[Starbase] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "starbase"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Application-lifetime context for background workers (rate limiter
	// cleanup). Cancelled on the way out of main.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Platform Services ──────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	mailSender := mail.NewSender(cfg, log)

	objectStore, err := storage.NewS3Store(startupCtx, cfg, log)
	must(log, err, "initialize object storage")

	var broker pubsub.Broker
	switch cfg.PubSubDriver {
	case config.PubSubDriverRedis:
		broker = pubsub.NewRedisBroker(rdb, brokerPrefix, log)
	default:
		broker = pubsub.NewMemoryBroker(log)
	}
	defer func() {
		if cerr := broker.Close(); cerr != nil {
			log.Error("broker close error", slog.Any("error", cerr))
		}
	}()
	log.Info("event_bus_ready", slog.String("driver", cfg.PubSubDriver))

	// ── 7. Health Handlers ────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Repositories ───────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	resetTokenRepository := auth.NewResetTokenRepository(rdb)
	planetRepository := planet.NewPlanetRepository(pool)
	inviteRepository := planet.NewInviteRepository(rdb)
	pageRepository := page.NewPageRepository(pool)
	wikiRepository := wiki.NewWikiRepository(pool)
	forumRepository := forum.NewForumRepository(pool)
	chatRepository := chat.NewChatRepository(pool)
	fileRepository := files.NewFileRepository(pool)
	ticketRepository := files.NewTicketRepository(rdb)
	notificationRepository := notification.NewNotificationRepository(pool)

	// ── 9. Domain Services ────────────────────────────────────────────────
	// The permission engine sees users and planets only through the narrow
	// subject/realm directories.
	engine := perm.NewEngine(
		subjectDirectory{users: userRepository},
		realmDirectory{planets: planetRepository},
	)

	authService := auth.NewService(userRepository, sessionRepository, resetTokenRepository, jwtSvc, mailSender)

	notificationService := notification.NewService(notificationRepository, broker, log)

	pageService := page.NewService(pageRepository, engine)
	wikiService := wiki.NewService(wikiRepository, engine)
	forumService := forum.NewService(forumRepository, engine)
	chatService := chat.NewService(chatRepository, engine, broker, notificationService, log)
	filesService := files.NewService(fileRepository, ticketRepository, quotaAdapter{users: userRepository}, objectStore, engine, log)
	filesService.SetQuotaLimit(cfg.FileQuotaBytes)

	// The registry is how planet attachment provisions and tears down the
	// per-kind backing records without importing the variant packages.
	registry, err := component.NewRegistry(pageService, wikiService, forumService, chatService, filesService)
	must(log, err, "build component registry")

	planetService := planet.NewService(planetRepository, inviteRepository, userRepository, engine, registry, log)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	sources := newLoaderSources(userRepository, planetRepository, chatRepository, forumRepository, fileRepository)

	handlers := api.Handlers{
		Liveness:     liveness,
		Readiness:    readiness,
		Auth:         auth.NewHandler(authService),
		Planet:       planet.NewHandler(planetService),
		Page:         page.NewHandler(pageService),
		Wiki:         wiki.NewHandler(wikiService),
		Forum:        forum.NewHandler(forumService),
		Chat:         chat.NewHandler(chatService),
		Files:        files.NewHandler(filesService),
		Notification: notification.NewHandler(notificationService),
		Stream:       api.NewStreamHandler(broker, chatService, log),
	}

	server := api.NewServer(appCtx, cfg, log, jwtSvc, sources, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
