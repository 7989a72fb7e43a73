// Copyright (c) 2026 Shelfmark. All rights reserved.

// Command api is the entry point for the Shelfmark HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the embedded SQLite handle. A failed first connect starts the
//     server degraded instead of aborting: reads serve snapshots until
//     the database comes back.
//  4. Wire caches, snapshots, alerts, and the search index.
//  5. Wire domain services and HTTP handlers.
//  6. Start the release notifier and the HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
//
// # Subcommands
//
//	hash    reads a password on stdin and prints its bcrypt hash, the
//	        value for AUTH_PASSWORD_HASH.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/LaMia-3/shelfmark/internal/api"
	"github.com/LaMia-3/shelfmark/internal/auth"
	"github.com/LaMia-3/shelfmark/internal/core/book"
	"github.com/LaMia-3/shelfmark/internal/core/notification"
	"github.com/LaMia-3/shelfmark/internal/core/release"
	"github.com/LaMia-3/shelfmark/internal/core/series"
	"github.com/LaMia-3/shelfmark/internal/core/settings"
	"github.com/LaMia-3/shelfmark/internal/platform/alert"
	"github.com/LaMia-3/shelfmark/internal/platform/cache"
	"github.com/LaMia-3/shelfmark/internal/platform/config"
	"github.com/LaMia-3/shelfmark/internal/platform/constants"
	"github.com/LaMia-3/shelfmark/internal/platform/fallback"
	"github.com/LaMia-3/shelfmark/internal/platform/middleware"
	"github.com/LaMia-3/shelfmark/internal/platform/sec"
	"github.com/LaMia-3/shelfmark/internal/platform/sqlite"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash" {
		hashPassword()
		return
	}

	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("auth_enabled", cfg.AuthEnabled()),
	)

	// Root context cancelled on shutdown; the release notifier and the
	// rate limiter's cleanup goroutine hang off it.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// ── 3. Platform ───────────────────────────────────────────────────────
	alerts := alert.NewDispatcher(constants.AlertRingCapacity, log)

	db := sqlite.New(cfg.DatabasePath, log)
	defer func() {
		log.Info("closing database handle")
		if cerr := db.Close(); cerr != nil {
			log.Error("database close error", slog.Any("error", cerr))
		}
	}()

	// Attempt the first connect eagerly so problems surface in the log at
	// startup, but carry on degraded when it fails.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()
	if _, err := db.Conn(startupCtx); err != nil {
		log.Error("database_unavailable_at_startup", slog.Any("error", err))
		alerts.Publish(alert.Alert{
			Severity: alert.SeverityError,
			Title:    "Database unavailable at startup",
			Message:  err.Error(),
			Source:   "startup",
		})
	}

	snapshots := fallback.NewStore(cfg.FallbackDir, log)
	registry := cache.NewRegistry()
	index := book.NewIndex()

	tokens, err := sec.NewTokenService(cfg.SessionSecret, constants.AuthIssuer)
	must(log, err, "initialize token service")

	// ── 4. Collection Caches ──────────────────────────────────────────────
	bookCache := cache.NewCollection[*book.Book](registry, "books", cfg.CacheTTL)
	seriesCache := cache.NewCollection[*series.Series](registry, "series", cfg.CacheTTL)
	releaseCache := cache.NewCollection[*release.UpcomingBook](registry, "releases", cfg.CacheTTL)
	notificationCache := cache.NewCollection[*notification.Notification](registry, "notifications", cfg.CacheTTL)
	settingsCache := cache.NewCollection[*settings.Settings](registry, "settings", cfg.CacheTTL)

	// ── 5. Domain Wiring ──────────────────────────────────────────────────
	bookService := book.NewService(
		book.NewSQLiteRepository(db), bookCache, snapshots, alerts, index, seriesCache, log)
	seriesService := series.NewService(
		series.NewSQLiteRepository(db), seriesCache, snapshots, alerts, series.RelatedCaches{
			Books:         bookCache,
			Releases:      releaseCache,
			Notifications: notificationCache,
		}, log)
	releaseService := release.NewService(
		release.NewSQLiteRepository(db), releaseCache, snapshots, alerts, index, release.RelatedCaches{
			Books:  bookCache,
			Series: seriesCache,
		}, log)
	settingsService := settings.NewService(
		settings.NewSQLiteRepository(db), settingsCache, snapshots, alerts, log)
	notificationService := notification.NewService(
		notification.NewSQLiteRepository(db), notificationCache, snapshots, alerts, log)

	// Storage alerts double as system notifications.
	notificationService.SubscribeToAlerts(alerts)

	// Warm the search index. On a degraded start this indexes the snapshot.
	bookService.RebuildSearchIndex(startupCtx)

	authService := auth.NewService(cfg.AuthPasswordHash, tokens, log)

	// ── 6. HTTP Handlers ──────────────────────────────────────────────────
	guard := middleware.Passthrough
	if cfg.AuthEnabled() {
		guard = middleware.RequireAuth
	}

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase:    db.Ping,
		StorageAvailable: db.Available,
		RecentAlerts:     alerts.Recent,
	}, log)

	handlers := api.Handlers{
		Liveness:      liveness,
		Readiness:     readiness,
		Auth:          auth.NewHandler(authService),
		Books:         book.NewHandler(bookService, guard),
		Series:        series.NewHandler(seriesService, guard),
		Releases:      release.NewHandler(releaseService, guard),
		Notifications: notification.NewHandler(notificationService, guard),
		Settings:      settings.NewHandler(settingsService, guard),
	}

	server := api.NewServer(rootCtx, cfg, log, tokens, handlers)

	// ── 7. Release Notifier ───────────────────────────────────────────────
	notifier := notification.NewNotifier(
		notificationService, releaseService, settingsService,
		cfg.ReleaseCheckInterval, cfg.ReleaseWindowDays, log)
	go notifier.Run(rootCtx)

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
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

	// Stop the notifier alongside the listener.
	rootCancel()

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// hashPassword implements the `hash` subcommand: read one line from
// stdin, print the bcrypt hash to stdout.
func hashPassword() {
	fmt.Fprint(os.Stderr, "Password: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		fmt.Fprintln(os.Stderr, "no password read")
		os.Exit(1)
	}

	password := strings.TrimSpace(scanner.Text())
	if password == "" {
		fmt.Fprintln(os.Stderr, "empty password")
		os.Exit(1)
	}

	hash, err := sec.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash failed:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
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
