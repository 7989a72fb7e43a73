// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/LaMia-3/shelfmark/internal/auth"
	"github.com/LaMia-3/shelfmark/internal/core/book"
	"github.com/LaMia-3/shelfmark/internal/core/notification"
	"github.com/LaMia-3/shelfmark/internal/core/release"
	"github.com/LaMia-3/shelfmark/internal/core/series"
	"github.com/LaMia-3/shelfmark/internal/core/settings"
	"github.com/LaMia-3/shelfmark/internal/platform/config"
	"github.com/LaMia-3/shelfmark/internal/platform/constants"
	"github.com/LaMia-3/shelfmark/internal/platform/middleware"
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
	// Liveness is the /healthz handler — always returns 200 if the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /readyz handler — reports database health and recent
	// storage alerts.
	Readiness http.HandlerFunc

	// Auth handles the owner login route.
	Auth *auth.Handler

	// Books handles the catalogue plus its search endpoint.
	Books *book.Handler

	// Series handles series and their membership operations.
	Series *series.Handler

	// Releases handles upcoming releases, refresh, and promotion.
	Releases *release.Handler

	// Notifications handles the feed and its acknowledge flow.
	Notifications *notification.Handler

	// Settings handles the single preferences row.
	Settings *settings.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context, cfg.RateLimitRPS))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/healthz", h.Liveness)
	r.Get("/readyz", h.Readiness)

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes())
		api.Mount("/books", h.Books.Routes())
		api.Mount("/series", h.Series.Routes())
		api.Mount("/releases", h.Releases.Routes())
		api.Mount("/notifications", h.Notifications.Routes())
		api.Mount("/settings", h.Settings.Routes())
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
