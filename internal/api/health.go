// Copyright (c) 2026 Shelfmark. All rights reserved.

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/LaMia-3/shelfmark/internal/platform/alert"
	"github.com/LaMia-3/shelfmark/internal/platform/respond"
)

// HealthDependencies holds the injectable checks for the /readyz endpoint.
type HealthDependencies struct {
	// CheckDatabase pings the embedded database, reconnecting when the
	// handle lost its file.
	CheckDatabase func(ctx context.Context) error

	// StorageAvailable reports the handle's view of the last attempt
	// without touching the database.
	StorageAvailable func() bool

	// RecentAlerts returns the latest background storage alerts.
	RecentAlerts func(n int) []alert.Alert
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /healthz and /readyz http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /healthz (liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{"status": "ok"})
}

// readiness handles GET /readyz (readiness probe).
//
// Degraded storage reports 503 so orchestration and dashboards see it,
// while the server itself keeps serving cached and snapshot reads.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	type checkResult struct {
		Name  string `json:"name"`
		IsOK  bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	isSystemReady := true
	results := make([]checkResult, 0, 1)

	// Check the embedded database
	if handler.dependencies.CheckDatabase != nil {
		result := checkResult{Name: "sqlite", IsOK: true}
		if err := handler.dependencies.CheckDatabase(request.Context()); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isSystemReady = false
			handler.logger.Error("readiness_check_failed", slog.String("dependency", "sqlite"), slog.Any("error", err))
		}
		results = append(results, result)
	}

	// The handle may have gone dark since the last successful ping.
	if handler.dependencies.StorageAvailable != nil && !handler.dependencies.StorageAvailable() {
		isSystemReady = false
	}

	payload := map[string]any{
		"status": "ready",
		"checks": results,
	}
	if handler.dependencies.RecentAlerts != nil {
		payload["alerts"] = handler.dependencies.RecentAlerts(5)
	}

	httpStatus := http.StatusOK
	if !isSystemReady {
		payload["status"] = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{Data: payload})
}
