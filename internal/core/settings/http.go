// Copyright (c) 2026 Shelfmark. All rights reserved.

package settings

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/LaMia-3/shelfmark/internal/platform/request"
	"github.com/LaMia-3/shelfmark/internal/platform/respond"
)

// # Handler Implementation

// Handler implements the HTTP layer for application preferences.
type Handler struct {
	service *Service
	guard   func(http.Handler) http.Handler
}

// NewHandler constructs a settings [Handler] with its service dependency
// and the auth guard for the mutating endpoint.
func NewHandler(service *Service, guard func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, guard: guard}
}

// Routes returns a [chi.Router] configured with the settings endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.getSettings)

	router.Group(func(protected chi.Router) {
		protected.Use(handler.guard)
		protected.Put("/", handler.putSettings)
	})

	return router
}

/*
GET /api/v1/settings.

Description: Retrieves the application preferences. A fresh installation
or degraded storage serves the defaults, never an error.

Response:
  - 200: Settings: Current preferences
*/
func (handler *Handler) getSettings(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.service.Get(request.Context()))
}

// settingsRequest defines the inbound JSON schema for replacing the
// preference row.
type settingsRequest struct {
	Theme                string `json:"theme"`
	DefaultView          string `json:"default_view"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	ReleaseWindowDays    int    `json:"release_window_days"`
}

/*
PUT /api/v1/settings.

Description: Replaces the preference row.

Request:
  - body: settingsRequest

Response:
  - 200: Settings: The stored preferences
  - 400: ErrValidation: Invalid payload
  - 401: ErrUnauthorized: Missing or invalid session token
*/
func (handler *Handler) putSettings(writer http.ResponseWriter, request *http.Request) {
	var payload settingsRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	settings := &Settings{
		Theme:                payload.Theme,
		DefaultView:          payload.DefaultView,
		NotificationsEnabled: payload.NotificationsEnabled,
		ReleaseWindowDays:    payload.ReleaseWindowDays,
	}
	if err := handler.service.Put(request.Context(), settings); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, settings)
}
