// Copyright (c) 2026 Shelfmark. All rights reserved.

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/LaMia-3/shelfmark/internal/platform/request"
	"github.com/LaMia-3/shelfmark/internal/platform/respond"
	"github.com/LaMia-3/shelfmark/internal/platform/validate"
)

// # Handler Implementation

// Handler implements the HTTP layer for session login. The login route
// is never guarded: it is how a session token is obtained.
type Handler struct {
	service *Service
}

// NewHandler constructs an auth [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] configured with the auth endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.login)
	router.Get("/session", handler.session)

	return router
}

// loginRequest defines the inbound JSON schema for a login attempt.
type loginRequest struct {
	Password string `json:"password"`
}

/*
POST /api/v1/auth/login.

Description: Verifies the owner password and issues a session token for
the mutating endpoints.

Request:
  - body: {"password": string}

Response:
  - 200: Session: Signed token and its expiry
  - 400: ErrValidation: Missing password
  - 401: ErrUnauthorized: Wrong password, or login disabled on an open
    instance
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var payload loginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if payload.Password == "" {
		respond.Error(writer, request, validate.RequiredError("password", "is required"))
		return
	}

	session, err := handler.service.Login(payload.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

// sessionInfo describes a verified session for the status endpoint.
type sessionInfo struct {
	Subject   string     `json:"subject"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

/*
GET /api/v1/auth/session.

Description: Reports whether the presented session token is still valid.
The UI calls this on startup to choose between the library and the login
form.

Response:
  - 200: sessionInfo: Subject and expiry of the verified token
  - 401: ErrUnauthorized: No token, or an invalid or expired one
*/
func (handler *Handler) session(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	info := sessionInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		expiry := claims.ExpiresAt.Time
		info.ExpiresAt = &expiry
	}
	respond.OK(writer, info)
}
