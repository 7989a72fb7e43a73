// Copyright (c) 2026 Shelfmark. All rights reserved.

package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/LaMia-3/shelfmark/internal/platform/request"
	"github.com/LaMia-3/shelfmark/internal/platform/respond"
	"github.com/LaMia-3/shelfmark/pkg/convert"
	"github.com/LaMia-3/shelfmark/pkg/pagination"
)

// # Handler Implementation

// Handler implements the HTTP layer for the notification feed. Entries
// are created by the system (the release notifier and the alert
// subscriber), so the surface is read-and-acknowledge only.
type Handler struct {
	service *Service
	guard   func(http.Handler) http.Handler
}

// NewHandler constructs a notification [Handler] with its service
// dependency and the auth guard for mutating endpoints.
func NewHandler(service *Service, guard func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, guard: guard}
}

// Routes returns a [chi.Router] configured with the notification
// endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Read Endpoints
	router.Get("/", handler.listNotifications)
	router.Get("/unread-count", handler.unreadCount)

	// ## Mutations (session required when auth is configured)
	router.Group(func(protected chi.Router) {
		protected.Use(handler.guard)

		protected.Post("/{id}/read", handler.markRead)
		protected.Post("/read-all", handler.markAllRead)
		protected.Delete("/{id}", handler.dismiss)
		protected.Delete("/", handler.clearAll)
	})

	return router
}

// # Read Endpoints

/*
GET /api/v1/notifications.

Description: Retrieves a paginated list of notifications, newest first,
filtered in memory over the cached feed. Unknown type values are ignored.

Request:
  - type: string (release, system, reminder; repeatable)
  - unread: bool
  - limit: int
  - page: int

Response:
  - 200: []Notification: Paginated feed
*/
func (handler *Handler) listNotifications(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)
	queryParams := request.URL.Query()

	var filter Filter
	for _, raw := range queryParams["type"] {
		if candidate := Type(raw); candidate.IsValid() {
			filter.Type = append(filter.Type, candidate)
		}
	}
	if raw := queryParams.Get("unread"); raw != "" {
		unread := convert.ToBool(raw)
		filter.Unread = &unread
	}

	feed, total := handler.service.QueryNotifications(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())

	respond.Paginated(writer, feed, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

// unreadCountResponse is the badge payload for the feed icon.
type unreadCountResponse struct {
	Count int `json:"count"`
}

/*
GET /api/v1/notifications/unread-count.

Description: Returns the number of unread notifications.

Response:
  - 200: {"count": int}
*/
func (handler *Handler) unreadCount(writer http.ResponseWriter, request *http.Request) {
	count := handler.service.UnreadCount(request.Context())

	respond.OK(writer, unreadCountResponse{Count: count})
}

// # Mutation Endpoints

/*
POST /api/v1/notifications/{id}/read.

Description: Marks one notification as read. Idempotent.

Request:
  - id: string (UUID)

Response:
  - 204: No Content
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Notification not found
*/
func (handler *Handler) markRead(writer http.ResponseWriter, request *http.Request) {
	notificationID := requestutil.ID(request, "id")

	if err := handler.service.MarkRead(request.Context(), notificationID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/notifications/read-all.

Description: Marks the whole feed as read.

Response:
  - 204: No Content
  - 401: ErrUnauthorized: Missing or invalid session token
*/
func (handler *Handler) markAllRead(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.MarkAllRead(request.Context()); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
DELETE /api/v1/notifications/{id}.

Description: Dismisses one notification.

Request:
  - id: string (UUID)

Response:
  - 204: No Content
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Notification not found
*/
func (handler *Handler) dismiss(writer http.ResponseWriter, request *http.Request) {
	notificationID := requestutil.ID(request, "id")

	if err := handler.service.Dismiss(request.Context(), notificationID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
DELETE /api/v1/notifications.

Description: Clears the whole feed.

Response:
  - 204: No Content
  - 401: ErrUnauthorized: Missing or invalid session token
*/
func (handler *Handler) clearAll(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.ClearAll(request.Context()); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
