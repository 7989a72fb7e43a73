// Copyright (c) 2026 Shelfmark. All rights reserved.

package release

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/LaMia-3/shelfmark/internal/platform/request"
	"github.com/LaMia-3/shelfmark/internal/platform/respond"
	"github.com/LaMia-3/shelfmark/pkg/convert"
	"github.com/LaMia-3/shelfmark/pkg/pagination"
)

// # Handler Implementation

// Handler implements the HTTP layer for upcoming releases.
type Handler struct {
	service *Service
	guard   func(http.Handler) http.Handler
}

// NewHandler constructs a release [Handler] with its service dependency
// and the auth guard for mutating endpoints.
func NewHandler(service *Service, guard func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, guard: guard}
}

// Routes returns a [chi.Router] configured with the release endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Read Endpoints
	router.Get("/", handler.listReleases)
	router.Get("/{id}", handler.getRelease)

	// ## Mutations (session required when auth is configured)
	router.Group(func(protected chi.Router) {
		protected.Use(handler.guard)

		protected.Post("/", handler.createRelease)
		protected.Put("/{id}", handler.updateRelease)
		protected.Delete("/{id}", handler.deleteRelease)

		// Sourced-batch replace and promotion
		protected.Post("/refresh", handler.refreshSourced)
		protected.Post("/{id}/promote", handler.promoteRelease)
	})

	return router
}

// # Read Endpoints

/*
GET /api/v1/releases.

Description: Retrieves a paginated list of upcoming releases, soonest
first, filtered in memory over the cached collection.

Request:
  - series_id: string (UUID)
  - title: string (substring match)
  - user_contributed: bool
  - limit: int
  - page: int

Response:
  - 200: []UpcomingBook: Paginated list of releases
*/
func (handler *Handler) listReleases(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)
	queryParams := request.URL.Query()

	filter := Filter{
		SeriesID: queryParams.Get("series_id"),
		Title:    queryParams.Get("title"),
	}
	if raw := queryParams.Get("user_contributed"); raw != "" {
		contributed := convert.ToBool(raw)
		filter.UserContributed = &contributed
	}

	collection, total := handler.service.QueryReleases(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())

	respond.Paginated(writer, collection, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

/*
GET /api/v1/releases/{id}.

Description: Retrieves one upcoming release.

Request:
  - id: string (UUID)

Response:
  - 200: UpcomingBook: Success
  - 404: ErrNotFound: Release not found
*/
func (handler *Handler) getRelease(writer http.ResponseWriter, request *http.Request) {
	releaseID := requestutil.ID(request, "id")

	found, err := handler.service.GetRelease(request.Context(), releaseID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, found)
}

// # Request Payloads

// releaseRequest defines the inbound JSON schema for creating and
// replacing releases. The contribution flag is not writable: manual
// entries are always user-contributed, refresh batches never are.
type releaseRequest struct {
	Title               string     `json:"title"`
	Author              *string    `json:"author"`
	SeriesID            *string    `json:"series_id"`
	SeriesName          *string    `json:"series_name"`
	ExpectedReleaseDate *time.Time `json:"expected_release_date"`
	PreOrderLink        *string    `json:"pre_order_link"`
	Synopsis            *string    `json:"synopsis"`
	CoverImageURL       *string    `json:"cover_image_url"`
}

func (payload releaseRequest) toRelease() *UpcomingBook {
	return &UpcomingBook{
		Title:               payload.Title,
		Author:              payload.Author,
		SeriesID:            payload.SeriesID,
		SeriesName:          payload.SeriesName,
		ExpectedReleaseDate: payload.ExpectedReleaseDate,
		PreOrderLink:        payload.PreOrderLink,
		Synopsis:            payload.Synopsis,
		CoverImageURL:       payload.CoverImageURL,
	}
}

// refreshRequest carries the sourced batch that replaces every
// non-user-contributed entry.
type refreshRequest struct {
	Entries []releaseRequest `json:"entries"`
}

// # Mutation Endpoints

/*
POST /api/v1/releases.

Description: Creates a user-contributed upcoming release. A series
reference must resolve; the series name is denormalized onto the entry.

Request:
  - body: releaseRequest

Response:
  - 201: UpcomingBook: The created release
  - 400: ErrValidation: Invalid payload
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Referenced series not found
*/
func (handler *Handler) createRelease(writer http.ResponseWriter, request *http.Request) {
	var payload releaseRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	upcoming := payload.toRelease()
	if err := handler.service.CreateRelease(request.Context(), upcoming); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, upcoming)
}

/*
PUT /api/v1/releases/{id}.

Description: Replaces a release's fields. The contribution flag and
creation time are preserved from the stored entry.

Request:
  - id: string (UUID)
  - body: releaseRequest

Response:
  - 200: UpcomingBook: The updated release
  - 400: ErrValidation: Invalid payload
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Release or referenced series not found
*/
func (handler *Handler) updateRelease(writer http.ResponseWriter, request *http.Request) {
	var payload releaseRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	upcoming := payload.toRelease()
	upcoming.ID = requestutil.ID(request, "id")

	if err := handler.service.UpdateRelease(request.Context(), upcoming); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, upcoming)
}

/*
DELETE /api/v1/releases/{id}.

Description: Removes a release and lowers the owning series' upcoming
flag when it was the last one.

Request:
  - id: string (UUID)

Response:
  - 204: No Content
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Release not found
*/
func (handler *Handler) deleteRelease(writer http.ResponseWriter, request *http.Request) {
	releaseID := requestutil.ID(request, "id")

	if err := handler.service.DeleteRelease(request.Context(), releaseID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/releases/refresh.

Description: Replaces every externally sourced entry with the supplied
batch in one transaction. User-contributed entries survive. The whole
batch rolls back on any invalid entry.

Request:
  - body: {"entries": [releaseRequest, ...]}

Response:
  - 200: []UpcomingBook: The applied entries
  - 400: ErrValidation: Invalid entry in the batch
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: An entry references a missing series
*/
func (handler *Handler) refreshSourced(writer http.ResponseWriter, request *http.Request) {
	var payload refreshRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	entries := make([]*UpcomingBook, 0, len(payload.Entries))
	for _, entry := range payload.Entries {
		entries = append(entries, entry.toRelease())
	}

	if err := handler.service.RefreshSourced(request.Context(), entries); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, entries)
}

/*
POST /api/v1/releases/{id}/promote.

Description: Converts a release into a catalogued to-read book in one
transaction: the book is created (joining the release's series when set),
the release deleted, and the series' upcoming flag recomputed.

Request:
  - id: string (UUID)

Response:
  - 201: Book: The catalogued replacement
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Release not found
*/
func (handler *Handler) promoteRelease(writer http.ResponseWriter, request *http.Request) {
	releaseID := requestutil.ID(request, "id")

	promoted, err := handler.service.Promote(request.Context(), releaseID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, promoted)
}
