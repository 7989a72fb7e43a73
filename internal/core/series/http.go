// Copyright (c) 2026 Shelfmark. All rights reserved.

package series

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/LaMia-3/shelfmark/internal/platform/request"
	"github.com/LaMia-3/shelfmark/internal/platform/respond"
	"github.com/LaMia-3/shelfmark/pkg/convert"
	"github.com/LaMia-3/shelfmark/pkg/pagination"
)

// # Handler Implementation

// Handler implements the HTTP layer for series management.
type Handler struct {
	service *Service
	guard   func(http.Handler) http.Handler
}

// NewHandler constructs a series [Handler] with its service dependency
// and the auth guard for mutating endpoints.
func NewHandler(service *Service, guard func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, guard: guard}
}

// Routes returns a [chi.Router] configured with the series endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Read Endpoints
	router.Get("/", handler.listSeries)
	router.Get("/{id}", handler.getSeries)

	// ## Mutations (session required when auth is configured)
	router.Group(func(protected chi.Router) {
		protected.Use(handler.guard)

		protected.Post("/", handler.createSeries)
		protected.Put("/{id}", handler.updateSeries)
		protected.Delete("/{id}", handler.deleteSeries)

		// Membership
		protected.Post("/{id}/books/{bookID}", handler.addBook)
		protected.Delete("/{id}/books/{bookID}", handler.removeBook)

		// Derived progress
		protected.Post("/{id}/progress", handler.refreshProgress)
	})

	return router
}

// # Read Endpoints

/*
GET /api/v1/series.

Description: Retrieves a paginated list of series, filtered in memory
over the cached collection.

Request:
  - name: string (substring match)
  - status: []string (ongoing, completed, cancelled)
  - tracked: bool (only series with release tracking on/off)
  - limit: int
  - page: int

Response:
  - 200: []Series: Paginated list of series
*/
func (handler *Handler) listSeries(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)
	queryParams := request.URL.Query()

	filter := Filter{
		Name:   queryParams.Get("name"),
		Status: parseStatusSlice(queryParams["status"]),
	}
	if raw := queryParams.Get("tracked"); raw != "" {
		tracked := convert.ToBool(raw)
		filter.Tracked = &tracked
	}

	collection, total := handler.service.QuerySeries(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())

	respond.Paginated(writer, collection, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

/*
GET /api/v1/series/{id}.

Description: Retrieves one series, including its ordered member list and
derived progress.

Request:
  - id: string (UUID)

Response:
  - 200: Series: Success
  - 404: ErrNotFound: Series not found
*/
func (handler *Handler) getSeries(writer http.ResponseWriter, request *http.Request) {
	seriesID := requestutil.ID(request, "id")

	found, err := handler.service.GetSeries(request.Context(), seriesID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, found)
}

// # Request Payloads

// seriesRequest defines the inbound JSON schema for creating and
// replacing series. The member list is not writable through this shape.
type seriesRequest struct {
	Name          string       `json:"name"`
	Author        *string      `json:"author"`
	Description   *string      `json:"description"`
	CoverImageURL *string      `json:"cover_image_url"`
	TotalBooks    int          `json:"total_books"`
	ReadingOrder  ReadingOrder `json:"reading_order"`
	CustomOrder   []string     `json:"custom_order"`
	Status        Status       `json:"status"`
	IsTracked     bool         `json:"is_tracked"`
}

func (payload seriesRequest) toSeries() *Series {
	return &Series{
		Name:          payload.Name,
		Author:        payload.Author,
		Description:   payload.Description,
		CoverImageURL: payload.CoverImageURL,
		TotalBooks:    payload.TotalBooks,
		ReadingOrder:  payload.ReadingOrder,
		CustomOrder:   payload.CustomOrder,
		Status:        payload.Status,
		IsTracked:     payload.IsTracked,
	}
}

// addMemberRequest is the optional body for the add-member endpoint.
type addMemberRequest struct {
	Position *int `json:"position"`
}

// # Mutation Endpoints

/*
POST /api/v1/series.

Description: Creates a series. The member list always starts empty;
books join through the membership endpoints or their own series field.

Request (Body):
  - seriesRequest: JSON object

Response:
  - 201: Series: Created series record
  - 400: ErrInvalidJSON/Validation: Invalid input data
  - 401: ErrUnauthorized: Missing or invalid session token
*/
func (handler *Handler) createSeries(writer http.ResponseWriter, request *http.Request) {
	var input seriesRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created := input.toSeries()
	if err := handler.service.CreateSeries(request.Context(), created); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, created)
}

/*
PUT /api/v1/series/{id}.

Description: Replaces a series' descriptive fields. Membership and
derived counters survive unchanged; custom order entries that are not
current members are dropped.

Request:
  - id: string (UUID)
  - body: seriesRequest (Full JSON)

Response:
  - 200: Series: Updated series record
  - 400: ErrInvalidJSON/Validation: Invalid input data
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Series not found
*/
func (handler *Handler) updateSeries(writer http.ResponseWriter, request *http.Request) {
	seriesID := requestutil.ID(request, "id")

	var input seriesRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated := input.toSeries()
	updated.ID = seriesID

	if err := handler.service.UpdateSeries(request.Context(), updated); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updated)
}

/*
DELETE /api/v1/series/{id}.

Description: Deletes a series with its full cascade: member books lose
their back-reference, and the series' upcoming releases and
notifications go with it.

Request:
  - id: string (UUID)

Response:
  - 204: No Content
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Series not found
*/
func (handler *Handler) deleteSeries(writer http.ResponseWriter, request *http.Request) {
	seriesID := requestutil.ID(request, "id")

	if err := handler.service.DeleteSeries(request.Context(), seriesID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Membership Endpoints

/*
POST /api/v1/series/{id}/books/{bookID}.

Description: Adds a book to the series' ordered member list and sets the
book's back-reference, one transaction. Idempotent for existing members;
a book in a different series switches over.

Request:
  - id: string (Series UUID)
  - bookID: string (Book UUID)
  - body: {"position": int} (optional; omitted appends at the end)

Response:
  - 204: No Content
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Series or book not found
*/
func (handler *Handler) addBook(writer http.ResponseWriter, request *http.Request) {
	seriesID := requestutil.ID(request, "id")
	bookID := requestutil.ID(request, "bookID")

	var input addMemberRequest
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	if err := handler.service.AddBookToSeries(request.Context(), seriesID, bookID, input.Position); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
DELETE /api/v1/series/{id}/books/{bookID}.

Description: Removes a book from the series. The book keeps its row and
tags; membership, custom order, back-reference, and derived progress all
update in one transaction.

Request:
  - id: string (Series UUID)
  - bookID: string (Book UUID)

Response:
  - 204: No Content
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Series not found
*/
func (handler *Handler) removeBook(writer http.ResponseWriter, request *http.Request) {
	seriesID := requestutil.ID(request, "id")
	bookID := requestutil.ID(request, "bookID")

	if err := handler.service.RemoveBookFromSeries(request.Context(), seriesID, bookID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/series/{id}/progress.

Description: Recomputes the derived completion counters from current
member statuses and returns the refreshed series. Idempotent.

Request:
  - id: string (UUID)

Response:
  - 200: Series: Series with recomputed counters
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Series not found
*/
func (handler *Handler) refreshProgress(writer http.ResponseWriter, request *http.Request) {
	seriesID := requestutil.ID(request, "id")

	refreshed, err := handler.service.RefreshProgress(request.Context(), seriesID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, refreshed)
}

// # Query Helpers

// parseStatusSlice keeps only recognised status values from the raw query.
func parseStatusSlice(values []string) []Status {
	statuses := make([]Status, 0, len(values))
	for _, value := range values {
		if status := Status(value); status.IsValid() {
			statuses = append(statuses, status)
		}
	}
	return statuses
}
