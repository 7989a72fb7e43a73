// Copyright (c) 2026 Shelfmark. All rights reserved.

package book

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/LaMia-3/shelfmark/internal/platform/request"
	"github.com/LaMia-3/shelfmark/internal/platform/respond"
	"github.com/LaMia-3/shelfmark/internal/search"
	"github.com/LaMia-3/shelfmark/pkg/convert"
	"github.com/LaMia-3/shelfmark/pkg/pagination"
	"github.com/LaMia-3/shelfmark/pkg/query"
)

// # Handler Implementation

// Handler implements the HTTP layer for the book collection. It translates
// web requests into domain service calls.
type Handler struct {
	service *Service
	guard   func(http.Handler) http.Handler
}

// NewHandler constructs a book [Handler]. The guard middleware protects
// mutating endpoints; instances without a configured password pass a
// no-op guard.
func NewHandler(service *Service, guard func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, guard: guard}
}

// Routes returns a [chi.Router] configured with the book endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Read Endpoints
	router.Get("/", handler.listBooks)
	router.Get("/search", handler.searchBooks)
	router.Get("/{id}", handler.getBook)

	// ## Mutations (session required when auth is configured)
	router.Group(func(protected chi.Router) {
		protected.Use(handler.guard)

		protected.Post("/", handler.createBook)
		protected.Put("/{id}", handler.updateBook)
		protected.Delete("/{id}", handler.deleteBook)
	})

	return router
}

// # Read Endpoints

/*
GET /api/v1/books.

Description: Retrieves a paginated list of the collection. Filters narrow
the cached collection in memory; with storage down, the endpoint keeps
answering from the last good snapshot.

Request:
  - status: []string (to-read, reading, completed, dnf, on-hold)
  - author: string (substring match)
  - genre: string (substring match)
  - series_id: string (exact match)
  - tags: []string (every listed tag must be present)
  - rating: []int (1..5)
  - limit: int
  - page: int

Response:
  - 200: []Book: Paginated list of books
*/
func (handler *Handler) listBooks(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)
	queryParams := request.URL.Query()

	filter := Filter{
		Status:   parseStatusSlice(queryParams["status"]),
		Author:   queryParams.Get("author"),
		Genre:    queryParams.Get("genre"),
		SeriesID: queryParams.Get("series_id"),
		Tags:     queryParams["tags"],
		Ratings:  query.IntSlice(queryParams["rating"]),
	}

	books, total := handler.service.QueryBooks(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())

	respond.Paginated(writer, books, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

/*
GET /api/v1/books/search.

Description: Full-text search over the collection with per-field scoping,
typo-tolerant matching, and highlighted snippets. An empty query returns
the whole collection unranked.

Request:
  - q: string (search terms)
  - fields: string (comma-separated: title, author, genre, description, tags, all)
  - fuzzy: bool (tolerate typos, edit distance scales with term length)
  - exact: bool (treat q as one phrase instead of separate terms)
  - case_sensitive: bool
  - limit: int (maximum results after ranking)

Response:
  - 200: []Result: Ranked matches with relevance scores and match segments
*/
func (handler *Handler) searchBooks(writer http.ResponseWriter, request *http.Request) {
	queryParams := request.URL.Query()

	options := search.Options{
		Fields:        query.StringSlice(queryParams.Get("fields")),
		Fuzzy:         convert.ToBool(queryParams.Get("fuzzy")),
		ExactMatch:    convert.ToBool(queryParams.Get("exact")),
		CaseSensitive: convert.ToBool(queryParams.Get("case_sensitive")),
		Limit:         convert.ToInt(queryParams.Get("limit")),
	}

	results := handler.service.SearchBooks(request.Context(), queryParams.Get("q"), options)

	respond.OK(writer, results)
}

/*
GET /api/v1/books/{id}.

Description: Retrieves a single book. Served from the cached collection
when the cache is valid.

Request:
  - id: string (UUID)

Response:
  - 200: Book: Success
  - 404: ErrNotFound: Book not found
*/
func (handler *Handler) getBook(writer http.ResponseWriter, request *http.Request) {
	bookID := requestutil.ID(request, "id")

	found, err := handler.service.GetBook(request.Context(), bookID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, found)
}

// # Request Payloads

// bookRequest defines the inbound JSON schema for creating and replacing
// books. Identity and bookkeeping fields are server-assigned.
type bookRequest struct {
	Title          string     `json:"title"`
	Author         string     `json:"author"`
	Genre          *string    `json:"genre"`
	Description    *string    `json:"description"`
	PublishedDate  *string    `json:"published_date"`
	PageCount      *int       `json:"page_count"`
	ThumbnailURL   *string    `json:"thumbnail_url"`
	SourceID       *string    `json:"source_id"`
	SourceType     *string    `json:"source_type"`
	Status         Status     `json:"status"`
	Progress       float64    `json:"progress"`
	StartedDate    *time.Time `json:"started_date"`
	CompletedDate  *time.Time `json:"completed_date"`
	Rating         *int       `json:"rating"`
	SeriesID       *string    `json:"series_id"`
	SeriesPosition *int       `json:"series_position"`
	Tags           []string   `json:"tags"`
}

func (payload bookRequest) toBook() *Book {
	return &Book{
		Title:          payload.Title,
		Author:         payload.Author,
		Genre:          payload.Genre,
		Description:    payload.Description,
		PublishedDate:  payload.PublishedDate,
		PageCount:      payload.PageCount,
		ThumbnailURL:   payload.ThumbnailURL,
		SourceID:       payload.SourceID,
		SourceType:     payload.SourceType,
		Status:         payload.Status,
		Progress:       payload.Progress,
		StartedDate:    payload.StartedDate,
		CompletedDate:  payload.CompletedDate,
		Rating:         payload.Rating,
		SeriesID:       payload.SeriesID,
		SeriesPosition: payload.SeriesPosition,
		Tags:           payload.Tags,
	}
}

// # Mutation Endpoints

/*
POST /api/v1/books.

Description: Adds a book to the collection. The identifier, timestamps,
and sync state are assigned server-side; a book created with series_id
joins that series' member list in the same transaction.

Request (Body):
  - bookRequest: JSON object

Response:
  - 201: Book: Created book record
  - 400: ErrInvalidJSON/Validation: Invalid input data
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Referenced series does not exist
*/
func (handler *Handler) createBook(writer http.ResponseWriter, request *http.Request) {
	var input bookRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created := input.toBook()
	if err := handler.service.CreateBook(request.Context(), created); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, created)
}

/*
PUT /api/v1/books/{id}.

Description: Replaces a book's attributes. Creation bookkeeping survives;
changing series_id moves the book between series member lists.

Request:
  - id: string (UUID)
  - body: bookRequest (Full JSON)

Response:
  - 200: Book: Updated book record
  - 400: ErrInvalidJSON/Validation: Invalid input data
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Book or referenced series not found
*/
func (handler *Handler) updateBook(writer http.ResponseWriter, request *http.Request) {
	bookID := requestutil.ID(request, "id")

	var input bookRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated := input.toBook()
	updated.ID = bookID

	if err := handler.service.UpdateBook(request.Context(), updated); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updated)
}

/*
DELETE /api/v1/books/{id}.

Description: Removes a book. A series member also leaves the series'
member list and custom order in the same transaction.

Request:
  - id: string (UUID)

Response:
  - 204: No Content
  - 401: ErrUnauthorized: Missing or invalid session token
  - 404: ErrNotFound: Book not found
*/
func (handler *Handler) deleteBook(writer http.ResponseWriter, request *http.Request) {
	bookID := requestutil.ID(request, "id")

	if err := handler.service.DeleteBook(request.Context(), bookID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
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
