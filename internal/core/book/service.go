// Copyright (c) 2026 Shelfmark. All rights reserved.

package book

import (
	"context"
	"log/slog"
	"time"

	"github.com/LaMia-3/shelfmark/internal/platform/alert"
	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/cache"
	"github.com/LaMia-3/shelfmark/internal/platform/fallback"
	"github.com/LaMia-3/shelfmark/internal/platform/validate"
	"github.com/LaMia-3/shelfmark/internal/search"
	"github.com/LaMia-3/shelfmark/pkg/uuidv7"
)

// snapshotName is the fallback snapshot key for the book collection.
const snapshotName = "books"

// cacheInvalidator is the slice of the cache API the service needs from
// sibling collections.
type cacheInvalidator interface {
	Invalidate()
}

// # Service Layer

/*
Service is the caching storage facade for books.

Reads flow through the collection cache: a hit returns the previous
snapshot (same slice, same pointers), a miss fetches from the repository
and refreshes the fallback snapshot. Read failures degrade — log, publish
a storage alert, serve the last snapshot or empty — and never propagate.
Writes validate, persist, and only then invalidate caches and maintain
the search index; a failed write leaves every projection untouched.
*/
type Service struct {
	repo        Repository
	books       *cache.Collection[*Book]
	snapshots   *fallback.Store
	alerts      *alert.Dispatcher
	index       *search.Index[*Book]
	seriesCache cacheInvalidator
	logger      *slog.Logger
}

// NewService constructs the book facade with its collaborators.
func NewService(
	repo Repository,
	books *cache.Collection[*Book],
	snapshots *fallback.Store,
	alerts *alert.Dispatcher,
	index *search.Index[*Book],
	seriesCache cacheInvalidator,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		books:       books,
		snapshots:   snapshots,
		alerts:      alerts,
		index:       index,
		seriesCache: seriesCache,
		logger:      logger,
	}
}

// # Reads

// ListBooks returns the whole collection, served from cache within the
// TTL. Storage failures degrade to the last snapshot (or empty) instead
// of erroring.
func (service *Service) ListBooks(context context.Context) []*Book {
	books, err := service.books.GetOrFetch(context, service.fetchAll)
	if err != nil {
		return service.degradedList(err)
	}
	return books
}

// QueryBooks filters and paginates the cached collection in memory, the
// same way the collection is meant to be browsed: fetched once, narrowed
// per request.
func (service *Service) QueryBooks(context context.Context, filter Filter, limit, offset int) ([]*Book, int) {
	all := service.ListBooks(context)

	matched := make([]*Book, 0, len(all))
	for _, book := range all {
		if filter.Match(book) {
			matched = append(matched, book)
		}
	}

	total := len(matched)
	if offset >= total {
		return []*Book{}, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total
}

// GetBook returns one book by id. A valid cache answers first (same
// pointer as the list read); otherwise the row is fetched directly
// without repopulating the list cache.
func (service *Service) GetBook(context context.Context, id string) (*Book, error) {
	if cached, ok := service.books.Peek(); ok {
		for _, book := range cached {
			if book.ID == id {
				return book, nil
			}
		}
		return nil, apperr.NotFound("Book")
	}

	book, err := service.repo.GetByID(context, id)
	if err == nil {
		return book, nil
	}
	if !apperr.IsStorageUnavailable(err) {
		return nil, err
	}

	// degraded single lookup: scan the last snapshot
	service.reportDegraded("book_get_degraded", err)
	for _, snapshot := range service.loadSnapshot() {
		if snapshot.ID == id {
			return snapshot, nil
		}
	}
	return nil, apperr.NotFound("Book")
}

// SearchBooks answers a query against the in-memory index, rebuilding it
// from the collection when it has never been filled.
func (service *Service) SearchBooks(context context.Context, query string, opts search.Options) []search.Result[*Book] {
	if service.index.Len() == 0 {
		service.RebuildSearchIndex(context)
	}
	return service.index.Search(query, opts)
}

// RebuildSearchIndex repopulates the index from the current collection.
func (service *Service) RebuildSearchIndex(context context.Context) {
	service.index.Build(service.ListBooks(context))
}

// fetchAll is the cache-miss path: load from storage and refresh the
// fallback snapshot, best effort.
func (service *Service) fetchAll(context context.Context) ([]*Book, error) {
	books, err := service.repo.List(context)
	if err != nil {
		return nil, err
	}
	service.snapshots.Save(snapshotName, books)
	return books, nil
}

func (service *Service) degradedList(cause error) []*Book {
	service.reportDegraded("book_list_degraded", cause)
	return service.loadSnapshot()
}

func (service *Service) loadSnapshot() []*Book {
	var books []*Book
	if err := service.snapshots.Load(snapshotName, &books); err != nil {
		return []*Book{}
	}
	return books
}

func (service *Service) reportDegraded(event string, cause error) {
	service.logger.Error(event, slog.String("error", cause.Error()))
	service.alerts.Publish(alert.Alert{
		Severity: alert.SeverityError,
		Title:    "Library temporarily unavailable",
		Message:  cause.Error(),
		Source:   snapshotName,
	})
}

// # Writes

/*
CreateBook validates and persists a new book.

Description: Generates the UUID v7 identity, stamps bookkeeping
timestamps, and defaults the reading status. When the book carries a
series back-reference, persistence also registers it as a member of that
series in the same transaction. Projections (cache, index, snapshot) are
only touched after the write commits.

Parameters:
  - context: context.Context
  - book: *Book (The entity to be persisted)

Returns:
  - error: Validation or persistence errors
*/
func (service *Service) CreateBook(context context.Context, book *Book) error {
	if book.Status == "" {
		book.Status = StatusToRead
	}
	if err := validateBook(book); err != nil {
		return err
	}

	if book.ID == "" {
		book.ID = uuidv7.New()
	}
	now := time.Now().UTC()
	book.DateAdded = now
	book.LastModified = now
	if book.SyncStatus == "" {
		book.SyncStatus = "local"
	}
	applyCompletion(book, now)

	if err := service.repo.Create(context, book); err != nil {
		return err
	}

	service.index.Add(book)
	service.invalidate(book.SeriesID != nil)

	service.logger.Info("book_created",
		slog.String("book_id", book.ID),
		slog.String("title", book.Title),
	)
	return nil
}

/*
UpdateBook replaces an existing book's fields.

Description: The inbound record is a full replacement keyed by ID;
bookkeeping fields (DateAdded) survive from the stored record. Series
membership follows the back-reference: joining, leaving, or switching
series is reconciled inside the storage transaction.

Parameters:
  - context: context.Context
  - book: *Book (Target ID and full attributes)

Returns:
  - error: ErrNotFound, validation, or persistence errors
*/
func (service *Service) UpdateBook(context context.Context, book *Book) error {
	if book.Status == "" {
		book.Status = StatusToRead
	}
	if err := validateBook(book); err != nil {
		return err
	}

	existing, err := service.repo.GetByID(context, book.ID)
	if err != nil {
		return err
	}

	book.DateAdded = existing.DateAdded
	if book.SyncStatus == "" {
		book.SyncStatus = existing.SyncStatus
	}
	now := time.Now().UTC()
	book.LastModified = now
	applyCompletion(book, now)

	if err := service.repo.Update(context, book); err != nil {
		return err
	}

	service.index.Update(book)
	service.invalidate(existing.SeriesID != nil || book.SeriesID != nil)

	service.logger.Info("book_updated", slog.String("book_id", book.ID))
	return nil
}

/*
DeleteBook removes a book from the collection.

Description: A member book leaves its series (member list, custom order,
derived progress) in the same transaction that deletes the row, so the
membership invariant holds at every commit point.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - error: ErrNotFound or persistence errors
*/
func (service *Service) DeleteBook(context context.Context, id string) error {
	existing, err := service.repo.GetByID(context, id)
	if err != nil {
		return err
	}

	if err := service.repo.Delete(context, id); err != nil {
		return err
	}

	service.index.Remove(id)
	service.invalidate(existing.SeriesID != nil)

	service.logger.Warn("book_deleted", slog.String("book_id", id))
	return nil
}

// invalidate marks the book cache stale, plus the series cache when the
// write touched a series row. Only called after confirmed success.
func (service *Service) invalidate(seriesToo bool) {
	service.books.Invalidate()
	if seriesToo {
		service.seriesCache.Invalidate()
	}
}

// # Validation

func validateBook(book *Book) error {
	validator := &validate.Validator{}

	validator.Required(FieldTitle, book.Title).MaxLen(FieldTitle, book.Title, 500)
	validator.Required(FieldAuthor, book.Author).MaxLen(FieldAuthor, book.Author, 200)

	validator.OneOf(FieldStatus, string(book.Status),
		string(StatusToRead),
		string(StatusReading),
		string(StatusCompleted),
		string(StatusDNF),
		string(StatusOnHold),
	)

	validator.Fraction(FieldProgress, book.Progress)

	if book.Rating != nil {
		validator.Range(FieldRating, *book.Rating, 1, 5)
	}
	if book.SeriesID != nil {
		validator.UUID(FieldSeriesID, *book.SeriesID)
	}
	if book.ThumbnailURL != nil {
		validator.URL(FieldThumbnailURL, *book.ThumbnailURL)
	}

	return validator.Err()
}

// applyCompletion keeps the completed-implies-dated invariant: reaching
// completed stamps the date when the caller did not supply one.
func applyCompletion(book *Book, now time.Time) {
	if book.Status == StatusCompleted && book.CompletedDate == nil {
		book.CompletedDate = &now
	}
}
