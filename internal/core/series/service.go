// Copyright (c) 2026 Shelfmark. All rights reserved.

package series

import (
	"context"
	"log/slog"
	"time"

	"github.com/LaMia-3/shelfmark/internal/platform/alert"
	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/cache"
	"github.com/LaMia-3/shelfmark/internal/platform/fallback"
	"github.com/LaMia-3/shelfmark/internal/platform/validate"
	"github.com/LaMia-3/shelfmark/pkg/uuidv7"
)

// snapshotName is the fallback snapshot key for the series collection.
const snapshotName = "series"

// invalidator is the slice of the cache API the service needs from
// sibling collections.
type invalidator interface {
	Invalidate()
}

// RelatedCaches carries the sibling collection caches a series write can
// render stale: membership operations rewrite book rows, and the delete
// cascade reaches releases and notifications.
type RelatedCaches struct {
	Books         invalidator
	Releases      invalidator
	Notifications invalidator
}

// # Service Layer

/*
Service is the caching storage facade for series.

Reads flow through the collection cache with the same degraded-mode
contract as books: failures are logged, alerted, and absorbed into the
last snapshot or an empty collection. Writes validate, persist, then
invalidate the series cache plus whichever sibling caches the operation
touched.
*/
type Service struct {
	repo      Repository
	series    *cache.Collection[*Series]
	snapshots *fallback.Store
	alerts    *alert.Dispatcher
	related   RelatedCaches
	logger    *slog.Logger
}

// NewService constructs the series facade with its collaborators.
func NewService(
	repo Repository,
	series *cache.Collection[*Series],
	snapshots *fallback.Store,
	alerts *alert.Dispatcher,
	related RelatedCaches,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		series:    series,
		snapshots: snapshots,
		alerts:    alerts,
		related:   related,
		logger:    logger,
	}
}

// # Reads

// ListSeries returns every series, served from cache within the TTL.
// Storage failures degrade to the last snapshot (or empty).
func (service *Service) ListSeries(context context.Context) []*Series {
	collection, err := service.series.GetOrFetch(context, service.fetchAll)
	if err != nil {
		return service.degradedList(err)
	}
	return collection
}

// QuerySeries filters and paginates the cached collection in memory.
func (service *Service) QuerySeries(context context.Context, filter Filter, limit, offset int) ([]*Series, int) {
	all := service.ListSeries(context)

	matched := make([]*Series, 0, len(all))
	for _, candidate := range all {
		if filter.Match(candidate) {
			matched = append(matched, candidate)
		}
	}

	total := len(matched)
	if offset >= total {
		return []*Series{}, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total
}

// GetSeries returns one series by id, scanning a valid cache before
// touching storage.
func (service *Service) GetSeries(context context.Context, id string) (*Series, error) {
	if cached, ok := service.series.Peek(); ok {
		for _, candidate := range cached {
			if candidate.ID == id {
				return candidate, nil
			}
		}
		return nil, apperr.NotFound("Series")
	}

	found, err := service.repo.GetByID(context, id)
	if err == nil {
		return found, nil
	}
	if !apperr.IsStorageUnavailable(err) {
		return nil, err
	}

	service.reportDegraded("series_get_degraded", err)
	for _, snapshot := range service.loadSnapshot() {
		if snapshot.ID == id {
			return snapshot, nil
		}
	}
	return nil, apperr.NotFound("Series")
}

func (service *Service) fetchAll(context context.Context) ([]*Series, error) {
	collection, err := service.repo.List(context)
	if err != nil {
		return nil, err
	}
	service.snapshots.Save(snapshotName, collection)
	return collection, nil
}

func (service *Service) degradedList(cause error) []*Series {
	service.reportDegraded("series_list_degraded", cause)
	return service.loadSnapshot()
}

func (service *Service) loadSnapshot() []*Series {
	var collection []*Series
	if err := service.snapshots.Load(snapshotName, &collection); err != nil {
		return []*Series{}
	}
	return collection
}

func (service *Service) reportDegraded(event string, cause error) {
	service.logger.Error(event, slog.String("error", cause.Error()))
	service.alerts.Publish(alert.Alert{
		Severity: alert.SeverityError,
		Title:    "Series collection temporarily unavailable",
		Message:  cause.Error(),
		Source:   snapshotName,
	})
}

// # Writes

/*
CreateSeries validates and persists a new series.

Description: Assigns identity and timestamps and normalizes the enums
(an unrecognised status coerces to ongoing rather than failing, matching
how imported data behaves). The member list always starts empty — books
join through the member operations or their own series back-reference,
which is what keeps the two sides consistent.

Parameters:
  - context: context.Context
  - series: *Series

Returns:
  - error: Validation or persistence errors
*/
func (service *Service) CreateSeries(context context.Context, series *Series) error {
	normalizeEnums(series)
	if err := validateSeries(series); err != nil {
		return err
	}

	if series.ID == "" {
		series.ID = uuidv7.New()
	}
	now := time.Now().UTC()
	series.DateAdded = now
	series.LastModified = now

	series.Books = []string{}
	series.CustomOrder = nil
	series.CompletedBooks = 0
	series.ReadingProgress = 0
	series.HasUpcoming = false

	if err := service.repo.Create(context, series); err != nil {
		return err
	}

	service.series.Invalidate()
	service.logger.Info("series_created",
		slog.String("series_id", series.ID),
		slog.String("name", series.Name),
	)
	return nil
}

/*
UpdateSeries replaces a series' descriptive fields.

Description: Membership and the derived counters are not writable here:
the stored member list, progress, and upcoming flag survive from the
existing record, and a custom order referencing ex-members is trimmed
during the write.

Parameters:
  - context: context.Context
  - series: *Series (matched by ID)

Returns:
  - error: ErrNotFound, validation, or persistence errors
*/
func (service *Service) UpdateSeries(context context.Context, series *Series) error {
	normalizeEnums(series)
	if err := validateSeries(series); err != nil {
		return err
	}

	existing, err := service.repo.GetByID(context, series.ID)
	if err != nil {
		return err
	}

	series.DateAdded = existing.DateAdded
	series.Books = existing.Books
	series.CompletedBooks = existing.CompletedBooks
	series.ReadingProgress = existing.ReadingProgress
	series.HasUpcoming = existing.HasUpcoming
	series.LastModified = time.Now().UTC()

	if err := service.repo.Update(context, series); err != nil {
		return err
	}

	service.series.Invalidate()
	service.logger.Info("series_updated", slog.String("series_id", series.ID))
	return nil
}

/*
DeleteSeries removes a series and cascades.

Description: One transaction clears every member book's back-reference,
deletes the series' upcoming releases and notifications, then the series
row. All four collection caches are stale afterwards and are invalidated
together.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - error: ErrNotFound or persistence errors
*/
func (service *Service) DeleteSeries(context context.Context, id string) error {
	if err := service.repo.Delete(context, id); err != nil {
		return err
	}

	service.series.Invalidate()
	service.related.Books.Invalidate()
	service.related.Releases.Invalidate()
	service.related.Notifications.Invalidate()

	service.logger.Warn("series_deleted", slog.String("series_id", id))
	return nil
}

/*
AddBookToSeries registers a book as a series member.

Description: Fails fast when either side is missing. A book already in a
different series switches over in the same transaction. Idempotent for a
book that is already a member.

Parameters:
  - context: context.Context
  - seriesID: string (UUID)
  - bookID: string (UUID)
  - position: *int (explicit slot; nil appends at the end)

Returns:
  - error: ErrNotFound or persistence errors
*/
func (service *Service) AddBookToSeries(context context.Context, seriesID, bookID string, position *int) error {
	if err := service.repo.AddBook(context, seriesID, bookID, position); err != nil {
		return err
	}

	service.series.Invalidate()
	service.related.Books.Invalidate()

	service.logger.Info("series_member_added",
		slog.String("series_id", seriesID),
		slog.String("book_id", bookID),
	)
	return nil
}

/*
RemoveBookFromSeries takes a book out of a series.

Description: The book keeps its row; it leaves the member list and the
custom order, loses the back-reference, and the derived progress is
recomputed.

Parameters:
  - context: context.Context
  - seriesID: string (UUID)
  - bookID: string (UUID)

Returns:
  - error: ErrNotFound or persistence errors
*/
func (service *Service) RemoveBookFromSeries(context context.Context, seriesID, bookID string) error {
	if err := service.repo.RemoveBook(context, seriesID, bookID); err != nil {
		return err
	}

	service.series.Invalidate()
	service.related.Books.Invalidate()

	service.logger.Info("series_member_removed",
		slog.String("series_id", seriesID),
		slog.String("book_id", bookID),
	)
	return nil
}

/*
RefreshProgress recomputes a series' derived completion counters and
returns the refreshed record.

Parameters:
  - context: context.Context
  - seriesID: string (UUID)

Returns:
  - *Series: The series with counters recomputed
  - error: ErrNotFound or persistence errors
*/
func (service *Service) RefreshProgress(context context.Context, seriesID string) (*Series, error) {
	if err := service.repo.RefreshProgress(context, seriesID); err != nil {
		return nil, err
	}

	service.series.Invalidate()
	service.logger.Info("series_progress_refreshed", slog.String("series_id", seriesID))

	return service.repo.GetByID(context, seriesID)
}

// # Validation

// normalizeEnums applies the lenient enum handling imported data relies
// on: blank reading order defaults, unknown status coerces to ongoing.
func normalizeEnums(series *Series) {
	if series.ReadingOrder == "" {
		series.ReadingOrder = OrderPublication
	}
	if !series.Status.IsValid() {
		series.Status = StatusOngoing
	}
}

func validateSeries(series *Series) error {
	validator := &validate.Validator{}

	validator.Required(FieldName, series.Name).MaxLen(FieldName, series.Name, 300)

	validator.OneOf(FieldReadingOrder, string(series.ReadingOrder),
		string(OrderPublication),
		string(OrderChronological),
		string(OrderCustom),
	)

	validator.Custom(FieldTotalBooks, series.TotalBooks < 0, "must not be negative")

	if series.CoverImageURL != nil {
		validator.URL(FieldCoverImageURL, *series.CoverImageURL)
	}

	return validator.Err()
}
