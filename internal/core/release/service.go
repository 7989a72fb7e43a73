// Copyright (c) 2026 Shelfmark. All rights reserved.

package release

import (
	"context"
	"log/slog"
	"time"

	"github.com/LaMia-3/shelfmark/internal/core/book"
	"github.com/LaMia-3/shelfmark/internal/platform/alert"
	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/cache"
	"github.com/LaMia-3/shelfmark/internal/platform/fallback"
	"github.com/LaMia-3/shelfmark/internal/platform/validate"
	"github.com/LaMia-3/shelfmark/internal/search"
	"github.com/LaMia-3/shelfmark/pkg/pointer"
	"github.com/LaMia-3/shelfmark/pkg/uuidv7"
)

// snapshotName is the fallback snapshot key for the release collection.
const snapshotName = "releases"

// invalidator is the slice of the cache API the service needs from
// sibling collections.
type invalidator interface {
	Invalidate()
}

// RelatedCaches carries the sibling collection caches a release write can
// render stale: every mutation can flip a series' HasUpcoming flag, and
// promotion inserts a book.
type RelatedCaches struct {
	Books  invalidator
	Series invalidator
}

// # Service Layer

/*
Service is the caching storage facade for upcoming releases.

Reads follow the collection-cache contract shared by the other facades:
hits return the previous snapshot by reference, storage failures degrade
to the last fallback snapshot or empty. Writes validate, persist, then
invalidate the release cache plus the series cache (the HasUpcoming flag
lives there); promotion additionally refreshes the book projections.
*/
type Service struct {
	repo      Repository
	releases  *cache.Collection[*UpcomingBook]
	snapshots *fallback.Store
	alerts    *alert.Dispatcher
	index     *search.Index[*book.Book]
	related   RelatedCaches
	logger    *slog.Logger
}

// NewService constructs the release facade with its collaborators.
func NewService(
	repo Repository,
	releases *cache.Collection[*UpcomingBook],
	snapshots *fallback.Store,
	alerts *alert.Dispatcher,
	index *search.Index[*book.Book],
	related RelatedCaches,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		releases:  releases,
		snapshots: snapshots,
		alerts:    alerts,
		index:     index,
		related:   related,
		logger:    logger,
	}
}

// # Reads

// ListReleases returns every upcoming release, served from cache within
// the TTL. Storage failures degrade to the last snapshot (or empty).
func (service *Service) ListReleases(context context.Context) []*UpcomingBook {
	collection, err := service.releases.GetOrFetch(context, service.fetchAll)
	if err != nil {
		return service.degradedList(err)
	}
	return collection
}

// QueryReleases filters and paginates the cached collection in memory.
func (service *Service) QueryReleases(context context.Context, filter Filter, limit, offset int) ([]*UpcomingBook, int) {
	all := service.ListReleases(context)

	matched := make([]*UpcomingBook, 0, len(all))
	for _, candidate := range all {
		if filter.Match(candidate) {
			matched = append(matched, candidate)
		}
	}

	total := len(matched)
	if offset >= total {
		return []*UpcomingBook{}, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total
}

// GetRelease returns one release by id, scanning a valid cache before
// touching storage.
func (service *Service) GetRelease(context context.Context, id string) (*UpcomingBook, error) {
	if cached, ok := service.releases.Peek(); ok {
		for _, candidate := range cached {
			if candidate.ID == id {
				return candidate, nil
			}
		}
		return nil, apperr.NotFound("Release")
	}

	found, err := service.repo.GetByID(context, id)
	if err == nil {
		return found, nil
	}
	if !apperr.IsStorageUnavailable(err) {
		return nil, err
	}

	service.reportDegraded("release_get_degraded", err)
	for _, snapshot := range service.loadSnapshot() {
		if snapshot.ID == id {
			return snapshot, nil
		}
	}
	return nil, apperr.NotFound("Release")
}

// Due returns the tracked-series releases expected at or before the
// horizon, straight from storage. The notification generator is the only
// caller and handles failures itself, so this read does not degrade.
func (service *Service) Due(context context.Context, horizon time.Time) ([]*UpcomingBook, error) {
	return service.repo.Due(context, horizon)
}

func (service *Service) fetchAll(context context.Context) ([]*UpcomingBook, error) {
	collection, err := service.repo.List(context)
	if err != nil {
		return nil, err
	}
	service.snapshots.Save(snapshotName, collection)
	return collection, nil
}

func (service *Service) degradedList(cause error) []*UpcomingBook {
	service.reportDegraded("release_list_degraded", cause)
	return service.loadSnapshot()
}

func (service *Service) loadSnapshot() []*UpcomingBook {
	var collection []*UpcomingBook
	if err := service.snapshots.Load(snapshotName, &collection); err != nil {
		return []*UpcomingBook{}
	}
	return collection
}

func (service *Service) reportDegraded(event string, cause error) {
	service.logger.Error(event, slog.String("error", cause.Error()))
	service.alerts.Publish(alert.Alert{
		Severity: alert.SeverityError,
		Title:    "Upcoming releases temporarily unavailable",
		Message:  cause.Error(),
		Source:   snapshotName,
	})
}

// # Writes

/*
CreateRelease validates and persists a user-contributed release.

Description: Assigns identity and timestamps and marks the entry as
user-contributed so sourced refreshes leave it alone. A series reference
is verified and the series name denormalized during the write.

Parameters:
  - context: context.Context
  - upcoming: *UpcomingBook

Returns:
  - error: Validation, ErrNotFound (dangling series), or persistence errors
*/
func (service *Service) CreateRelease(context context.Context, upcoming *UpcomingBook) error {
	if err := validateRelease(upcoming); err != nil {
		return err
	}

	if upcoming.ID == "" {
		upcoming.ID = uuidv7.New()
	}
	now := time.Now().UTC()
	upcoming.DateAdded = now
	upcoming.LastModified = now
	upcoming.IsUserContributed = true

	if err := service.repo.Create(context, upcoming); err != nil {
		return err
	}

	service.invalidate()
	service.logger.Info("release_created",
		slog.String("release_id", upcoming.ID),
		slog.String("title", upcoming.Title),
	)
	return nil
}

/*
UpdateRelease replaces a release's fields.

Description: The original contribution flag and creation time survive;
the series name is re-denormalized against the (possibly new) series
reference.

Parameters:
  - context: context.Context
  - upcoming: *UpcomingBook (matched by ID)

Returns:
  - error: ErrNotFound, validation, or persistence errors
*/
func (service *Service) UpdateRelease(context context.Context, upcoming *UpcomingBook) error {
	if err := validateRelease(upcoming); err != nil {
		return err
	}

	existing, err := service.repo.GetByID(context, upcoming.ID)
	if err != nil {
		return err
	}
	upcoming.DateAdded = existing.DateAdded
	upcoming.IsUserContributed = existing.IsUserContributed
	upcoming.LastModified = time.Now().UTC()

	if err := service.repo.Update(context, upcoming); err != nil {
		return err
	}

	service.invalidate()
	service.logger.Info("release_updated", slog.String("release_id", upcoming.ID))
	return nil
}

/*
DeleteRelease removes a release.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - error: ErrNotFound or persistence errors
*/
func (service *Service) DeleteRelease(context context.Context, id string) error {
	if err := service.repo.Delete(context, id); err != nil {
		return err
	}

	service.invalidate()
	service.logger.Warn("release_deleted", slog.String("release_id", id))
	return nil
}

/*
RefreshSourced replaces every externally sourced entry with the supplied
batch.

Description: Each entry is validated, stamped, and forced to sourced (a
refresh cannot mint user-contributed entries); the store applies the
purge-and-insert in one transaction, so a bad entry rolls back the whole
batch and the previous sourced set survives.

Parameters:
  - context: context.Context
  - entries: []*UpcomingBook

Returns:
  - error: Validation, ErrNotFound (dangling series), or persistence errors
*/
func (service *Service) RefreshSourced(context context.Context, entries []*UpcomingBook) error {
	now := time.Now().UTC()
	for _, upcoming := range entries {
		if err := validateRelease(upcoming); err != nil {
			return err
		}
		if upcoming.ID == "" {
			upcoming.ID = uuidv7.New()
		}
		upcoming.DateAdded = now
		upcoming.LastModified = now
		upcoming.IsUserContributed = false
	}

	if err := service.repo.RefreshSourced(context, entries); err != nil {
		return err
	}

	service.invalidate()
	service.logger.Info("releases_refreshed", slog.Int("count", len(entries)))
	return nil
}

/*
Promote converts a release into a catalogued to-read book.

Description: One transaction inserts the book (joining the release's
series when set), deletes the release, and recomputes the series'
HasUpcoming flag. The new book enters the search index and the book,
series, and release caches are all invalidated.

Parameters:
  - context: context.Context
  - releaseID: string (UUID)

Returns:
  - *book.Book: The catalogued replacement
  - error: ErrNotFound or persistence errors
*/
func (service *Service) Promote(context context.Context, releaseID string) (*book.Book, error) {
	upcoming, err := service.repo.GetByID(context, releaseID)
	if err != nil {
		return nil, err
	}

	promoted := promotedBook(upcoming)
	if err := service.repo.Promote(context, releaseID, promoted); err != nil {
		return nil, err
	}

	service.index.Add(promoted)
	service.invalidate()
	service.related.Books.Invalidate()

	service.logger.Info("release_promoted",
		slog.String("release_id", releaseID),
		slog.String("book_id", promoted.ID),
		slog.String("title", promoted.Title),
	)
	return promoted, nil
}

// invalidate marks the release cache stale along with the series cache,
// whose HasUpcoming flags ride on release mutations.
func (service *Service) invalidate() {
	service.releases.Invalidate()
	service.related.Series.Invalidate()
}

// promotedBook maps a release onto the catalogued book that replaces it.
func promotedBook(upcoming *UpcomingBook) *book.Book {
	now := time.Now().UTC()
	return &book.Book{
		ID:           uuidv7.New(),
		Title:        upcoming.Title,
		Author:       pointer.Fallback(upcoming.Author, "Unknown"),
		Description:  upcoming.Synopsis,
		ThumbnailURL: upcoming.CoverImageURL,
		Status:       book.StatusToRead,
		SeriesID:     upcoming.SeriesID,
		DateAdded:    now,
		LastModified: now,
		SyncStatus:   "local",
	}
}

// # Validation

func validateRelease(upcoming *UpcomingBook) error {
	validator := &validate.Validator{}

	validator.Required(FieldTitle, upcoming.Title).MaxLen(FieldTitle, upcoming.Title, 500)

	if upcoming.Author != nil {
		validator.MaxLen(FieldAuthor, *upcoming.Author, 200)
	}
	if upcoming.SeriesID != nil {
		validator.UUID(FieldSeriesID, *upcoming.SeriesID)
	}
	if upcoming.PreOrderLink != nil {
		validator.URL(FieldPreOrderLink, *upcoming.PreOrderLink)
	}
	if upcoming.CoverImageURL != nil {
		validator.URL(FieldCoverImageURL, *upcoming.CoverImageURL)
	}

	return validator.Err()
}
