// Copyright (c) 2026 Shelfmark. All rights reserved.

package release

import (
	"context"
	"time"

	"github.com/LaMia-3/shelfmark/internal/core/book"
)

// # Release Data Access

// Repository defines the data access contract for upcoming releases.
// Operations that touch a series keep its derived HasUpcoming flag in
// step inside the same transaction.
type Repository interface {
	/*
		List returns every upcoming release, soonest expected date first;
		entries without a date sort last, then by title.

		Parameters:
		  - context: context.Context

		Returns:
		  - []*UpcomingBook: All tracked releases
		  - error: Database retrieval failures
	*/
	List(context context.Context) ([]*UpcomingBook, error)

	/*
		GetByID returns the release with the given id.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *UpcomingBook: The hydrated entity
		  - error: ErrNotFound if missing
	*/
	GetByID(context context.Context, id string) (*UpcomingBook, error)

	/*
		Create persists a new release. A series reference must point at an
		existing series; its name is denormalized onto the entry and its
		HasUpcoming flag raised, all in one transaction.

		Parameters:
		  - context: context.Context
		  - upcoming: *UpcomingBook

		Returns:
		  - error: ErrNotFound for a dangling series reference
	*/
	Create(context context.Context, upcoming *UpcomingBook) error

	/*
		Update replaces a release's fields. Moving between series keeps the
		HasUpcoming flag right on both the previous and next series.

		Parameters:
		  - context: context.Context
		  - upcoming: *UpcomingBook (matched by ID)

		Returns:
		  - error: ErrNotFound if missing or for a dangling series reference
	*/
	Update(context context.Context, upcoming *UpcomingBook) error

	/*
		Delete removes a release and lowers the owning series' HasUpcoming
		flag when this was its last one.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - error: ErrNotFound if missing
	*/
	Delete(context context.Context, id string) error

	/*
		RefreshSourced replaces every externally sourced entry with the
		supplied batch in one transaction. User-contributed entries are
		untouched; all series HasUpcoming flags are recomputed afterwards.

		Parameters:
		  - context: context.Context
		  - entries: []*UpcomingBook (fully stamped, sourced entries)

		Returns:
		  - error: ErrNotFound for a dangling series reference; the whole
		    batch rolls back
	*/
	RefreshSourced(context context.Context, entries []*UpcomingBook) error

	/*
		Promote atomically converts a release into the given catalogued
		book: the book row is inserted (joining the release's series when
		set), the release row deleted, and HasUpcoming recomputed.

		Parameters:
		  - context: context.Context
		  - releaseID: string (UUID of the release being consumed)
		  - promoted: *book.Book (the fully stamped replacement)

		Returns:
		  - error: ErrNotFound when the release vanished underneath
	*/
	Promote(context context.Context, releaseID string, promoted *book.Book) error

	/*
		Due returns the releases of tracked series whose expected date
		falls at or before the horizon. Entries without a date never come
		due.

		Parameters:
		  - context: context.Context
		  - horizon: time.Time

		Returns:
		  - []*UpcomingBook: Releases worth notifying about
		  - error: Database retrieval failures
	*/
	Due(context context.Context, horizon time.Time) ([]*UpcomingBook, error)
}
