// Copyright (c) 2026 Shelfmark. All rights reserved.

package series

import "context"

// # Series Data Access

// Repository defines the data access contract for the series domain.
// Every membership operation is a single transaction that keeps the
// authoritative member list, the book back-references, and the derived
// progress consistent with each other.
type Repository interface {
	/*
		List returns every series, ordered by name.

		Parameters:
		  - context: context.Context

		Returns:
		  - []*Series: All series with member lists decoded
		  - error: Database retrieval failures
	*/
	List(context context.Context) ([]*Series, error)

	/*
		GetByID returns the series with the given id.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Series: The hydrated entity
		  - error: ErrNotFound if missing
	*/
	GetByID(context context.Context, id string) (*Series, error)

	/*
		Create persists a new series row.

		Parameters:
		  - context: context.Context
		  - series: *Series

		Returns:
		  - error: Storage or constraint failures
	*/
	Create(context context.Context, series *Series) error

	/*
		Update replaces a series' descriptive fields. The member list and
		the derived counters are not writable here; the custom order is
		reconciled against current membership inside the transaction.

		Parameters:
		  - context: context.Context
		  - series: *Series (matched by ID)

		Returns:
		  - error: ErrNotFound if missing, storage failures otherwise
	*/
	Update(context context.Context, series *Series) error

	/*
		Delete removes a series and everything hanging off it in one
		transaction: member books keep their rows but lose the
		back-reference and position, the series' upcoming releases and
		notifications are deleted, then the series row itself.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - error: ErrNotFound if missing
	*/
	Delete(context context.Context, id string) error

	/*
		AddBook registers a book as a member: appended to the ordered
		member list (idempotent when already present), back-reference and
		position set on the book row, derived progress recomputed. Both
		sides must exist.

		Parameters:
		  - context: context.Context
		  - seriesID: string (UUID)
		  - bookID: string (UUID)
		  - position: *int (explicit slot; nil appends at the end)

		Returns:
		  - error: ErrNotFound when either side is missing
	*/
	AddBook(context context.Context, seriesID, bookID string, position *int) error

	/*
		RemoveBook is the inverse of AddBook: the book id leaves the
		member list and the custom order, the back-reference clears, and
		the derived progress is recomputed.

		Parameters:
		  - context: context.Context
		  - seriesID: string (UUID)
		  - bookID: string (UUID)

		Returns:
		  - error: ErrNotFound when the series is missing
	*/
	RemoveBook(context context.Context, seriesID, bookID string) error

	/*
		RefreshProgress recomputes CompletedBooks and ReadingProgress from
		the current member statuses and persists them. Idempotent.

		Parameters:
		  - context: context.Context
		  - seriesID: string (UUID)

		Returns:
		  - error: ErrNotFound if missing
	*/
	RefreshProgress(context context.Context, seriesID string) error
}
