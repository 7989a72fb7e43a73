// Copyright (c) 2026 Shelfmark. All rights reserved.

package book

import "context"

// # Book Data Access

// Repository defines the data access contract for the book domain.
type Repository interface {
	/*
		List returns every book in the collection, newest first.

		Parameters:
		  - context: context.Context

		Returns:
		  - []*Book: All catalogued books with tags attached
		  - error: Database retrieval failures
	*/
	List(context context.Context) ([]*Book, error)

	/*
		GetByID returns the book with the given id.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Book: The hydrated entity
		  - error: ErrNotFound if missing
	*/
	GetByID(context context.Context, id string) (*Book, error)

	/*
		Create persists a new book. When the book carries a SeriesID the
		same transaction appends it to that series' member list and
		recomputes the series' derived progress; a SeriesID referencing
		no series fails fast.

		Parameters:
		  - context: context.Context
		  - book: *Book

		Returns:
		  - error: Storage or constraint failures
	*/
	Create(context context.Context, book *Book) error

	/*
		Update replaces an existing book's stored fields. Series
		membership follows the back-reference in the same transaction:
		joining, leaving, or switching series adjusts the affected
		member lists and their derived progress.

		Parameters:
		  - context: context.Context
		  - book: *Book (full record, matched by ID)

		Returns:
		  - error: ErrNotFound if missing, storage failures otherwise
	*/
	Update(context context.Context, book *Book) error

	/*
		Delete removes a book. If it belongs to a series, the same
		transaction drops it from the member list and custom order and
		recomputes the series' derived progress.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - error: ErrNotFound if missing
	*/
	Delete(context context.Context, id string) error
}
