// Copyright (c) 2026 Shelfmark. All rights reserved.

package notification

import "context"

// # Notification Data Access

// Repository defines the data access contract for the feed.
type Repository interface {
	/*
		List returns every notification, newest first.

		Parameters:
		  - context: context.Context

		Returns:
		  - []*Notification: The whole feed
		  - error: Database retrieval failures
	*/
	List(context context.Context) ([]*Notification, error)

	/*
		UnreadCount returns how many entries are unread.

		Parameters:
		  - context: context.Context

		Returns:
		  - int: Unread entries
		  - error: Database retrieval failures
	*/
	UnreadCount(context context.Context) (int, error)

	/*
		Create persists a new entry.

		Parameters:
		  - context: context.Context
		  - notification: *Notification

		Returns:
		  - error: Storage or constraint failures
	*/
	Create(context context.Context, notification *Notification) error

	/*
		ExistsForRelease reports whether any entry already references the
		release, read or not. The generator's dedup check.

		Parameters:
		  - context: context.Context
		  - releaseID: string (UUID)

		Returns:
		  - bool: An entry exists
		  - error: Database retrieval failures
	*/
	ExistsForRelease(context context.Context, releaseID string) (bool, error)

	/*
		MarkRead flags one entry as read. Idempotent.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - error: ErrNotFound if missing
	*/
	MarkRead(context context.Context, id string) error

	/*
		MarkAllRead flags every entry as read.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Storage failures
	*/
	MarkAllRead(context context.Context) error

	/*
		Delete dismisses one entry.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - error: ErrNotFound if missing
	*/
	Delete(context context.Context, id string) error

	/*
		ClearAll empties the feed.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Storage failures
	*/
	ClearAll(context context.Context) error
}
