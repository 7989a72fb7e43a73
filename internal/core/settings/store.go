// Copyright (c) 2026 Shelfmark. All rights reserved.

package settings

import "context"

// # Settings Data Access

// Repository defines the data access contract for the preference row.
type Repository interface {
	/*
		Get returns the stored preferences, or the defaults when the row
		has never been written.

		Parameters:
		  - context: context.Context

		Returns:
		  - *Settings: The current preferences
		  - error: Database retrieval failures
	*/
	Get(context context.Context) (*Settings, error)

	/*
		Put upserts the single preference row.

		Parameters:
		  - context: context.Context
		  - settings: *Settings

		Returns:
		  - error: Storage failures
	*/
	Put(context context.Context, settings *Settings) error
}
