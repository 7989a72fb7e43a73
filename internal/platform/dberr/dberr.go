// Copyright (c) 2026 Shelfmark. All rights reserved.

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"

	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
)

// sqliteConstraint is the primary SQLITE_CONSTRAINT result code. Extended
// codes (unique, foreign key, check) carry it in their low byte.
const sqliteConstraint = 19

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Already classified (e.g. STORAGE_UNAVAILABLE from the connection
	// layer) passes through untouched.
	if apperr.IsAppError(err) {
		return err
	}

	// 2. Not Found mapping
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	// 3. Constraint violations (unique, foreign key, check) become conflicts.
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqliteConstraint {
		return apperr.Conflict("The operation conflicts with existing data")
	}

	// 4. Unknown query errors become Internal Server Errors
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}
