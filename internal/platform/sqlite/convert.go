// Copyright (c) 2026 Shelfmark. All rights reserved.

package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// # Column Conversions
//
// SQLite has no native timestamp type; every time column stores UTC
// RFC 3339 text at second precision. The fixed width keeps lexicographic
// ORDER BY chronological, which the date_added and expected_release_date
// indexes rely on.

// TimeToText formats t for storage in a TEXT column.
func TimeToText(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// TextToTime parses a stored timestamp.
func TextToTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time column %q: %w", s, err)
	}
	return t, nil
}

// NullTimeToText converts an optional timestamp for binding.
func NullTimeToText(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: TimeToText(*t), Valid: true}
}

// TimePtr converts a scanned nullable timestamp back to a pointer.
func TimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := TextToTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// NullText converts an optional string for binding.
func NullText(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// TextPtr converts a scanned nullable string back to a pointer.
func TextPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// NullInt converts an optional int for binding.
func NullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// IntPtr converts a scanned nullable integer back to a pointer.
func IntPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}
