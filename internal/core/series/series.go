// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package series groups books into ordered reading sequences.

A series owns its membership: the ordered Books list on the series row is
the authoritative record, and each member book's SeriesID/SeriesPosition
is a denormalized back-reference kept consistent inside the same storage
transaction as every membership change.
*/
package series

import (
	"strings"
	"time"
)

// # Domain Enums

// ReadingOrder selects how the member list should be presented.
type ReadingOrder string

const (
	// OrderPublication follows the order books were published.
	OrderPublication ReadingOrder = "publication"

	// OrderChronological follows in-world chronology.
	OrderChronological ReadingOrder = "chronological"

	// OrderCustom follows the user-arranged CustomOrder permutation.
	OrderCustom ReadingOrder = "custom"
)

// IsValid reports whether o is a recognised [ReadingOrder] value.
func (o ReadingOrder) IsValid() bool {
	switch o {
	case OrderPublication, OrderChronological, OrderCustom:
		return true
	}
	return false
}

// Status represents the publication state of the series itself.
type Status string

const (
	// StatusOngoing marks a series with more volumes expected.
	StatusOngoing Status = "ongoing"

	// StatusCompleted marks a finished series.
	StatusCompleted Status = "completed"

	// StatusCancelled marks a series abandoned by its publisher.
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a recognised [Status] value.
func (s Status) IsValid() bool {
	switch s {
	case StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// # Core Entity

// Series is an ordered collection of books under one name.
type Series struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Author        *string `json:"author,omitempty"`
	Description   *string `json:"description,omitempty"`
	CoverImageURL *string `json:"cover_image_url,omitempty"`

	// Books is the ordered, authoritative member list. Membership changes
	// go through the member operations or book writes, never through a
	// plain series update.
	Books []string `json:"books"`

	// TotalBooks is the expected length of the series as published; it may
	// exceed the owned member count.
	TotalBooks      int     `json:"total_books"`
	CompletedBooks  int     `json:"completed_books"`  // derived from member statuses
	ReadingProgress float64 `json:"reading_progress"` // derived, completed/owned

	ReadingOrder ReadingOrder `json:"reading_order"`
	CustomOrder  []string     `json:"custom_order,omitempty"` // subset of Books, user-arranged

	Status      Status `json:"status"`
	IsTracked   bool   `json:"is_tracked"`   // gates release notifications
	HasUpcoming bool   `json:"has_upcoming"` // derived from upcoming releases

	DateAdded    time.Time `json:"date_added"`
	LastModified time.Time `json:"last_modified"`
}

// # Filtering

// Filter holds the criteria for a filtered series list, answerable from a
// [Series] alone.
type Filter struct {
	Name    string   `json:"name,omitempty"`
	Status  []Status `json:"status,omitempty"`
	Tracked *bool    `json:"tracked,omitempty"`
}

// Match reports whether s satisfies every criterion in the filter.
func (f Filter) Match(s *Series) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(f.Name)) {
		return false
	}
	if len(f.Status) > 0 && !containsStatus(f.Status, s.Status) {
		return false
	}
	if f.Tracked != nil && s.IsTracked != *f.Tracked {
		return false
	}
	return true
}

func containsStatus(statuses []Status, status Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// # Field Identifiers

// Global field names for validation and query mapping.
const (
	FieldID            = "id"
	FieldName          = "name"
	FieldAuthor        = "author"
	FieldDescription   = "description"
	FieldCoverImageURL = "cover_image_url"
	FieldTotalBooks    = "total_books"
	FieldReadingOrder  = "reading_order"
	FieldCustomOrder   = "custom_order"
	FieldStatus        = "status"
	FieldIsTracked     = "is_tracked"
)
