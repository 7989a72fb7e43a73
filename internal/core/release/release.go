// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package release tracks upcoming books before they exist in the collection.

An upcoming release is a lightweight pre-catalogue record: enough metadata
to show what is coming, when, and for which series. Entries arrive two
ways — contributed by the user, or applied in bulk from an external
metadata refresh — and leave by promotion into a real catalogued book,
manual removal, or the owning series' delete cascade.

Core Responsibility:

  - Pre-catalogue records: title, expected date, pre-order and cover links.
  - Sourced vs user-contributed: refreshes replace sourced entries wholesale
    while user-contributed ones survive.
  - Promotion: converting a release into a to-read book in one transaction.
*/
package release

import (
	"strings"
	"time"

	"github.com/LaMia-3/shelfmark/pkg/pointer"
)

// # Core Entity

// UpcomingBook is a single tracked release that has not been published or
// catalogued yet.
type UpcomingBook struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Author *string `json:"author,omitempty"`

	// SeriesName is denormalized from the owning series so release lists
	// render without a join; the series row stays authoritative.
	SeriesID   *string `json:"series_id,omitempty"`
	SeriesName *string `json:"series_name,omitempty"`

	// ExpectedReleaseDate is nil when the publisher has not announced one.
	ExpectedReleaseDate *time.Time `json:"expected_release_date,omitempty"`

	PreOrderLink  *string `json:"pre_order_link,omitempty"`
	Synopsis      *string `json:"synopsis,omitempty"`
	CoverImageURL *string `json:"cover_image_url,omitempty"`

	// IsUserContributed marks entries the user typed in by hand; sourced
	// refreshes never touch them.
	IsUserContributed bool `json:"is_user_contributed"`

	DateAdded    time.Time `json:"date_added"`
	LastModified time.Time `json:"last_modified"`
}

// # Filtering

// Filter holds the criteria for a filtered release list, answerable from
// an [UpcomingBook] alone so it can run over the cached collection.
type Filter struct {
	SeriesID        string `json:"series_id,omitempty"`
	Title           string `json:"title,omitempty"`
	UserContributed *bool  `json:"user_contributed,omitempty"`
}

// Match reports whether u satisfies every criterion in the filter.
func (f Filter) Match(u *UpcomingBook) bool {
	if f.SeriesID != "" && pointer.Val(u.SeriesID) != f.SeriesID {
		return false
	}
	if f.Title != "" && !strings.Contains(strings.ToLower(u.Title), strings.ToLower(f.Title)) {
		return false
	}
	if f.UserContributed != nil && u.IsUserContributed != *f.UserContributed {
		return false
	}
	return true
}

// # Field Identifiers

const (
	FieldID                  = "id"
	FieldTitle               = "title"
	FieldAuthor              = "author"
	FieldSeriesID            = "series_id"
	FieldExpectedReleaseDate = "expected_release_date"
	FieldPreOrderLink        = "pre_order_link"
	FieldCoverImageURL       = "cover_image_url"
)
