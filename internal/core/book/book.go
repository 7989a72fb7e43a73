// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package book defines the central entity of the Shelfmark collection.

It manages the lifecycle of catalogued books: metadata, reading state,
series membership, and the searchable projection of all of it.

Core Responsibility:

  - Catalogue: identity, bibliographic metadata, and provenance of each book.
  - Reading state: status (ToRead through Completed), progress, and ratings.
  - Membership: the denormalized back-reference to a series, kept consistent
    with the series' own member list in the same transaction.

This package acts as the source of truth for book-related data models.
*/
package book

import (
	"strings"
	"time"

	"github.com/LaMia-3/shelfmark/internal/search"
	"github.com/LaMia-3/shelfmark/pkg/pointer"
)

// # Domain Enums

// Status represents where a book sits in the reading lifecycle.
type Status string

const (
	// StatusToRead marks a book that is owned but not yet started.
	StatusToRead Status = "to-read"

	// StatusReading marks a book currently in progress.
	StatusReading Status = "reading"

	// StatusCompleted marks a finished book.
	StatusCompleted Status = "completed"

	// StatusDNF marks a book abandoned before the end.
	StatusDNF Status = "dnf"

	// StatusOnHold marks a book paused with intent to resume.
	StatusOnHold Status = "on-hold"
)

// IsValid reports whether s is a recognised [Status] value.
func (s Status) IsValid() bool {
	switch s {
	case
		StatusToRead,
		StatusReading,
		StatusCompleted,
		StatusDNF,
		StatusOnHold:
		return true
	}
	return false
}

// # Core Entity

// Book is a single catalogued title in the collection.
type Book struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Genre         *string `json:"genre,omitempty"`
	Description   *string `json:"description,omitempty"`
	PublishedDate *string `json:"published_date,omitempty"` // free-form, as metadata sources supply it ("1965", "2021-09")
	PageCount     *int    `json:"page_count,omitempty"`
	ThumbnailURL  *string `json:"thumbnail_url,omitempty"`

	// Provenance of externally imported records.
	SourceID   *string `json:"source_id,omitempty"`
	SourceType *string `json:"source_type,omitempty"`

	// Reading state.
	Status        Status     `json:"status"`
	Progress      float64    `json:"progress"` // fraction 0..1
	StartedDate   *time.Time `json:"started_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"` // non-nil whenever Status is completed
	Rating        *int       `json:"rating,omitempty"`         // 1..5

	// SeriesID is a denormalized back-reference: the series' own ordered
	// member list is the authoritative record, and every mutation keeps
	// the two sides consistent in one transaction.
	SeriesID       *string `json:"series_id,omitempty"`
	SeriesPosition *int    `json:"series_position,omitempty"`

	Tags []string `json:"tags,omitempty"`

	DateAdded    time.Time `json:"date_added"`
	LastModified time.Time `json:"last_modified"`
	SyncStatus   string    `json:"sync_status"`
}

// # Filtering

// Filter holds the criteria for a filtered book list. Filtering runs over
// the cached collection, so every field here must be answerable from a
// [Book] alone.
type Filter struct {
	Status   []Status `json:"status,omitempty"`
	Author   string   `json:"author,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	SeriesID string   `json:"series_id,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Ratings  []int    `json:"ratings,omitempty"`
}

// Match reports whether b satisfies every criterion in the filter. Text
// criteria are case-insensitive substring matches.
func (f Filter) Match(b *Book) bool {
	if len(f.Status) > 0 && !containsStatus(f.Status, b.Status) {
		return false
	}
	if f.Author != "" && !containsFold(b.Author, f.Author) {
		return false
	}
	if f.Genre != "" && !containsFold(pointer.Val(b.Genre), f.Genre) {
		return false
	}
	if f.SeriesID != "" && pointer.Val(b.SeriesID) != f.SeriesID {
		return false
	}
	for _, tag := range f.Tags {
		if !containsTag(b.Tags, tag) {
			return false
		}
	}
	if len(f.Ratings) > 0 && (b.Rating == nil || !containsInt(f.Ratings, *b.Rating)) {
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

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func containsInt(values []int, value int) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// # Search Projection

// NewIndex returns the collection's search index, configured with the
// searchable fields. Multi-valued tags are flattened to one text blob;
// the tokenizer splits them back apart.
func NewIndex() *search.Index[*Book] {
	return search.NewIndex(
		func(b *Book) string { return b.ID },
		search.Field[*Book]{Name: FieldTitle, Extract: func(b *Book) string { return b.Title }},
		search.Field[*Book]{Name: FieldAuthor, Extract: func(b *Book) string { return b.Author }},
		search.Field[*Book]{Name: FieldGenre, Extract: func(b *Book) string { return pointer.Val(b.Genre) }},
		search.Field[*Book]{Name: FieldDescription, Extract: func(b *Book) string { return pointer.Val(b.Description) }},
		search.Field[*Book]{Name: FieldTags, Extract: func(b *Book) string { return strings.Join(b.Tags, " ") }},
	)
}

// # Field Identifiers

// Global field names for validation, search scoping, and query mapping.
const (
	FieldID             = "id"
	FieldTitle          = "title"
	FieldAuthor         = "author"
	FieldGenre          = "genre"
	FieldDescription    = "description"
	FieldPublishedDate  = "published_date"
	FieldPageCount      = "page_count"
	FieldThumbnailURL   = "thumbnail_url"
	FieldStatus         = "status"
	FieldProgress       = "progress"
	FieldRating         = "rating"
	FieldSeriesID       = "series_id"
	FieldSeriesPosition = "series_position"
	FieldTags           = "tags"
)
