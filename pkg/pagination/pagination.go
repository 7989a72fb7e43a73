// Copyright (c) 2026 Shelfmark. All rights reserved.

// Package pagination carries page-based navigation between list endpoints
// and the response envelope: Params is what a request asked for, Meta is
// what the response reports back.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultLimit is the page size when the request names none.
	DefaultLimit = 25
	// MaxLimit is the upper bound for items per page. A personal library is
	// small, but bulk-export clients still should not ask for everything in
	// one page.
	MaxLimit = 200
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
)

// Params holds the parsed page and limit from a request's query string.
type Params struct {
	Page  int
	Limit int
}

// Offset converts the 1-indexed page into a row offset for SQL and
// in-memory slicing.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination block of a list response envelope.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta builds the metadata for one page of a total-sized collection.
func NewMeta(page, limit, total int) Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// FromRequest reads "page" and "limit" from the query string. Anything
// missing, malformed, non-positive, or past [MaxLimit] lands on the
// defaults rather than an error: a bad pagination request is not worth a
// 400.
func FromRequest(request *http.Request) Params {
	params := Params{Page: DefaultPage, Limit: DefaultLimit}
	queryParams := request.URL.Query()

	if page, err := strconv.Atoi(queryParams.Get("page")); err == nil && page >= 1 {
		params.Page = page
	}
	if limit, err := strconv.Atoi(queryParams.Get("limit")); err == nil && limit >= 1 && limit <= MaxLimit {
		params.Limit = limit
	}

	return params
}
