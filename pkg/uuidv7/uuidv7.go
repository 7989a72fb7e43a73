// Copyright (c) 2026 Shelfmark. All rights reserved.

// Package uuidv7 wraps google/uuid to generate time-ordered UUIDv7 values.
//
// # Why UUIDv7?
//
// It is the primary key type for every Shelfmark table. Time-sortable ids
// keep insertion order and creation order aligned, so "recently added"
// scans stay cheap even before the date_added index is consulted.
package uuidv7

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
//
// # Safety
//
// It panics only if the OS random source is unavailable (extremely rare).
// OS entropy failure is an unrecoverable system-level error, so a panic is
// the correct response.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuidv7: failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// Must generates a new UUIDv7 or panics.
//
// This is an alias for [New] kept for readability at call sites that follow
// Go's "Must" convention.
func Must() string {
	return New()
}
