// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package cache provides the short-lived, per-collection read cache that sits
between the entity services and the embedded database.

# Model

Each entity collection (books, series, releases, notifications, settings)
owns one [Collection]. A cached snapshot is trusted while it is younger than
the TTL and has not been explicitly invalidated; any write to a collection
invalidates its snapshot rather than patching it in place, so the next read
is always authoritative.

# Identity

A cache hit returns the same slice that the previous read returned — no
copying, no re-fetch. Callers must treat cached data as read-only.

# Reset

The [Registry] tracks every collection and exposes InvalidateAll for
whole-library operations (import, restore). The dependency direction is
explicit: whoever resets storage calls the registry, rather than the cache
listening for reset events.
*/
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/LaMia-3/shelfmark/internal/platform/constants"
)

// Collection holds one entity collection's cached snapshot.
type Collection[T any] struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	mu          sync.Mutex
	data        []T
	fetchedAt   time.Time
	invalidated bool
}

// NewCollection creates a collection cache and registers it with the
// registry. A non-positive ttl falls back to the platform default.
func NewCollection[T any](registry *Registry, name string, ttl time.Duration) *Collection[T] {
	return NewCollectionWithClock[T](registry, name, ttl, time.Now)
}

// NewCollectionWithClock is [NewCollection] with an injectable clock.
// Tests use it to step through TTL expiry without sleeping.
func NewCollectionWithClock[T any](registry *Registry, name string, ttl time.Duration, now func() time.Time) *Collection[T] {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}

	collection := &Collection[T]{
		name: name,
		ttl:  ttl,
		now:  now,
	}

	if registry != nil {
		registry.register(collection)
	}

	return collection
}

// Name returns the collection name used in logs and the registry.
func (c *Collection[T]) Name() string { return c.name }

// GetOrFetch returns the cached snapshot when valid, otherwise calls fetch,
// stores its result, and returns it.
//
// A fetch failure leaves the cache untouched: a stale-but-invalidated entry
// is never resurrected and the error propagates to the caller.
func (c *Collection[T]) GetOrFetch(ctx context.Context, fetch func(ctx context.Context) ([]T, error)) ([]T, error) {
	c.mu.Lock()
	if c.validLocked() {
		data := c.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	// Concurrent misses may fetch in parallel; the last writer wins. The
	// database serializes the underlying reads, and both results are
	// equally fresh at this TTL granularity.
	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.data = data
	c.fetchedAt = c.now()
	c.invalidated = false
	c.mu.Unlock()

	return data, nil
}

// Peek returns the cached snapshot and true only when it is currently
// valid. It never triggers a fetch, which makes it the right primitive for
// single-record lookups that prefer a cheap in-memory scan.
func (c *Collection[T]) Peek() ([]T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validLocked() {
		return nil, false
	}
	return c.data, true
}

// Invalidate marks the snapshot stale. The data stays in memory until the
// next successful fetch replaces it, but no reader will see it again.
func (c *Collection[T]) Invalidate() {
	c.mu.Lock()
	c.invalidated = true
	c.mu.Unlock()
}

// validLocked reports snapshot validity. Callers must hold c.mu.
func (c *Collection[T]) validLocked() bool {
	return c.data != nil &&
		!c.invalidated &&
		c.now().Sub(c.fetchedAt) < c.ttl
}

// # Registry

// invalidator is the registry's view of a collection: just enough to reset it.
type invalidator interface {
	Name() string
	Invalidate()
}

// Registry tracks every collection cache in the process.
type Registry struct {
	mu          sync.Mutex
	collections []invalidator
}

// NewRegistry creates an empty cache registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// register adds a collection. Called by the collection constructors.
func (r *Registry) register(c invalidator) {
	r.mu.Lock()
	r.collections = append(r.collections, c)
	r.mu.Unlock()
}

// InvalidateAll marks every registered collection stale.
//
// This is the explicit replacement for a broadcast "storage reset" event:
// import/restore flows call it once after they finish rewriting the
// database.
func (r *Registry) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, collection := range r.collections {
		collection.Invalidate()
	}
}

// Names lists the registered collection names, primarily for diagnostics.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.collections))
	for _, collection := range r.collections {
		names = append(names, collection.Name())
	}
	return names
}
