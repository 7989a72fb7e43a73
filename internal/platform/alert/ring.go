// Copyright (c) 2026 Shelfmark. All rights reserved.

package alert

import "sync"

// ring is a fixed-size circular buffer of alerts.
// Goroutine-safe for concurrent push and read operations.
type ring struct {
	mu    sync.Mutex
	buf   []Alert
	size  int
	head  int // next write position
	count int // number of valid entries (0..size)
}

// newRing creates a ring with the given capacity.
func newRing(size int) *ring {
	if size <= 0 {
		size = 64
	}
	return &ring{
		buf:  make([]Alert, size),
		size: size,
	}
}

// push adds an alert, overwriting the oldest if full.
func (r *ring) push(a Alert) {
	r.mu.Lock()
	r.buf[r.head] = a
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
	r.mu.Unlock()
}

// snapshot returns a copy of all alerts in chronological order (oldest first).
// The returned slice is safe to use without locks.
func (r *ring) snapshot() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}

	result := make([]Alert, r.count)
	if r.count < r.size {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.head:])
		copy(result[n:], r.buf[:r.head])
	}
	return result
}

// last returns the n most recent alerts in chronological order.
// If n exceeds the buffered count, all alerts are returned.
func (r *ring) last(n int) []Alert {
	if n <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}
	if n > r.count {
		n = r.count
	}

	result := make([]Alert, n)
	start := (r.head - n + r.size) % r.size
	if start+n <= r.size {
		copy(result, r.buf[start:start+n])
	} else {
		first := r.size - start
		copy(result, r.buf[start:])
		copy(result[first:], r.buf[:n-first])
	}
	return result
}

// length returns the number of buffered alerts.
func (r *ring) length() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
