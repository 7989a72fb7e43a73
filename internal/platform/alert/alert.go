// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package alert carries background storage problems to whoever wants to hear
about them without coupling the storage core to any delivery surface.

# Why not just return errors?

Read paths degrade instead of failing: when the database goes away, a list
endpoint still answers from its fallback snapshot. The error that caused the
degradation would vanish silently without a side channel. Publishing an
alert keeps the failure observable — it is logged, buffered for the
readiness endpoint, and fanned out to subscribers (the notification service
persists storage alerts as system notifications, best effort).

# Delivery

Fan-out is asynchronous: a slow subscriber can never block the read path
that raised the alert. No delivery guarantee beyond the ring buffer's
retention.
*/
package alert

import (
	"log/slog"
	"sync"
	"time"
)

// Severity classifies how bad an alert is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Alert is one background storage event.
type Alert struct {
	Severity Severity  `json:"severity"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Source   string    `json:"source"`
	Time     time.Time `json:"time"`
}

// Handler consumes published alerts. Handlers run on their own goroutine
// per alert and must be safe for concurrent use.
type Handler func(Alert)

// Dispatcher fans alerts out to subscribers and retains the most recent
// ones for diagnostics.
type Dispatcher struct {
	logger *slog.Logger
	ring   *ring

	mu   sync.RWMutex
	subs []Handler
}

// NewDispatcher creates a dispatcher retaining up to capacity alerts.
func NewDispatcher(capacity int, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		ring:   newRing(capacity),
	}
}

// Subscribe registers a handler for all future alerts.
//
// Subscription is permanent: the set of interested components is fixed at
// startup wiring, so there is no unsubscribe.
func (d *Dispatcher) Subscribe(handler Handler) {
	d.mu.Lock()
	d.subs = append(d.subs, handler)
	d.mu.Unlock()
}

// Publish records the alert and delivers it to every subscriber.
//
// A zero Time is stamped with the current time. Publish never blocks on
// subscribers and never fails.
func (d *Dispatcher) Publish(a Alert) {
	if a.Time.IsZero() {
		a.Time = time.Now().UTC()
	}
	if a.Severity == "" {
		a.Severity = SeverityWarning
	}

	d.ring.push(a)

	d.logger.Warn("storage_alert",
		slog.String("severity", string(a.Severity)),
		slog.String("title", a.Title),
		slog.String("message", a.Message),
		slog.String("source", a.Source),
	)

	d.mu.RLock()
	subs := make([]Handler, len(d.subs))
	copy(subs, d.subs)
	d.mu.RUnlock()

	for _, handler := range subs {
		go handler(a)
	}
}

// Recent returns the n most recent alerts, oldest first.
func (d *Dispatcher) Recent(n int) []Alert {
	return d.ring.last(n)
}

// Snapshot returns all retained alerts, oldest first.
func (d *Dispatcher) Snapshot() []Alert {
	return d.ring.snapshot()
}

// Len returns the number of retained alerts.
func (d *Dispatcher) Len() int {
	return d.ring.length()
}
