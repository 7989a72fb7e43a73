// Copyright (c) 2026 Shelfmark. All rights reserved.

package alert_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaMia-3/shelfmark/internal/platform/alert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestDispatcher_PublishStampsAndRetains verifies that a published alert gets
a timestamp and default severity, and shows up in Recent.
*/
func TestDispatcher_PublishStampsAndRetains(t *testing.T) {
	dispatcher := alert.NewDispatcher(8, testLogger())

	dispatcher.Publish(alert.Alert{
		Title:   "database unreachable",
		Message: "open failed",
		Source:  "sqlite",
	})

	recent := dispatcher.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, alert.SeverityWarning, recent[0].Severity)
	assert.Equal(t, "database unreachable", recent[0].Title)
	assert.False(t, recent[0].Time.IsZero())
}

/*
TestDispatcher_RingOverwritesOldest publishes more alerts than the ring
holds and verifies only the newest survive, oldest first.
*/
func TestDispatcher_RingOverwritesOldest(t *testing.T) {
	dispatcher := alert.NewDispatcher(3, testLogger())

	titles := []string{"one", "two", "three", "four", "five"}
	for _, title := range titles {
		dispatcher.Publish(alert.Alert{Title: title, Time: time.Now()})
	}

	assert.Equal(t, 3, dispatcher.Len())

	snapshot := dispatcher.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "three", snapshot[0].Title)
	assert.Equal(t, "four", snapshot[1].Title)
	assert.Equal(t, "five", snapshot[2].Title)
}

/*
TestDispatcher_RecentReturnsTail asks for fewer alerts than retained and
expects the newest slice of them.
*/
func TestDispatcher_RecentReturnsTail(t *testing.T) {
	dispatcher := alert.NewDispatcher(8, testLogger())

	for _, title := range []string{"a", "b", "c", "d"} {
		dispatcher.Publish(alert.Alert{Title: title, Time: time.Now()})
	}

	recent := dispatcher.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Title)
	assert.Equal(t, "d", recent[1].Title)
}

/*
TestDispatcher_FansOutToSubscribers registers two subscribers and verifies
both receive every published alert.
*/
func TestDispatcher_FansOutToSubscribers(t *testing.T) {
	dispatcher := alert.NewDispatcher(8, testLogger())

	var wg sync.WaitGroup
	var mu sync.Mutex
	received := make(map[string]int)

	subscriber := func(a alert.Alert) {
		defer wg.Done()
		mu.Lock()
		received[a.Title]++
		mu.Unlock()
	}
	dispatcher.Subscribe(subscriber)
	dispatcher.Subscribe(subscriber)

	wg.Add(4) // 2 alerts x 2 subscribers
	dispatcher.Publish(alert.Alert{Title: "first"})
	dispatcher.Publish(alert.Alert{Title: "second"})
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, received["first"])
	assert.Equal(t, 2, received["second"])
}
