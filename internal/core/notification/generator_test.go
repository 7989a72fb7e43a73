// Copyright (c) 2026 Shelfmark. All rights reserved.

package notification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaMia-3/shelfmark/internal/core/notification"
	"github.com/LaMia-3/shelfmark/internal/core/release"
	"github.com/LaMia-3/shelfmark/internal/core/settings"
	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
)

// releaseSourceStub hands the notifier a fixed due list and records the
// horizons it was asked about.
type releaseSourceStub struct {
	mu       sync.Mutex
	due      []*release.UpcomingBook
	fail     bool
	horizons []time.Time
}

func (stub *releaseSourceStub) Due(_ context.Context, horizon time.Time) ([]*release.UpcomingBook, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()

	stub.horizons = append(stub.horizons, horizon)
	if stub.fail {
		return nil, apperr.StorageUnavailable(errors.New("database file missing"))
	}
	return stub.due, nil
}

func (stub *releaseSourceStub) calls() int {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return len(stub.horizons)
}

type settingsSourceStub struct {
	current *settings.Settings
}

func (stub *settingsSourceStub) Get(context.Context) *settings.Settings {
	return stub.current
}

func newNotifier(
	t *testing.T,
	repo *notificationRepoStub,
	releases *releaseSourceStub,
	preferences *settingsSourceStub,
	interval time.Duration,
) *notification.Notifier {
	t.Helper()

	service, _ := newNotificationService(t, repo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return notification.NewNotifier(service, releases, preferences, interval, 30, logger)
}

func dueRelease(id, title string) *release.UpcomingBook {
	date := time.Now().UTC().Truncate(time.Second).AddDate(0, 0, 7)
	return &release.UpcomingBook{
		ID:                  id,
		Title:               title,
		Author:              strPtr("Iain M. Banks"),
		SeriesID:            strPtr("44444444-4444-7444-8444-444444444444"),
		SeriesName:          strPtr("Culture"),
		ExpectedReleaseDate: &date,
	}
}

/*
TestNotifier_Sweep_FilesOneNotificationPerRelease verifies the sweep
creates release entries with the links filled in, and that a second
sweep is a no-op.
*/
func TestNotifier_Sweep_FilesOneNotificationPerRelease(t *testing.T) {
	repo := newNotificationRepoStub()
	dateless := dueRelease("33333333-3333-7333-8333-333333333333", "Untitled Sequel")
	dateless.ExpectedReleaseDate = nil
	releases := &releaseSourceStub{due: []*release.UpcomingBook{
		dueRelease("11111111-1111-7111-8111-111111111111", "The Next Culture Novel"),
		dueRelease("22222222-2222-7222-8222-222222222222", "Another Culture Novel"),
		dateless,
	}}
	preferences := &settingsSourceStub{current: settings.Defaults()}
	notifier := newNotifier(t, repo, releases, preferences, time.Hour)
	ctx := context.Background()

	assert.Equal(t, 3, notifier.Sweep(ctx))
	require.Equal(t, 3, repo.count())

	repo.mu.Lock()
	var first *notification.Notification
	for _, item := range repo.items {
		if item.ReleaseID != nil && *item.ReleaseID == "11111111-1111-7111-8111-111111111111" {
			first = item
		}
	}
	repo.mu.Unlock()
	require.NotNil(t, first)

	assert.Equal(t, notification.TypeRelease, first.Type)
	assert.Equal(t, "New in Culture", first.Title)
	assert.Contains(t, first.Message, "The Next Culture Novel by Iain M. Banks is expected on")
	assert.Equal(t, "44444444-4444-7444-8444-444444444444", *first.SeriesID)
	assert.Equal(t, "/releases/11111111-1111-7111-8111-111111111111", *first.ActionURL)

	repo.mu.Lock()
	var soon *notification.Notification
	for _, item := range repo.items {
		if item.ReleaseID != nil && *item.ReleaseID == "33333333-3333-7333-8333-333333333333" {
			soon = item
		}
	}
	repo.mu.Unlock()
	require.NotNil(t, soon)
	assert.Contains(t, soon.Message, "is expected soon")

	assert.Zero(t, notifier.Sweep(ctx), "a second sweep files nothing new")
	assert.Equal(t, 3, repo.count())
}

func TestNotifier_Sweep_RespectsDisabledSetting(t *testing.T) {
	repo := newNotificationRepoStub()
	releases := &releaseSourceStub{due: []*release.UpcomingBook{
		dueRelease("11111111-1111-7111-8111-111111111111", "The Next Culture Novel"),
	}}
	muted := settings.Defaults()
	muted.NotificationsEnabled = false
	notifier := newNotifier(t, repo, releases, &settingsSourceStub{current: muted}, time.Hour)

	assert.Zero(t, notifier.Sweep(context.Background()))
	assert.Zero(t, releases.calls(), "a muted feed never queries releases")
	assert.Zero(t, repo.count())
}

/*
TestNotifier_Sweep_UsesSettingsWindow checks the horizon comes from the
runtime setting, with the constructor fallback guarding a zero window.
*/
func TestNotifier_Sweep_UsesSettingsWindow(t *testing.T) {
	repo := newNotificationRepoStub()
	releases := &releaseSourceStub{}
	preferences := &settingsSourceStub{current: settings.Defaults()}
	preferences.current.ReleaseWindowDays = 7
	notifier := newNotifier(t, repo, releases, preferences, time.Hour)
	ctx := context.Background()

	notifier.Sweep(ctx)
	require.Equal(t, 1, releases.calls())
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 7), releases.horizons[0], time.Minute)

	preferences.current.ReleaseWindowDays = 0
	notifier.Sweep(ctx)
	require.Equal(t, 2, releases.calls())
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), releases.horizons[1], time.Minute,
		"a zero window falls back to the configured days")
}

func TestNotifier_Sweep_SurvivesSourceFailure(t *testing.T) {
	repo := newNotificationRepoStub()
	releases := &releaseSourceStub{fail: true}
	notifier := newNotifier(t, repo, releases, &settingsSourceStub{current: settings.Defaults()}, time.Hour)

	assert.Zero(t, notifier.Sweep(context.Background()))
	assert.Zero(t, repo.count())
}

func TestNotifier_Run_StopsOnCancel(t *testing.T) {
	repo := newNotificationRepoStub()
	releases := &releaseSourceStub{due: []*release.UpcomingBook{
		dueRelease("11111111-1111-7111-8111-111111111111", "The Next Culture Novel"),
	}}
	notifier := newNotifier(t, repo, releases, &settingsSourceStub{current: settings.Defaults()}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		notifier.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return repo.count() == 1 },
		time.Second, 5*time.Millisecond, "the first sweep runs immediately")
	assert.Eventually(t, func() bool { return releases.calls() >= 2 },
		time.Second, 5*time.Millisecond, "ticks keep sweeping")
	assert.Equal(t, 1, repo.count(), "dedup holds across ticks")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notifier did not stop on cancel")
	}
}
