// Copyright (c) 2026 Shelfmark. All rights reserved.

package settings_test

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

	"github.com/LaMia-3/shelfmark/internal/core/settings"
	"github.com/LaMia-3/shelfmark/internal/platform/alert"
	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/cache"
	"github.com/LaMia-3/shelfmark/internal/platform/fallback"
)

// settingsRepoStub is an in-memory Repository with a fail switch.
type settingsRepoStub struct {
	mu      sync.Mutex
	current *settings.Settings
	fail    bool
	puts    int
}

func (stub *settingsRepoStub) Get(context.Context) (*settings.Settings, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()

	if stub.fail {
		return nil, apperr.StorageUnavailable(errors.New("database file missing"))
	}
	if stub.current == nil {
		return settings.Defaults(), nil
	}
	return stub.current, nil
}

func (stub *settingsRepoStub) Put(_ context.Context, next *settings.Settings) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()

	if stub.fail {
		return apperr.StorageUnavailable(errors.New("database file missing"))
	}
	stub.current = next
	stub.puts++
	return nil
}

type settingsServiceDeps struct {
	repo       *settingsRepoStub
	collection *cache.Collection[*settings.Settings]
	alerts     *alert.Dispatcher
}

func newSettingsService(t *testing.T, repo *settingsRepoStub) (*settings.Service, settingsServiceDeps) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := settingsServiceDeps{
		repo:       repo,
		collection: cache.NewCollection[*settings.Settings](nil, "settings", time.Minute),
		alerts:     alert.NewDispatcher(8, logger),
	}

	service := settings.NewService(
		repo,
		deps.collection,
		fallback.NewStore(t.TempDir(), logger),
		deps.alerts,
		logger,
	)
	return service, deps
}

/*
TestService_Get_ServesCachedRow verifies the read-through path returns
the same record until invalidated.
*/
func TestService_Get_ServesCachedRow(t *testing.T) {
	repo := &settingsRepoStub{current: &settings.Settings{
		Theme: "dark", DefaultView: "series", NotificationsEnabled: true, ReleaseWindowDays: 14,
	}}
	service, _ := newSettingsService(t, repo)
	ctx := context.Background()

	first := service.Get(ctx)
	second := service.Get(ctx)
	assert.Same(t, first, second)
	assert.Equal(t, "dark", first.Theme)
}

/*
TestService_Get_DegradesToSnapshotThenDefaults covers the two-stage
degraded read.
*/
func TestService_Get_DegradesToSnapshotThenDefaults(t *testing.T) {
	repo := &settingsRepoStub{current: &settings.Settings{
		Theme: "dark", DefaultView: "series", NotificationsEnabled: false, ReleaseWindowDays: 7,
	}}
	service, deps := newSettingsService(t, repo)
	ctx := context.Background()

	require.Equal(t, "dark", service.Get(ctx).Theme, "healthy read seeds the snapshot")

	repo.mu.Lock()
	repo.fail = true
	repo.mu.Unlock()
	deps.collection.Invalidate()

	degraded := service.Get(ctx)
	assert.Equal(t, "dark", degraded.Theme, "snapshot survives the outage")
	assert.False(t, degraded.NotificationsEnabled)
	assert.Equal(t, 1, deps.alerts.Len())

	// A cold instance with no snapshot lands on the defaults.
	coldRepo := &settingsRepoStub{fail: true}
	coldService, _ := newSettingsService(t, coldRepo)
	assert.Equal(t, settings.Defaults(), coldService.Get(ctx))
}

/*
TestService_Put_ValidatesAndInvalidates checks the rejection matrix and
the cache effect of a successful write.
*/
func TestService_Put_ValidatesAndInvalidates(t *testing.T) {
	tests := []struct {
		name string
		edit func(s *settings.Settings)
	}{
		{"unknown_theme", func(s *settings.Settings) { s.Theme = "solarized" }},
		{"missing_view", func(s *settings.Settings) { s.DefaultView = "" }},
		{"window_too_small", func(s *settings.Settings) { s.ReleaseWindowDays = 0 }},
		{"window_too_large", func(s *settings.Settings) { s.ReleaseWindowDays = 400 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &settingsRepoStub{}
			service, _ := newSettingsService(t, repo)

			candidate := settings.Defaults()
			tt.edit(candidate)

			err := service.Put(context.Background(), candidate)
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "VALIDATION_ERROR", ae.Code)
			assert.Zero(t, repo.puts)
		})
	}

	repo := &settingsRepoStub{}
	service, _ := newSettingsService(t, repo)
	ctx := context.Background()

	require.Equal(t, "system", service.Get(ctx).Theme)

	next := &settings.Settings{Theme: "dark", DefaultView: "library", NotificationsEnabled: true, ReleaseWindowDays: 30}
	require.NoError(t, service.Put(ctx, next))
	assert.False(t, next.LastModified.IsZero())

	assert.Equal(t, "dark", service.Get(ctx).Theme, "write invalidates the cached row")
}
