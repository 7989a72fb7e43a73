// Copyright (c) 2026 Shelfmark. All rights reserved.

package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LaMia-3/shelfmark/internal/core/release"
	"github.com/LaMia-3/shelfmark/internal/core/settings"
	"github.com/LaMia-3/shelfmark/internal/platform/constants"
	"github.com/LaMia-3/shelfmark/pkg/pointer"
)

// # Release Notifier

// ReleaseSource is the slice of the release service the notifier
// consumes: tracked series' dated releases up to a horizon.
type ReleaseSource interface {
	Due(context context.Context, horizon time.Time) ([]*release.UpcomingBook, error)
}

// SettingsSource yields the runtime preferences consulted on every
// sweep, so toggling notifications or the window takes effect without a
// restart.
type SettingsSource interface {
	Get(context context.Context) *settings.Settings
}

/*
Notifier periodically scans tracked series for releases expected inside
the user's window and files one release notification per entry. The
existing-notification check keeps repeated sweeps from duplicating the
feed.
*/
type Notifier struct {
	notifications *Service
	releases      ReleaseSource
	settings      SettingsSource
	interval      time.Duration
	windowDays    int
	logger        *slog.Logger
}

/*
NewNotifier constructs the release [Notifier]. Non-positive interval or
windowDays fall back to the platform defaults.

Parameters:
  - notifications: *Service
  - releases: ReleaseSource
  - settings: SettingsSource
  - interval: time.Duration between sweeps
  - windowDays: fallback look-ahead window when settings hand back a
    non-positive one
  - logger: *slog.Logger

Returns:
  - *Notifier
*/
func NewNotifier(
	notifications *Service,
	releases ReleaseSource,
	settings SettingsSource,
	interval time.Duration,
	windowDays int,
	logger *slog.Logger,
) *Notifier {
	if interval <= 0 {
		interval = constants.DefaultReleaseCheckInterval
	}
	if windowDays <= 0 {
		windowDays = constants.DefaultReleaseWindowDays
	}

	return &Notifier{
		notifications: notifications,
		releases:      releases,
		settings:      settings,
		interval:      interval,
		windowDays:    windowDays,
		logger:        logger,
	}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled. Meant to be launched as a goroutine from main.
func (notifier *Notifier) Run(context context.Context) {
	notifier.logger.Info("release_notifier_started",
		slog.Duration("interval", notifier.interval),
	)

	// First pass right away so a restart does not defer due notices by a
	// full interval.
	notifier.Sweep(context)

	ticker := time.NewTicker(notifier.interval)
	defer ticker.Stop()

	for {
		select {
		case <-context.Done():
			notifier.logger.Info("release_notifier_stopped")
			return
		case <-ticker.C:
			notifier.Sweep(context)
		}
	}
}

/*
Sweep performs one scan: skipped entirely while notifications are
disabled, otherwise every release due inside the window is filed unless
the feed already carries it.

Parameters:
  - context: context.Context

Returns:
  - int: Number of notifications created by this sweep
*/
func (notifier *Notifier) Sweep(context context.Context) int {
	preferences := notifier.settings.Get(context)
	if !preferences.NotificationsEnabled {
		notifier.logger.Debug("release_sweep_skipped",
			slog.String("reason", "notifications_disabled"),
		)
		return 0
	}

	window := preferences.ReleaseWindowDays
	if window <= 0 {
		window = notifier.windowDays
	}
	horizon := time.Now().UTC().AddDate(0, 0, window)

	due, err := notifier.releases.Due(context, horizon)
	if err != nil {
		notifier.logger.Error("release_sweep_failed", slog.String("error", err.Error()))
		return 0
	}

	created := 0
	for _, upcoming := range due {
		fresh, err := notifier.notifications.CreateForRelease(context, buildReleaseNotification(upcoming))
		if err != nil {
			notifier.logger.Error("release_notification_failed",
				slog.String("release_id", upcoming.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if fresh {
			created++
		}
	}

	if created > 0 {
		notifier.logger.Info("release_notifications_created", slog.Int("count", created))
	}
	return created
}

// buildReleaseNotification shapes one due release into a feed entry.
// The release id rides along as the dedup key.
func buildReleaseNotification(upcoming *release.UpcomingBook) *Notification {
	title := "Upcoming release"
	if name := pointer.Val(upcoming.SeriesName); name != "" {
		title = "New in " + name
	}

	subject := upcoming.Title
	if author := pointer.Val(upcoming.Author); author != "" {
		subject = upcoming.Title + " by " + author
	}
	when := "soon"
	if upcoming.ExpectedReleaseDate != nil {
		when = "on " + upcoming.ExpectedReleaseDate.Format("January 2, 2006")
	}

	return &Notification{
		Type:      TypeRelease,
		Title:     title,
		Message:   fmt.Sprintf("%s is expected %s.", subject, when),
		SeriesID:  upcoming.SeriesID,
		ReleaseID: pointer.To(upcoming.ID),
		ActionURL: pointer.To("/releases/" + upcoming.ID),
	}
}
