// Copyright (c) 2026 Shelfmark. All rights reserved.

package settings

import (
	"context"
	"log/slog"
	"time"

	"github.com/LaMia-3/shelfmark/internal/platform/alert"
	"github.com/LaMia-3/shelfmark/internal/platform/cache"
	"github.com/LaMia-3/shelfmark/internal/platform/fallback"
	"github.com/LaMia-3/shelfmark/internal/platform/validate"
)

// snapshotName is the fallback snapshot key for the preference row.
const snapshotName = "settings"

// # Service Layer

/*
Service is the caching storage facade for the preference row.

The single record rides the same collection-cache mechanism as the list
facades. Reads never fail: degraded storage serves the last snapshot, a
cold start serves the defaults. Writes validate, persist, invalidate.
*/
type Service struct {
	repo      Repository
	settings  *cache.Collection[*Settings]
	snapshots *fallback.Store
	alerts    *alert.Dispatcher
	logger    *slog.Logger
}

// NewService constructs the settings facade with its collaborators.
func NewService(
	repo Repository,
	settings *cache.Collection[*Settings],
	snapshots *fallback.Store,
	alerts *alert.Dispatcher,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		settings:  settings,
		snapshots: snapshots,
		alerts:    alerts,
		logger:    logger,
	}
}

// # Reads

// Get returns the current preferences. Storage failures degrade to the
// last snapshot, then to the defaults; callers never see an error.
func (service *Service) Get(context context.Context) *Settings {
	collection, err := service.settings.GetOrFetch(context, service.fetch)
	if err == nil && len(collection) == 1 {
		return collection[0]
	}
	if err != nil {
		service.reportDegraded(err)
	}

	var snapshot []*Settings
	if loadErr := service.snapshots.Load(snapshotName, &snapshot); loadErr == nil && len(snapshot) == 1 {
		return snapshot[0]
	}
	return Defaults()
}

func (service *Service) fetch(context context.Context) ([]*Settings, error) {
	current, err := service.repo.Get(context)
	if err != nil {
		return nil, err
	}
	collection := []*Settings{current}
	service.snapshots.Save(snapshotName, collection)
	return collection, nil
}

func (service *Service) reportDegraded(cause error) {
	service.logger.Error("settings_get_degraded", slog.String("error", cause.Error()))
	service.alerts.Publish(alert.Alert{
		Severity: alert.SeverityError,
		Title:    "Settings temporarily unavailable",
		Message:  cause.Error(),
		Source:   snapshotName,
	})
}

// # Writes

/*
Put validates and upserts the preference row.

Parameters:
  - context: context.Context
  - settings: *Settings

Returns:
  - error: Validation or persistence errors
*/
func (service *Service) Put(context context.Context, settings *Settings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}

	settings.LastModified = time.Now().UTC()

	if err := service.repo.Put(context, settings); err != nil {
		return err
	}

	service.settings.Invalidate()
	service.logger.Info("settings_updated",
		slog.String("theme", settings.Theme),
		slog.Bool("notifications_enabled", settings.NotificationsEnabled),
	)
	return nil
}

// # Validation

func validateSettings(settings *Settings) error {
	validator := &validate.Validator{}

	validator.OneOf(FieldTheme, settings.Theme, "system", "light", "dark")
	validator.Required(FieldDefaultView, settings.DefaultView).MaxLen(FieldDefaultView, settings.DefaultView, 100)
	validator.Range(FieldReleaseWindowDays, settings.ReleaseWindowDays, 1, 365)

	return validator.Err()
}
