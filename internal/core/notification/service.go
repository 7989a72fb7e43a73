// Copyright (c) 2026 Shelfmark. All rights reserved.

package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/LaMia-3/shelfmark/internal/platform/alert"
	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/cache"
	"github.com/LaMia-3/shelfmark/internal/platform/fallback"
	"github.com/LaMia-3/shelfmark/internal/platform/validate"
	"github.com/LaMia-3/shelfmark/pkg/uuidv7"
)

// snapshotName is the fallback snapshot key for the notification feed.
const snapshotName = "notifications"

// # Service Layer

/*
Service is the caching storage facade for the notification feed.

Reads follow the shared degraded-mode contract: failures are logged,
alerted, and absorbed into the last snapshot or an empty feed. Writes
validate, persist, then invalidate. The service also subscribes to the
alert dispatcher, persisting storage alerts as system entries so they
outlive the ring buffer — best effort, since the storage that failed is
usually the storage they would be written to.
*/
type Service struct {
	repo      Repository
	feed      *cache.Collection[*Notification]
	snapshots *fallback.Store
	alerts    *alert.Dispatcher
	logger    *slog.Logger
}

// NewService constructs the notification facade with its collaborators.
func NewService(
	repo Repository,
	feed *cache.Collection[*Notification],
	snapshots *fallback.Store,
	alerts *alert.Dispatcher,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		feed:      feed,
		snapshots: snapshots,
		alerts:    alerts,
		logger:    logger,
	}
}

// # Reads

// ListNotifications returns the whole feed, newest first, served from
// cache within the TTL. Storage failures degrade to the last snapshot
// (or empty).
func (service *Service) ListNotifications(context context.Context) []*Notification {
	feed, err := service.feed.GetOrFetch(context, service.fetchAll)
	if err != nil {
		return service.degradedList(err)
	}
	return feed
}

// QueryNotifications filters and paginates the cached feed in memory.
func (service *Service) QueryNotifications(context context.Context, filter Filter, limit, offset int) ([]*Notification, int) {
	all := service.ListNotifications(context)

	matched := make([]*Notification, 0, len(all))
	for _, candidate := range all {
		if filter.Match(candidate) {
			matched = append(matched, candidate)
		}
	}

	total := len(matched)
	if offset >= total {
		return []*Notification{}, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total
}

// UnreadCount returns the number of unread entries, answered from a
// valid cache without touching storage. Degrades to the snapshot count.
func (service *Service) UnreadCount(context context.Context) int {
	if cached, ok := service.feed.Peek(); ok {
		return countUnread(cached)
	}

	count, err := service.repo.UnreadCount(context)
	if err == nil {
		return count
	}

	service.reportDegraded("notification_count_degraded", err)
	return countUnread(service.loadSnapshot())
}

func (service *Service) fetchAll(context context.Context) ([]*Notification, error) {
	feed, err := service.repo.List(context)
	if err != nil {
		return nil, err
	}
	service.snapshots.Save(snapshotName, feed)
	return feed, nil
}

func (service *Service) degradedList(cause error) []*Notification {
	service.reportDegraded("notification_list_degraded", cause)
	return service.loadSnapshot()
}

func (service *Service) loadSnapshot() []*Notification {
	var feed []*Notification
	if err := service.snapshots.Load(snapshotName, &feed); err != nil {
		return []*Notification{}
	}
	return feed
}

func (service *Service) reportDegraded(event string, cause error) {
	service.logger.Error(event, slog.String("error", cause.Error()))
	service.alerts.Publish(alert.Alert{
		Severity: alert.SeverityError,
		Title:    "Notifications temporarily unavailable",
		Message:  cause.Error(),
		Source:   snapshotName,
	})
}

func countUnread(feed []*Notification) int {
	count := 0
	for _, notification := range feed {
		if !notification.IsRead {
			count++
		}
	}
	return count
}

// # Writes

/*
CreateNotification validates and persists a new feed entry.

Parameters:
  - context: context.Context
  - notification: *Notification

Returns:
  - error: Validation or persistence errors
*/
func (service *Service) CreateNotification(context context.Context, notification *Notification) error {
	if err := validateNotification(notification); err != nil {
		return err
	}

	if notification.ID == "" {
		notification.ID = uuidv7.New()
	}
	notification.CreatedAt = time.Now().UTC()

	if err := service.repo.Create(context, notification); err != nil {
		return err
	}

	service.feed.Invalidate()
	service.logger.Info("notification_created",
		slog.String("notification_id", notification.ID),
		slog.String("type", string(notification.Type)),
	)
	return nil
}

/*
CreateForRelease persists a release notification unless one already
exists for the same release, read or dismissed history aside. The
generator's idempotent entry point.

Parameters:
  - context: context.Context
  - notification: *Notification (ReleaseID must be set)

Returns:
  - bool: Whether a new entry was created
  - error: Validation or persistence errors
*/
func (service *Service) CreateForRelease(context context.Context, notification *Notification) (bool, error) {
	if notification.ReleaseID == nil {
		return false, apperr.ValidationError("release notification requires a release reference")
	}

	exists, err := service.repo.ExistsForRelease(context, *notification.ReleaseID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := service.CreateNotification(context, notification); err != nil {
		return false, err
	}
	return true, nil
}

/*
MarkRead flags one entry as read.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - error: ErrNotFound or persistence errors
*/
func (service *Service) MarkRead(context context.Context, id string) error {
	if err := service.repo.MarkRead(context, id); err != nil {
		return err
	}

	service.feed.Invalidate()
	service.logger.Info("notification_read", slog.String("notification_id", id))
	return nil
}

/*
MarkAllRead flags the whole feed as read.

Parameters:
  - context: context.Context

Returns:
  - error: Persistence errors
*/
func (service *Service) MarkAllRead(context context.Context) error {
	if err := service.repo.MarkAllRead(context); err != nil {
		return err
	}

	service.feed.Invalidate()
	service.logger.Info("notifications_read_all")
	return nil
}

/*
Dismiss deletes one entry.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - error: ErrNotFound or persistence errors
*/
func (service *Service) Dismiss(context context.Context, id string) error {
	if err := service.repo.Delete(context, id); err != nil {
		return err
	}

	service.feed.Invalidate()
	service.logger.Info("notification_dismissed", slog.String("notification_id", id))
	return nil
}

/*
ClearAll empties the feed.

Parameters:
  - context: context.Context

Returns:
  - error: Persistence errors
*/
func (service *Service) ClearAll(context context.Context) error {
	if err := service.repo.ClearAll(context); err != nil {
		return err
	}

	service.feed.Invalidate()
	service.logger.Warn("notifications_cleared")
	return nil
}

// # Alert Subscription

// SubscribeToAlerts registers the service on the dispatcher so storage
// alerts survive the ring buffer as system notifications.
func (service *Service) SubscribeToAlerts(dispatcher *alert.Dispatcher) {
	dispatcher.Subscribe(service.HandleAlert)
}

// HandleAlert persists one alert as a system entry. Best effort: when
// the write fails the alert stays ring-buffer-only, which is exactly the
// degraded-storage case the alert is usually about.
func (service *Service) HandleAlert(incoming alert.Alert) {
	notification := &Notification{
		Type:    TypeSystem,
		Title:   incoming.Title,
		Message: incoming.Message,
	}
	if err := service.CreateNotification(context.Background(), notification); err != nil {
		service.logger.Debug("alert_notification_skipped", slog.String("error", err.Error()))
	}
}

// # Validation

func validateNotification(notification *Notification) error {
	validator := &validate.Validator{}

	validator.Custom(FieldType, !notification.Type.IsValid(), "must be release, system, or reminder")
	validator.Required(FieldTitle, notification.Title).MaxLen(FieldTitle, notification.Title, 300)
	validator.Required(FieldMessage, notification.Message).MaxLen(FieldMessage, notification.Message, 2000)

	if notification.SeriesID != nil {
		validator.UUID(FieldSeriesID, *notification.SeriesID)
	}
	if notification.BookID != nil {
		validator.UUID(FieldBookID, *notification.BookID)
	}
	if notification.ReleaseID != nil {
		validator.UUID(FieldReleaseID, *notification.ReleaseID)
	}
	// ActionURL is an in-app path, not a full URL; length is the only rule.
	if notification.ActionURL != nil {
		validator.MaxLen(FieldActionURL, *notification.ActionURL, 500)
	}

	return validator.Err()
}
