// Copyright (c) 2026 Shelfmark. All rights reserved.

package notification

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/dberr"
	"github.com/LaMia-3/shelfmark/internal/platform/sqlite"
)

// # SQLite Repository

// SQLiteRepository persists the notification feed in the embedded
// database.
type SQLiteRepository struct {
	db *sqlite.DB
}

// NewSQLiteRepository constructs a [SQLiteRepository] on the shared handle.
func NewSQLiteRepository(db *sqlite.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const notificationColumns = `id, type, title, message, is_read, series_id, book_id,
	release_id, action_url, created_at`

// # Row Adapters

type notificationRow struct {
	id        string
	kind      string
	title     string
	message   string
	isRead    bool
	seriesID  sql.NullString
	bookID    sql.NullString
	releaseID sql.NullString
	actionURL sql.NullString
	createdAt string
}

func scanNotificationRow(scanner interface{ Scan(...any) error }) (notificationRow, error) {
	var row notificationRow
	err := scanner.Scan(
		&row.id, &row.kind, &row.title, &row.message, &row.isRead,
		&row.seriesID, &row.bookID, &row.releaseID, &row.actionURL,
		&row.createdAt,
	)
	return row, err
}

func rowToNotification(row notificationRow) (*Notification, error) {
	createdAt, err := sqlite.TextToTime(row.createdAt)
	if err != nil {
		return nil, err
	}

	return &Notification{
		ID:        row.id,
		Type:      Type(row.kind),
		Title:     row.title,
		Message:   row.message,
		IsRead:    row.isRead,
		SeriesID:  sqlite.TextPtr(row.seriesID),
		BookID:    sqlite.TextPtr(row.bookID),
		ReleaseID: sqlite.TextPtr(row.releaseID),
		ActionURL: sqlite.TextPtr(row.actionURL),
		CreatedAt: createdAt,
	}, nil
}

// # Queries

func (repository *SQLiteRepository) List(context context.Context) ([]*Notification, error) {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM notifications ORDER BY created_at DESC, id DESC`, notificationColumns)
	rows, err := conn.QueryContext(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_notifications")
	}
	defer rows.Close()

	feed := make([]*Notification, 0)
	for rows.Next() {
		row, err := scanNotificationRow(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_notification")
		}
		notification, err := rowToNotification(row)
		if err != nil {
			return nil, dberr.Wrap(err, "decode_notification")
		}
		feed = append(feed, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_notifications")
	}
	return feed, nil
}

func (repository *SQLiteRepository) UnreadCount(context context.Context) (int, error) {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return 0, err
	}

	var count int
	err = conn.QueryRowContext(context, `SELECT COUNT(*) FROM notifications WHERE is_read = 0`).Scan(&count)
	if err != nil {
		return 0, dberr.Wrap(err, "count_unread_notifications")
	}
	return count, nil
}

func (repository *SQLiteRepository) ExistsForRelease(context context.Context, releaseID string) (bool, error) {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return false, err
	}

	var exists bool
	err = conn.QueryRowContext(context,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE release_id = ?)`, releaseID,
	).Scan(&exists)
	if err != nil {
		return false, dberr.Wrap(err, "check_release_notification")
	}
	return exists, nil
}

// # Mutations

func (repository *SQLiteRepository) Create(context context.Context, notification *Notification) error {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO notifications (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, notificationColumns)
	_, err = conn.ExecContext(context, query,
		notification.ID, string(notification.Type), notification.Title,
		notification.Message, notification.IsRead,
		sqlite.NullText(notification.SeriesID), sqlite.NullText(notification.BookID),
		sqlite.NullText(notification.ReleaseID), sqlite.NullText(notification.ActionURL),
		sqlite.TimeToText(notification.CreatedAt),
	)
	if err != nil {
		return dberr.Wrap(err, "create_notification")
	}
	return nil
}

func (repository *SQLiteRepository) MarkRead(context context.Context, id string) error {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return err
	}

	result, err := conn.ExecContext(context, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return dberr.Wrap(err, "mark_notification_read")
	}
	return requireAffected(result, "Notification")
}

func (repository *SQLiteRepository) MarkAllRead(context context.Context) error {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return err
	}

	if _, err := conn.ExecContext(context, `UPDATE notifications SET is_read = 1 WHERE is_read = 0`); err != nil {
		return dberr.Wrap(err, "mark_all_notifications_read")
	}
	return nil
}

func (repository *SQLiteRepository) Delete(context context.Context, id string) error {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return err
	}

	result, err := conn.ExecContext(context, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_notification")
	}
	return requireAffected(result, "Notification")
}

func (repository *SQLiteRepository) ClearAll(context context.Context) error {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return err
	}

	if _, err := conn.ExecContext(context, `DELETE FROM notifications`); err != nil {
		return dberr.Wrap(err, "clear_notifications")
	}
	return nil
}

// requireAffected turns a zero-row mutation into the NotFound the single
// row endpoints report.
func requireAffected(result sql.Result, resource string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return dberr.Wrap(err, "rows_affected")
	}
	if affected == 0 {
		return apperr.NotFound(resource)
	}
	return nil
}
