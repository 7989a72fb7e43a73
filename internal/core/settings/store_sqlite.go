// Copyright (c) 2026 Shelfmark. All rights reserved.

package settings

import (
	"context"
	"database/sql"
	"errors"

	"github.com/LaMia-3/shelfmark/internal/platform/dberr"
	"github.com/LaMia-3/shelfmark/internal/platform/sqlite"
)

// # SQLite Repository

// SQLiteRepository persists the preference row in the embedded database.
type SQLiteRepository struct {
	db *sqlite.DB
}

// NewSQLiteRepository constructs a [SQLiteRepository] on the shared handle.
func NewSQLiteRepository(db *sqlite.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (repository *SQLiteRepository) Get(context context.Context) (*Settings, error) {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return nil, err
	}

	var settings Settings
	var lastModified string
	err = conn.QueryRowContext(context, `
		SELECT theme, default_view, notifications_enabled, release_window_days, last_modified
		FROM settings WHERE id = 1`,
	).Scan(
		&settings.Theme, &settings.DefaultView, &settings.NotificationsEnabled,
		&settings.ReleaseWindowDays, &lastModified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// Never written: a fresh installation runs on the defaults.
		return Defaults(), nil
	}
	if err != nil {
		return nil, dberr.Wrap(err, "get_settings")
	}

	settings.LastModified, err = sqlite.TextToTime(lastModified)
	if err != nil {
		return nil, dberr.Wrap(err, "decode_settings")
	}
	return &settings, nil
}

func (repository *SQLiteRepository) Put(context context.Context, settings *Settings) error {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(context, `
		INSERT INTO settings (id, theme, default_view, notifications_enabled, release_window_days, last_modified)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			theme = excluded.theme,
			default_view = excluded.default_view,
			notifications_enabled = excluded.notifications_enabled,
			release_window_days = excluded.release_window_days,
			last_modified = excluded.last_modified`,
		settings.Theme, settings.DefaultView, settings.NotificationsEnabled,
		settings.ReleaseWindowDays, sqlite.TimeToText(settings.LastModified),
	)
	if err != nil {
		return dberr.Wrap(err, "put_settings")
	}
	return nil
}
