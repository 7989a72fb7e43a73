// Copyright (c) 2026 Shelfmark. All rights reserved.

package settings_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaMia-3/shelfmark/internal/core/settings"
	"github.com/LaMia-3/shelfmark/internal/platform/sqlite"
)

func newSettingsRepo(t *testing.T) (*settings.SQLiteRepository, *sql.DB) {
	t.Helper()

	db := sqlite.New(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { db.Close() })

	conn, err := db.Conn(context.Background())
	require.NoError(t, err)

	return settings.NewSQLiteRepository(db), conn
}

/*
TestSQLiteRepository_GetUnwrittenReturnsDefaults verifies the fresh-install
path: no row, default preferences.
*/
func TestSQLiteRepository_GetUnwrittenReturnsDefaults(t *testing.T) {
	repo, _ := newSettingsRepo(t)

	got, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.Defaults(), got)
}

/*
TestSQLiteRepository_PutUpsertsSingleRow checks the insert-then-update
round trip against the pinned row.
*/
func TestSQLiteRepository_PutUpsertsSingleRow(t *testing.T) {
	repo, conn := newSettingsRepo(t)
	ctx := context.Background()

	first := &settings.Settings{
		Theme:                "dark",
		DefaultView:          "series",
		NotificationsEnabled: true,
		ReleaseWindowDays:    14,
		LastModified:         time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Put(ctx, first))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := &settings.Settings{
		Theme:                "light",
		DefaultView:          "library",
		NotificationsEnabled: false,
		ReleaseWindowDays:    60,
		LastModified:         time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Put(ctx, second))

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&count))
	assert.Equal(t, 1, count, "the row stays single")
}
