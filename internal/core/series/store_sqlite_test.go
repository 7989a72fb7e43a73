// Copyright (c) 2026 Shelfmark. All rights reserved.

package series_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaMia-3/shelfmark/internal/core/series"
	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/sqlite"
)

func newSeriesRepo(t *testing.T) (*series.SQLiteRepository, *sql.DB) {
	t.Helper()

	db := sqlite.New(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = db.Close() })

	conn, err := db.Conn(context.Background())
	require.NoError(t, err)

	return series.NewSQLiteRepository(db), conn
}

func nowText() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

// seedBook inserts a minimal book row directly; the series repository only
// ever touches books through membership columns.
func seedBook(t *testing.T, conn *sql.DB, id, title, status string) {
	t.Helper()

	now := nowText()
	_, err := conn.Exec(
		`INSERT INTO books (id, title, author, status, date_added, last_modified) VALUES (?, ?, 'Test Author', ?, ?, ?)`,
		id, title, status, now, now,
	)
	require.NoError(t, err)
}

func seedRelease(t *testing.T, conn *sql.DB, id, seriesID string) {
	t.Helper()

	now := nowText()
	_, err := conn.Exec(
		`INSERT INTO upcoming_releases (id, title, series_id, date_added, last_modified) VALUES (?, 'Next Volume', ?, ?, ?)`,
		id, seriesID, now, now,
	)
	require.NoError(t, err)
}

func seedNotification(t *testing.T, conn *sql.DB, id, seriesID string) {
	t.Helper()

	_, err := conn.Exec(
		`INSERT INTO notifications (id, type, title, message, series_id, created_at) VALUES (?, 'release', 'New release', 'msg', ?, ?)`,
		id, seriesID, nowText(),
	)
	require.NoError(t, err)
}

func bookLink(t *testing.T, conn *sql.DB, bookID string) (seriesID sql.NullString, position sql.NullInt64) {
	t.Helper()

	err := conn.QueryRow(`SELECT series_id, series_position FROM books WHERE id = ?`, bookID).
		Scan(&seriesID, &position)
	require.NoError(t, err)
	return seriesID, position
}

func sampleSeries(id, name string) *series.Series {
	now := time.Now().UTC().Truncate(time.Second)
	return &series.Series{
		ID:           id,
		Name:         name,
		Books:        []string{},
		ReadingOrder: series.OrderPublication,
		Status:       series.StatusOngoing,
		DateAdded:    now,
		LastModified: now,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

/*
TestSQLiteRepository_CreateAndGetRoundTrip verifies the full column
round-trip, including the JSON-encoded member list.
*/
func TestSQLiteRepository_CreateAndGetRoundTrip(t *testing.T) {
	repo, _ := newSeriesRepo(t)
	ctx := context.Background()

	created := sampleSeries("s-1", "Earthsea Cycle")
	created.Author = strPtr("Ursula K. Le Guin")
	created.Description = strPtr("The archipelago books.")
	created.CoverImageURL = strPtr("https://covers.example.com/earthsea.jpg")
	created.TotalBooks = 6
	created.Status = series.StatusCompleted
	created.IsTracked = true

	require.NoError(t, repo.Create(ctx, created))

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Nil(t, got.CustomOrder)
}

/*
TestSQLiteRepository_GetMissingReturnsNotFound checks the not-found
mapping for unknown identifiers.
*/
func TestSQLiteRepository_GetMissingReturnsNotFound(t *testing.T) {
	repo, _ := newSeriesRepo(t)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestSQLiteRepository_ListOrdersByName verifies case-insensitive name
ordering.
*/
func TestSQLiteRepository_ListOrdersByName(t *testing.T) {
	repo, _ := newSeriesRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleSeries("s-1", "the expanse")))
	require.NoError(t, repo.Create(ctx, sampleSeries("s-2", "Culture")))

	collection, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, collection, 2)
	assert.Equal(t, "Culture", collection[0].Name)
	assert.Equal(t, "the expanse", collection[1].Name)
}

/*
TestSQLiteRepository_AddBook_AppendsAndLinks verifies the add-member
transaction: ordered list, back-reference, position, derived progress.
*/
func TestSQLiteRepository_AddBook_AppendsAndLinks(t *testing.T) {
	repo, conn := newSeriesRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleSeries("s-1", "Earthsea Cycle")))
	seedBook(t, conn, "b-1", "A Wizard of Earthsea", "completed")
	seedBook(t, conn, "b-2", "The Tombs of Atuan", "to-read")

	require.NoError(t, repo.AddBook(ctx, "s-1", "b-1", nil))
	require.NoError(t, repo.AddBook(ctx, "s-1", "b-2", nil))

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b-1", "b-2"}, got.Books)
	assert.Equal(t, 1, got.CompletedBooks)
	assert.Equal(t, 0.5, got.ReadingProgress)

	seriesID, position := bookLink(t, conn, "b-2")
	assert.Equal(t, "s-1", seriesID.String)
	assert.EqualValues(t, 2, position.Int64)
}

/*
TestSQLiteRepository_AddBook_Idempotent re-adds an existing member and
expects no duplicate and no error.
*/
func TestSQLiteRepository_AddBook_Idempotent(t *testing.T) {
	repo, conn := newSeriesRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleSeries("s-1", "Earthsea Cycle")))
	seedBook(t, conn, "b-1", "A Wizard of Earthsea", "to-read")

	require.NoError(t, repo.AddBook(ctx, "s-1", "b-1", nil))
	require.NoError(t, repo.AddBook(ctx, "s-1", "b-1", nil))

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b-1"}, got.Books)
}

/*
TestSQLiteRepository_AddBook_ExplicitPosition verifies that a supplied
position wins over the append-at-end default.
*/
func TestSQLiteRepository_AddBook_ExplicitPosition(t *testing.T) {
	repo, conn := newSeriesRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleSeries("s-1", "Earthsea Cycle")))
	seedBook(t, conn, "b-1", "Tales from Earthsea", "to-read")

	require.NoError(t, repo.AddBook(ctx, "s-1", "b-1", intPtr(5)))

	_, position := bookLink(t, conn, "b-1")
	assert.EqualValues(t, 5, position.Int64)
}

/*
TestSQLiteRepository_AddBook_SwitchesSeries moves a member of one series
into another and expects both member lists and progress counters to be
reconciled in the same transaction.
*/
func TestSQLiteRepository_AddBook_SwitchesSeries(t *testing.T) {
	repo, conn := newSeriesRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleSeries("s-1", "Earthsea Cycle")))
	require.NoError(t, repo.Create(ctx, sampleSeries("s-2", "Hainish Cycle")))
	seedBook(t, conn, "b-1", "The Word for World Is Forest", "completed")

	require.NoError(t, repo.AddBook(ctx, "s-1", "b-1", nil))
	require.NoError(t, repo.AddBook(ctx, "s-2", "b-1", nil))

	old, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, old.Books)
	assert.Zero(t, old.CompletedBooks)
	assert.Zero(t, old.ReadingProgress)

	current, err := repo.GetByID(ctx, "s-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"b-1"}, current.Books)
	assert.Equal(t, 1, current.CompletedBooks)

	seriesID, _ := bookLink(t, conn, "b-1")
	assert.Equal(t, "s-2", seriesID.String)
}

/*
TestSQLiteRepository_AddBook_MissingSides fails fast when either the
series or the book does not exist.
*/
func TestSQLiteRepository_AddBook_MissingSides(t *testing.T) {
	repo, conn := newSeriesRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleSeries("s-1", "Earthsea Cycle")))
	seedBook(t, conn, "b-1", "A Wizard of Earthsea", "to-read")

	assert.True(t, apperr.IsNotFound(repo.AddBook(ctx, "ghost", "b-1", nil)))
	assert.True(t, apperr.IsNotFound(repo.AddBook(ctx, "s-1", "ghost", nil)))
}

/*
TestSQLiteRepository_RemoveBook_CleansBothSides verifies the inverse
operation: member list, custom order, back-reference, progress.
*/
func TestSQLiteRepository_RemoveBook_CleansBothSides(t *testing.T) {
	repo, conn := newSeriesRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleSeries("s-1", "Earthsea Cycle")))
	seedBook(t, conn, "b-1", "A Wizard of Earthsea", "completed")
	seedBook(t, conn, "b-2", "The Tombs of Atuan", "completed")
	require.NoError(t, repo.AddBook(ctx, "s-1", "b-1", nil))
	require.NoError(t, repo.AddBook(ctx, "s-1", "b-2", nil))

	_, err := conn.Exec(`UPDATE series SET custom_order = '["b-2","b-1"]' WHERE id = 's-1'`)
	require.NoError(t, err)

	require.NoError(t, repo.RemoveBook(ctx, "s-1", "b-1"))

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b-2"}, got.Books)
	assert.Equal(t, []string{"b-2"}, got.CustomOrder)
	assert.Equal(t, 1, got.CompletedBooks)
	assert.Equal(t, 1.0, got.ReadingProgress)

	seriesID, position := bookLink(t, conn, "b-1")
	assert.False(t, seriesID.Valid)
	assert.False(t, position.Valid)
}

/*
TestSQLiteRepository_RefreshProgress_Recomputes verifies idempotent
recomputation after direct status changes.
*/
func TestSQLiteRepository_RefreshProgress_Recomputes(t *testing.T) {
	repo, conn := newSeriesRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleSeries("s-1", "Earthsea Cycle")))
	seedBook(t, conn, "b-1", "A Wizard of Earthsea", "to-read")
	require.NoError(t, repo.AddBook(ctx, "s-1", "b-1", nil))

	// status changes behind the repository's back
	_, err := conn.Exec(`UPDATE books SET status = 'completed' WHERE id = 'b-1'`)
	require.NoError(t, err)

	require.NoError(t, repo.RefreshProgress(ctx, "s-1"))
	require.NoError(t, repo.RefreshProgress(ctx, "s-1"))

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedBooks)
	assert.Equal(t, 1.0, got.ReadingProgress)

	assert.True(t, apperr.IsNotFound(repo.RefreshProgress(ctx, "ghost")))
}

/*
TestSQLiteRepository_Update_ReconcilesCustomOrder verifies that updates
rewrite descriptive fields only, trim ex-members from the custom order,
and leave membership untouched.
*/
func TestSQLiteRepository_Update_ReconcilesCustomOrder(t *testing.T) {
	repo, conn := newSeriesRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleSeries("s-1", "Earthsea Cycle")))
	seedBook(t, conn, "b-1", "A Wizard of Earthsea", "to-read")
	require.NoError(t, repo.AddBook(ctx, "s-1", "b-1", nil))

	replacement := sampleSeries("s-1", "Earthsea")
	replacement.TotalBooks = 6
	replacement.ReadingOrder = series.OrderCustom
	replacement.CustomOrder = []string{"b-1", "ghost"}
	replacement.Books = []string{"should", "be", "ignored"}
	require.NoError(t, repo.Update(ctx, replacement))

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Earthsea", got.Name)
	assert.Equal(t, 6, got.TotalBooks)
	assert.Equal(t, series.OrderCustom, got.ReadingOrder)
	assert.Equal(t, []string{"b-1"}, got.CustomOrder)
	assert.Equal(t, []string{"b-1"}, got.Books)
}

/*
TestSQLiteRepository_Delete_Cascades walks the full delete cascade: the
member book survives unlinked, the series' releases and notifications are
gone, and unrelated rows stay.
*/
func TestSQLiteRepository_Delete_Cascades(t *testing.T) {
	repo, conn := newSeriesRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleSeries("s-1", "Earthsea Cycle")))
	require.NoError(t, repo.Create(ctx, sampleSeries("s-2", "Hainish Cycle")))
	seedBook(t, conn, "b-1", "A Wizard of Earthsea", "completed")
	require.NoError(t, repo.AddBook(ctx, "s-1", "b-1", nil))

	seedRelease(t, conn, "r-1", "s-1")
	seedRelease(t, conn, "r-2", "s-2")
	seedNotification(t, conn, "n-1", "s-1")
	seedNotification(t, conn, "n-2", "s-2")

	require.NoError(t, repo.Delete(ctx, "s-1"))

	_, err := repo.GetByID(ctx, "s-1")
	assert.True(t, apperr.IsNotFound(err))

	// the book row survives, unlinked
	seriesID, position := bookLink(t, conn, "b-1")
	assert.False(t, seriesID.Valid)
	assert.False(t, position.Valid)

	var releases, notifications int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM upcoming_releases`).Scan(&releases))
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM notifications`).Scan(&notifications))
	assert.Equal(t, 1, releases)
	assert.Equal(t, 1, notifications)

	assert.True(t, apperr.IsNotFound(repo.Delete(ctx, "s-1")))
}
