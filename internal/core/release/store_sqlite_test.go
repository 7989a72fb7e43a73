// Copyright (c) 2026 Shelfmark. All rights reserved.

package release_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaMia-3/shelfmark/internal/core/book"
	"github.com/LaMia-3/shelfmark/internal/core/release"
	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/sqlite"
)

func newReleaseRepo(t *testing.T) (*release.SQLiteRepository, *sql.DB) {
	t.Helper()

	db := sqlite.New(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { db.Close() })

	conn, err := db.Conn(context.Background())
	require.NoError(t, err)

	return release.NewSQLiteRepository(db), conn
}

func nowText() string {
	return sqlite.TimeToText(time.Now())
}

func seedSeries(t *testing.T, conn *sql.DB, id, name string, tracked bool) {
	t.Helper()
	_, err := conn.Exec(
		`INSERT INTO series (id, name, is_tracked, date_added, last_modified) VALUES (?, ?, ?, ?, ?)`,
		id, name, tracked, nowText(), nowText(),
	)
	require.NoError(t, err)
}

func seriesUpcomingFlag(t *testing.T, conn *sql.DB, seriesID string) bool {
	t.Helper()
	var flag bool
	require.NoError(t, conn.QueryRow(
		`SELECT has_upcoming FROM series WHERE id = ?`, seriesID,
	).Scan(&flag))
	return flag
}

func releaseCount(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM upcoming_releases`).Scan(&count))
	return count
}

func sampleRelease(id, title string) *release.UpcomingBook {
	now := time.Now().UTC().Truncate(time.Second)
	return &release.UpcomingBook{
		ID:                id,
		Title:             title,
		IsUserContributed: true,
		DateAdded:         now,
		LastModified:      now,
	}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

/*
TestSQLiteRepository_CreateAndGetRoundTrip verifies full-field persistence,
series-name denormalization, and the raised HasUpcoming flag.
*/
func TestSQLiteRepository_CreateAndGetRoundTrip(t *testing.T) {
	repo, conn := newReleaseRepo(t)
	ctx := context.Background()
	seedSeries(t, conn, "s-1", "Culture", true)

	expected := time.Now().UTC().Truncate(time.Second).AddDate(0, 2, 0)
	created := sampleRelease("r-1", "The Next Culture Novel")
	created.Author = strPtr("Iain M. Banks")
	created.SeriesID = strPtr("s-1")
	created.SeriesName = strPtr("stale name to overwrite")
	created.ExpectedReleaseDate = timePtr(expected)
	created.PreOrderLink = strPtr("https://example.com/preorder")
	created.Synopsis = strPtr("A new Mind awakens.")
	created.CoverImageURL = strPtr("https://example.com/cover.jpg")

	require.NoError(t, repo.Create(ctx, created))

	got, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)

	assert.Equal(t, "Culture", *got.SeriesName, "name denormalized from the series row")
	created.SeriesName = strPtr("Culture")
	assert.Equal(t, created, got)
	assert.True(t, seriesUpcomingFlag(t, conn, "s-1"))
}

func TestSQLiteRepository_GetMissingReturnsNotFound(t *testing.T) {
	repo, _ := newReleaseRepo(t)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestSQLiteRepository_CreateUnknownSeriesRollsBack checks the fail-fast on a
dangling series reference.
*/
func TestSQLiteRepository_CreateUnknownSeriesRollsBack(t *testing.T) {
	repo, conn := newReleaseRepo(t)

	orphan := sampleRelease("r-1", "Orphan Release")
	orphan.SeriesID = strPtr("ghost")

	err := repo.Create(context.Background(), orphan)
	assert.True(t, apperr.IsNotFound(err))
	assert.Zero(t, releaseCount(t, conn))
}

/*
TestSQLiteRepository_ListOrdersBySoonest verifies the soonest-first order
with dateless entries at the end.
*/
func TestSQLiteRepository_ListOrdersBySoonest(t *testing.T) {
	repo, _ := newReleaseRepo(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	far := sampleRelease("r-1", "Far Off")
	far.ExpectedReleaseDate = timePtr(base.AddDate(0, 0, 10))
	dateless := sampleRelease("r-2", "Announced Only")
	soon := sampleRelease("r-3", "Imminent")
	soon.ExpectedReleaseDate = timePtr(base.AddDate(0, 0, 2))

	for _, upcoming := range []*release.UpcomingBook{far, dateless, soon} {
		require.NoError(t, repo.Create(ctx, upcoming))
	}

	collection, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, collection, 3)
	assert.Equal(t, "r-3", collection[0].ID)
	assert.Equal(t, "r-1", collection[1].ID)
	assert.Equal(t, "r-2", collection[2].ID, "dateless entries sort last")
}

/*
TestSQLiteRepository_UpdateMovesBetweenSeries checks that the HasUpcoming
flags and the denormalized name follow a series switch.
*/
func TestSQLiteRepository_UpdateMovesBetweenSeries(t *testing.T) {
	repo, conn := newReleaseRepo(t)
	ctx := context.Background()
	seedSeries(t, conn, "s-1", "Culture", true)
	seedSeries(t, conn, "s-2", "Polity", true)

	moving := sampleRelease("r-1", "Next Novel")
	moving.SeriesID = strPtr("s-1")
	require.NoError(t, repo.Create(ctx, moving))
	require.True(t, seriesUpcomingFlag(t, conn, "s-1"))

	moving.SeriesID = strPtr("s-2")
	require.NoError(t, repo.Update(ctx, moving))

	assert.False(t, seriesUpcomingFlag(t, conn, "s-1"))
	assert.True(t, seriesUpcomingFlag(t, conn, "s-2"))

	got, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "Polity", *got.SeriesName)
}

func TestSQLiteRepository_UpdateMissingReturnsNotFound(t *testing.T) {
	repo, _ := newReleaseRepo(t)

	err := repo.Update(context.Background(), sampleRelease("ghost", "Nothing"))
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestSQLiteRepository_DeleteLowersFlagOnLastRelease verifies the flag only
drops when the series' final release goes.
*/
func TestSQLiteRepository_DeleteLowersFlagOnLastRelease(t *testing.T) {
	repo, conn := newReleaseRepo(t)
	ctx := context.Background()
	seedSeries(t, conn, "s-1", "Culture", true)

	first := sampleRelease("r-1", "First")
	first.SeriesID = strPtr("s-1")
	second := sampleRelease("r-2", "Second")
	second.SeriesID = strPtr("s-1")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	require.NoError(t, repo.Delete(ctx, "r-1"))
	assert.True(t, seriesUpcomingFlag(t, conn, "s-1"), "one release left")

	require.NoError(t, repo.Delete(ctx, "r-2"))
	assert.False(t, seriesUpcomingFlag(t, conn, "s-1"))

	err := repo.Delete(ctx, "r-2")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestSQLiteRepository_RefreshSourcedPurgesAndApplies checks the wholesale
replace: sourced entries swapped, user-contributed survivors, flags
recomputed across every touched series.
*/
func TestSQLiteRepository_RefreshSourcedPurgesAndApplies(t *testing.T) {
	repo, conn := newReleaseRepo(t)
	ctx := context.Background()
	seedSeries(t, conn, "s-1", "Culture", true)
	seedSeries(t, conn, "s-2", "Polity", true)

	manual := sampleRelease("r-manual", "Hand Entered")
	manual.SeriesID = strPtr("s-1")
	require.NoError(t, repo.Create(ctx, manual))

	stale := sampleRelease("r-stale", "Old Sourced")
	stale.IsUserContributed = false
	stale.SeriesID = strPtr("s-2")
	require.NoError(t, repo.Create(ctx, stale))

	fresh := sampleRelease("r-fresh", "New Sourced")
	fresh.IsUserContributed = false
	require.NoError(t, repo.RefreshSourced(ctx, []*release.UpcomingBook{fresh}))

	collection, err := repo.List(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(collection))
	for _, upcoming := range collection {
		ids = append(ids, upcoming.ID)
	}
	assert.ElementsMatch(t, []string{"r-manual", "r-fresh"}, ids)

	assert.True(t, seriesUpcomingFlag(t, conn, "s-1"), "manual entry still present")
	assert.False(t, seriesUpcomingFlag(t, conn, "s-2"), "sourced entry purged")
}

/*
TestSQLiteRepository_RefreshSourcedRollsBackOnDanglingSeries verifies batch
atomicity: one bad reference keeps the previous sourced set.
*/
func TestSQLiteRepository_RefreshSourcedRollsBackOnDanglingSeries(t *testing.T) {
	repo, _ := newReleaseRepo(t)
	ctx := context.Background()

	stale := sampleRelease("r-stale", "Old Sourced")
	stale.IsUserContributed = false
	require.NoError(t, repo.Create(ctx, stale))

	good := sampleRelease("r-good", "Fine Entry")
	good.IsUserContributed = false
	bad := sampleRelease("r-bad", "Dangling Entry")
	bad.IsUserContributed = false
	bad.SeriesID = strPtr("ghost")

	err := repo.RefreshSourced(ctx, []*release.UpcomingBook{good, bad})
	assert.True(t, apperr.IsNotFound(err))

	collection, listErr := repo.List(ctx)
	require.NoError(t, listErr)
	require.Len(t, collection, 1)
	assert.Equal(t, "r-stale", collection[0].ID, "previous sourced set survives the rollback")
}

/*
TestSQLiteRepository_DueFiltersTrackedAndDated checks the notification
query: tracked series only, dated entries only, horizon-inclusive.
*/
func TestSQLiteRepository_DueFiltersTrackedAndDated(t *testing.T) {
	repo, conn := newReleaseRepo(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	seedSeries(t, conn, "s-tracked", "Culture", true)
	seedSeries(t, conn, "s-quiet", "Polity", false)

	within := sampleRelease("r-1", "Imminent")
	within.SeriesID = strPtr("s-tracked")
	within.ExpectedReleaseDate = timePtr(base.AddDate(0, 0, 2))

	beyond := sampleRelease("r-2", "Far Off")
	beyond.SeriesID = strPtr("s-tracked")
	beyond.ExpectedReleaseDate = timePtr(base.AddDate(0, 0, 30))

	untracked := sampleRelease("r-3", "Quiet Series")
	untracked.SeriesID = strPtr("s-quiet")
	untracked.ExpectedReleaseDate = timePtr(base.AddDate(0, 0, 2))

	dateless := sampleRelease("r-4", "Announced Only")
	dateless.SeriesID = strPtr("s-tracked")

	for _, upcoming := range []*release.UpcomingBook{within, beyond, untracked, dateless} {
		require.NoError(t, repo.Create(ctx, upcoming))
	}

	due, err := repo.Due(ctx, base.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "r-1", due[0].ID)
}

/*
TestSQLiteRepository_PromoteConsumesReleaseAndCatalogues verifies the
promotion transaction: book row inserted, series membership appended,
progress recomputed, release gone, flag lowered.
*/
func TestSQLiteRepository_PromoteConsumesReleaseAndCatalogues(t *testing.T) {
	repo, conn := newReleaseRepo(t)
	ctx := context.Background()
	seedSeries(t, conn, "s-1", "Culture", true)

	upcoming := sampleRelease("r-1", "The Next Culture Novel")
	upcoming.SeriesID = strPtr("s-1")
	require.NoError(t, repo.Create(ctx, upcoming))

	now := time.Now().UTC().Truncate(time.Second)
	promoted := &book.Book{
		ID:           "b-1",
		Title:        "The Next Culture Novel",
		Author:       "Iain M. Banks",
		Description:  strPtr("A new Mind awakens."),
		ThumbnailURL: strPtr("https://example.com/cover.jpg"),
		Status:       book.StatusToRead,
		SeriesID:     strPtr("s-1"),
		DateAdded:    now,
		LastModified: now,
		SyncStatus:   "local",
	}
	require.NoError(t, repo.Promote(ctx, "r-1", promoted))

	_, err := repo.GetByID(ctx, "r-1")
	assert.True(t, apperr.IsNotFound(err), "release consumed")

	var status, description string
	var seriesID sql.NullString
	require.NoError(t, conn.QueryRow(
		`SELECT status, description, series_id FROM books WHERE id = ?`, "b-1",
	).Scan(&status, &description, &seriesID))
	assert.Equal(t, "to-read", status)
	assert.Equal(t, "A new Mind awakens.", description)
	assert.Equal(t, "s-1", seriesID.String)

	var members string
	var completedBooks int
	require.NoError(t, conn.QueryRow(
		`SELECT books, completed_books FROM series WHERE id = ?`, "s-1",
	).Scan(&members, &completedBooks))
	assert.JSONEq(t, `["b-1"]`, members)
	assert.Zero(t, completedBooks, "a to-read member completes nothing")

	assert.False(t, seriesUpcomingFlag(t, conn, "s-1"))
}

func TestSQLiteRepository_PromoteMissingReturnsNotFound(t *testing.T) {
	repo, _ := newReleaseRepo(t)

	err := repo.Promote(context.Background(), "ghost", &book.Book{
		ID: "b-1", Title: "Nothing", Author: "Nobody",
		Status: book.StatusToRead, SyncStatus: "local",
		DateAdded: time.Now().UTC(), LastModified: time.Now().UTC(),
	})
	assert.True(t, apperr.IsNotFound(err))
}
