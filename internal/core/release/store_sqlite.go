// Copyright (c) 2026 Shelfmark. All rights reserved.

package release

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/LaMia-3/shelfmark/internal/core/book"
	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/dberr"
	"github.com/LaMia-3/shelfmark/internal/platform/sqlite"
)

// # SQLite Repository

// SQLiteRepository persists upcoming releases in the embedded database.
type SQLiteRepository struct {
	db *sqlite.DB
}

// NewSQLiteRepository constructs a [SQLiteRepository] on the shared handle.
func NewSQLiteRepository(db *sqlite.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const releaseColumns = `id, title, author, series_id, series_name, expected_release_date,
	pre_order_link, synopsis, cover_image_url, is_user_contributed,
	date_added, last_modified`

// # Row Adapters

type releaseRow struct {
	id                  string
	title               string
	author              sql.NullString
	seriesID            sql.NullString
	seriesName          sql.NullString
	expectedReleaseDate sql.NullString
	preOrderLink        sql.NullString
	synopsis            sql.NullString
	coverImageURL       sql.NullString
	isUserContributed   bool
	dateAdded           string
	lastModified        string
}

func scanReleaseRow(scanner interface{ Scan(...any) error }) (releaseRow, error) {
	var row releaseRow
	err := scanner.Scan(
		&row.id, &row.title, &row.author, &row.seriesID, &row.seriesName,
		&row.expectedReleaseDate, &row.preOrderLink, &row.synopsis,
		&row.coverImageURL, &row.isUserContributed, &row.dateAdded,
		&row.lastModified,
	)
	return row, err
}

func rowToRelease(row releaseRow) (*UpcomingBook, error) {
	dateAdded, err := sqlite.TextToTime(row.dateAdded)
	if err != nil {
		return nil, err
	}
	lastModified, err := sqlite.TextToTime(row.lastModified)
	if err != nil {
		return nil, err
	}
	expected, err := sqlite.TimePtr(row.expectedReleaseDate)
	if err != nil {
		return nil, err
	}

	return &UpcomingBook{
		ID:                  row.id,
		Title:               row.title,
		Author:              sqlite.TextPtr(row.author),
		SeriesID:            sqlite.TextPtr(row.seriesID),
		SeriesName:          sqlite.TextPtr(row.seriesName),
		ExpectedReleaseDate: expected,
		PreOrderLink:        sqlite.TextPtr(row.preOrderLink),
		Synopsis:            sqlite.TextPtr(row.synopsis),
		CoverImageURL:       sqlite.TextPtr(row.coverImageURL),
		IsUserContributed:   row.isUserContributed,
		DateAdded:           dateAdded,
		LastModified:        lastModified,
	}, nil
}

func releaseToRow(upcoming *UpcomingBook) releaseRow {
	return releaseRow{
		id:                  upcoming.ID,
		title:               upcoming.Title,
		author:              sqlite.NullText(upcoming.Author),
		seriesID:            sqlite.NullText(upcoming.SeriesID),
		seriesName:          sqlite.NullText(upcoming.SeriesName),
		expectedReleaseDate: sqlite.NullTimeToText(upcoming.ExpectedReleaseDate),
		preOrderLink:        sqlite.NullText(upcoming.PreOrderLink),
		synopsis:            sqlite.NullText(upcoming.Synopsis),
		coverImageURL:       sqlite.NullText(upcoming.CoverImageURL),
		isUserContributed:   upcoming.IsUserContributed,
		dateAdded:           sqlite.TimeToText(upcoming.DateAdded),
		lastModified:        sqlite.TimeToText(upcoming.LastModified),
	}
}

// # Queries

func (repository *SQLiteRepository) List(context context.Context) ([]*UpcomingBook, error) {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT %s FROM upcoming_releases
		 ORDER BY expected_release_date IS NULL, expected_release_date, title COLLATE NOCASE, id`,
		releaseColumns,
	)
	rows, err := conn.QueryContext(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_releases")
	}
	defer rows.Close()

	return collectReleases(rows)
}

func (repository *SQLiteRepository) GetByID(context context.Context, id string) (*UpcomingBook, error) {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM upcoming_releases WHERE id = ?`, releaseColumns)
	row, err := scanReleaseRow(conn.QueryRowContext(context, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Release")
	}
	if err != nil {
		return nil, dberr.Wrap(err, "get_release_by_id")
	}
	return rowToRelease(row)
}

func (repository *SQLiteRepository) Due(context context.Context, horizon time.Time) ([]*UpcomingBook, error) {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return nil, err
	}

	// Dateless entries never come due; untracked series are not notified.
	query := fmt.Sprintf(
		`SELECT %s FROM upcoming_releases
		 WHERE expected_release_date IS NOT NULL
		   AND expected_release_date <= ?
		   AND series_id IN (SELECT id FROM series WHERE is_tracked = 1)
		 ORDER BY expected_release_date, id`,
		releaseColumns,
	)
	rows, err := conn.QueryContext(context, query, sqlite.TimeToText(horizon))
	if err != nil {
		return nil, dberr.Wrap(err, "list_due_releases")
	}
	defer rows.Close()

	return collectReleases(rows)
}

func collectReleases(rows *sql.Rows) ([]*UpcomingBook, error) {
	releases := make([]*UpcomingBook, 0)
	for rows.Next() {
		row, err := scanReleaseRow(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_release")
		}
		upcoming, err := rowToRelease(row)
		if err != nil {
			return nil, dberr.Wrap(err, "decode_release")
		}
		releases = append(releases, upcoming)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_releases")
	}
	return releases, nil
}

// # Mutations

func (repository *SQLiteRepository) Create(context context.Context, upcoming *UpcomingBook) error {
	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		if err := denormalizeSeriesName(context, tx, upcoming); err != nil {
			return err
		}

		row := releaseToRow(upcoming)
		query := fmt.Sprintf(`INSERT INTO upcoming_releases (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, releaseColumns)
		if _, err := tx.ExecContext(context, query,
			row.id, row.title, row.author, row.seriesID, row.seriesName,
			row.expectedReleaseDate, row.preOrderLink, row.synopsis,
			row.coverImageURL, row.isUserContributed, row.dateAdded,
			row.lastModified,
		); err != nil {
			return dberr.Wrap(err, "create_release")
		}

		if upcoming.SeriesID != nil {
			return syncHasUpcoming(context, tx, *upcoming.SeriesID)
		}
		return nil
	})
}

func (repository *SQLiteRepository) Update(context context.Context, upcoming *UpcomingBook) error {
	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		var previousSeries sql.NullString
		err := tx.QueryRowContext(context,
			`SELECT series_id FROM upcoming_releases WHERE id = ?`, upcoming.ID,
		).Scan(&previousSeries)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Release")
		}
		if err != nil {
			return dberr.Wrap(err, "get_release_for_update")
		}

		if err := denormalizeSeriesName(context, tx, upcoming); err != nil {
			return err
		}

		row := releaseToRow(upcoming)
		_, err = tx.ExecContext(context, `
			UPDATE upcoming_releases SET
				title = ?, author = ?, series_id = ?, series_name = ?,
				expected_release_date = ?, pre_order_link = ?, synopsis = ?,
				cover_image_url = ?, is_user_contributed = ?, last_modified = ?
			WHERE id = ?`,
			row.title, row.author, row.seriesID, row.seriesName,
			row.expectedReleaseDate, row.preOrderLink, row.synopsis,
			row.coverImageURL, row.isUserContributed, row.lastModified,
			row.id,
		)
		if err != nil {
			return dberr.Wrap(err, "update_release")
		}

		previous := sqlite.TextPtr(previousSeries)
		next := upcoming.SeriesID
		if previous != nil && (next == nil || *next != *previous) {
			if err := syncHasUpcoming(context, tx, *previous); err != nil {
				return err
			}
		}
		if next != nil && (previous == nil || *previous != *next) {
			if err := syncHasUpcoming(context, tx, *next); err != nil {
				return err
			}
		}
		return nil
	})
}

func (repository *SQLiteRepository) Delete(context context.Context, id string) error {
	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		var seriesID sql.NullString
		err := tx.QueryRowContext(context,
			`SELECT series_id FROM upcoming_releases WHERE id = ?`, id,
		).Scan(&seriesID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Release")
		}
		if err != nil {
			return dberr.Wrap(err, "get_release_for_delete")
		}

		if _, err := tx.ExecContext(context, `DELETE FROM upcoming_releases WHERE id = ?`, id); err != nil {
			return dberr.Wrap(err, "delete_release")
		}

		if seriesID.Valid {
			return syncHasUpcoming(context, tx, seriesID.String)
		}
		return nil
	})
}

func (repository *SQLiteRepository) RefreshSourced(context context.Context, entries []*UpcomingBook) error {
	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(context,
			`DELETE FROM upcoming_releases WHERE is_user_contributed = 0`,
		); err != nil {
			return dberr.Wrap(err, "purge_sourced_releases")
		}

		query := fmt.Sprintf(`INSERT INTO upcoming_releases (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, releaseColumns)
		for _, upcoming := range entries {
			if err := denormalizeSeriesName(context, tx, upcoming); err != nil {
				return err
			}
			row := releaseToRow(upcoming)
			if _, err := tx.ExecContext(context, query,
				row.id, row.title, row.author, row.seriesID, row.seriesName,
				row.expectedReleaseDate, row.preOrderLink, row.synopsis,
				row.coverImageURL, row.isUserContributed, row.dateAdded,
				row.lastModified,
			); err != nil {
				return dberr.Wrap(err, "insert_sourced_release")
			}
		}

		return syncAllHasUpcoming(context, tx)
	})
}

func (repository *SQLiteRepository) Promote(context context.Context, releaseID string, promoted *book.Book) error {
	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(context, `DELETE FROM upcoming_releases WHERE id = ?`, releaseID)
		if err != nil {
			return dberr.Wrap(err, "consume_release")
		}
		if affected, err := result.RowsAffected(); err != nil {
			return dberr.Wrap(err, "consume_release")
		} else if affected == 0 {
			return apperr.NotFound("Release")
		}

		// Promoted books carry pre-catalogue metadata only; the remaining
		// columns take their schema defaults.
		_, err = tx.ExecContext(context, `
			INSERT INTO books (id, title, author, description, thumbnail_url,
				status, progress, series_id, date_added, last_modified, sync_status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			promoted.ID, promoted.Title, promoted.Author,
			sqlite.NullText(promoted.Description), sqlite.NullText(promoted.ThumbnailURL),
			string(promoted.Status), promoted.Progress, sqlite.NullText(promoted.SeriesID),
			sqlite.TimeToText(promoted.DateAdded), sqlite.TimeToText(promoted.LastModified),
			promoted.SyncStatus,
		)
		if err != nil {
			return dberr.Wrap(err, "create_promoted_book")
		}

		if promoted.SeriesID != nil {
			if err := joinSeries(context, tx, *promoted.SeriesID, promoted.ID); err != nil {
				return err
			}
			return syncHasUpcoming(context, tx, *promoted.SeriesID)
		}
		return nil
	})
}

// # Series Bookkeeping

// denormalizeSeriesName copies the owning series' current name onto the
// entry, failing fast on a dangling reference. A nil series reference
// leaves any free-text name alone.
func denormalizeSeriesName(context context.Context, tx *sql.Tx, upcoming *UpcomingBook) error {
	if upcoming.SeriesID == nil {
		return nil
	}

	var name string
	err := tx.QueryRowContext(context, `SELECT name FROM series WHERE id = ?`, *upcoming.SeriesID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Series")
	}
	if err != nil {
		return dberr.Wrap(err, "get_series_for_release")
	}

	upcoming.SeriesName = &name
	return nil
}

// syncHasUpcoming recomputes one series' derived HasUpcoming flag from the
// releases that currently reference it.
func syncHasUpcoming(context context.Context, tx *sql.Tx, seriesID string) error {
	_, err := tx.ExecContext(context, `
		UPDATE series SET has_upcoming = EXISTS (
			SELECT 1 FROM upcoming_releases WHERE upcoming_releases.series_id = series.id
		) WHERE id = ?`, seriesID)
	if err != nil {
		return dberr.Wrap(err, "sync_series_upcoming")
	}
	return nil
}

// syncAllHasUpcoming recomputes the flag across every series after a bulk
// replace, where any subset may have gained or lost entries.
func syncAllHasUpcoming(context context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(context, `
		UPDATE series SET has_upcoming = EXISTS (
			SELECT 1 FROM upcoming_releases WHERE upcoming_releases.series_id = series.id
		)`)
	if err != nil {
		return dberr.Wrap(err, "sync_series_upcoming")
	}
	return nil
}

// joinSeries makes the promoted book a member of its series: appended to
// the authoritative member list (idempotent), derived progress recomputed.
// The back-reference was written with the insert.
func joinSeries(context context.Context, tx *sql.Tx, seriesID, bookID string) error {
	var booksText string
	var orderText sql.NullString
	err := tx.QueryRowContext(context,
		`SELECT books, custom_order FROM series WHERE id = ?`, seriesID,
	).Scan(&booksText, &orderText)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Series")
	}
	if err != nil {
		return dberr.Wrap(err, "get_series_members")
	}

	var members []string
	if err := json.Unmarshal([]byte(booksText), &members); err != nil {
		return dberr.Wrap(fmt.Errorf("decode series members: %w", err), "get_series_members")
	}

	if !slices.Contains(members, bookID) {
		members = append(members, bookID)
		encoded, err := json.Marshal(members)
		if err != nil {
			return dberr.Wrap(err, "encode_series_members")
		}
		_, err = tx.ExecContext(context,
			`UPDATE series SET books = ?, last_modified = ? WHERE id = ?`,
			string(encoded), sqlite.TimeToText(time.Now()), seriesID,
		)
		if err != nil {
			return dberr.Wrap(err, "update_series_members")
		}
	}

	var total, completed int
	err = tx.QueryRowContext(context,
		`SELECT COUNT(*), COALESCE(SUM(status = 'completed'), 0) FROM books WHERE series_id = ?`,
		seriesID,
	).Scan(&total, &completed)
	if err != nil {
		return dberr.Wrap(err, "count_series_members")
	}

	progress := 0.0
	if total > 0 {
		progress = float64(completed) / float64(total)
	}
	_, err = tx.ExecContext(context,
		`UPDATE series SET completed_books = ?, reading_progress = ? WHERE id = ?`,
		completed, progress, seriesID,
	)
	if err != nil {
		return dberr.Wrap(err, "update_series_progress")
	}
	return nil
}
