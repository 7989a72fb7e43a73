// Copyright (c) 2026 Shelfmark. All rights reserved.

package series

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/dberr"
	"github.com/LaMia-3/shelfmark/internal/platform/sqlite"
)

// # SQLite Repository

// SQLiteRepository persists series in the embedded database.
type SQLiteRepository struct {
	db *sqlite.DB
}

// NewSQLiteRepository constructs a [SQLiteRepository] on the shared handle.
func NewSQLiteRepository(db *sqlite.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// seriesColumns is the canonical column order shared by every SELECT and
// the row scanner below.
const seriesColumns = `id, name, author, description, cover_image_url, books, total_books,
	completed_books, reading_progress, reading_order, custom_order, status,
	is_tracked, has_upcoming, date_added, last_modified`

// # Row Adapters

type seriesRow struct {
	id              string
	name            string
	author          sql.NullString
	description     sql.NullString
	coverImageURL   sql.NullString
	books           string
	totalBooks      int
	completedBooks  int
	readingProgress float64
	readingOrder    string
	customOrder     sql.NullString
	status          string
	isTracked       bool
	hasUpcoming     bool
	dateAdded       string
	lastModified    string
}

func scanSeriesRow(scanner interface{ Scan(...any) error }) (seriesRow, error) {
	var row seriesRow
	err := scanner.Scan(
		&row.id, &row.name, &row.author, &row.description, &row.coverImageURL,
		&row.books, &row.totalBooks, &row.completedBooks, &row.readingProgress,
		&row.readingOrder, &row.customOrder, &row.status, &row.isTracked,
		&row.hasUpcoming, &row.dateAdded, &row.lastModified,
	)
	return row, err
}

func rowToSeries(row seriesRow) (*Series, error) {
	dateAdded, err := sqlite.TextToTime(row.dateAdded)
	if err != nil {
		return nil, err
	}
	lastModified, err := sqlite.TextToTime(row.lastModified)
	if err != nil {
		return nil, err
	}

	var books []string
	if err := json.Unmarshal([]byte(row.books), &books); err != nil {
		return nil, fmt.Errorf("decode series members: %w", err)
	}
	if books == nil {
		books = []string{}
	}

	var customOrder []string
	if row.customOrder.Valid {
		if err := json.Unmarshal([]byte(row.customOrder.String), &customOrder); err != nil {
			return nil, fmt.Errorf("decode series custom order: %w", err)
		}
	}

	return &Series{
		ID:              row.id,
		Name:            row.name,
		Author:          sqlite.TextPtr(row.author),
		Description:     sqlite.TextPtr(row.description),
		CoverImageURL:   sqlite.TextPtr(row.coverImageURL),
		Books:           books,
		TotalBooks:      row.totalBooks,
		CompletedBooks:  row.completedBooks,
		ReadingProgress: row.readingProgress,
		ReadingOrder:    ReadingOrder(row.readingOrder),
		CustomOrder:     customOrder,
		Status:          Status(row.status),
		IsTracked:       row.isTracked,
		HasUpcoming:     row.hasUpcoming,
		DateAdded:       dateAdded,
		LastModified:    lastModified,
	}, nil
}

func seriesToRow(series *Series) (seriesRow, error) {
	members := series.Books
	if members == nil {
		members = []string{}
	}
	booksText, err := json.Marshal(members)
	if err != nil {
		return seriesRow{}, fmt.Errorf("encode series members: %w", err)
	}

	var orderText sql.NullString
	if series.CustomOrder != nil {
		encoded, err := json.Marshal(series.CustomOrder)
		if err != nil {
			return seriesRow{}, fmt.Errorf("encode series custom order: %w", err)
		}
		orderText = sql.NullString{String: string(encoded), Valid: true}
	}

	return seriesRow{
		id:              series.ID,
		name:            series.Name,
		author:          sqlite.NullText(series.Author),
		description:     sqlite.NullText(series.Description),
		coverImageURL:   sqlite.NullText(series.CoverImageURL),
		books:           string(booksText),
		totalBooks:      series.TotalBooks,
		completedBooks:  series.CompletedBooks,
		readingProgress: series.ReadingProgress,
		readingOrder:    string(series.ReadingOrder),
		customOrder:     orderText,
		status:          string(series.Status),
		isTracked:       series.IsTracked,
		hasUpcoming:     series.HasUpcoming,
		dateAdded:       sqlite.TimeToText(series.DateAdded),
		lastModified:    sqlite.TimeToText(series.LastModified),
	}, nil
}

// # Queries

func (repository *SQLiteRepository) List(context context.Context) ([]*Series, error) {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM series ORDER BY name COLLATE NOCASE, id`, seriesColumns)
	rows, err := conn.QueryContext(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_series")
	}
	defer rows.Close()

	collection := make([]*Series, 0)
	for rows.Next() {
		row, err := scanSeriesRow(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_series")
		}
		series, err := rowToSeries(row)
		if err != nil {
			return nil, dberr.Wrap(err, "decode_series")
		}
		collection = append(collection, series)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_series")
	}
	return collection, nil
}

func (repository *SQLiteRepository) GetByID(context context.Context, id string) (*Series, error) {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM series WHERE id = ?`, seriesColumns)
	row, err := scanSeriesRow(conn.QueryRowContext(context, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Series")
	}
	if err != nil {
		return nil, dberr.Wrap(err, "get_series_by_id")
	}

	series, err := rowToSeries(row)
	if err != nil {
		return nil, dberr.Wrap(err, "decode_series")
	}
	return series, nil
}

// # Mutations

func (repository *SQLiteRepository) Create(context context.Context, series *Series) error {
	row, err := seriesToRow(series)
	if err != nil {
		return dberr.Wrap(err, "encode_series")
	}

	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		query := fmt.Sprintf(`INSERT INTO series (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, seriesColumns)
		if _, err := tx.ExecContext(context, query,
			row.id, row.name, row.author, row.description, row.coverImageURL,
			row.books, row.totalBooks, row.completedBooks, row.readingProgress,
			row.readingOrder, row.customOrder, row.status, row.isTracked,
			row.hasUpcoming, row.dateAdded, row.lastModified,
		); err != nil {
			return dberr.Wrap(err, "create_series")
		}
		return nil
	})
}

func (repository *SQLiteRepository) Update(context context.Context, series *Series) error {
	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		members, _, err := memberLists(context, tx, series.ID)
		if err != nil {
			return err
		}

		// a stale custom order cannot reference ex-members
		custom := filterToMembers(series.CustomOrder, members)
		var orderText sql.NullString
		if custom != nil {
			encoded, err := json.Marshal(custom)
			if err != nil {
				return dberr.Wrap(err, "encode_series_custom_order")
			}
			orderText = sql.NullString{String: string(encoded), Valid: true}
		}

		_, err = tx.ExecContext(context, `
			UPDATE series SET
				name = ?, author = ?, description = ?, cover_image_url = ?,
				total_books = ?, reading_order = ?, custom_order = ?,
				status = ?, is_tracked = ?, last_modified = ?
			WHERE id = ?`,
			series.Name, sqlite.NullText(series.Author), sqlite.NullText(series.Description),
			sqlite.NullText(series.CoverImageURL), series.TotalBooks,
			string(series.ReadingOrder), orderText, string(series.Status),
			series.IsTracked, sqlite.TimeToText(series.LastModified), series.ID,
		)
		if err != nil {
			return dberr.Wrap(err, "update_series")
		}
		return nil
	})
}

func (repository *SQLiteRepository) Delete(context context.Context, id string) error {
	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(context, `SELECT 1 FROM series WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Series")
		}
		if err != nil {
			return dberr.Wrap(err, "get_series_for_delete")
		}

		now := sqlite.TimeToText(time.Now())

		// member books survive, the back-reference does not
		if _, err := tx.ExecContext(context,
			`UPDATE books SET series_id = NULL, series_position = NULL, last_modified = ? WHERE series_id = ?`,
			now, id,
		); err != nil {
			return dberr.Wrap(err, "unlink_series_members")
		}

		if _, err := tx.ExecContext(context, `DELETE FROM upcoming_releases WHERE series_id = ?`, id); err != nil {
			return dberr.Wrap(err, "delete_series_releases")
		}
		if _, err := tx.ExecContext(context, `DELETE FROM notifications WHERE series_id = ?`, id); err != nil {
			return dberr.Wrap(err, "delete_series_notifications")
		}
		if _, err := tx.ExecContext(context, `DELETE FROM series WHERE id = ?`, id); err != nil {
			return dberr.Wrap(err, "delete_series")
		}
		return nil
	})
}

func (repository *SQLiteRepository) AddBook(context context.Context, seriesID, bookID string, position *int) error {
	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		members, custom, err := memberLists(context, tx, seriesID)
		if err != nil {
			return err
		}

		var previous sql.NullString
		err = tx.QueryRowContext(context, `SELECT series_id FROM books WHERE id = ?`, bookID).Scan(&previous)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Book")
		}
		if err != nil {
			return dberr.Wrap(err, "get_series_member")
		}

		// a book switching series leaves the old one's member list first
		var vacated string
		if previous.Valid && previous.String != seriesID {
			if err := dropMember(context, tx, previous.String, bookID); err != nil {
				return err
			}
			vacated = previous.String
		}

		if !slices.Contains(members, bookID) {
			members = append(members, bookID)
			if err := saveMemberLists(context, tx, seriesID, members, custom); err != nil {
				return err
			}
		}

		slot := slices.Index(members, bookID) + 1
		if position != nil {
			slot = *position
		}

		if _, err := tx.ExecContext(context,
			`UPDATE books SET series_id = ?, series_position = ?, last_modified = ? WHERE id = ?`,
			seriesID, slot, sqlite.TimeToText(time.Now()), bookID,
		); err != nil {
			return dberr.Wrap(err, "link_series_member")
		}

		// counters recompute from back-references, so both run after the
		// book row points at its new series
		if vacated != "" {
			if err := recomputeProgress(context, tx, vacated); err != nil {
				return err
			}
		}
		return recomputeProgress(context, tx, seriesID)
	})
}

func (repository *SQLiteRepository) RemoveBook(context context.Context, seriesID, bookID string) error {
	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		members, custom, err := memberLists(context, tx, seriesID)
		if err != nil {
			return err
		}

		members = slices.DeleteFunc(members, func(id string) bool { return id == bookID })
		if custom != nil {
			custom = slices.DeleteFunc(custom, func(id string) bool { return id == bookID })
		}
		if err := saveMemberLists(context, tx, seriesID, members, custom); err != nil {
			return err
		}

		// only clear the back-reference if it still points at this series
		if _, err := tx.ExecContext(context,
			`UPDATE books SET series_id = NULL, series_position = NULL, last_modified = ? WHERE id = ? AND series_id = ?`,
			sqlite.TimeToText(time.Now()), bookID, seriesID,
		); err != nil {
			return dberr.Wrap(err, "unlink_series_member")
		}

		return recomputeProgress(context, tx, seriesID)
	})
}

func (repository *SQLiteRepository) RefreshProgress(context context.Context, seriesID string) error {
	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		if _, _, err := memberLists(context, tx, seriesID); err != nil {
			return err
		}
		return recomputeProgress(context, tx, seriesID)
	})
}

// # Membership Helpers

func memberLists(context context.Context, tx *sql.Tx, seriesID string) (members, customOrder []string, err error) {
	var booksText string
	var orderText sql.NullString
	err = tx.QueryRowContext(context,
		`SELECT books, custom_order FROM series WHERE id = ?`, seriesID,
	).Scan(&booksText, &orderText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperr.NotFound("Series")
	}
	if err != nil {
		return nil, nil, dberr.Wrap(err, "get_series_members")
	}

	if err := json.Unmarshal([]byte(booksText), &members); err != nil {
		return nil, nil, dberr.Wrap(fmt.Errorf("decode series members: %w", err), "get_series_members")
	}
	if orderText.Valid {
		if err := json.Unmarshal([]byte(orderText.String), &customOrder); err != nil {
			return nil, nil, dberr.Wrap(fmt.Errorf("decode series custom order: %w", err), "get_series_members")
		}
	}
	return members, customOrder, nil
}

func saveMemberLists(context context.Context, tx *sql.Tx, seriesID string, members, customOrder []string) error {
	if members == nil {
		members = []string{}
	}
	booksText, err := json.Marshal(members)
	if err != nil {
		return dberr.Wrap(err, "encode_series_members")
	}

	var orderText sql.NullString
	if customOrder != nil {
		encoded, err := json.Marshal(customOrder)
		if err != nil {
			return dberr.Wrap(err, "encode_series_custom_order")
		}
		orderText = sql.NullString{String: string(encoded), Valid: true}
	}

	_, err = tx.ExecContext(context,
		`UPDATE series SET books = ?, custom_order = ?, last_modified = ? WHERE id = ?`,
		string(booksText), orderText, sqlite.TimeToText(time.Now()), seriesID,
	)
	if err != nil {
		return dberr.Wrap(err, "update_series_members")
	}
	return nil
}

// dropMember removes bookID from a series' lists, tolerating a series that
// no longer exists.
func dropMember(context context.Context, tx *sql.Tx, seriesID, bookID string) error {
	members, custom, err := memberLists(context, tx, seriesID)
	if apperr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	members = slices.DeleteFunc(members, func(id string) bool { return id == bookID })
	if custom != nil {
		custom = slices.DeleteFunc(custom, func(id string) bool { return id == bookID })
	}
	return saveMemberLists(context, tx, seriesID, members, custom)
}

// recomputeProgress rederives the completion counters from member book
// statuses: completed/total, zero when the series owns no books.
func recomputeProgress(context context.Context, tx *sql.Tx, seriesID string) error {
	var total, completed int
	err := tx.QueryRowContext(context,
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
		`UPDATE series SET completed_books = ?, reading_progress = ?, last_modified = ? WHERE id = ?`,
		completed, progress, sqlite.TimeToText(time.Now()), seriesID,
	)
	if err != nil {
		return dberr.Wrap(err, "update_series_progress")
	}
	return nil
}

// filterToMembers keeps only ids that are current members, preserving the
// candidate order. A nil candidate stays nil (no custom order stored).
func filterToMembers(candidate, members []string) []string {
	if candidate == nil {
		return nil
	}
	kept := make([]string, 0, len(candidate))
	for _, id := range candidate {
		if slices.Contains(members, id) {
			kept = append(kept, id)
		}
	}
	return kept
}
