// Copyright (c) 2026 Shelfmark. All rights reserved.

package book

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

// SQLiteRepository persists books in the embedded database.
type SQLiteRepository struct {
	db *sqlite.DB
}

// NewSQLiteRepository constructs a [SQLiteRepository] on the shared handle.
func NewSQLiteRepository(db *sqlite.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// bookColumns is the canonical column order shared by every SELECT and
// the row scanner below.
const bookColumns = `id, title, author, genre, description, published_date, page_count,
	thumbnail_url, source_id, source_type, status, progress, started_date,
	completed_date, rating, series_id, series_position, date_added,
	last_modified, sync_status`

// # Row Adapters
//
// bookRow mirrors the books table exactly; rowToBook and bookToRow are the
// total mappings between the storage shape and the domain shape. Adding a
// column without touching both is a compile error, not a silent undefined.

type bookRow struct {
	id             string
	title          string
	author         string
	genre          sql.NullString
	description    sql.NullString
	publishedDate  sql.NullString
	pageCount      sql.NullInt64
	thumbnailURL   sql.NullString
	sourceID       sql.NullString
	sourceType     sql.NullString
	status         string
	progress       float64
	startedDate    sql.NullString
	completedDate  sql.NullString
	rating         sql.NullInt64
	seriesID       sql.NullString
	seriesPosition sql.NullInt64
	dateAdded      string
	lastModified   string
	syncStatus     string
}

func scanBookRow(scanner interface{ Scan(...any) error }) (bookRow, error) {
	var row bookRow
	err := scanner.Scan(
		&row.id, &row.title, &row.author, &row.genre, &row.description,
		&row.publishedDate, &row.pageCount, &row.thumbnailURL, &row.sourceID,
		&row.sourceType, &row.status, &row.progress, &row.startedDate,
		&row.completedDate, &row.rating, &row.seriesID, &row.seriesPosition,
		&row.dateAdded, &row.lastModified, &row.syncStatus,
	)
	return row, err
}

func rowToBook(row bookRow, tags []string) (*Book, error) {
	dateAdded, err := sqlite.TextToTime(row.dateAdded)
	if err != nil {
		return nil, err
	}
	lastModified, err := sqlite.TextToTime(row.lastModified)
	if err != nil {
		return nil, err
	}
	startedDate, err := sqlite.TimePtr(row.startedDate)
	if err != nil {
		return nil, err
	}
	completedDate, err := sqlite.TimePtr(row.completedDate)
	if err != nil {
		return nil, err
	}

	return &Book{
		ID:             row.id,
		Title:          row.title,
		Author:         row.author,
		Genre:          sqlite.TextPtr(row.genre),
		Description:    sqlite.TextPtr(row.description),
		PublishedDate:  sqlite.TextPtr(row.publishedDate),
		PageCount:      sqlite.IntPtr(row.pageCount),
		ThumbnailURL:   sqlite.TextPtr(row.thumbnailURL),
		SourceID:       sqlite.TextPtr(row.sourceID),
		SourceType:     sqlite.TextPtr(row.sourceType),
		Status:         Status(row.status),
		Progress:       row.progress,
		StartedDate:    startedDate,
		CompletedDate:  completedDate,
		Rating:         sqlite.IntPtr(row.rating),
		SeriesID:       sqlite.TextPtr(row.seriesID),
		SeriesPosition: sqlite.IntPtr(row.seriesPosition),
		Tags:           tags,
		DateAdded:      dateAdded,
		LastModified:   lastModified,
		SyncStatus:     row.syncStatus,
	}, nil
}

func bookToRow(book *Book) bookRow {
	return bookRow{
		id:             book.ID,
		title:          book.Title,
		author:         book.Author,
		genre:          sqlite.NullText(book.Genre),
		description:    sqlite.NullText(book.Description),
		publishedDate:  sqlite.NullText(book.PublishedDate),
		pageCount:      sqlite.NullInt(book.PageCount),
		thumbnailURL:   sqlite.NullText(book.ThumbnailURL),
		sourceID:       sqlite.NullText(book.SourceID),
		sourceType:     sqlite.NullText(book.SourceType),
		status:         string(book.Status),
		progress:       book.Progress,
		startedDate:    sqlite.NullTimeToText(book.StartedDate),
		completedDate:  sqlite.NullTimeToText(book.CompletedDate),
		rating:         sqlite.NullInt(book.Rating),
		seriesID:       sqlite.NullText(book.SeriesID),
		seriesPosition: sqlite.NullInt(book.SeriesPosition),
		dateAdded:      sqlite.TimeToText(book.DateAdded),
		lastModified:   sqlite.TimeToText(book.LastModified),
		syncStatus:     book.SyncStatus,
	}
}

// # Queries

func (repository *SQLiteRepository) List(context context.Context) ([]*Book, error) {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM books ORDER BY date_added DESC, id`, bookColumns)
	rows, err := conn.QueryContext(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_books")
	}
	defer rows.Close()

	books := make([]*Book, 0)
	for rows.Next() {
		row, err := scanBookRow(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_book")
		}
		book, err := rowToBook(row, nil)
		if err != nil {
			return nil, dberr.Wrap(err, "decode_book")
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_books")
	}

	if err := repository.attachTags(context, conn, books); err != nil {
		return nil, err
	}
	return books, nil
}

func (repository *SQLiteRepository) GetByID(context context.Context, id string) (*Book, error) {
	conn, err := repository.db.Conn(context)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = ?`, bookColumns)
	row, err := scanBookRow(conn.QueryRowContext(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "get_book_by_id")
	}

	tags, err := repository.loadTags(context, conn, id)
	if err != nil {
		return nil, err
	}

	book, err := rowToBook(row, tags)
	if err != nil {
		return nil, dberr.Wrap(err, "decode_book")
	}
	return book, nil
}

// attachTags loads every tag row in one query and distributes them onto
// the loaded books.
func (repository *SQLiteRepository) attachTags(context context.Context, conn *sql.DB, books []*Book) error {
	if len(books) == 0 {
		return nil
	}

	rows, err := conn.QueryContext(context, `SELECT book_id, tag FROM book_tags ORDER BY book_id, tag`)
	if err != nil {
		return dberr.Wrap(err, "list_book_tags")
	}
	defer rows.Close()

	tagsByBook := make(map[string][]string)
	for rows.Next() {
		var bookID, tag string
		if err := rows.Scan(&bookID, &tag); err != nil {
			return dberr.Wrap(err, "scan_book_tag")
		}
		tagsByBook[bookID] = append(tagsByBook[bookID], tag)
	}
	if err := rows.Err(); err != nil {
		return dberr.Wrap(err, "list_book_tags")
	}

	for _, book := range books {
		book.Tags = tagsByBook[book.ID]
	}
	return nil
}

func (repository *SQLiteRepository) loadTags(context context.Context, conn *sql.DB, bookID string) ([]string, error) {
	rows, err := conn.QueryContext(context, `SELECT tag FROM book_tags WHERE book_id = ? ORDER BY tag`, bookID)
	if err != nil {
		return nil, dberr.Wrap(err, "get_book_tags")
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, dberr.Wrap(err, "scan_book_tag")
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// # Mutations

func (repository *SQLiteRepository) Create(context context.Context, book *Book) error {
	row := bookToRow(book)

	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		query := fmt.Sprintf(`INSERT INTO books (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, bookColumns)
		if _, err := tx.ExecContext(context, query,
			row.id, row.title, row.author, row.genre, row.description,
			row.publishedDate, row.pageCount, row.thumbnailURL, row.sourceID,
			row.sourceType, row.status, row.progress, row.startedDate,
			row.completedDate, row.rating, row.seriesID, row.seriesPosition,
			row.dateAdded, row.lastModified, row.syncStatus,
		); err != nil {
			return dberr.Wrap(err, "create_book")
		}

		if err := replaceTags(context, tx, book.ID, book.Tags); err != nil {
			return err
		}

		if book.SeriesID != nil {
			if err := appendSeriesMember(context, tx, *book.SeriesID, book.ID); err != nil {
				return err
			}
			if err := refreshSeriesProgress(context, tx, *book.SeriesID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (repository *SQLiteRepository) Update(context context.Context, book *Book) error {
	row := bookToRow(book)

	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		var previousSeries sql.NullString
		err := tx.QueryRowContext(context, `SELECT series_id FROM books WHERE id = ?`, book.ID).Scan(&previousSeries)
		if err != nil {
			return dberr.Wrap(err, "get_book_for_update")
		}

		_, err = tx.ExecContext(context, `
			UPDATE books SET
				title = ?, author = ?, genre = ?, description = ?,
				published_date = ?, page_count = ?, thumbnail_url = ?,
				source_id = ?, source_type = ?, status = ?, progress = ?,
				started_date = ?, completed_date = ?, rating = ?,
				series_id = ?, series_position = ?, last_modified = ?,
				sync_status = ?
			WHERE id = ?`,
			row.title, row.author, row.genre, row.description,
			row.publishedDate, row.pageCount, row.thumbnailURL,
			row.sourceID, row.sourceType, row.status, row.progress,
			row.startedDate, row.completedDate, row.rating,
			row.seriesID, row.seriesPosition, row.lastModified,
			row.syncStatus, row.id,
		)
		if err != nil {
			return dberr.Wrap(err, "update_book")
		}

		if err := replaceTags(context, tx, book.ID, book.Tags); err != nil {
			return err
		}

		return syncSeriesMembership(context, tx, book.ID, sqlite.TextPtr(previousSeries), book.SeriesID)
	})
}

func (repository *SQLiteRepository) Delete(context context.Context, id string) error {
	return repository.db.WithTx(context, func(tx *sql.Tx) error {
		var seriesID sql.NullString
		err := tx.QueryRowContext(context, `SELECT series_id FROM books WHERE id = ?`, id).Scan(&seriesID)
		if err != nil {
			return dberr.Wrap(err, "get_book_for_delete")
		}

		// book_tags rows go with the book via ON DELETE CASCADE
		if _, err := tx.ExecContext(context, `DELETE FROM books WHERE id = ?`, id); err != nil {
			return dberr.Wrap(err, "delete_book")
		}

		if seriesID.Valid {
			if err := removeSeriesMember(context, tx, seriesID.String, id); err != nil {
				return err
			}
			if err := refreshSeriesProgress(context, tx, seriesID.String); err != nil {
				return err
			}
		}
		return nil
	})
}

func replaceTags(context context.Context, tx *sql.Tx, bookID string, tags []string) error {
	if _, err := tx.ExecContext(context, `DELETE FROM book_tags WHERE book_id = ?`, bookID); err != nil {
		return dberr.Wrap(err, "clear_book_tags")
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(context,
			`INSERT OR IGNORE INTO book_tags (book_id, tag) VALUES (?, ?)`, bookID, tag); err != nil {
			return dberr.Wrap(err, "insert_book_tag")
		}
	}
	return nil
}

// # Series Membership
//
// The series row's ordered books list is the authoritative membership
// record; these helpers keep it aligned with the back-reference inside
// the caller's transaction.

// syncSeriesMembership reconciles a book's previous and next series after
// an update: leaving, joining, or switching adjusts both member lists.
func syncSeriesMembership(context context.Context, tx *sql.Tx, bookID string, previous, next *string) error {
	if previous != nil && (next == nil || *next != *previous) {
		if err := removeSeriesMember(context, tx, *previous, bookID); err != nil {
			return err
		}
		if err := refreshSeriesProgress(context, tx, *previous); err != nil {
			return err
		}
	}
	if next != nil {
		if err := appendSeriesMember(context, tx, *next, bookID); err != nil {
			return err
		}
		if err := refreshSeriesProgress(context, tx, *next); err != nil {
			return err
		}
	}
	return nil
}

// appendSeriesMember adds bookID to the series' member list, idempotent
// when already present. A missing series fails fast.
func appendSeriesMember(context context.Context, tx *sql.Tx, seriesID, bookID string) error {
	members, customOrder, err := readSeriesLists(context, tx, seriesID)
	if err != nil {
		return err
	}
	if slices.Contains(members, bookID) {
		return nil
	}
	members = append(members, bookID)
	return writeSeriesLists(context, tx, seriesID, members, customOrder)
}

// removeSeriesMember drops bookID from the member list and the custom
// order. A series that is already gone is not an error: the caller may be
// cleaning up after it.
func removeSeriesMember(context context.Context, tx *sql.Tx, seriesID, bookID string) error {
	members, customOrder, err := readSeriesLists(context, tx, seriesID)
	if apperr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	members = slices.DeleteFunc(members, func(id string) bool { return id == bookID })
	if customOrder != nil {
		customOrder = slices.DeleteFunc(customOrder, func(id string) bool { return id == bookID })
	}
	return writeSeriesLists(context, tx, seriesID, members, customOrder)
}

// refreshSeriesProgress recomputes the derived completion counters from
// the member books' statuses: completed/total, zero when empty.
func refreshSeriesProgress(context context.Context, tx *sql.Tx, seriesID string) error {
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

func readSeriesLists(context context.Context, tx *sql.Tx, seriesID string) (members, customOrder []string, err error) {
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

func writeSeriesLists(context context.Context, tx *sql.Tx, seriesID string, members, customOrder []string) error {
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
