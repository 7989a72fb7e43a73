// Copyright (c) 2026 Shelfmark. All rights reserved.

// Package sqlite owns the embedded database handle for the Shelfmark
// application.
//
// # Architecture
//
// This package is part of the Infrastructure layer. It manages the single
// SQLite database (pure-Go driver, no cgo), opens it lazily on first use,
// and runs schema migrations before handing the connection to any store.
//
// # Lifecycle
//
// The handle is opened once and shared. Concurrent callers arriving during
// an in-flight open share that one attempt through a singleflight group
// instead of racing to open the file twice. A failed open is remembered for
// health reporting but is retried on the next call, so a database that
// becomes available later (disk remounted, permissions fixed) is picked up
// without a restart.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/constants"
	"github.com/LaMia-3/shelfmark/internal/platform/migration"
)

const (
	// openTimeout bounds the whole open-and-migrate sequence.
	openTimeout = 15 * time.Second
	// pingTimeout is the maximum duration for a health check ping.
	pingTimeout = 2 * time.Second
)

// DB manages the embedded database handle.
type DB struct {
	path   string
	logger *slog.Logger

	// group collapses concurrent open attempts into one.
	group singleflight.Group

	mu      sync.RWMutex
	handle  *sql.DB
	lastErr error
}

// New creates an unopened DB for the given database path.
//
// Use ":memory:" for an ephemeral database (tests).
func New(path string, logger *slog.Logger) *DB {
	return &DB{
		path:   path,
		logger: logger,
	}
}

// Conn returns the open database handle, opening and migrating on first use.
//
// # Single-flight
//
// Concurrent callers during an in-flight open all receive the result of that
// one attempt. The open itself runs under its own timeout rather than the
// first caller's context, so one caller's cancellation cannot poison the
// shared result.
func (db *DB) Conn(ctx context.Context) (*sql.DB, error) {
	db.mu.RLock()
	handle := db.handle
	db.mu.RUnlock()

	if handle != nil {
		return handle, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err, _ := db.group.Do("open", func() (any, error) {
		return db.open()
	})
	if err != nil {
		return nil, err
	}

	return result.(*sql.DB), nil
}

// open establishes the connection, applies pragmas, and runs migrations.
// Errors come back as STORAGE_UNAVAILABLE so callers can branch on them.
func (db *DB) open() (*sql.DB, error) {
	openCtx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	inMemory := db.path == ":memory:"

	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(db.path), 0o755); err != nil {
			return nil, db.fail(fmt.Errorf("sqlite: failed to create database directory: %w", err))
		}
	}

	handle, err := sql.Open("sqlite", db.dsn())
	if err != nil {
		return nil, db.fail(fmt.Errorf("sqlite: failed to open database: %w", err))
	}

	if inMemory {
		// A pooled second connection would otherwise see its own empty
		// in-memory database.
		handle.SetMaxOpenConns(1)
	}

	if err := handle.PingContext(openCtx); err != nil {
		_ = handle.Close()
		return nil, db.fail(fmt.Errorf("sqlite: failed to reach database: %w", err))
	}

	if !inMemory {
		// WAL persists in the database file, so one Exec is enough.
		if _, err := handle.ExecContext(openCtx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = handle.Close()
			return nil, db.fail(fmt.Errorf("sqlite: failed to enable WAL: %w", err))
		}
	}

	if err := migration.RunUp(handle, db.logger); err != nil {
		_ = handle.Close()
		return nil, db.fail(err)
	}

	db.mu.Lock()
	db.handle = handle
	db.lastErr = nil
	db.mu.Unlock()

	db.logger.Info("sqlite_connected",
		slog.String("path", db.path),
		slog.Bool("in_memory", inMemory),
	)

	return handle, nil
}

// dsn builds the driver connection string.
//
// foreign_keys and busy_timeout are per-connection settings in SQLite, so
// they ride in the DSN where every pooled connection picks them up.
func (db *DB) dsn() string {
	pragmas := fmt.Sprintf("_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		constants.BusyTimeout.Milliseconds())

	if db.path == ":memory:" {
		// Shared cache keeps all connections on the same in-memory database.
		return "file::memory:?cache=shared&" + pragmas
	}

	return "file:" + db.path + "?" + pragmas
}

// fail records the open error and returns it wrapped as storage-unavailable.
// ErrSchemaTooNew keeps its identity through the wrap for errors.Is checks.
func (db *DB) fail(err error) error {
	wrapped := apperr.StorageUnavailable(err)

	db.mu.Lock()
	db.lastErr = wrapped
	db.mu.Unlock()

	db.logger.Error("sqlite_open_failed", slog.Any("error", err))
	return wrapped
}

// WithTx runs fn inside a transaction against the shared handle.
//
// The transaction commits only if fn returns nil; any error rolls the whole
// transaction back, so multi-table operations are all-or-nothing.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	handle, err := db.Conn(ctx)
	if err != nil {
		return err
	}

	tx, err := handle.BeginTx(ctx, nil)
	if err != nil {
		return apperr.StorageUnavailable(fmt.Errorf("sqlite: failed to begin transaction: %w", err))
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Internal(fmt.Errorf("sqlite: failed to commit transaction: %w", err))
	}

	return nil
}

// Ping verifies that the database is open and reachable.
func (db *DB) Ping(ctx context.Context) error {
	handle, err := db.Conn(ctx)
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := handle.PingContext(pingCtx); err != nil {
		return apperr.StorageUnavailable(fmt.Errorf("sqlite: ping failed: %w", err))
	}

	return nil
}

// Available reports whether the handle is currently open, without triggering
// an open attempt. Used by health checks.
func (db *DB) Available() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.handle != nil
}

// LastError returns the most recent open failure, or nil after a successful
// open. Used by health checks to explain degraded mode.
func (db *DB) LastError() error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.lastErr
}

// Close shuts the handle down. Safe to call on a never-opened DB.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.handle == nil {
		return nil
	}

	err := db.handle.Close()
	db.handle = nil
	return err
}
