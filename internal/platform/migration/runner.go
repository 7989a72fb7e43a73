// Copyright (c) 2026 Shelfmark. All rights reserved.

// Package migration provides a thin wrapper around golang-migrate for
// running database schema migrations.
//
// # Architecture
//
// This package belongs to the Infrastructure layer. Migrations are versioned
// SQL files embedded into the binary, applied in ascending order on startup,
// ensuring the database is always in the correct state before traffic is
// served. Each migration is additive: existing tables are never dropped
// without an explicit data migration.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// ErrSchemaTooNew reports that the database was last written by a newer
// build. Refusing to open is the cooperative answer: this process must not
// hold a newer schema hostage, and it cannot safely write records whose
// shape it does not know.
var ErrSchemaTooNew = errors.New("migration: database schema is newer than this build")

// RunUp applies all pending UP migrations to the given database handle.
//
// # Parameters
//   - db: The open database handle. It stays open after RunUp returns.
//   - logger: Structured logger for migration events.
func RunUp(db *sql.DB, logger *slog.Logger) error {
	sourceDriver, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return fmt.Errorf("migration: failed to load embedded migrations: %w", err)
	}
	defer func() {
		if err := sourceDriver.Close(); err != nil {
			logger.Error("migration_source_close_failed", slog.Any("error", err))
		}
	}()

	// The database driver wraps the shared handle, so migrator.Close must
	// never be called here: it would close the handle out from under the
	// stores.
	databaseDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration: failed to initialize database driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", databaseDriver)
	if err != nil {
		return fmt.Errorf("migration: failed to initialize: %w", err)
	}

	// Enable verbose logging via the slog bridge.
	migrator.Log = &migrateLogger{logger: logger}

	latestVersion, err := Latest()
	if err != nil {
		return err
	}

	currentVersion, isDirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration: failed to get current version: %w", err)
	}

	if isDirty {
		return fmt.Errorf("migration: database is in a dirty state at version %d (manual intervention required)", currentVersion)
	}

	if currentVersion > latestVersion {
		return fmt.Errorf("%w (database at version %d, this build knows up to %d)",
			ErrSchemaTooNew, currentVersion, latestVersion)
	}

	logger.Info("migration_started", slog.Int("current_version", int(currentVersion)))

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migration_already_up_to_date")
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	newVersion, _, _ := migrator.Version()
	logger.Info("migration_successful",
		slog.Int("from_version", int(currentVersion)),
		slog.Int("to_version", int(newVersion)),
	)

	return nil
}

// Latest returns the highest migration version this build carries.
//
// It is derived from the embedded file names (NNNNNN_name.up.sql), so it can
// never drift from what RunUp would actually apply.
func Latest() (uint, error) {
	entries, err := fs.ReadDir(migrationFiles, "sql")
	if err != nil {
		return 0, fmt.Errorf("migration: failed to read embedded migrations: %w", err)
	}

	var latest uint64
	for _, entry := range entries {
		name := entry.Name()
		separator := strings.Index(name, "_")
		if separator < 0 {
			continue
		}
		version, err := strconv.ParseUint(name[:separator], 10, 32)
		if err != nil {
			continue
		}
		if version > latest {
			latest = version
		}
	}

	if latest == 0 {
		return 0, fmt.Errorf("migration: no embedded migrations found")
	}

	return uint(latest), nil
}

// migrateLogger adapts golang-migrate's logger interface to slog.
type migrateLogger struct {
	logger  *slog.Logger
	verbose bool
}

// Printf implements migrate.Logger.
func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Verbose implements migrate.Logger.
func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
