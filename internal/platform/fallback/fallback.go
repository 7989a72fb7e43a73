// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package fallback persists JSON snapshots of cached collections so read
endpoints can keep answering while the database is unavailable.

Every successful fetch through the caching layer writes its result here,
best effort. When a later fetch fails, the service loads the last snapshot
instead of surfacing the error. Snapshots are plain JSON files, one per
collection, so a stuck deployment can be inspected with nothing but cat.

Writes go through a temp file and rename, which keeps a crash mid-write
from truncating the previous snapshot.
*/
package fallback

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
)

// ErrNoSnapshot is returned by [Store.Load] when the collection has never
// been saved. Any other Load error means a snapshot exists but could not
// be read.
var ErrNoSnapshot = apperr.NotFound("Snapshot")

// Store reads and writes per-collection JSON snapshots under a directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a snapshot store rooted at dir. The directory is
// created on first save, not here, so a read-only misconfiguration only
// bites when there is something to write.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Save writes data as the snapshot for collection. Failures are logged and
// swallowed: losing a snapshot must never fail the operation that produced
// the data.
func (store *Store) Save(collection string, data any) {
	if err := store.save(collection, data); err != nil {
		store.logger.Warn("fallback_save_failed",
			slog.String("collection", collection),
			slog.String("error", err.Error()),
		)
	}
}

func (store *Store) save(collection string, data any) error {
	if err := os.MkdirAll(store.dir, 0o755); err != nil {
		return fmt.Errorf("create fallback dir: %w", err)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	target := store.path(collection)
	tmp, err := os.CreateTemp(store.dir, collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot for collection into target, which must be a
// pointer. A missing snapshot returns [ErrNoSnapshot] so callers can tell
// "never saved" apart from "saved but unreadable".
func (store *Store) Load(collection string, target any) error {
	payload, err := os.ReadFile(store.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoSnapshot
		}
		return fmt.Errorf("read snapshot %s: %w", collection, err)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", collection, err)
	}
	return nil
}

// Has reports whether a snapshot exists for collection.
func (store *Store) Has(collection string) bool {
	_, err := os.Stat(store.path(collection))
	return err == nil
}

func (store *Store) path(collection string) string {
	return filepath.Join(store.dir, collection+".json")
}
