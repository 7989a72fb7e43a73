// Copyright (c) 2026 Shelfmark. All rights reserved.

package fallback_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaMia-3/shelfmark/internal/platform/fallback"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type snapshotBook struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

/*
TestStore_SaveThenLoad round-trips a collection snapshot through disk.
*/
func TestStore_SaveThenLoad(t *testing.T) {
	store := fallback.NewStore(t.TempDir(), testLogger())

	saved := []snapshotBook{
		{ID: "b1", Title: "Dune"},
		{ID: "b2", Title: "Hyperion"},
	}
	store.Save("books", saved)

	var loaded []snapshotBook
	require.NoError(t, store.Load("books", &loaded))
	assert.Equal(t, saved, loaded)
	assert.True(t, store.Has("books"))
}

/*
TestStore_LoadMissingReturnsNoSnapshot distinguishes a never-saved
collection from a corrupt one.
*/
func TestStore_LoadMissingReturnsNoSnapshot(t *testing.T) {
	store := fallback.NewStore(t.TempDir(), testLogger())

	var loaded []snapshotBook
	err := store.Load("books", &loaded)
	assert.ErrorIs(t, err, fallback.ErrNoSnapshot)
	assert.False(t, store.Has("books"))
}

/*
TestStore_SaveOverwritesPrevious verifies the newest snapshot wins and no
temp files are left behind.
*/
func TestStore_SaveOverwritesPrevious(t *testing.T) {
	dir := t.TempDir()
	store := fallback.NewStore(dir, testLogger())

	store.Save("books", []snapshotBook{{ID: "b1", Title: "Dune"}})
	store.Save("books", []snapshotBook{{ID: "b2", Title: "Hyperion"}})

	var loaded []snapshotBook
	require.NoError(t, store.Load("books", &loaded))
	require.Len(t, loaded, 1)
	assert.Equal(t, "b2", loaded[0].ID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "books.json", entries[0].Name())
}

/*
TestStore_CorruptSnapshotErrors writes garbage where a snapshot should be
and expects Load to fail without ErrNoSnapshot.
*/
func TestStore_CorruptSnapshotErrors(t *testing.T) {
	dir := t.TempDir()
	store := fallback.NewStore(dir, testLogger())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "books.json"), []byte("{not json"), 0o644))

	var loaded []snapshotBook
	err := store.Load("books", &loaded)
	require.Error(t, err)
	assert.NotErrorIs(t, err, fallback.ErrNoSnapshot)
}

/*
TestStore_SaveFailureIsSilent points the store at an unwritable location
and verifies Save does not panic or error out.
*/
func TestStore_SaveFailureIsSilent(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not dir"), 0o644))

	store := fallback.NewStore(filepath.Join(blocker, "nested"), testLogger())
	store.Save("books", []snapshotBook{{ID: "b1"}})

	assert.False(t, store.Has("books"))
}
