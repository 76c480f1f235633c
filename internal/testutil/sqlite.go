package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/chq/internal/store"
)

// EventsSchema creates the events table used across package tests. Rows
// are versioned like a ReplacingMergeTree: a key may have several rows and
// the highest version wins once merged.
const EventsSchema = `CREATE TABLE events (
	id INTEGER NOT NULL,
	name TEXT,
	region INTEGER,
	score REAL,
	is_deleted INTEGER NOT NULL DEFAULT 0,
	deleted_at TEXT,
	version INTEGER NOT NULL DEFAULT 0,
	created_at TEXT
)`

// MergedTrigger keeps one row per id, as if every insert were merged at
// once. Tests that need merged reads install it; tests that do not see
// every inserted version.
const MergedTrigger = `CREATE TRIGGER events_merge AFTER INSERT ON events
BEGIN
	DELETE FROM events WHERE id = NEW.id AND rowid <> NEW.rowid;
END`

// OpenDB opens a sqlite database in the test's temp dir and runs stmts
// against it. The database is closed when the test ends.
func OpenDB(t testing.TB, stmts ...string) *store.DB {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(ctx, "sqlite3", path, store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	Exec(t, db, stmts...)
	return db
}

// OpenEvents opens a database holding the events table.
func OpenEvents(t testing.TB, merged bool) *store.DB {
	t.Helper()
	if merged {
		return OpenDB(t, EventsSchema, MergedTrigger)
	}
	return OpenDB(t, EventsSchema)
}

// Exec runs literal statements, failing the test on the first error.
func Exec(t testing.TB, db *store.DB, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		_, err := db.Statement(context.Background(), stmt)
		require.NoError(t, err, "statement: %s", stmt)
	}
}

// SeedFile creates a sqlite database file holding the results of stmts and
// returns its path. The database is closed before returning, so callers
// can open it with their own connection settings.
func SeedFile(t testing.TB, stmts ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seed.db")
	db, err := store.Open(context.Background(), "sqlite3", path, store.Options{})
	require.NoError(t, err)
	Exec(t, db, stmts...)
	require.NoError(t, db.Close())
	return path
}
