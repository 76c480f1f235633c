package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chq/internal/queryir"
)

// createTestDB opens a file-backed sqlite database with an events table.
func createTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(context.Background(), "sqlite3", path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ok, err := db.Statement(context.Background(), `CREATE TABLE events (id INTEGER PRIMARY KEY, name TEXT, active INTEGER, payload BLOB, created_at TEXT)`)
	require.NoError(t, err)
	require.True(t, ok)
	return db
}

func TestOpen_SQLiteDefaultsToANSI(t *testing.T) {
	db := createTestDB(t)

	assert.Equal(t, ANSI, db.Dialect())
	assert.Equal(t, "sqlite3", db.Driver())
	assert.NotNil(t, db.SQL())
}

func TestOpen_InvalidDriver(t *testing.T) {
	_, err := Open(context.Background(), "no-such-driver", "x", Options{})
	assert.Error(t, err)
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"", ClickHouse, false},
		{"clickhouse", ClickHouse, false},
		{" ANSI ", ANSI, false},
		{"mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				assert.True(t, queryir.IsInvalidArgument(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDB_StatementAndSelect(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	ok, err := db.Statement(ctx, `INSERT INTO events (id, name, active, payload, created_at) VALUES (1, 'a''b', 1, X'0102', '2024-01-02 03:04:05'), (2, 'c', 0, NULL, NULL)`)
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err := db.Select(ctx, `SELECT id, name, active, payload FROM events WHERE active = ? ORDER BY id`, []any{true})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, "a'b", rows[0]["name"])
	assert.Equal(t, "\x01\x02", rows[0]["payload"])
}

func TestDB_SelectPreparesTimeBindings(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	_, err := db.Statement(ctx, `INSERT INTO events (id, created_at) VALUES (1, '2024-01-02 03:04:05')`)
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows, err := db.Select(ctx, `SELECT id FROM events WHERE created_at = ?`, []any{at})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDB_SelectEmptyReturnsEmptySlice(t *testing.T) {
	db := createTestDB(t)

	rows, err := db.Select(context.Background(), `SELECT * FROM events`, nil)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestDB_Errors(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	_, err := db.Select(ctx, `SELECT * FROM missing`, nil)
	assert.Error(t, err)

	ok, err := db.Statement(ctx, `ALTER TABLE events DELETE WHERE 1;`)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestDB_Escape(t *testing.T) {
	db := createTestDB(t)
	assert.Equal(t, "'O''Brien'", db.Escape("O'Brien", false))

	ch := &DB{dialect: ClickHouse}
	assert.Equal(t, `'O\'Brien'`, ch.Escape("O'Brien", false))
}

func TestDefaultDialect(t *testing.T) {
	assert.Equal(t, ANSI, DefaultDialect("sqlite3"))
	assert.Equal(t, ClickHouse, DefaultDialect("clickhouse"))
	assert.Equal(t, ClickHouse, DefaultDialect("duckdb"))

	assert.Equal(t, "'it''s'", ANSI.Escaper().Escape("it's", false))
	assert.Equal(t, `'it\'s'`, ClickHouse.Escaper().Escape("it's", false))
}

func TestDB_TransactionsNotSupported(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	assert.True(t, queryir.IsNotSupported(db.Begin(ctx)))

	called := false
	err := db.Transaction(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, queryir.IsNotSupported(err))
	assert.False(t, called)
}

func TestRegisterMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	MustRegisterMetrics(registry)

	db := createTestDB(t)
	_, err := db.Select(context.Background(), `SELECT 1`, nil)
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "chq_statement_total")
	assert.Contains(t, names, "chq_statement_duration_seconds")
}
