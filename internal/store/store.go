package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/chq/internal/queryir"
	"github.com/roach88/chq/internal/querysql"
)

// Dialect selects how literal values are escaped.
type Dialect string

const (
	// ClickHouse escapes quotes and backslashes with a backslash.
	ClickHouse Dialect = "clickhouse"
	// ANSI escapes quotes by doubling them.
	ANSI Dialect = "ansi"
)

// ParseDialect accepts a dialect name in any case. The empty string selects
// ClickHouse.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case "", ClickHouse:
		return ClickHouse, nil
	case ANSI:
		return ANSI, nil
	}
	return "", queryir.NewInvalidArgumentError(fmt.Sprintf("unknown dialect %q", s), map[string]string{"dialect": s})
}

// DefaultDialect is the dialect used for driver when none is configured.
func DefaultDialect(driver string) Dialect {
	if driver == "sqlite3" {
		return ANSI
	}
	return ClickHouse
}

// Escaper returns the literal escaper of the dialect.
func (d Dialect) Escaper() querysql.Escaper {
	if d == ANSI {
		return querysql.EscaperFunc(querysql.EscapeANSI)
	}
	return querysql.EscaperFunc(querysql.Escape)
}

// Options configures a DB.
type Options struct {
	// Dialect defaults to ANSI for sqlite3 and ClickHouse otherwise.
	Dialect Dialect
	// MaxOpenConns limits the pool. Zero keeps the driver default. Ignored
	// for sqlite3, which always uses one connection.
	MaxOpenConns int
}

// DB is the transport the query builder executes against.
//
// Reads are sent with positional bindings. Mutations arrive as literal SQL
// and are executed without bindings. Transactions are not supported.
type DB struct {
	db      *sql.DB
	driver  string
	dialect Dialect
}

// Open connects to dsn with a registered database/sql driver and verifies
// the connection.
//
// sqlite3 databases are configured with:
//   - one open connection, so in-memory databases are shared by every query
//   - a 5-second busy timeout for lock contention
func Open(ctx context.Context, driver, dsn string, opts Options) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	dialect := opts.Dialect
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}
	if opts.MaxOpenConns > 0 && driver != "sqlite3" {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if dialect == "" {
		dialect = DefaultDialect(driver)
	}

	return &DB{db: db, driver: driver, dialect: dialect}, nil
}

// Close closes the underlying pool.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SQL returns the underlying sql.DB.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Driver returns the database/sql driver name.
func (d *DB) Driver() string {
	return d.driver
}

// Dialect returns the escaping dialect.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Escape renders value as a literal in the store's dialect.
func (d *DB) Escape(value any, binary bool) string {
	return d.dialect.Escaper().Escape(value, binary)
}

// Begin is not supported: the store has no transactions.
func (d *DB) Begin(ctx context.Context) error {
	return queryir.NewNotSupportedError("transactions are not supported by this store")
}

// Transaction is not supported: fn is never called.
func (d *DB) Transaction(ctx context.Context, fn func(context.Context) error) error {
	return d.Begin(ctx)
}
