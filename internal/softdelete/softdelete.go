package softdelete

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/chq/internal/builder"
	"github.com/roach88/chq/internal/queryir"
)

// ScopeName is the name of the scope that hides deleted rows.
const ScopeName = "softdelete"

// Config names the columns of a soft-deletable table.
type Config struct {
	Table string `yaml:"table" json:"table"`
	// KeyColumn identifies a logical row. Defaults to "id".
	KeyColumn string `yaml:"key_column" json:"key_column"`
	// FlagColumn holds 1 for deleted rows, 0 otherwise. Defaults to "is_deleted".
	FlagColumn string `yaml:"flag_column" json:"flag_column"`
	// DeletedAtColumn receives the deletion time. Empty disables it.
	DeletedAtColumn string `yaml:"deleted_at_column" json:"deleted_at_column"`
	// VersionColumn receives a clock version on every tombstone and
	// restore, for engines that keep the highest version. Empty disables it.
	VersionColumn string `yaml:"version_column" json:"version_column"`
	// Final reads merged rows with FINAL.
	Final bool `yaml:"final" json:"final"`
}

func (c Config) withDefaults() Config {
	if c.KeyColumn == "" {
		c.KeyColumn = "id"
	}
	if c.FlagColumn == "" {
		c.FlagColumn = "is_deleted"
	}
	return c
}

// Option configures a Table.
type Option func(*Table)

// WithClock sets the clock used for deleted-at times and versions.
func WithClock(clock Clock) Option {
	return func(t *Table) { t.clock = clock }
}

// WithBuilderOptions passes options to every builder the table creates.
func WithBuilderOptions(opts ...builder.Option) Option {
	return func(t *Table) { t.builderOpts = append(t.builderOpts, opts...) }
}

// Table is a soft-deletable table.
//
// Deleting a row inserts a tombstone: a copy of the row with the flag set
// to 1 and a deleted-at time. Restoring inserts a copy with the flag set
// to 0. The store's merge keeps the latest copy per key eventually, so reads
// issued right after a delete or restore may still see older copies until
// the engine merges them.
type Table struct {
	conn        builder.Connection
	cfg         Config
	clock       Clock
	builderOpts []builder.Option
}

// New creates a soft-deletable table over conn.
func New(conn builder.Connection, cfg Config, opts ...Option) (*Table, error) {
	if cfg.Table == "" {
		return nil, queryir.NewInvalidArgumentError("soft delete table name is required", nil)
	}
	t := &Table{
		conn:  conn,
		cfg:   cfg.withDefaults(),
		clock: NewSystemClock(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Config returns the table configuration with defaults applied.
func (t *Table) Config() Config {
	return t.cfg
}

// Query returns a builder that hides deleted rows and whose Delete inserts
// tombstones.
func (t *Table) Query() *builder.Builder {
	opts := append([]builder.Option{builder.WithKeyName(t.cfg.KeyColumn)}, t.builderOpts...)
	b := builder.Table(t.conn, t.cfg.Table, opts...)
	if t.cfg.Final {
		b.Final()
	}
	return b.
		WithScope(ScopeName, t.flagScope(0)).
		OnDelete(t.deleteRows)
}

// WithoutTrashed is Query.
func (t *Table) WithoutTrashed() *builder.Builder {
	return t.Query()
}

// WithTrashed returns a builder over every row, deleted or not.
func (t *Table) WithTrashed() *builder.Builder {
	return t.Query().WithoutScope(ScopeName)
}

// OnlyTrashed returns a builder over deleted rows only.
func (t *Table) OnlyTrashed() *builder.Builder {
	return t.Query().WithScope(ScopeName, t.flagScope(1))
}

func (t *Table) flagScope(flag int) func(*builder.Builder) {
	column := t.qualified(t.cfg.FlagColumn)
	return func(b *builder.Builder) {
		b.Where(column, "=", flag)
	}
}

func (t *Table) qualified(column string) string {
	return t.cfg.Table + "." + column
}

// Delete soft-deletes the live rows with the given keys. It returns the
// number of tombstones written.
func (t *Table) Delete(ctx context.Context, keys ...any) (int, error) {
	return t.Query().Delete(ctx, keys...)
}

// DeleteRow writes a tombstone for row without reading it first.
func (t *Table) DeleteRow(ctx context.Context, row builder.Row) (int, error) {
	return t.write(ctx, "delete", []builder.Row{row}, true)
}

// Restore restores the deleted rows with the given keys. Without keys every
// deleted row is restored.
func (t *Table) Restore(ctx context.Context, keys ...any) (int, error) {
	b := t.OnlyTrashed()
	if len(keys) > 0 {
		b.WhereIn(t.qualified(t.cfg.KeyColumn), keys)
	}
	rows, err := b.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore: %w", err)
	}
	return t.write(ctx, "restore", rows, false)
}

// RestoreRow writes a live copy of row without reading it first.
func (t *Table) RestoreRow(ctx context.Context, row builder.Row) (int, error) {
	return t.write(ctx, "restore", []builder.Row{row}, false)
}

// ForceDelete physically removes rows with an ALTER TABLE ... DELETE
// mutation, deleted or not.
func (t *Table) ForceDelete(ctx context.Context, keys ...any) (int, error) {
	return t.WithTrashed().ForceDelete(ctx, keys...)
}

// Trashed reports whether row carries the deleted flag.
func (t *Table) Trashed(row builder.Row) bool {
	switch v := row[t.cfg.FlagColumn].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "0"
	case int64:
		return v != 0
	case int:
		return v != 0
	case uint8:
		return v != 0
	case float64:
		return v != 0
	default:
		return fmt.Sprint(v) != "0"
	}
}

// deleteRows is the delete override of Query builders. b carries the
// caller's predicates and the live-rows scope.
func (t *Table) deleteRows(ctx context.Context, b *builder.Builder, keys []any) (int, error) {
	if len(keys) > 0 {
		b.WhereIn(t.qualified(t.cfg.KeyColumn), keys)
	}
	rows, err := b.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return t.write(ctx, "delete", rows, true)
}

// write inserts one copy of every row with the flag, deleted-at and version
// columns set for the new state.
func (t *Table) write(ctx context.Context, op string, rows []builder.Row, deleted bool) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	copies := make([]builder.Row, len(rows))
	for i, row := range rows {
		c := maps.Clone(row)
		if deleted {
			c[t.cfg.FlagColumn] = 1
		} else {
			c[t.cfg.FlagColumn] = 0
		}
		if t.cfg.DeletedAtColumn != "" {
			if deleted {
				c[t.cfg.DeletedAtColumn] = t.clock.Now()
			} else {
				c[t.cfg.DeletedAtColumn] = nil
			}
		}
		if t.cfg.VersionColumn != "" {
			c[t.cfg.VersionColumn] = t.clock.Next()
		}
		copies[i] = c
	}

	ok, err := builder.Table(t.conn, t.cfg.Table, t.builderOpts...).Insert(ctx, copies...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return 0, nil
	}
	slog.Debug("soft delete written", "op", op, "table", t.cfg.Table, "rows", len(copies))
	return len(copies), nil
}
