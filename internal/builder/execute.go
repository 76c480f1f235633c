package builder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/chq/internal/queryir"
)

// Get executes the query and returns every row.
// Returns an empty slice (not nil) when nothing matches.
func (b *Builder) Get(ctx context.Context) ([]Row, error) {
	sql, bindings, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	if b.conn == nil {
		return nil, fmt.Errorf("select: no connection")
	}
	rows, err := b.conn.Select(ctx, sql, bindings)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// First returns the first row, or nil when nothing matches.
func (b *Builder) First(ctx context.Context) (Row, error) {
	rows, err := b.Clone().Limit(1).Get(ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Find returns the row whose key equals id, or nil.
func (b *Builder) Find(ctx context.Context, id any) (Row, error) {
	return b.Clone().Where(b.keyName, "=", id).First(ctx)
}

// Value returns column from the first row, or nil.
func (b *Builder) Value(ctx context.Context, column string) (any, error) {
	row, err := b.Clone().Select(column).First(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	v, _ := lookup(row, column)
	return v, nil
}

// RawValue selects a raw expression and returns its value from the first row.
func (b *Builder) RawValue(ctx context.Context, expr string, bindings ...any) (any, error) {
	c := b.Clone()
	c.query.Columns = nil
	c.query.Bindings.Clear(queryir.CategorySelect)
	row, err := c.SelectRaw(expr, bindings...).First(ctx)
	if err != nil || len(row) == 0 {
		return nil, err
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return row[keys[0]], nil
}

// Pluck returns column from every row.
func (b *Builder) Pluck(ctx context.Context, column string) ([]any, error) {
	rows, err := b.Clone().Select(column).Get(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i], _ = lookup(row, column)
	}
	return out, nil
}

// Implode joins the plucked values of column with glue.
func (b *Builder) Implode(ctx context.Context, column, glue string) (string, error) {
	values, err := b.Pluck(ctx, column)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(values))
	for i, v := range values {
		if v != nil {
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, glue), nil
}

// Sole returns the only matching row. It fails with ErrNoRecords or
// ErrMultipleRecords otherwise.
func (b *Builder) Sole(ctx context.Context) (Row, error) {
	rows, err := b.Clone().Limit(2).Get(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("sole: %w", queryir.ErrNoRecords)
	case 1:
		return rows[0], nil
	}
	return nil, fmt.Errorf("sole: %w", queryir.ErrMultipleRecords)
}

// SoleValue returns column of the only matching row.
func (b *Builder) SoleValue(ctx context.Context, column string) (any, error) {
	row, err := b.Clone().Select(column).Sole(ctx)
	if err != nil {
		return nil, err
	}
	v, _ := lookup(row, column)
	return v, nil
}

// Exists reports whether any row matches, fetching at most one.
func (b *Builder) Exists(ctx context.Context) (bool, error) {
	rows, err := b.Clone().Limit(1).Get(ctx)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// DoesntExist reports whether no row matches.
func (b *Builder) DoesntExist(ctx context.Context) (bool, error) {
	ok, err := b.Exists(ctx)
	return !ok, err
}

// lookup finds column in row. Qualified names ("t.col") and aliases
// ("expr AS name") fall back to their final identifier.
func lookup(row Row, column string) (any, bool) {
	if v, ok := row[column]; ok {
		return v, true
	}
	name := column
	if i := strings.LastIndex(strings.ToLower(name), " as "); i >= 0 {
		name = strings.TrimSpace(name[i+4:])
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	v, ok := row[name]
	return v, ok
}
