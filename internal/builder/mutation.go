package builder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/chq/internal/queryir"
	"github.com/roach88/chq/internal/querysql"
)

// Insert writes rows with one INSERT statement. Columns are taken from the
// first row in sorted order; a row missing a column inserts NULL for it.
func (b *Builder) Insert(ctx context.Context, rows ...Row) (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	if len(rows) == 0 {
		return true, nil
	}

	columns := sortedKeys(rows[0])
	values := make([][]any, len(rows))
	var bindings []any
	for i, row := range rows {
		values[i] = make([]any, len(columns))
		for j, col := range columns {
			v := row[col]
			values[i][j] = v
			if bindsValue(v) {
				bindings = append(bindings, v)
			}
		}
	}

	sql := b.grammar.CompileInsert(b.query.From.Name(), columns, values)
	return b.statement(ctx, "insert", sql, bindings)
}

// Update submits an ALTER TABLE ... UPDATE mutation for the rows matching
// the builder's predicates. The store applies mutations asynchronously, so
// the result is 1 when the mutation was accepted and 0 otherwise; it is not
// an affected row count. A *Builder value is rendered as a subquery.
func (b *Builder) Update(ctx context.Context, values map[string]any) (int, error) {
	sql, bindings, err := b.compileUpdate(values)
	if err != nil {
		return 0, err
	}
	ok, err := b.statement(ctx, "update", sql, bindings)
	return accepted(ok), err
}

// UpdateSQL returns the literal statement Update would submit.
func (b *Builder) UpdateSQL(values map[string]any) (string, error) {
	sql, bindings, err := b.compileUpdate(values)
	if err != nil {
		return "", err
	}
	return b.grammar.SubstituteBindingsIntoRawSQL(sql, bindings), nil
}

func (b *Builder) compileUpdate(values map[string]any) (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	if len(values) == 0 {
		return "", nil, queryir.NewEmptyUpdateError()
	}

	p := b.prepared()
	if p.err != nil {
		return "", nil, p.err
	}

	var bindings []any
	assignments := make([]querysql.Assignment, 0, len(values))
	for _, col := range sortedKeys(values) {
		v := values[col]
		if sub, ok := v.(*Builder); ok {
			sql, subBindings, err := sub.ToSQL()
			if err != nil {
				return "", nil, err
			}
			v = queryir.Raw("(" + sql + ")")
			bindings = append(bindings, subBindings...)
		} else if bindsValue(v) {
			bindings = append(bindings, v)
		}
		assignments = append(assignments, querysql.Assignment{Column: col, Value: v})
	}
	bindings = append(bindings, queryir.Clean(p.query.Bindings.Get(queryir.CategoryWhere))...)

	return p.grammar.CompileUpdate(p.query, assignments), bindings, nil
}

// Delete submits an ALTER TABLE ... DELETE mutation. With ids the mutation
// is restricted to those keys. A delete override registered with OnDelete
// replaces this path.
func (b *Builder) Delete(ctx context.Context, ids ...any) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	if b.onDelete != nil {
		return b.onDelete(ctx, b.Clone(), ids)
	}
	return b.ForceDelete(ctx, ids...)
}

// ForceDelete submits an ALTER TABLE ... DELETE mutation, ignoring any
// delete override.
func (b *Builder) ForceDelete(ctx context.Context, ids ...any) (int, error) {
	sql, bindings, err := b.compileDelete(ids)
	if err != nil {
		return 0, err
	}
	ok, err := b.statement(ctx, "delete", sql, bindings)
	return accepted(ok), err
}

// DeleteSQL returns the literal statement ForceDelete would submit.
func (b *Builder) DeleteSQL(ids ...any) (string, error) {
	sql, bindings, err := b.compileDelete(ids)
	if err != nil {
		return "", err
	}
	return b.grammar.SubstituteBindingsIntoRawSQL(sql, bindings), nil
}

func (b *Builder) compileDelete(ids []any) (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}

	c := b.Clone()
	key := b.qualifiedKey()
	switch len(ids) {
	case 0:
	case 1:
		c.Where(key, "=", ids[0])
	default:
		c.WhereIn(key, ids)
	}

	p := c.prepared()
	if p.err != nil {
		return "", nil, p.err
	}
	return p.grammar.CompileDelete(p.query), queryir.Clean(p.query.Bindings.Get(queryir.CategoryWhere)), nil
}

// qualifiedKey returns table.key, or the bare key when the source is not a
// plain table.
func (b *Builder) qualifiedKey() string {
	if table, ok := b.query.From.Table.(string); ok && table != "" {
		return table + "." + b.keyName
	}
	return b.keyName
}

// statement inlines bindings and submits sql. Mutations are sent as literal
// statements because the store does not bind parameters for them.
func (b *Builder) statement(ctx context.Context, kind, sql string, bindings []any) (bool, error) {
	if b.conn == nil {
		return false, fmt.Errorf("%s: no connection", kind)
	}
	raw := b.grammar.SubstituteBindingsIntoRawSQL(sql, bindings)
	ok, err := b.conn.Statement(ctx, raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", kind, err)
	}
	if !ok {
		slog.Warn("mutation rejected", "kind", kind, "table", b.query.From.Name())
	}
	return ok, nil
}

// bindsValue reports whether v compiles to a placeholder.
func bindsValue(v any) bool {
	switch v.(type) {
	case queryir.Expression, queryir.ColumnRef:
		return false
	}
	return true
}

func accepted(ok bool) int {
	if ok {
		return 1
	}
	return 0
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
