package builder

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/chq/internal/queryir"
)

const aggregateKey = "aggregate"

// Aggregate runs fn(columns) AS aggregate over the query and returns the
// scalar, or nil when no row came back. columns defaults to *.
func (b *Builder) Aggregate(ctx context.Context, fn string, columns ...any) (any, error) {
	rows, err := b.aggregateQuery(fn, columns).Get(ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	v, _ := lookupFold(rows[0], aggregateKey)
	return v, nil
}

// NumericAggregate runs Aggregate and converts the result to a number.
// NULL results become 0.
func (b *Builder) NumericAggregate(ctx context.Context, fn string, columns ...any) (float64, error) {
	v, err := b.Aggregate(ctx, fn, columns...)
	if err != nil {
		return 0, err
	}
	return toFloat(v)
}

// Count returns the number of matching rows. Under GROUP BY it returns the
// number of groups. LIMIT, OFFSET and ORDER BY are ignored, union-scoped
// ones included.
func (b *Builder) Count(ctx context.Context, column ...string) (int64, error) {
	col := any("*")
	if len(column) > 0 {
		col = column[0]
	}

	src := b
	if b.query.HasUnions() {
		src = b.withoutWindow()
	}
	c := src.aggregateQuery("count", []any{col})
	c.query.LimitValue = nil
	c.query.OffsetValue = nil

	if len(c.query.Groups) > 0 {
		rows, err := c.Get(ctx)
		if err != nil {
			return 0, err
		}
		return int64(len(rows)), nil
	}

	rows, err := c.Get(ctx)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	v, _ := lookupFold(rows[0], aggregateKey)
	return toInt64(v)
}

// Min returns the smallest value of column.
func (b *Builder) Min(ctx context.Context, column string) (any, error) {
	return b.Aggregate(ctx, "min", column)
}

// Max returns the largest value of column.
func (b *Builder) Max(ctx context.Context, column string) (any, error) {
	return b.Aggregate(ctx, "max", column)
}

// Sum returns the sum of column, 0 when nothing matches.
func (b *Builder) Sum(ctx context.Context, column string) (float64, error) {
	return b.NumericAggregate(ctx, "sum", column)
}

// Avg returns the mean of column.
func (b *Builder) Avg(ctx context.Context, column string) (float64, error) {
	return b.NumericAggregate(ctx, "avg", column)
}

// aggregateQuery clones the builder with the projection replaced by the
// aggregate. ORDER BY is dropped unless the query is grouped. Union queries
// are wrapped so the aggregate covers every branch.
func (b *Builder) aggregateQuery(fn string, columns []any) *Builder {
	if len(columns) == 0 {
		columns = []any{"*"}
	}
	columns = withoutSelectAliases(columns)

	if b.query.HasUnions() {
		sql, bindings, err := b.ToSQL()
		outer := b.NewQuery().setErr(err).fromWrapped(sql, bindings)
		outer.query.Aggregate = &queryir.Aggregate{Function: fn, Columns: columns}
		return outer
	}

	c := b.Clone()
	c.query.Columns = nil
	c.query.Bindings.Clear(queryir.CategorySelect)
	c.query.Aggregate = &queryir.Aggregate{Function: fn, Columns: columns}
	if len(c.query.Groups) == 0 {
		c.query.Orders = nil
		c.query.Bindings.Clear(queryir.CategoryOrder)
	}
	return c
}

func withoutSelectAliases(columns []any) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		if s, ok := c.(string); ok {
			if j := strings.Index(strings.ToLower(s), " as "); j >= 0 {
				c = strings.TrimSpace(s[:j])
			}
		}
		out[i] = c
	}
	return out
}

// lookupFold finds key in row ignoring case.
func lookupFold(row Row, key string) (any, bool) {
	if v, ok := row[key]; ok {
		return v, true
	}
	fold := cases.Fold()
	want := fold.String(key)
	for k, v := range row {
		if fold.String(k) == want {
			return v, true
		}
	}
	return nil, false
}

// toInt64 converts a count. Integer kinds are converted directly so large
// UInt64 counts keep their precision.
func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("count %d overflows int64", x)
		}
		return int64(x), nil
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n, nil
		}
	case []byte:
		if n, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := toFloat(v)
	return int64(f), err
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseNumber(string(x))
	case string:
		return parseNumber(x)
	}
	return 0, fmt.Errorf("aggregate result %v (%T) is not numeric", v, v)
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("aggregate result %q is not numeric: %w", s, err)
	}
	return f, nil
}
