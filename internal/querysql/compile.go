package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/chq/internal/queryir"
)

// Escaper renders a value as a SQL literal.
// The transport connection implements it with its dialect's rules.
type Escaper interface {
	Escape(value any, binary bool) string
}

// EscaperFunc adapts a function to the Escaper interface.
type EscaperFunc func(value any, binary bool) string

// Escape calls f.
func (f EscaperFunc) Escape(value any, binary bool) string {
	return f(value, binary)
}

// Grammar compiles queryir.Query values to positional-placeholder SQL in the
// ClickHouse dialect.
//
// Compilation is total: a Query that the builder accepted always compiles.
// All values are emitted as `?` placeholders except Expressions and column
// references, which are inlined.
type Grammar struct {
	escaper Escaper
}

// NewGrammar creates a Grammar. A nil escaper falls back to Escape.
func NewGrammar(escaper Escaper) *Grammar {
	if escaper == nil {
		escaper = EscaperFunc(Escape)
	}
	return &Grammar{escaper: escaper}
}

// CompileSelect compiles a query to a SELECT statement.
//
// Clause order: SELECT, FROM, JOIN, WHERE, GROUP BY, HAVING, ORDER BY,
// LIMIT/OFFSET, UNION. Union-scoped ordering and limits wrap the union in
// an outer SELECT.
func (g *Grammar) CompileSelect(q *queryir.Query) string {
	parts := []string{g.compileColumns(q)}

	if q.From.Table != nil {
		from := "FROM " + g.WrapTable(q.From.Table)
		if q.From.Final {
			from += " FINAL"
		}
		parts = append(parts, from)
	}
	if len(q.Joins) > 0 {
		parts = append(parts, g.compileJoins(q.Joins))
	}
	if len(q.Wheres) > 0 {
		parts = append(parts, "WHERE "+g.CompileWheres(q.Wheres))
	}
	if len(q.Groups) > 0 {
		parts = append(parts, "GROUP BY "+g.Columnize(q.Groups))
	}
	if len(q.Havings) > 0 {
		parts = append(parts, "HAVING "+g.CompileWheres(q.Havings))
	}
	if len(q.Orders) > 0 {
		parts = append(parts, g.compileOrders(q.Orders))
	}
	if limit := compileLimit(q.LimitValue, q.OffsetValue); limit != "" {
		parts = append(parts, limit)
	}

	sql := strings.Join(parts, " ")
	if !q.HasUnions() {
		return sql
	}

	for _, u := range q.Unions {
		keyword := "UNION DISTINCT"
		if u.All {
			keyword = "UNION ALL"
		}
		sql += " " + keyword + " " + g.CompileSelect(u.Query)
	}

	if len(q.UnionOrders) == 0 && q.UnionLimit == nil && q.UnionOffset == nil {
		return sql
	}

	wrapped := []string{"SELECT * FROM (" + sql + ")"}
	if len(q.UnionOrders) > 0 {
		wrapped = append(wrapped, g.compileOrders(q.UnionOrders))
	}
	if limit := compileLimit(q.UnionLimit, q.UnionOffset); limit != "" {
		wrapped = append(wrapped, limit)
	}
	return strings.Join(wrapped, " ")
}

// compileColumns renders the SELECT list, or the aggregate projection when
// the query carries one.
func (g *Grammar) compileColumns(q *queryir.Query) string {
	if agg := q.Aggregate; agg != nil {
		cols := g.Columnize(agg.Columns)
		switch {
		case len(q.Distinct.Columns) > 0:
			cols = "DISTINCT " + strings.Join(q.Distinct.Columns, ", ")
		case (agg.Distinct || q.Distinct.Enabled) && cols != "*":
			cols = "DISTINCT " + cols
		}
		return fmt.Sprintf("SELECT %s(%s) AS aggregate", agg.Function, cols)
	}

	sel := "SELECT "
	if q.Distinct.Enabled {
		if len(q.Distinct.Columns) > 0 {
			sel += "DISTINCT ON (" + strings.Join(q.Distinct.Columns, ", ") + ") "
		} else {
			sel += "DISTINCT "
		}
	}
	if len(q.Columns) == 0 {
		return sel + "*"
	}
	return sel + g.Columnize(q.Columns)
}

func (g *Grammar) compileJoins(joins []queryir.Join) string {
	parts := make([]string, 0, len(joins))
	for _, j := range joins {
		switch {
		case j.Kind == "":
			parts = append(parts, g.Wrap(j.Table))
		case j.Kind == queryir.CrossJoin || j.First == "":
			parts = append(parts, string(j.Kind)+" "+g.WrapTable(j.Table))
		default:
			parts = append(parts, fmt.Sprintf("%s %s ON %s %s %s",
				j.Kind, g.WrapTable(j.Table), g.Wrap(j.First), j.Operator, g.Wrap(j.Second)))
		}
	}
	return strings.Join(parts, " ")
}

// CompileWheres compiles a predicate list without the WHERE keyword.
// The first predicate's connector is dropped.
func (g *Grammar) CompileWheres(preds []queryir.Predicate) string {
	var sb strings.Builder
	for i, p := range preds {
		if i > 0 {
			connector := p.Connector
			if connector == "" {
				connector = queryir.And
			}
			sb.WriteString(" ")
			sb.WriteString(string(connector))
			sb.WriteString(" ")
		}
		sb.WriteString(g.compilePredicate(p))
	}
	return sb.String()
}

func (g *Grammar) compilePredicate(p queryir.Predicate) string {
	if p.IsRaw() {
		return g.Wrap(p.Column)
	}

	col := g.Wrap(p.Column)
	var sql string

	switch {
	case p.Operator.IsNullCheck():
		sql = col + " " + string(p.Operator)
	case p.Operator.IsIn():
		sql = g.compileIn(col, p.Operator, p.Value)
	case p.Operator.IsBetween():
		vals, _ := p.Value.([]any)
		var lo, hi any
		if len(vals) == 2 {
			lo, hi = vals[0], vals[1]
		}
		sql = fmt.Sprintf("%s %s %s AND %s", col, p.Operator, g.Parameter(lo), g.Parameter(hi))
	default:
		sql = fmt.Sprintf("%s %s %s", col, p.Operator, g.Parameter(p.Value))
	}

	if p.Negated {
		return "NOT (" + sql + ")"
	}
	return sql
}

func (g *Grammar) compileIn(col string, op queryir.Operator, value any) string {
	switch v := value.(type) {
	case queryir.Expression:
		return fmt.Sprintf("%s %s (%s)", col, op, v.String())
	case []any:
		if len(v) == 0 {
			// Empty sets match nothing (IN) or everything (NOT IN).
			if op == queryir.OpNotIn || op == queryir.OpGlobalNotIn {
				return "1 = 1"
			}
			return "0 = 1"
		}
		return fmt.Sprintf("%s %s (%s)", col, op, g.Parameterize(v))
	}
	return fmt.Sprintf("%s %s (%s)", col, op, g.Parameter(value))
}

func (g *Grammar) compileOrders(orders []queryir.Order) string {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if o.Direction == "" {
			parts = append(parts, g.Wrap(o.Column))
			continue
		}
		parts = append(parts, g.Wrap(o.Column)+" "+string(o.Direction))
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

func compileLimit(limit, offset *int) string {
	var parts []string
	if limit != nil {
		parts = append(parts, fmt.Sprintf("LIMIT %d", *limit))
	}
	if offset != nil && *offset > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d", *offset))
	}
	return strings.Join(parts, " ")
}

// Wrap renders an identifier or expression. Identifiers are emitted bare;
// "x as y" aliases are normalized to "x AS y".
func (g *Grammar) Wrap(v any) string {
	switch c := v.(type) {
	case queryir.Expression:
		return c.String()
	case queryir.ColumnRef:
		return g.Wrap(string(c))
	case string:
		if i := strings.Index(strings.ToLower(c), " as "); i >= 0 {
			return strings.TrimSpace(c[:i]) + " AS " + strings.TrimSpace(c[i+4:])
		}
		return c
	}
	return fmt.Sprint(v)
}

// WrapTable renders a table source.
func (g *Grammar) WrapTable(v any) string {
	return g.Wrap(v)
}

// Columnize renders a comma-separated column list.
func (g *Grammar) Columnize(cols []any) string {
	if len(cols) == 0 {
		return "*"
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = g.Wrap(c)
	}
	return strings.Join(parts, ", ")
}

// Parameter renders a single placeholder, inlining expressions and column
// references.
func (g *Grammar) Parameter(v any) string {
	switch c := v.(type) {
	case queryir.Expression:
		return c.String()
	case queryir.ColumnRef:
		return g.Wrap(c)
	}
	return "?"
}

// Parameterize renders a comma-separated placeholder list.
func (g *Grammar) Parameterize(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = g.Parameter(v)
	}
	return strings.Join(parts, ", ")
}
