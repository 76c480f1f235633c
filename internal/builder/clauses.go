package builder

import (
	"fmt"
	"strings"

	"github.com/roach88/chq/internal/queryir"
)

// From sets the source table.
func (b *Builder) From(table string) *Builder {
	b.query.From.Table = table
	return b
}

// FromSub uses a subquery as the source: FROM (sub) AS alias.
func (b *Builder) FromSub(sub any, alias string) *Builder {
	sql, bindings, err := b.parseSub(sub)
	if err != nil {
		return b.setErr(err)
	}
	b.query.From.Table = queryir.Raw(fmt.Sprintf("(%s) AS %s", sql, alias))
	b.query.Bindings.Clear(queryir.CategoryFrom)
	return b.setErr(b.query.Bindings.Append(queryir.CategoryFrom, bindings...))
}

// FromRaw uses a raw source expression.
func (b *Builder) FromRaw(sql string, bindings ...any) *Builder {
	b.query.From.Table = queryir.Raw(sql)
	b.query.Bindings.Clear(queryir.CategoryFrom)
	return b.setErr(b.query.Bindings.Add(queryir.CategoryFrom, bindings...))
}

// fromWrapped uses a compiled query as the source: FROM (sql) AS aggregate_table.
func (b *Builder) fromWrapped(sql string, bindings []any) *Builder {
	b.query.From.Table = queryir.Raw("(" + sql + ") AS aggregate_table")
	b.query.Bindings.Clear(queryir.CategoryFrom)
	return b.setErr(b.query.Bindings.Append(queryir.CategoryFrom, bindings...))
}

// Final reads merged rows with the FINAL modifier.
func (b *Builder) Final() *Builder {
	b.query.From.Final = true
	return b
}

// OnCluster targets mutations at a cluster: ALTER TABLE t ON CLUSTER name.
func (b *Builder) OnCluster(name string) *Builder {
	b.query.Cluster = name
	return b
}

// Select replaces the projection.
func (b *Builder) Select(columns ...any) *Builder {
	b.query.Columns = nil
	b.query.Bindings.Clear(queryir.CategorySelect)
	return b.AddSelect(columns...)
}

// AddSelect appends columns to the projection.
func (b *Builder) AddSelect(columns ...any) *Builder {
	for _, c := range columns {
		switch c.(type) {
		case string, queryir.Expression:
			b.query.Columns = append(b.query.Columns, c)
		default:
			return b.setErr(queryir.NewInvalidArgumentError(fmt.Sprintf("select column must be a string or expression, got %T", c), nil))
		}
	}
	return b
}

// SelectRaw appends a raw projection expression.
func (b *Builder) SelectRaw(sql string, bindings ...any) *Builder {
	b.query.Columns = append(b.query.Columns, queryir.Raw(sql))
	return b.setErr(b.query.Bindings.Add(queryir.CategorySelect, bindings...))
}

// SelectSub appends (sub) AS alias to the projection.
func (b *Builder) SelectSub(sub any, alias string) *Builder {
	sql, bindings, err := b.parseSub(sub)
	if err != nil {
		return b.setErr(err)
	}
	b.query.Columns = append(b.query.Columns, queryir.Raw(fmt.Sprintf("(%s) AS %s", sql, alias)))
	return b.setErr(b.query.Bindings.Append(queryir.CategorySelect, bindings...))
}

// Distinct marks the projection DISTINCT, or DISTINCT ON (columns).
func (b *Builder) Distinct(columns ...string) *Builder {
	b.query.Distinct = queryir.Distinct{Enabled: true, Columns: columns}
	return b
}

// Join adds an INNER JOIN: Join(t, a, b) or Join(t, a, op, b).
func (b *Builder) Join(table any, first string, args ...string) *Builder {
	return b.join(queryir.InnerJoin, table, first, args)
}

// LeftJoin adds a LEFT JOIN.
func (b *Builder) LeftJoin(table any, first string, args ...string) *Builder {
	return b.join(queryir.LeftJoin, table, first, args)
}

// RightJoin adds a RIGHT JOIN.
func (b *Builder) RightJoin(table any, first string, args ...string) *Builder {
	return b.join(queryir.RightJoin, table, first, args)
}

// CrossJoin adds a CROSS JOIN.
func (b *Builder) CrossJoin(table any) *Builder {
	b.query.Joins = append(b.query.Joins, queryir.Join{Kind: queryir.CrossJoin, Table: table})
	return b
}

// JoinRaw appends a raw join clause such as ARRAY JOIN.
func (b *Builder) JoinRaw(sql string, bindings ...any) *Builder {
	b.query.Joins = append(b.query.Joins, queryir.Join{Table: queryir.Raw(sql)})
	return b.setErr(b.query.Bindings.Add(queryir.CategoryJoin, bindings...))
}

func (b *Builder) join(kind queryir.JoinKind, table any, first string, args []string) *Builder {
	j := queryir.Join{Kind: kind, Table: table, First: first, Operator: queryir.OpEquals}
	switch len(args) {
	case 1:
		j.Second = args[0]
	case 2:
		op, err := queryir.ParseOperator(args[0])
		if err != nil {
			return b.setErr(err)
		}
		j.Operator, j.Second = op, args[1]
	default:
		return b.setErr(queryir.NewInvalidArgumentError("join expects a column or an operator and a column", nil))
	}
	b.query.Joins = append(b.query.Joins, j)
	return b
}

// GroupBy appends grouping columns.
func (b *Builder) GroupBy(columns ...any) *Builder {
	b.query.Groups = append(b.query.Groups, columns...)
	return b
}

// GroupByRaw appends a raw grouping expression.
func (b *Builder) GroupByRaw(sql string, bindings ...any) *Builder {
	b.query.Groups = append(b.query.Groups, queryir.Raw(sql))
	return b.setErr(b.query.Bindings.Add(queryir.CategoryGroupBy, bindings...))
}

// Having adds an AND HAVING predicate, with the same argument forms as Where.
func (b *Builder) Having(column any, args ...any) *Builder {
	return b.having(column, args, queryir.And)
}

// OrHaving adds an OR HAVING predicate.
func (b *Builder) OrHaving(column any, args ...any) *Builder {
	return b.having(column, args, queryir.Or)
}

func (b *Builder) having(column any, args []any, connector queryir.Connector) *Builder {
	p, bindings, err := b.parsePredicate(column, args)
	if err != nil {
		return b.setErr(err)
	}
	p.Connector = connector
	return b.addHaving(p, bindings...)
}

// HavingRaw adds a raw AND HAVING predicate.
func (b *Builder) HavingRaw(sql string, bindings ...any) *Builder {
	return b.havingRaw(sql, bindings, queryir.And)
}

// OrHavingRaw adds a raw OR HAVING predicate.
func (b *Builder) OrHavingRaw(sql string, bindings ...any) *Builder {
	return b.havingRaw(sql, bindings, queryir.Or)
}

func (b *Builder) havingRaw(sql string, bindings []any, connector queryir.Connector) *Builder {
	if err := b.query.Bindings.Add(queryir.CategoryHaving, bindings...); err != nil {
		return b.setErr(err)
	}
	b.query.Havings = append(b.query.Havings, queryir.Predicate{Column: queryir.Raw(sql), Connector: connector})
	return b
}

// HavingBetween adds `column BETWEEN ? AND ?` to HAVING.
func (b *Builder) HavingBetween(column any, values any) *Builder {
	p, bindings, err := b.buildPredicate(column, queryir.OpBetween, values)
	if err != nil {
		return b.setErr(err)
	}
	p.Connector = queryir.And
	return b.addHaving(p, bindings...)
}

func (b *Builder) addHaving(p queryir.Predicate, bindings ...any) *Builder {
	if err := queryir.ValidatePredicate(p); err != nil {
		return b.setErr(err)
	}
	if err := b.query.Bindings.Append(queryir.CategoryHaving, bindings...); err != nil {
		return b.setErr(err)
	}
	b.query.Havings = append(b.query.Havings, p)
	return b
}

// OrderBy appends an ORDER BY term. direction defaults to ascending. Once a
// union is attached the order applies to the union as a whole.
func (b *Builder) OrderBy(column any, direction ...string) *Builder {
	dir := queryir.Asc
	if len(direction) > 0 {
		parsed, err := queryir.ParseDirection(direction[0])
		if err != nil {
			return b.setErr(err)
		}
		dir = parsed
	}
	return b.addOrder(queryir.Order{Column: column, Direction: dir})
}

// OrderByDesc appends a descending ORDER BY term.
func (b *Builder) OrderByDesc(column any) *Builder {
	return b.addOrder(queryir.Order{Column: column, Direction: queryir.Desc})
}

// OrderByRaw appends a raw ORDER BY expression.
func (b *Builder) OrderByRaw(sql string, bindings ...any) *Builder {
	category := queryir.CategoryOrder
	if b.query.HasUnions() {
		category = queryir.CategoryUnionOrder
	}
	if err := b.query.Bindings.Add(category, bindings...); err != nil {
		return b.setErr(err)
	}
	return b.addOrder(queryir.Order{Column: queryir.Raw(sql)})
}

func (b *Builder) addOrder(o queryir.Order) *Builder {
	if b.query.HasUnions() {
		b.query.UnionOrders = append(b.query.UnionOrders, o)
		return b
	}
	b.query.Orders = append(b.query.Orders, o)
	return b
}

// Latest orders by column descending; column defaults to created_at.
func (b *Builder) Latest(column ...string) *Builder {
	return b.OrderByDesc(firstOr(column, "created_at"))
}

// Oldest orders by column ascending; column defaults to created_at.
func (b *Builder) Oldest(column ...string) *Builder {
	return b.OrderBy(firstOr(column, "created_at"))
}

// InRandomOrder orders by rand(), or rand(seed).
func (b *Builder) InRandomOrder(seed ...string) *Builder {
	return b.OrderByRaw("rand(" + firstOr(seed, "") + ")")
}

// Reorder drops every ORDER BY term, then optionally orders by column.
func (b *Builder) Reorder(column ...string) *Builder {
	b.query.Orders = nil
	b.query.UnionOrders = nil
	b.query.Bindings.Clear(queryir.CategoryOrder, queryir.CategoryUnionOrder)
	if len(column) > 0 {
		return b.OrderBy(column[0], column[1:]...)
	}
	return b
}

// removeExistingOrdersFor drops plain ORDER BY terms on column.
func (b *Builder) removeExistingOrdersFor(column string) {
	kept := b.query.Orders[:0:0]
	for _, o := range b.query.Orders {
		if c, ok := o.Column.(string); ok && c == column {
			continue
		}
		kept = append(kept, o)
	}
	b.query.Orders = kept
}

// Limit sets LIMIT. Negative values clear it.
func (b *Builder) Limit(n int) *Builder {
	var v *int
	if n >= 0 {
		v = queryir.IntPtr(n)
	}
	if b.query.HasUnions() {
		b.query.UnionLimit = v
	} else {
		b.query.LimitValue = v
	}
	return b
}

// Take is an alias of Limit.
func (b *Builder) Take(n int) *Builder {
	return b.Limit(n)
}

// Offset sets OFFSET. Negative values are treated as zero.
func (b *Builder) Offset(n int) *Builder {
	v := queryir.IntPtr(max(n, 0))
	if b.query.HasUnions() {
		b.query.UnionOffset = v
	} else {
		b.query.OffsetValue = v
	}
	return b
}

// Skip is an alias of Offset.
func (b *Builder) Skip(n int) *Builder {
	return b.Offset(n)
}

// ForPage windows the query to a 1-based page.
func (b *Builder) ForPage(page, perPage int) *Builder {
	return b.Offset((max(page, 1) - 1) * perPage).Limit(perPage)
}

// ForPageBeforeID windows the query to perPage rows with column < lastID,
// newest first. A nil lastID starts at the top.
func (b *Builder) ForPageBeforeID(perPage int, lastID any, column string) *Builder {
	b.removeExistingOrdersFor(column)
	if lastID != nil {
		b.Where(column, "<", lastID)
	}
	return b.OrderBy(column, "desc").Limit(perPage)
}

// ForPageAfterID windows the query to perPage rows with column > lastID,
// oldest first. A nil lastID starts at the beginning.
func (b *Builder) ForPageAfterID(perPage int, lastID any, column string) *Builder {
	b.removeExistingOrdersFor(column)
	if lastID != nil {
		b.Where(column, ">", lastID)
	}
	return b.OrderBy(column, "asc").Limit(perPage)
}

// Union attaches query with UNION DISTINCT.
func (b *Builder) Union(query any) *Builder {
	return b.union(query, false)
}

// UnionAll attaches query with UNION ALL.
func (b *Builder) UnionAll(query any) *Builder {
	return b.union(query, true)
}

func (b *Builder) union(query any, all bool) *Builder {
	var other *Builder
	switch q := query.(type) {
	case *Builder:
		other = q
	case func(*Builder):
		other = b.NewQuery()
		q(other)
	default:
		return b.setErr(queryir.NewInvalidArgumentError(fmt.Sprintf("union expects a query builder or closure, got %T", query), nil))
	}
	if other.err != nil {
		return b.setErr(other.err)
	}

	p := other.prepared()
	b.query.Unions = append(b.query.Unions, queryir.Union{Query: p.query, All: all})
	return b.setErr(b.query.Bindings.Append(queryir.CategoryUnion, p.query.Bindings.Flatten()...))
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 && strings.TrimSpace(values[0]) != "" {
		return values[0]
	}
	return fallback
}
