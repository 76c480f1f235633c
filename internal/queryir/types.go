package queryir

import "fmt"

// Expression is a raw SQL fragment.
//
// Expressions are spliced into compiled SQL verbatim: they are never
// quoted, wrapped or turned into placeholders.
type Expression struct {
	sql string
}

// Raw creates an Expression from a SQL fragment.
func Raw(sql string) Expression {
	return Expression{sql: sql}
}

// String returns the SQL fragment.
func (e Expression) String() string {
	return e.sql
}

// IsExpression reports whether v is an Expression.
func IsExpression(v any) bool {
	_, ok := v.(Expression)
	return ok
}

// ColumnRef names a column used on the right hand side of a predicate.
// The grammar renders it as an identifier instead of a placeholder.
type ColumnRef string

// Connector joins a predicate to the one before it.
type Connector string

const (
	And Connector = "AND"
	Or  Connector = "OR"
)

// Predicate is a single WHERE or HAVING condition.
//
// Column is a string identifier or an Expression. When Column is an
// Expression and Operator is empty the predicate is rendered as the raw
// expression alone (raw wheres and nested groups).
//
// Value depends on Operator:
//   - comparison operators: a scalar, a ColumnRef or an Expression
//   - IN / NOT IN: []any of scalars, or an Expression holding a subquery
//   - BETWEEN / NOT BETWEEN: []any of length two
//   - IS NULL / IS NOT NULL: ignored
type Predicate struct {
	Column    any
	Operator  Operator
	Value     any
	Connector Connector
	Negated   bool
}

// IsRaw reports whether the predicate renders as a bare expression.
func (p Predicate) IsRaw() bool {
	return p.Operator == "" && IsExpression(p.Column)
}

// Direction is an ORDER BY direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection accepts "asc"/"desc" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(upper(s)) {
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", NewInvalidArgumentError(fmt.Sprintf("order direction must be \"asc\" or \"desc\", got %q", s), nil)
}

// Order is an ORDER BY term. Raw orders carry an Expression column and an
// empty direction.
type Order struct {
	Column    any
	Direction Direction
}

// JoinKind is the join keyword rendered before the table.
type JoinKind string

const (
	InnerJoin JoinKind = "INNER JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
	RightJoin JoinKind = "RIGHT JOIN"
	CrossJoin JoinKind = "CROSS JOIN"
)

// Join is a JOIN clause. Table is a string or an Expression. A join with an
// empty Kind is a raw join whose Table expression is emitted as is.
type Join struct {
	Kind     JoinKind
	Table    any
	First    string
	Operator Operator
	Second   string
}

// Union attaches another query with UNION ALL or UNION DISTINCT.
type Union struct {
	Query *Query
	All   bool
}

// Aggregate marks a query as an aggregate projection: fn(columns) AS aggregate.
type Aggregate struct {
	Function string
	Columns  []any
	Distinct bool
}

// Limit is the LIMIT/OFFSET pair derived from a query.
type Limit struct {
	Count  int
	Offset int
}

// From is the query source.
type From struct {
	// Table is a table name or an Expression (subquery or raw source).
	Table any
	// Final appends the FINAL modifier, forcing merged reads.
	Final bool
}

// Name returns the table name, or "" for expression sources.
func (f From) Name() string {
	if s, ok := f.Table.(string); ok {
		return s
	}
	return ""
}

// Distinct is the DISTINCT state of a projection. A non-empty Columns list
// renders DISTINCT ON (...).
type Distinct struct {
	Enabled bool
	Columns []string
}
