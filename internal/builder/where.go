package builder

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/roach88/chq/internal/queryir"
)

// Where adds an AND predicate.
//
// Accepted forms:
//
//	Where("status", "active")            // status = ?
//	Where("region", []int{1, 2})         // region IN (?, ?)
//	Where("age", ">=", 18)               // age >= ?
//	Where("deleted_at", nil)             // deleted_at IS NULL
//	Where("total", ">", subBuilder)      // total > (SELECT ...)
//	Where(func(q *Builder) { ... })      // nested group
//	Where(map[string]any{"a": 1})        // a = ? AND ..., grouped
//	Where(Raw("has(tags, 'x')"))         // raw predicate
func (b *Builder) Where(column any, args ...any) *Builder {
	return b.where(column, args, queryir.And, false)
}

// OrWhere adds an OR predicate. See Where for the accepted forms.
func (b *Builder) OrWhere(column any, args ...any) *Builder {
	return b.where(column, args, queryir.Or, false)
}

// WhereNot adds an AND predicate with its operator inverted. Operators
// without an inverse are wrapped in NOT (...).
func (b *Builder) WhereNot(column any, args ...any) *Builder {
	return b.where(column, args, queryir.And, true)
}

// OrWhereNot is the OR variant of WhereNot.
func (b *Builder) OrWhereNot(column any, args ...any) *Builder {
	return b.where(column, args, queryir.Or, true)
}

func (b *Builder) where(column any, args []any, connector queryir.Connector, not bool) *Builder {
	switch c := column.(type) {
	case func(*Builder):
		return b.whereNested(c, connector, not)
	case map[string]any:
		return b.whereNested(func(q *Builder) {
			keys := make([]string, 0, len(c))
			for k := range c {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				q.Where(k, c[k])
			}
		}, connector, not)
	}

	p, bindings, err := b.parsePredicate(column, args)
	if err != nil {
		return b.setErr(err)
	}
	p.Connector = connector
	if not {
		p = negate(p)
	}
	return b.addWhere(p, bindings...)
}

// parsePredicate resolves the two and three argument forms into a predicate
// and the bindings its placeholders consume.
func (b *Builder) parsePredicate(column any, args []any) (queryir.Predicate, []any, error) {
	if expr, ok := column.(queryir.Expression); ok && len(args) == 0 {
		return queryir.Predicate{Column: expr}, nil, nil
	}
	if _, ok := column.(string); !ok && !queryir.IsExpression(column) {
		return queryir.Predicate{}, nil, queryir.NewInvalidArgumentError(
			fmt.Sprintf("where column must be a string or expression, got %T", column), nil)
	}

	var op queryir.Operator
	var value any
	switch len(args) {
	case 1:
		value = args[0]
		if _, isList := toList(value); isList {
			op = queryir.OpIn
		} else {
			op = queryir.OpEquals
		}
	case 2:
		parsed, err := parseOperator(args[0])
		if err != nil {
			return queryir.Predicate{}, nil, err
		}
		op, value = parsed, args[1]
	default:
		return queryir.Predicate{}, nil, queryir.NewInvalidArgumentError(
			fmt.Sprintf("where expects a value or an operator and a value, got %d arguments", len(args)), nil)
	}

	return b.buildPredicate(column, op, value)
}

func (b *Builder) buildPredicate(column any, op queryir.Operator, value any) (queryir.Predicate, []any, error) {
	p := queryir.Predicate{Column: column, Operator: op}

	if value == nil {
		switch op {
		case queryir.OpEquals:
			p.Operator = queryir.OpIsNull
			return p, nil, nil
		case queryir.OpNotEquals, queryir.OpNotEqualsAlt:
			p.Operator = queryir.OpIsNotNull
			return p, nil, nil
		}
	}

	if isSubquery(value) {
		sql, bindings, err := b.parseSub(value)
		if err != nil {
			return p, nil, err
		}
		p.Value = queryir.Raw("(" + sql + ")")
		if op.IsIn() {
			p.Value = queryir.Raw(sql)
		}
		return p, bindings, nil
	}

	switch {
	case op.IsNullCheck():
		return p, nil, nil
	case op.IsIn():
		if expr, ok := value.(queryir.Expression); ok {
			p.Value = expr
			return p, nil, nil
		}
		list, ok := toList(value)
		if !ok {
			return p, nil, queryir.NewInvalidArgumentError(
				fmt.Sprintf("%s requires a sequence or subquery, got %T", op, value), nil)
		}
		p.Value = list
		return p, list, nil
	case op.IsBetween():
		list, ok := toList(value)
		if !ok || len(list) < 2 {
			return p, nil, queryir.NewInvalidArgumentError(fmt.Sprintf("%s requires two values", op), nil)
		}
		p.Value = list[:2:2]
		return p, list[:2], nil
	}

	p.Value = value
	if _, ok := value.(queryir.ColumnRef); ok {
		return p, nil, nil
	}
	return p, []any{value}, nil
}

func parseOperator(v any) (queryir.Operator, error) {
	switch op := v.(type) {
	case queryir.Operator:
		return queryir.ParseOperator(string(op))
	case string:
		return queryir.ParseOperator(op)
	}
	return "", queryir.NewInvalidOperatorError(fmt.Sprint(v))
}

func negate(p queryir.Predicate) queryir.Predicate {
	if p.IsRaw() {
		p.Column = queryir.Raw("NOT (" + p.Column.(queryir.Expression).String() + ")")
		return p
	}
	if inv, ok := p.Operator.Negate(); ok {
		p.Operator = inv
		return p
	}
	p.Negated = !p.Negated
	return p
}

// addWhere is the single append primitive for WHERE predicates. bindings
// must be listed in the order the predicate renders its placeholders.
func (b *Builder) addWhere(p queryir.Predicate, bindings ...any) *Builder {
	if err := queryir.ValidatePredicate(p); err != nil {
		return b.setErr(err)
	}
	if err := b.query.Bindings.Append(queryir.CategoryWhere, bindings...); err != nil {
		return b.setErr(err)
	}
	b.query.Wheres = append(b.query.Wheres, p)
	return b
}

// WhereNested adds a parenthesized group built by fn on a fresh builder over
// the same table.
func (b *Builder) WhereNested(fn func(*Builder)) *Builder {
	return b.whereNested(fn, queryir.And, false)
}

// OrWhereNested is the OR variant of WhereNested.
func (b *Builder) OrWhereNested(fn func(*Builder)) *Builder {
	return b.whereNested(fn, queryir.Or, false)
}

func (b *Builder) whereNested(fn func(*Builder), connector queryir.Connector, not bool) *Builder {
	child := b.forNestedWhere()
	fn(child)
	if child.err != nil {
		return b.setErr(child.err)
	}
	if len(child.query.Wheres) == 0 {
		return b
	}

	sql := "(" + b.grammar.CompileWheres(child.query.Wheres) + ")"
	if not {
		sql = "NOT " + sql
	}
	return b.addWhere(
		queryir.Predicate{Column: queryir.Raw(sql), Connector: connector},
		child.query.Bindings.Get(queryir.CategoryWhere)...,
	)
}

// WhereRaw adds a raw AND predicate. bindings fill its `?` placeholders.
func (b *Builder) WhereRaw(sql string, bindings ...any) *Builder {
	return b.whereRaw(sql, bindings, queryir.And)
}

// OrWhereRaw adds a raw OR predicate.
func (b *Builder) OrWhereRaw(sql string, bindings ...any) *Builder {
	return b.whereRaw(sql, bindings, queryir.Or)
}

func (b *Builder) whereRaw(sql string, bindings []any, connector queryir.Connector) *Builder {
	if err := b.query.Bindings.Add(queryir.CategoryWhere, bindings...); err != nil {
		return b.setErr(err)
	}
	b.query.Wheres = append(b.query.Wheres, queryir.Predicate{Column: queryir.Raw(sql), Connector: connector})
	return b
}

// WhereIn adds `column IN (...)`. values is a sequence, a *Builder, a
// func(*Builder) subquery or a raw Expression.
func (b *Builder) WhereIn(column any, values any) *Builder {
	return b.whereIn(column, values, queryir.And, false)
}

// OrWhereIn is the OR variant of WhereIn.
func (b *Builder) OrWhereIn(column any, values any) *Builder {
	return b.whereIn(column, values, queryir.Or, false)
}

// WhereNotIn adds `column NOT IN (...)`.
func (b *Builder) WhereNotIn(column any, values any) *Builder {
	return b.whereIn(column, values, queryir.And, true)
}

// OrWhereNotIn is the OR variant of WhereNotIn.
func (b *Builder) OrWhereNotIn(column any, values any) *Builder {
	return b.whereIn(column, values, queryir.Or, true)
}

func (b *Builder) whereIn(column any, values any, connector queryir.Connector, not bool) *Builder {
	op := queryir.OpIn
	if not {
		op = queryir.OpNotIn
	}
	p, bindings, err := b.buildPredicate(column, op, values)
	if err != nil {
		return b.setErr(err)
	}
	p.Connector = connector
	return b.addWhere(p, bindings...)
}

// WhereNull adds `column IS NULL`.
func (b *Builder) WhereNull(column any) *Builder {
	return b.addWhere(queryir.Predicate{Column: column, Operator: queryir.OpIsNull, Connector: queryir.And})
}

// OrWhereNull adds `OR column IS NULL`.
func (b *Builder) OrWhereNull(column any) *Builder {
	return b.addWhere(queryir.Predicate{Column: column, Operator: queryir.OpIsNull, Connector: queryir.Or})
}

// WhereNotNull adds `column IS NOT NULL`.
func (b *Builder) WhereNotNull(column any) *Builder {
	return b.addWhere(queryir.Predicate{Column: column, Operator: queryir.OpIsNotNull, Connector: queryir.And})
}

// OrWhereNotNull adds `OR column IS NOT NULL`.
func (b *Builder) OrWhereNotNull(column any) *Builder {
	return b.addWhere(queryir.Predicate{Column: column, Operator: queryir.OpIsNotNull, Connector: queryir.Or})
}

// WhereBetween adds `column BETWEEN ? AND ?` using the first two values.
func (b *Builder) WhereBetween(column any, values any) *Builder {
	return b.whereBetween(column, values, queryir.And, false)
}

// OrWhereBetween is the OR variant of WhereBetween.
func (b *Builder) OrWhereBetween(column any, values any) *Builder {
	return b.whereBetween(column, values, queryir.Or, false)
}

// WhereNotBetween adds `column NOT BETWEEN ? AND ?`.
func (b *Builder) WhereNotBetween(column any, values any) *Builder {
	return b.whereBetween(column, values, queryir.And, true)
}

// OrWhereNotBetween is the OR variant of WhereNotBetween.
func (b *Builder) OrWhereNotBetween(column any, values any) *Builder {
	return b.whereBetween(column, values, queryir.Or, true)
}

func (b *Builder) whereBetween(column any, values any, connector queryir.Connector, not bool) *Builder {
	op := queryir.OpBetween
	if not {
		op = queryir.OpNotBetween
	}
	p, bindings, err := b.buildPredicate(column, op, values)
	if err != nil {
		return b.setErr(err)
	}
	p.Connector = connector
	return b.addWhere(p, bindings...)
}

// WhereBetweenColumns adds `column BETWEEN low AND high` with column bounds.
func (b *Builder) WhereBetweenColumns(column any, low, high string) *Builder {
	return b.addWhere(queryir.Predicate{
		Column:    column,
		Operator:  queryir.OpBetween,
		Value:     []any{queryir.ColumnRef(low), queryir.ColumnRef(high)},
		Connector: queryir.And,
	})
}

// WhereNotBetweenColumns adds `column NOT BETWEEN low AND high`.
func (b *Builder) WhereNotBetweenColumns(column any, low, high string) *Builder {
	return b.addWhere(queryir.Predicate{
		Column:    column,
		Operator:  queryir.OpNotBetween,
		Value:     []any{queryir.ColumnRef(low), queryir.ColumnRef(high)},
		Connector: queryir.And,
	})
}

// WhereColumn compares two columns: WhereColumn(a, b) or WhereColumn(a, op, b).
func (b *Builder) WhereColumn(first any, args ...string) *Builder {
	return b.whereColumn(first, args, queryir.And)
}

// OrWhereColumn is the OR variant of WhereColumn.
func (b *Builder) OrWhereColumn(first any, args ...string) *Builder {
	return b.whereColumn(first, args, queryir.Or)
}

func (b *Builder) whereColumn(first any, args []string, connector queryir.Connector) *Builder {
	op, second := queryir.OpEquals, ""
	switch len(args) {
	case 1:
		second = args[0]
	case 2:
		parsed, err := queryir.ParseOperator(args[0])
		if err != nil {
			return b.setErr(err)
		}
		op, second = parsed, args[1]
	default:
		return b.setErr(queryir.NewInvalidArgumentError("whereColumn expects a column or an operator and a column", nil))
	}
	return b.addWhere(queryir.Predicate{
		Column:    first,
		Operator:  op,
		Value:     queryir.ColumnRef(second),
		Connector: connector,
	})
}

// WhereDate compares the date part of column: toDate(column).
func (b *Builder) WhereDate(column string, args ...any) *Builder {
	return b.whereDatePart("toDate", column, args, queryir.And)
}

// OrWhereDate is the OR variant of WhereDate.
func (b *Builder) OrWhereDate(column string, args ...any) *Builder {
	return b.whereDatePart("toDate", column, args, queryir.Or)
}

// WhereYear compares toYear(column).
func (b *Builder) WhereYear(column string, args ...any) *Builder {
	return b.whereDatePart("toYear", column, args, queryir.And)
}

// OrWhereYear is the OR variant of WhereYear.
func (b *Builder) OrWhereYear(column string, args ...any) *Builder {
	return b.whereDatePart("toYear", column, args, queryir.Or)
}

// WhereMonth compares toMonth(column).
func (b *Builder) WhereMonth(column string, args ...any) *Builder {
	return b.whereDatePart("toMonth", column, args, queryir.And)
}

// OrWhereMonth is the OR variant of WhereMonth.
func (b *Builder) OrWhereMonth(column string, args ...any) *Builder {
	return b.whereDatePart("toMonth", column, args, queryir.Or)
}

// WhereDay compares toDayOfMonth(column).
func (b *Builder) WhereDay(column string, args ...any) *Builder {
	return b.whereDatePart("toDayOfMonth", column, args, queryir.And)
}

// OrWhereDay is the OR variant of WhereDay.
func (b *Builder) OrWhereDay(column string, args ...any) *Builder {
	return b.whereDatePart("toDayOfMonth", column, args, queryir.Or)
}

// WhereTime compares toTime(column).
func (b *Builder) WhereTime(column string, args ...any) *Builder {
	return b.whereDatePart("toTime", column, args, queryir.And)
}

// OrWhereTime is the OR variant of WhereTime.
func (b *Builder) OrWhereTime(column string, args ...any) *Builder {
	return b.whereDatePart("toTime", column, args, queryir.Or)
}

func (b *Builder) whereDatePart(fn, column string, args []any, connector queryir.Connector) *Builder {
	if len(args) == 0 || len(args) > 2 {
		return b.setErr(queryir.NewInvalidArgumentError(fmt.Sprintf("%s predicate expects a value or an operator and a value", fn), nil))
	}
	op, value := queryir.OpEquals, args[len(args)-1]
	if len(args) == 2 {
		parsed, err := parseOperator(args[0])
		if err != nil {
			return b.setErr(err)
		}
		op = parsed
	}

	value = datePartValue(fn, value)
	expr := queryir.Raw(fmt.Sprintf("%s(%s)", fn, b.grammar.Wrap(column)))
	p, bindings, err := b.buildPredicate(expr, op, value)
	if err != nil {
		return b.setErr(err)
	}
	p.Connector = connector
	return b.addWhere(p, bindings...)
}

// datePartValue converts times and numeric strings to the value type the
// ClickHouse date function returns.
func datePartValue(fn string, value any) any {
	if t, ok := value.(time.Time); ok {
		switch fn {
		case "toDate":
			return t.Format("2006-01-02")
		case "toTime":
			return t.Format("15:04:05")
		case "toYear":
			return t.Year()
		case "toMonth":
			return int(t.Month())
		case "toDayOfMonth":
			return t.Day()
		}
	}
	if s, ok := value.(string); ok {
		switch fn {
		case "toYear", "toMonth", "toDayOfMonth":
			if n, err := strconv.Atoi(s); err == nil {
				return n
			}
		}
	}
	return value
}
