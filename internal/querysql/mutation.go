package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/chq/internal/queryir"
)

// Assignment is one `column = value` pair of an UPDATE mutation.
type Assignment struct {
	Column string
	Value  any
}

// CompileInsert compiles a multi-row INSERT. Every row must list values in
// the order of columns.
func (g *Grammar) CompileInsert(table string, columns []string, rows [][]any) string {
	cols := make([]any, len(columns))
	for i, c := range columns {
		cols[i] = c
	}

	values := make([]string, len(rows))
	for i, row := range rows {
		values[i] = "(" + g.Parameterize(row) + ")"
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", g.WrapTable(table), g.Columnize(cols), strings.Join(values, ", "))
}

// CompileUpdate compiles an asynchronous ALTER TABLE ... UPDATE mutation.
// Placeholders are ordered assignments first, then the where clause.
func (g *Grammar) CompileUpdate(q *queryir.Query, assignments []Assignment) string {
	sets := make([]string, len(assignments))
	for i, a := range assignments {
		sets[i] = g.Wrap(a.Column) + " = " + g.Parameter(a.Value)
	}
	return fmt.Sprintf("%s UPDATE %s %s;", g.alterTable(q), strings.Join(sets, ", "), g.mutationWhere(q))
}

// CompileDelete compiles an asynchronous ALTER TABLE ... DELETE mutation.
func (g *Grammar) CompileDelete(q *queryir.Query) string {
	return fmt.Sprintf("%s DELETE %s;", g.alterTable(q), g.mutationWhere(q))
}

func (g *Grammar) alterTable(q *queryir.Query) string {
	sql := "ALTER TABLE " + g.WrapTable(q.From.Table)
	if q.Cluster != "" {
		sql += " ON CLUSTER " + q.Cluster
	}
	return sql
}

// mutationWhere renders the WHERE clause of a mutation. The store rejects
// mutations without one, so an unfiltered mutation targets every row.
func (g *Grammar) mutationWhere(q *queryir.Query) string {
	if len(q.Wheres) == 0 {
		return "WHERE 1"
	}
	return "WHERE " + g.CompileWheres(q.Wheres)
}
