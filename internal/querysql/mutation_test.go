package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/chq/internal/queryir"
)

func TestCompileUpdate_Golden(t *testing.T) {
	q := queryir.New("events")
	q.Cluster = "main"
	q.Wheres = []queryir.Predicate{pred("id", queryir.OpEquals, 7)}

	sql := NewGrammar(nil).CompileUpdate(q, []Assignment{
		{Column: "status", Value: "archived"},
		{Column: "updated_at", Value: queryir.Raw("now()")},
	})
	assertGoldenSQL(t, "update_on_cluster", sql)
}

func TestCompileDelete_Golden(t *testing.T) {
	q := queryir.New("events")
	q.Wheres = []queryir.Predicate{pred("id", queryir.OpIn, []any{1, 2})}

	assertGoldenSQL(t, "delete_by_ids", NewGrammar(nil).CompileDelete(q))
}

func TestCompileDelete_NoPredicates(t *testing.T) {
	q := queryir.New("events")
	assert.Equal(t, "ALTER TABLE events DELETE WHERE 1;", NewGrammar(nil).CompileDelete(q))
}

func TestCompileInsert(t *testing.T) {
	sql := NewGrammar(nil).CompileInsert("events", []string{"id", "tags", "ts"}, [][]any{
		{1, []any{"a", "b"}, queryir.Raw("now()")},
		{2, []any{}, queryir.Raw("now()")},
	})
	assert.Equal(t, "INSERT INTO events (id, tags, ts) VALUES (?, ?, now()), (?, ?, now())", sql)
}

func TestCompileInsert_SubstitutedArrays(t *testing.T) {
	g := NewGrammar(nil)
	sql := g.CompileInsert("events", []string{"id", "tags"}, [][]any{{1, []string{"a", "b"}}})

	raw := g.SubstituteBindingsIntoRawSQL(sql, []any{1, []string{"a", "b"}})
	assert.Equal(t, "INSERT INTO events (id, tags) VALUES (1, ['a', 'b'])", raw)
}
