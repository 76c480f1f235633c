package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClauses(t *testing.T) {
	tests := []struct {
		name     string
		build    func(*Builder)
		sql      string
		bindings []any
	}{
		{
			name:  "select and addSelect",
			build: func(b *Builder) { b.Select("id", "name as title").AddSelect(Raw("count() AS n")) },
			sql:   "SELECT id, name AS title, count() AS n FROM events",
		},
		{
			name:     "selectRaw and selectSub keep binding order",
			build:    func(b *Builder) { b.SelectRaw("? AS one", 1).SelectSub(Table(nil, "u").Select("max(id)").Where("a", 2), "m").Where("b", 3) },
			sql:      "SELECT ? AS one, (SELECT max(id) FROM u WHERE a = ?) AS m FROM events WHERE b = ?",
			bindings: []any{1, 2, 3},
		},
		{
			name:  "distinct",
			build: func(b *Builder) { b.Select("region").Distinct() },
			sql:   "SELECT DISTINCT region FROM events",
		},
		{
			name:  "distinct on",
			build: func(b *Builder) { b.Distinct("region", "name") },
			sql:   "SELECT DISTINCT ON (region, name) * FROM events",
		},
		{
			name:     "final",
			build:    func(b *Builder) { b.Final().Where("id", 1) },
			sql:      "SELECT * FROM events FINAL WHERE id = ?",
			bindings: []any{1},
		},
		{
			name:     "fromSub",
			build:    func(b *Builder) { b.FromSub(Table(nil, "raw").Where("x", 1), "t").Where("y", 2) },
			sql:      "SELECT * FROM (SELECT * FROM raw WHERE x = ?) AS t WHERE y = ?",
			bindings: []any{1, 2},
		},
		{
			name:     "fromRaw",
			build:    func(b *Builder) { b.FromRaw("numbers(?)", 10) },
			sql:      "SELECT * FROM numbers(?)",
			bindings: []any{10},
		},
		{
			name: "joins",
			build: func(b *Builder) {
				b.Join("users", "events.user_id", "users.id").
					LeftJoin("teams", "users.team_id", "=", "teams.id").
					RightJoin("orgs", "teams.org_id", "orgs.id").
					CrossJoin("regions").
					JoinRaw("ARRAY JOIN tags AS tag")
			},
			sql: "SELECT * FROM events INNER JOIN users ON events.user_id = users.id" +
				" LEFT JOIN teams ON users.team_id = teams.id RIGHT JOIN orgs ON teams.org_id = orgs.id" +
				" CROSS JOIN regions ARRAY JOIN tags AS tag",
		},
		{
			name: "group and having",
			build: func(b *Builder) {
				b.Select("region").GroupBy("region").GroupByRaw("toYear(created_at)").
					Having("count()", ">", 1).OrHaving("sum(score)", 10).
					HavingRaw("max(score) < ?", 100).OrHavingRaw("min(score) > 0").
					HavingBetween("avg(score)", []int{1, 5})
			},
			sql: "SELECT region FROM events GROUP BY region, toYear(created_at)" +
				" HAVING count() > ? OR sum(score) = ? AND max(score) < ? OR min(score) > 0 AND avg(score) BETWEEN ? AND ?",
			bindings: []any{1, 10, 100, 1, 5},
		},
		{
			name:  "orders",
			build: func(b *Builder) { b.OrderBy("a").OrderBy("b", "DESC").OrderByDesc("c").Latest().Oldest("d") },
			sql:   "SELECT * FROM events ORDER BY a ASC, b DESC, c DESC, created_at DESC, d ASC",
		},
		{
			name:     "orderByRaw",
			build:    func(b *Builder) { b.OrderByRaw("abs(score - ?)", 5) },
			sql:      "SELECT * FROM events ORDER BY abs(score - ?)",
			bindings: []any{5},
		},
		{
			name:  "random order",
			build: func(b *Builder) { b.InRandomOrder().InRandomOrder("42") },
			sql:   "SELECT * FROM events ORDER BY rand(), rand(42)",
		},
		{
			name:  "reorder",
			build: func(b *Builder) { b.OrderBy("a").OrderByRaw("rand()").Reorder("b", "desc") },
			sql:   "SELECT * FROM events ORDER BY b DESC",
		},
		{
			name:  "reorder without column",
			build: func(b *Builder) { b.OrderBy("a").Reorder() },
			sql:   "SELECT * FROM events",
		},
		{
			name:  "limit and offset",
			build: func(b *Builder) { b.Take(10).Skip(20) },
			sql:   "SELECT * FROM events LIMIT 10 OFFSET 20",
		},
		{
			name:  "negative limit clears, negative offset is zero",
			build: func(b *Builder) { b.Limit(5).Limit(-1).Offset(-3) },
			sql:   "SELECT * FROM events",
		},
		{
			name:  "forPage",
			build: func(b *Builder) { b.ForPage(3, 15) },
			sql:   "SELECT * FROM events LIMIT 15 OFFSET 30",
		},
		{
			name:  "forPage clamps page",
			build: func(b *Builder) { b.ForPage(0, 15) },
			sql:   "SELECT * FROM events LIMIT 15",
		},
		{
			name:     "forPageAfterID replaces existing order on the column",
			build:    func(b *Builder) { b.OrderBy("id", "desc").OrderBy("name").ForPageAfterID(10, 42, "id") },
			sql:      "SELECT * FROM events WHERE id > ? ORDER BY name ASC, id ASC LIMIT 10",
			bindings: []any{42},
		},
		{
			name:  "forPageBeforeID without cursor",
			build: func(b *Builder) { b.ForPageBeforeID(10, nil, "id") },
			sql:   "SELECT * FROM events ORDER BY id DESC LIMIT 10",
		},
		{
			name: "union",
			build: func(b *Builder) {
				b.Where("a", 1).Union(Table(nil, "archive").Where("a", 2)).UnionAll(func(q *Builder) {
					q.From("old").Where("a", 3)
				})
			},
			sql:      "SELECT * FROM events WHERE a = ? UNION DISTINCT SELECT * FROM archive WHERE a = ? UNION ALL SELECT * FROM old WHERE a = ?",
			bindings: []any{1, 2, 3},
		},
		{
			name: "union order and limit wrap the union",
			build: func(b *Builder) {
				b.Where("id", ">", 1).UnionAll(Table(nil, "archive").Where("id", ">", 2)).
					OrderByDesc("id").OrderByRaw("abs(id - ?)", 9).Limit(5).Offset(10)
			},
			sql: "SELECT * FROM (SELECT * FROM events WHERE id > ? UNION ALL SELECT * FROM archive WHERE id > ?)" +
				" ORDER BY id DESC, abs(id - ?) LIMIT 5 OFFSET 10",
			bindings: []any{1, 2, 9},
		},
		{
			name: "onCluster does not affect selects",
			build: func(b *Builder) {
				b.OnCluster("main")
			},
			sql: "SELECT * FROM events",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Table(nil, "events")
			tt.build(b)
			assertSQL(t, b, tt.sql, tt.bindings...)
		})
	}
}

func TestUnion_ScopesOfTheAttachedQueryApply(t *testing.T) {
	other := Table(nil, "archive").WithScope("live", func(q *Builder) { q.Where("is_deleted", 0) })
	b := Table(nil, "events").UnionAll(other)

	assertSQL(t, b, "SELECT * FROM events UNION ALL SELECT * FROM archive WHERE is_deleted = ?", 0)
}

func TestUnion_ErrorOfAttachedQueryIsRecorded(t *testing.T) {
	other := Table(nil, "archive").Where("a", "bogus-op", 1)
	b := Table(nil, "events").Union(other)

	assert.Error(t, b.Err())
}
