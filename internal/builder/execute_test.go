package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chq/internal/queryir"
)

func TestGet(t *testing.T) {
	db := seedEvents(t, 5)
	ctx := context.Background()

	rows, err := Table(db, "events").Where("region", 1).OrderBy("id").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, rowIDs(t, rows))
	assert.Equal(t, "e1", rows[0]["name"])

	none, err := Table(db, "events").Where("id", ">", 100).Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestFirstFindValue(t *testing.T) {
	db := seedEvents(t, 3)
	ctx := context.Background()
	b := Table(db, "events")

	row, err := b.Clone().OrderByDesc("id").First(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), row["id"])

	row, err = b.Find(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "e2", row["name"])

	row, err = b.Find(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, row)

	v, err := b.Clone().Where("id", 3).Value(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "e3", v)

	v, err = b.Clone().Where("id", 3).Value(ctx, "events.name")
	require.NoError(t, err)
	assert.Equal(t, "e3", v)

	v, err = b.Clone().Where("id", 99).Value(ctx, "name")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = b.Clone().Where("id", 2).RawValue(ctx, "score * ?", 10)
	require.NoError(t, err)
	assert.Equal(t, float64(20), v)
}

func TestPluckAndImplode(t *testing.T) {
	db := seedEvents(t, 3)
	ctx := context.Background()

	names, err := Table(db, "events").OrderBy("id").Pluck(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, []any{"e1", "e2", "e3"}, names)

	aliased, err := Table(db, "events").OrderBy("id").Pluck(ctx, "name AS label")
	require.NoError(t, err)
	assert.Equal(t, []any{"e1", "e2", "e3"}, aliased)

	joined, err := Table(db, "events").OrderByDesc("id").Implode(ctx, "name", ",")
	require.NoError(t, err)
	assert.Equal(t, "e3,e2,e1", joined)
}

func TestSole(t *testing.T) {
	db := seedEvents(t, 3)
	ctx := context.Background()

	row, err := Table(db, "events").Where("id", 2).Sole(ctx)
	require.NoError(t, err)
	assert.Equal(t, "e2", row["name"])

	_, err = Table(db, "events").Where("id", 99).Sole(ctx)
	assert.ErrorIs(t, err, queryir.ErrNoRecords)

	_, err = Table(db, "events").Sole(ctx)
	assert.ErrorIs(t, err, queryir.ErrMultipleRecords)

	v, err := Table(db, "events").Where("id", 1).SoleValue(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "e1", v)
}

func TestSole_FetchesAtMostTwoRows(t *testing.T) {
	conn := &fakeConn{}
	_, err := Table(conn, "events").Sole(context.Background())
	assert.ErrorIs(t, err, queryir.ErrNoRecords)

	require.Len(t, conn.selects, 1)
	assert.Equal(t, "SELECT * FROM events LIMIT 2", conn.selects[0].sql)
}

func TestExists(t *testing.T) {
	db := seedEvents(t, 2)
	ctx := context.Background()

	ok, err := Table(db, "events").Where("id", 1).Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	missing, err := Table(db, "events").Where("id", 9).DoesntExist(ctx)
	require.NoError(t, err)
	assert.True(t, missing)
}

func TestAggregates(t *testing.T) {
	db := seedEvents(t, 6)
	ctx := context.Background()
	b := Table(db, "events")

	count, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)

	count, err = b.Clone().Where("region", 0).Count(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	sum, err := b.Sum(ctx, "score")
	require.NoError(t, err)
	assert.Equal(t, float64(21), sum)

	avg, err := b.Avg(ctx, "score")
	require.NoError(t, err)
	assert.InDelta(t, 3.5, avg, 1e-9)

	minV, err := b.Min(ctx, "score")
	require.NoError(t, err)
	assert.Equal(t, float64(1), minV)

	maxV, err := b.Max(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "e6", maxV)

	empty, err := b.Clone().Where("id", 0).Sum(ctx, "score")
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestCount_IgnoresLimitOffsetAndOrder(t *testing.T) {
	conn := &fakeConn{results: [][]Row{{{"aggregate": int64(4)}}}}

	count, err := Table(conn, "events").Select("id", "name as n").Where("a", 1).OrderByRaw("abs(?)", 3).Limit(2).Offset(1).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	require.Len(t, conn.selects, 1)
	assert.Equal(t, "SELECT count(*) AS aggregate FROM events WHERE a = ?", conn.selects[0].sql)
	assert.Equal(t, []any{1}, conn.selects[0].bindings)
}

func TestCount_AggregateKeyIsCaseInsensitive(t *testing.T) {
	conn := &fakeConn{results: [][]Row{{{"AGGREGATE": "12"}}}}

	count, err := Table(conn, "events").Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}

func TestCount_GroupedCountsGroups(t *testing.T) {
	db := seedEvents(t, 7)
	ctx := context.Background()

	count, err := Table(db, "events").Select("region").GroupBy("region").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestCount_Union(t *testing.T) {
	db := seedEvents(t, 4)
	ctx := context.Background()

	b := Table(db, "events").Where("region", 1).
		UnionAll(Table(db, "events").Where("region", 2))

	sql, _, err := b.aggregateQuery("count", nil).ToSQL()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT count(*) AS aggregate FROM (SELECT * FROM events WHERE region = ? UNION ALL SELECT * FROM events WHERE region = ?) AS aggregate_table",
		sql)

	count, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestCount_UnionIgnoresUnionOrderAndLimit(t *testing.T) {
	conn := &fakeConn{results: [][]Row{{{"aggregate": int64(2)}}}}

	b := Table(conn, "events").Where("region", 1).
		UnionAll(Table(nil, "archive").Where("region", 2)).
		OrderByRaw("abs(id - ?)", 9).Limit(5).Offset(10)

	count, err := b.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.Len(t, conn.selects, 1)
	assert.Equal(t,
		"SELECT count(*) AS aggregate FROM (SELECT * FROM events WHERE region = ? UNION ALL SELECT * FROM archive WHERE region = ?) AS aggregate_table",
		conn.selects[0].sql)
	assert.Equal(t, []any{1, 2}, conn.selects[0].bindings)

	// The builder itself keeps its union window.
	sql, _, err := b.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "LIMIT 5 OFFSET 10")
}

func TestCount_LargeUnsignedCounts(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int64
		wantErr bool
	}{
		{name: "uint64 above 2^53", value: uint64(1<<53 + 1), want: 1<<53 + 1},
		{name: "int64", value: int64(9007199254740993), want: 9007199254740993},
		{name: "decimal string", value: "9007199254740993", want: 9007199254740993},
		{name: "bytes", value: []byte("42"), want: 42},
		{name: "float string", value: "3.0", want: 3},
		{name: "overflow", value: uint64(1 << 63), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{results: [][]Row{{{"aggregate": tt.value}}}}

			count, err := Table(conn, "events").Count(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)
		})
	}
}

func TestAggregate_DistinctColumn(t *testing.T) {
	conn := &fakeConn{results: [][]Row{{{"aggregate": int64(3)}}}}

	v, err := Table(conn, "events").Distinct().Aggregate(context.Background(), "count", "region")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	assert.Equal(t, "SELECT count(DISTINCT region) AS aggregate FROM events", conn.selects[0].sql)
}

func TestNumericAggregate_RejectsNonNumeric(t *testing.T) {
	conn := &fakeConn{results: [][]Row{{{"aggregate": "abc"}}}}

	_, err := Table(conn, "events").Sum(context.Background(), "name")
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	row := Row{"name": "a", "total": 3}

	tests := []struct {
		column string
		want   any
		found  bool
	}{
		{"name", "a", true},
		{"events.name", "a", true},
		{"sum(x) AS total", 3, true},
		{"missing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, ok := lookup(row, tt.column)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
