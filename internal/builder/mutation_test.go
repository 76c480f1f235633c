package builder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chq/internal/queryir"
)

func TestUpdate(t *testing.T) {
	conn := &fakeConn{}

	n, err := Table(conn, "events").
		OnCluster("main").
		Where("id", 7).
		Update(context.Background(), map[string]any{
			"status":     "done",
			"updated_at": Raw("now()"),
			"score":      1.5,
		})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, conn.statements, 1)
	assert.Equal(t,
		"ALTER TABLE events ON CLUSTER main UPDATE score = 1.5, status = 'done', updated_at = now() WHERE id = 7;",
		conn.statements[0])
}

func TestUpdate_EmptyValuesFailsWithoutNetwork(t *testing.T) {
	conn := &fakeConn{}

	n, err := Table(conn, "events").Where("id", 1).Update(context.Background(), map[string]any{})
	assert.Equal(t, 0, n)
	assert.True(t, queryir.IsPreconditionViolation(err))
	assert.Contains(t, err.Error(), "cannot update with empty values")
	assert.Zero(t, conn.calls())
}

func TestUpdate_RejectedReturnsZero(t *testing.T) {
	conn := &fakeConn{reject: true}

	n, err := Table(conn, "events").Update(context.Background(), map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "ALTER TABLE events UPDATE a = 1 WHERE 1;", conn.statements[0])
}

func TestUpdate_SubqueryValueAndScopes(t *testing.T) {
	conn := &fakeConn{}
	sub := Table(nil, "scores").Select("max(score)").Where("user_id", 3)

	_, err := Table(conn, "events").
		Where("a", 1).
		OrWhereIn("b", []string{"x", "y"}).
		WithScope("live", func(q *Builder) { q.Where("is_deleted", 0) }).
		Update(context.Background(), map[string]any{"best": sub, "flag": true})
	require.NoError(t, err)

	assert.Equal(t,
		"ALTER TABLE events UPDATE best = (SELECT max(score) FROM scores WHERE user_id = 3), flag = 1"+
			" WHERE (a = 1 OR b IN ('x', 'y')) AND is_deleted = 0;",
		conn.statements[0])
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Builder) *Builder
		ids   []any
		want  string
	}{
		{
			name:  "everything",
			build: func(b *Builder) *Builder { return b },
			want:  "ALTER TABLE events DELETE WHERE 1;",
		},
		{
			name:  "by id",
			build: func(b *Builder) *Builder { return b },
			ids:   []any{5},
			want:  "ALTER TABLE events DELETE WHERE events.id = 5;",
		},
		{
			name:  "by ids with predicates",
			build: func(b *Builder) *Builder { return b.Where("name", "O'Brien").OnCluster("main") },
			ids:   []any{1, 2},
			want:  `ALTER TABLE events ON CLUSTER main DELETE WHERE name = 'O\'Brien' AND events.id IN (1, 2);`,
		},
		{
			name:  "dates are literal",
			build: func(b *Builder) *Builder { return b.Where("created_at", "<", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) },
			want:  "ALTER TABLE events DELETE WHERE created_at < '2024-01-02 03:04:05';",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{}
			n, err := tt.build(Table(conn, "events")).Delete(context.Background(), tt.ids...)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			require.Len(t, conn.statements, 1)
			assert.Equal(t, tt.want, conn.statements[0])
		})
	}
}

func TestDelete_OverrideAndForceDelete(t *testing.T) {
	conn := &fakeConn{}
	var gotIDs []any
	var gotSQL string

	b := Table(conn, "events").Where("a", 1).OnDelete(func(_ context.Context, q *Builder, ids []any) (int, error) {
		gotIDs = ids
		gotSQL, _, _ = q.ToSQL()
		return len(ids), nil
	})

	n, err := b.Delete(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []any{1, 2}, gotIDs)
	assert.Equal(t, "SELECT * FROM events WHERE a = ?", gotSQL)
	assert.Empty(t, conn.statements)

	n, err = b.ForceDelete(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"ALTER TABLE events DELETE WHERE a = 1 AND events.id = 3;"}, conn.statements)
}

func TestDelete_CustomKeyName(t *testing.T) {
	conn := &fakeConn{}
	_, err := Table(conn, "events", WithKeyName("event_id")).Delete(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE events DELETE WHERE events.event_id = 'abc';", conn.statements[0])
}

func TestInsert(t *testing.T) {
	conn := &fakeConn{}

	ok, err := Table(conn, "events").Insert(context.Background(),
		Row{"id": 1, "name": "a", "tags": []string{"x", "y"}},
		Row{"id": 2, "name": nil, "tags": []string{}},
	)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t,
		"INSERT INTO events (id, name, tags) VALUES (1, 'a', ['x', 'y']), (2, NULL, [])",
		conn.statements[0])
}

func TestInsert_NothingToWrite(t *testing.T) {
	conn := &fakeConn{}
	ok, err := Table(conn, "events").Insert(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, conn.calls())
}

func TestInsert_RoundTripsThroughStore(t *testing.T) {
	db := seedEvents(t, 0)
	ctx := context.Background()

	ok, err := Table(db, "events").Insert(ctx,
		Row{"id": 1, "name": "it's", "score": 2.5, "created_at": time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)},
	)
	require.NoError(t, err)
	require.True(t, ok)

	row, err := Table(db, "events").Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "it's", row["name"])
	assert.Equal(t, 2.5, row["score"])
	assert.Equal(t, "2024-05-06 07:08:09", row["created_at"])
}

func TestMutationSQL_MatchesSubmittedStatement(t *testing.T) {
	conn := &fakeConn{}
	b := Table(conn, "events").Where("region", 2).OnCluster("main")

	updateSQL, err := b.UpdateSQL(map[string]any{"name": "x"})
	require.NoError(t, err)
	deleteSQL, err := b.DeleteSQL(4, 5)
	require.NoError(t, err)
	assert.Zero(t, conn.calls())

	_, err = b.Update(context.Background(), map[string]any{"name": "x"})
	require.NoError(t, err)
	_, err = b.ForceDelete(context.Background(), 4, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{updateSQL, deleteSQL}, conn.statements)
	assert.Equal(t, "ALTER TABLE events ON CLUSTER main DELETE WHERE region = 2 AND events.id IN (4, 5);", deleteSQL)

	_, err = b.UpdateSQL(nil)
	assert.True(t, queryir.IsPreconditionViolation(err))
}
