package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chq/internal/cli"
	"github.com/roach88/chq/internal/testutil"
)

func rows(n int64) *int64 { return &n }

func eventsQuery() cli.QueryFile {
	return cli.QueryFile{Table: "events"}
}

func softQuery(trashed string) cli.QueryFile {
	return cli.QueryFile{Table: "events", SoftDelete: true, Trashed: trashed}
}

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Steps, len(s.Steps))
		})
	}
}

func TestRun_SoftDeleteTrace(t *testing.T) {
	result, err := Run(context.Background(), loadScenario(t, "soft_delete_restore"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, []StepResult{
		{Op: OpDelete, Rows: 1},
		{Op: OpCount, Rows: 1},
		{Op: OpRestore, Rows: 1},
		{Op: OpCount, Rows: 2},
	}, result.Steps)

	require.Len(t, result.Trace, 6)
	first := result.Trace[0]
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, 1, first.Step)
	assert.Equal(t, KindSelect, first.Kind)
	assert.Equal(t, "SELECT * FROM events WHERE events.id IN (?) AND events.is_deleted = ?", first.SQL)
	assert.Equal(t, []any{1, 0}, first.Bindings)

	assert.Equal(t, []string{
		"INSERT INTO events (deleted_at, id, is_deleted, name) VALUES ('2024-01-01 00:00:00', 1, 1, 'alpha')",
		"INSERT INTO events (deleted_at, id, is_deleted, name) VALUES (NULL, 1, 0, 'alpha')",
	}, result.Statements())
}

func TestRun_SetupFailure(t *testing.T) {
	s := &Scenario{
		Name:        "bad_setup",
		Description: "Setup SQL that does not parse",
		Setup:       []string{"CREATE TABLE"},
		Steps:       []Step{{Op: OpCount, Query: eventsQuery()}},
	}

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup statement 0")
}

func TestRun_StepExpectations(t *testing.T) {
	setup := []string{testutil.EventsSchema, "INSERT INTO events (id, name) VALUES (1, 'alpha')"}

	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{
			name:    "row mismatch",
			step:    Step{Op: OpCount, Query: eventsQuery(), Expect: &Expect{Rows: rows(5)}},
			wantErr: "steps[0] count: expected 5 row(s), got 1",
		},
		{
			name:    "unexpected error",
			step:    Step{Op: OpGet, Query: cli.QueryFile{Table: "missing"}},
			wantErr: "steps[0] get: unexpected error",
		},
		{
			name:    "missing error",
			step:    Step{Op: OpExists, Query: eventsQuery(), Expect: &Expect{Error: "boom"}},
			wantErr: `steps[0] exists: expected error containing "boom", got none`,
		},
		{
			name:    "wrong error",
			step:    Step{Op: OpUpdate, Query: eventsQuery(), Expect: &Expect{Error: "boom"}},
			wantErr: `expected error containing "boom", got "PRECONDITION_VIOLATION`,
		},
		{
			name: "statement mismatch",
			step: Step{
				Op:     OpInsert,
				Query:  eventsQuery(),
				Rows:   []map[string]any{{"id": 2}},
				Expect: &Expect{SQL: "INSERT INTO events (id) VALUES (3)"},
			},
			wantErr: `expected statement "INSERT INTO events (id) VALUES (3)", got "INSERT INTO events (id) VALUES (2)"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scenario{
				Name:        "expectations",
				Description: "Failing expectations are reported",
				Setup:       setup,
				Steps:       []Step{tt.step},
			}

			result, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.False(t, result.Pass)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.wantErr)
		})
	}
}

func TestRun_QueryOps(t *testing.T) {
	s := &Scenario{
		Name:        "query_ops",
		Description: "Read ops report their row figures",
		Setup: []string{
			testutil.EventsSchema,
			"INSERT INTO events (id, name, region) VALUES (1, 'alpha', 1), (2, 'beta', 2), (3, 'gamma', 1)",
		},
		Steps: []Step{
			{Op: OpGet, Query: eventsQuery(), Expect: &Expect{Rows: rows(3)}},
			{
				Op:    OpGet,
				Query: cli.QueryFile{
					Table: "events",
					Where: []cli.Condition{{Column: "region", Value: 1}},
				},
				Expect: &Expect{Rows: rows(2)},
			},
			{
				Op:     OpFirst,
				Query:  cli.QueryFile{Table: "events", Where: []cli.Condition{{Column: "id", Value: 9}}},
				Expect: &Expect{Rows: rows(0)},
			},
			{
				Op:    OpCount,
				Query: cli.QueryFile{
					Table:   "events",
					Select:  []string{"region"},
					GroupBy: []string{"region"},
				},
				Expect: &Expect{Rows: rows(2)},
			},
			{Op: OpExists, Query: eventsQuery(), Expect: &Expect{Rows: rows(1)}},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Statements())
	assert.Len(t, result.Trace, 5)
}

func TestRun_SoftDeleteWithoutKeys(t *testing.T) {
	s := &Scenario{
		Name:        "restore_all",
		Description: "Restore without ids restores every deleted row",
		Setup: []string{
			testutil.EventsSchema,
			testutil.MergedTrigger,
			"INSERT INTO events (id, name, region) VALUES (1, 'alpha', 1), (2, 'beta', 2), (3, 'gamma', 1)",
		},
		Steps: []Step{
			{Op: OpDelete, Query: softQuery(""), Expect: &Expect{Rows: rows(3)}},
			{Op: OpCount, Query: softQuery(""), Expect: &Expect{Rows: rows(0)}},
			{Op: OpCount, Query: softQuery(cli.TrashedOnly), Expect: &Expect{Rows: rows(3)}},
			{Op: OpRestore, Query: softQuery(""), Expect: &Expect{Rows: rows(3)}},
			{Op: OpRestore, Query: softQuery(""), Expect: &Expect{Rows: rows(0)}},
			{Op: OpCount, Query: softQuery(cli.TrashedWith), Expect: &Expect{Rows: rows(3)}},
		},
		Assertions: []Assertion{
			{Type: AssertStatementCount, Count: 2},
			{Type: AssertFinalState, Table: "events", Where: map[string]any{"id": 2}, Expect: map[string]any{"is_deleted": 0, "deleted_at": nil}},
		},
	}
	s.SoftDelete.KeyColumn = "id"
	s.SoftDelete.FlagColumn = "is_deleted"
	s.SoftDelete.DeletedAtColumn = "deleted_at"

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ForceDeleteIgnoresScope(t *testing.T) {
	s := &Scenario{
		Name:        "force_delete",
		Description: "Force delete drops the soft-delete scope",
		Setup:       []string{testutil.EventsSchema},
		Steps: []Step{
			{
				Op:     OpForceDelete,
				Query:  cli.QueryFile{Table: "events", SoftDelete: true, Where: []cli.Condition{{Column: "region", Value: 1}}},
				IDs:    []any{7},
				Expect: &Expect{
					Error: "syntax error",
					SQL:   "ALTER TABLE events DELETE WHERE region = 1 AND events.id = 7;",
				},
			},
		},
	}
	s.SoftDelete.KeyColumn = "id"
	s.SoftDelete.FlagColumn = "is_deleted"

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
