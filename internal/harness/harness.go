package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/chq/internal/builder"
	"github.com/roach88/chq/internal/cli"
	"github.com/roach88/chq/internal/config"
	"github.com/roach88/chq/internal/softdelete"
	"github.com/roach88/chq/internal/store"
	"github.com/roach88/chq/internal/testutil"
)

// Harness runs scenario steps against one store with a deterministic clock.
type Harness struct {
	db         *store.DB
	rec        *recorder
	clock      *testutil.DeterministicClock
	softDelete config.SoftDelete
	logger     *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory sqlite database. Soft-delete
// tombstones take their times and versions from a deterministic clock, so
// the trace is identical across runs.
//
// Execution flow:
//  1. Open the database and run the setup statements
//  2. Run every step, recording each round trip and checking its expect clause
//  3. Evaluate the assertions against the trace and the final tables
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	db, err := store.Open(ctx, "sqlite3", ":memory:", store.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer db.Close()

	for i, stmt := range scenario.Setup {
		if _, err := db.Statement(ctx, stmt); err != nil {
			return nil, fmt.Errorf("setup statement %d: %w", i, err)
		}
	}

	result := NewResult()
	h := &Harness{
		db:         db,
		rec:        &recorder{conn: db, result: result},
		clock:      testutil.NewDeterministicClock(),
		softDelete: scenario.SoftDelete,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	for i, step := range scenario.Steps {
		h.rec.step = i + 1
		h.rec.last = ""

		rows, err := h.execute(ctx, step)
		got := StepResult{Op: step.Op, Rows: rows}
		if err != nil {
			got.Error = err.Error()
		}
		result.Steps = append(result.Steps, got)
		checkStep(i, step, got, h.rec.last, result)

		h.logger.Info("step completed",
			"step", i+1,
			"op", step.Op,
			"table", step.Query.Table,
			"rows", rows,
			"error", got.Error,
		)
	}

	for _, msg := range EvaluateAssertions(ctx, result, scenario.Assertions, db) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step and returns its row figure.
func (h *Harness) execute(ctx context.Context, step Step) (int64, error) {
	switch step.Op {
	case OpInsert:
		ok, err := builder.Table(h.rec, step.Query.Table).Insert(ctx, step.Rows...)
		return boolRows(ok), err
	case OpRestore:
		t, err := h.softTable(step.Query)
		if err != nil {
			return 0, err
		}
		n, err := t.Restore(ctx, step.IDs...)
		return int64(n), err
	}

	b, err := h.query(step.Query)
	if err != nil {
		return 0, err
	}

	switch step.Op {
	case OpGet:
		rows, err := b.Get(ctx)
		return int64(len(rows)), err
	case OpFirst:
		row, err := b.First(ctx)
		return boolRows(row != nil), err
	case OpCount:
		return b.Count(ctx)
	case OpExists:
		ok, err := b.Exists(ctx)
		return boolRows(ok), err
	case OpUpdate:
		n, err := b.Update(ctx, step.Query.Set)
		return int64(n), err
	case OpDelete:
		n, err := b.Delete(ctx, step.IDs...)
		return int64(n), err
	case OpForceDelete:
		n, err := b.WithoutScope(softdelete.ScopeName).ForceDelete(ctx, step.IDs...)
		return int64(n), err
	}
	return 0, fmt.Errorf("unknown op %q", step.Op)
}

func (h *Harness) softTable(q cli.QueryFile) (*softdelete.Table, error) {
	cfg := h.softDelete.Table(q.Table)
	if q.Final {
		cfg.Final = true
	}
	return softdelete.New(h.rec, cfg, softdelete.WithClock(h.clock))
}

// query builds q over the recording connection. Soft-delete queries start
// from the table's scoped builder.
func (h *Harness) query(q cli.QueryFile) (*builder.Builder, error) {
	var b *builder.Builder
	if q.SoftDelete {
		t, err := h.softTable(q)
		if err != nil {
			return nil, err
		}
		switch q.Trashed {
		case cli.TrashedWith:
			b = t.WithTrashed()
		case cli.TrashedOnly:
			b = t.OnlyTrashed()
		default:
			b = t.Query()
		}
	} else {
		b = builder.Table(h.rec, q.Table)
	}

	q.Apply(b)
	return b, b.Err()
}

// checkStep compares a step outcome with its expect clause. A step without
// one must succeed.
func checkStep(i int, step Step, got StepResult, last string, result *Result) {
	exp := step.Expect
	if exp == nil {
		exp = &Expect{}
	}

	switch {
	case exp.Error == "" && got.Error != "":
		result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %s", i, step.Op, got.Error))
		return
	case exp.Error != "" && got.Error == "":
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q, got none", i, step.Op, exp.Error))
		return
	case exp.Error != "" && !strings.Contains(got.Error, exp.Error):
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q, got %q", i, step.Op, exp.Error, got.Error))
		return
	}

	if exp.Rows != nil && *exp.Rows != got.Rows {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %d row(s), got %d", i, step.Op, *exp.Rows, got.Rows))
	}
	if exp.SQL != "" && exp.SQL != last {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected statement %q, got %q", i, step.Op, exp.SQL, last))
	}
}

func boolRows(ok bool) int64 {
	if ok {
		return 1
	}
	return 0
}

// recorder is a builder.Connection that appends every round trip to the
// result trace before passing it on.
type recorder struct {
	conn   builder.Connection
	result *Result
	step   int
	last   string
}

func (r *recorder) Select(ctx context.Context, query string, bindings []any) ([]map[string]any, error) {
	r.result.AddTrace(r.step, KindSelect, query, slices.Clone(bindings))
	return r.conn.Select(ctx, query, bindings)
}

func (r *recorder) Statement(ctx context.Context, query string) (bool, error) {
	r.result.AddTrace(r.step, KindStatement, query, nil)
	r.last = query
	return r.conn.Statement(ctx, query)
}

func (r *recorder) Escape(value any, binary bool) string {
	return r.conn.Escape(value, binary)
}
