package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Statement executes a literal statement without bindings: DDL, INSERT or
// an ALTER TABLE mutation. It reports true once the store accepted the
// statement. For asynchronous mutations acceptance does not mean the rows
// have changed yet.
func (d *DB) Statement(ctx context.Context, query string) (bool, error) {
	id := uuid.NewString()
	start := time.Now()

	_, err := d.db.ExecContext(ctx, query)
	elapsed := time.Since(start)
	sampleStatement("statement", elapsed, err)

	if err != nil {
		slog.Error("statement failed", "query_id", id, "sql", query, "error", err)
		return false, fmt.Errorf("statement: %w", err)
	}
	slog.Debug("statement executed", "query_id", id, "sql", query, "elapsed", elapsed)
	return true, nil
}
