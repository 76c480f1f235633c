package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/chq/internal/querysql"
)

// Select runs query with positional bindings and returns every row as a
// column → value map. Byte columns are returned as strings.
//
// Returns an empty slice (not nil) when the query matches nothing.
func (d *DB) Select(ctx context.Context, query string, bindings []any) ([]map[string]any, error) {
	id := uuid.NewString()
	start := time.Now()

	result, err := d.selectRows(ctx, query, querysql.PrepareBindings(bindings))
	elapsed := time.Since(start)
	sampleStatement("select", elapsed, err)

	if err != nil {
		slog.Error("query failed", "query_id", id, "sql", query, "error", err)
		return nil, err
	}
	slog.Debug("query executed",
		"query_id", id,
		"sql", query,
		"bindings", len(bindings),
		"rows", len(result),
		"elapsed", elapsed,
	)
	return result, nil
}

func (d *DB) selectRows(ctx context.Context, query string, args []any) ([]map[string]any, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := []map[string]any{}
	for rows.Next() {
		row, err := scanRow(rows, columns)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}

// scanRow scans the current row into a map keyed by column name.
func scanRow(rows *sql.Rows, columns []string) (map[string]any, error) {
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	row := make(map[string]any, len(columns))
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, nil
}
