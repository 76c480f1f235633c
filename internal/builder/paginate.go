package builder

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/roach88/chq/internal/queryir"
)

// ErrStop is returned by a chunk callback to stop iterating without error.
var ErrStop = errors.New("stop chunking")

// Page is one page of an offset-paginated result.
type Page struct {
	Items       []Row `json:"items"`
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
}

// SimplePage is one page of a count-free paginated result.
type SimplePage struct {
	Items       []Row `json:"items"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	HasMore     bool  `json:"has_more"`
}

// GetCountForPagination returns the number of rows the query matches
// ignoring LIMIT, OFFSET and ORDER BY. Grouped, filtered-by-having, distinct
// and union queries are counted through a wrapping subquery.
func (b *Builder) GetCountForPagination(ctx context.Context) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}

	c := b.withoutWindow()
	if len(c.query.Groups) > 0 || len(c.query.Havings) > 0 || c.query.Distinct.Enabled || c.query.HasUnions() {
		if len(c.query.Columns) == 0 && len(c.query.Joins) > 0 {
			if table := c.query.From.Name(); table != "" {
				c.Select(table + ".*")
			}
		}
		sql, bindings, err := c.ToSQL()
		if err != nil {
			return 0, err
		}
		outer := c.NewQuery().fromWrapped(sql, bindings)
		outer.query.Aggregate = &queryir.Aggregate{Function: "count", Columns: []any{"*"}}
		return countResult(ctx, outer)
	}

	c.query.Columns = nil
	c.query.Bindings.Clear(queryir.CategorySelect)
	c.query.Aggregate = &queryir.Aggregate{Function: "count", Columns: []any{"*"}}
	return countResult(ctx, c)
}

// withoutWindow returns a clone without ORDER BY, LIMIT and OFFSET, at
// both the query and the union scope.
func (b *Builder) withoutWindow() *Builder {
	c := b.Clone()
	c.query.Orders = nil
	c.query.UnionOrders = nil
	c.query.LimitValue, c.query.OffsetValue = nil, nil
	c.query.UnionLimit, c.query.UnionOffset = nil, nil
	c.query.Bindings.Clear(queryir.CategoryOrder, queryir.CategoryUnionOrder)
	return c
}

func countResult(ctx context.Context, b *Builder) (int64, error) {
	rows, err := b.Get(ctx)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	v, _ := lookupFold(rows[0], aggregateKey)
	return toInt64(v)
}

// Paginate counts the matching rows, then fetches the requested 1-based
// page. The fetch is skipped when the count is zero.
func (b *Builder) Paginate(ctx context.Context, page, perPage int) (*Page, error) {
	if perPage <= 0 {
		return nil, queryir.NewInvalidArgumentError(fmt.Sprintf("per page must be positive, got %d", perPage), nil)
	}
	page = max(page, 1)

	total, err := b.GetCountForPagination(ctx)
	if err != nil {
		return nil, err
	}

	items := []Row{}
	if total > 0 {
		items, err = b.Clone().ForPage(page, perPage).Get(ctx)
		if err != nil {
			return nil, err
		}
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	return &Page{
		Items:       items,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    max(lastPage, 1),
	}, nil
}

// SimplePaginate fetches perPage+1 rows to learn whether another page
// exists, without counting.
func (b *Builder) SimplePaginate(ctx context.Context, page, perPage int) (*SimplePage, error) {
	if perPage <= 0 {
		return nil, queryir.NewInvalidArgumentError(fmt.Sprintf("per page must be positive, got %d", perPage), nil)
	}
	page = max(page, 1)

	rows, err := b.Clone().Offset((page - 1) * perPage).Limit(perPage + 1).Get(ctx)
	if err != nil {
		return nil, err
	}

	hasMore := len(rows) > perPage
	if hasMore {
		rows = rows[:perPage]
	}
	return &SimplePage{Items: rows, PerPage: perPage, CurrentPage: page, HasMore: hasMore}, nil
}

func (b *Builder) enforceOrderBy() error {
	if len(b.query.Orders) == 0 && len(b.query.UnionOrders) == 0 {
		return queryir.NewMissingOrderError()
	}
	return nil
}

func checkChunkSize(size int) error {
	if size <= 0 {
		return queryir.NewInvalidArgumentError(fmt.Sprintf("chunk size must be positive, got %d", size), nil)
	}
	return nil
}

// Chunk walks the result page by page in ORDER BY order, calling fn with
// each page and its 1-based number. It requires an ORDER BY. fn returning
// ErrStop ends the walk early and Chunk reports false; any other error is
// returned as is.
func (b *Builder) Chunk(ctx context.Context, size int, fn func(rows []Row, page int) error) (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	if err := checkChunkSize(size); err != nil {
		return false, err
	}
	if err := b.enforceOrderBy(); err != nil {
		return false, err
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		rows, err := b.Clone().ForPage(page, size).Get(ctx)
		if err != nil {
			return false, err
		}
		if len(rows) == 0 {
			return true, nil
		}
		slog.Debug("chunk fetched", "page", page, "rows", len(rows))

		if err := fn(rows, page); err != nil {
			if errors.Is(err, ErrStop) {
				return false, nil
			}
			return false, err
		}
		if len(rows) < size {
			return true, nil
		}
	}
}

// ChunkByID walks the result in ascending keyset windows over column,
// reading the cursor from alias in each page's last row. column defaults to
// the key name and alias to column.
func (b *Builder) ChunkByID(ctx context.Context, size int, fn func(rows []Row) error, column, alias string) (bool, error) {
	return b.chunkByID(ctx, size, fn, column, alias, false)
}

// ChunkByIDDesc walks the result in descending keyset windows.
func (b *Builder) ChunkByIDDesc(ctx context.Context, size int, fn func(rows []Row) error, column, alias string) (bool, error) {
	return b.chunkByID(ctx, size, fn, column, alias, true)
}

func (b *Builder) chunkByID(ctx context.Context, size int, fn func(rows []Row) error, column, alias string, desc bool) (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	if err := checkChunkSize(size); err != nil {
		return false, err
	}
	column, alias = b.cursorColumns(column, alias)

	var lastID any
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		rows, err := b.keysetPage(size, lastID, column, desc).Get(ctx)
		if err != nil {
			return false, err
		}
		if len(rows) == 0 {
			return true, nil
		}

		if err := fn(rows); err != nil {
			if errors.Is(err, ErrStop) {
				return false, nil
			}
			return false, err
		}

		next, ok := lookup(rows[len(rows)-1], alias)
		if !ok || next == nil {
			return false, queryir.NewMissingCursorError(alias)
		}
		lastID = next

		if len(rows) < size {
			return true, nil
		}
	}
}

func (b *Builder) cursorColumns(column, alias string) (string, string) {
	if column == "" {
		column = b.keyName
	}
	if alias == "" {
		alias = column
	}
	return column, alias
}

func (b *Builder) keysetPage(size int, lastID any, column string, desc bool) *Builder {
	if desc {
		return b.Clone().ForPageBeforeID(size, lastID, column)
	}
	return b.Clone().ForPageAfterID(size, lastID, column)
}

// Lazy returns a sequence over every row, fetched size rows per round trip
// in ORDER BY order. It requires an ORDER BY. Each range over the sequence
// starts again from the first page; stopping the range stops fetching.
func (b *Builder) Lazy(ctx context.Context, size int) (iter.Seq2[Row, error], error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := checkChunkSize(size); err != nil {
		return nil, err
	}
	if err := b.enforceOrderBy(); err != nil {
		return nil, err
	}

	base := b.Clone()
	seq := func(yield func(Row, error) bool) {
		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			rows, err := base.Clone().ForPage(page, size).Get(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
			if len(rows) < size {
				return
			}
		}
	}
	return seq, nil
}

// LazyByID returns a keyset-paged sequence in ascending column order.
func (b *Builder) LazyByID(ctx context.Context, size int, column, alias string) (iter.Seq2[Row, error], error) {
	return b.lazyByID(ctx, size, column, alias, false)
}

// LazyByIDDesc returns a keyset-paged sequence in descending column order.
func (b *Builder) LazyByIDDesc(ctx context.Context, size int, column, alias string) (iter.Seq2[Row, error], error) {
	return b.lazyByID(ctx, size, column, alias, true)
}

func (b *Builder) lazyByID(ctx context.Context, size int, column, alias string, desc bool) (iter.Seq2[Row, error], error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := checkChunkSize(size); err != nil {
		return nil, err
	}
	column, alias = b.cursorColumns(column, alias)

	base := b.Clone()
	seq := func(yield func(Row, error) bool) {
		var lastID any
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			rows, err := base.keysetPage(size, lastID, column, desc).Get(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
			if len(rows) < size {
				return
			}

			next, ok := lookup(rows[len(rows)-1], alias)
			if !ok || next == nil {
				yield(nil, queryir.NewMissingCursorError(alias))
				return
			}
			lastID = next
		}
	}
	return seq, nil
}
