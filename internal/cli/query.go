package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	First     bool
	Lazy      bool
	ChunkSize int
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <query-file>",
		Short: "Run a query file and print the rows",
		Long: `Run a YAML query file against the configured store and print every
matching row.

With --lazy the rows are fetched in pages of --chunk-size (default
query.chunk_size from the config) and printed as they arrive: JSON as one
object per line, text as tab-separated values. Lazy queries need an
order_by.

Example:
  chq get --dsn ./events.db queries/recent.yaml
  chq get --format json --first queries/by-id.yaml
  chq get --lazy --chunk-size 500 queries/export.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.First, "first", false, "print only the first row")
	cmd.Flags().BoolVar(&opts.Lazy, "lazy", false, "stream rows page by page")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", 0, "rows per page with --lazy")

	return cmd
}

func runGet(opts *GetOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if opts.Lazy && opts.First {
		return NewExitError(ExitCommandError, "--lazy and --first cannot be combined")
	}

	s, err := newSession(cmd.Context(), opts.RootOptions, true)
	if err != nil {
		return formatter.Fail("opening session", err)
	}
	defer s.Close()

	_, b, err := s.loadQuery(path)
	if err != nil {
		return formatter.Fail("loading query", err)
	}

	if opts.Lazy {
		size := opts.ChunkSize
		if size == 0 {
			size = s.cfg.Query.ChunkSize
		}
		rows, err := b.Lazy(cmd.Context(), size)
		if err != nil {
			return formatter.Fail("running query", err)
		}
		n, err := formatter.Stream(rows)
		if err != nil {
			return formatter.Fail("running query", err)
		}
		formatter.VerboseLog("streamed %d row(s) in pages of %d", n, size)
		return nil
	}

	if opts.First {
		row, err := b.First(cmd.Context())
		if err != nil {
			return formatter.Fail("running query", err)
		}
		if row == nil {
			return formatter.Rows([]map[string]any{})
		}
		return formatter.Rows([]map[string]any{row})
	}

	rows, err := b.Get(cmd.Context())
	if err != nil {
		return formatter.Fail("running query", err)
	}
	return formatter.Rows(rows)
}

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	Column string
}

// CountResult is the output of the count command.
type CountResult struct {
	Count int64 `json:"count"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "count <query-file>",
		Short:         "Count the rows a query file matches",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Column, "column", "", "count non-null values of column")

	return cmd
}

func runCount(opts *CountOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := newSession(cmd.Context(), opts.RootOptions, true)
	if err != nil {
		return formatter.Fail("opening session", err)
	}
	defer s.Close()

	_, b, err := s.loadQuery(path)
	if err != nil {
		return formatter.Fail("loading query", err)
	}

	var columns []string
	if opts.Column != "" {
		columns = append(columns, opts.Column)
	}
	count, err := b.Count(cmd.Context(), columns...)
	if err != nil {
		return formatter.Fail("counting rows", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(CountResult{Count: count})
	}
	fmt.Fprintln(formatter.Writer, count)
	return nil
}

// PaginateOptions holds flags for the paginate command.
type PaginateOptions struct {
	*RootOptions
	Page    int
	PerPage int
	Simple  bool
}

// NewPaginateCommand creates the paginate command.
func NewPaginateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PaginateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "paginate <query-file>",
		Short: "Print one page of a query file",
		Long: `Print one page of a query file's rows with pagination metadata.

Without --simple the total is counted first, so the last page is known.
With --simple one extra row is fetched to tell whether more pages exist.
--per-page defaults to query.per_page from the config.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPaginate(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&opts.PerPage, "per-page", 0, "rows per page")
	cmd.Flags().BoolVar(&opts.Simple, "simple", false, "skip the total count")

	return cmd
}

func runPaginate(opts *PaginateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := newSession(cmd.Context(), opts.RootOptions, true)
	if err != nil {
		return formatter.Fail("opening session", err)
	}
	defer s.Close()

	_, b, err := s.loadQuery(path)
	if err != nil {
		return formatter.Fail("loading query", err)
	}

	perPage := opts.PerPage
	if perPage == 0 {
		perPage = s.cfg.Query.PerPage
	}

	if opts.Simple {
		page, err := b.SimplePaginate(cmd.Context(), opts.Page, perPage)
		if err != nil {
			return formatter.Fail("paginating", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(page)
		}
		if err := formatter.Rows(page.Items); err != nil {
			return err
		}
		fmt.Fprintf(formatter.Writer, "Page %d (more: %t)\n", page.CurrentPage, page.HasMore)
		return nil
	}

	page, err := b.Paginate(cmd.Context(), opts.Page, perPage)
	if err != nil {
		return formatter.Fail("paginating", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(page)
	}
	if err := formatter.Rows(page.Items); err != nil {
		return err
	}
	fmt.Fprintf(formatter.Writer, "Page %d of %d (%d total)\n", page.CurrentPage, page.LastPage, page.Total)
	return nil
}
