package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/chq/internal/softdelete"
)

// Mutation operations reported by update, delete and restore.
const (
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpForceDelete = "force_delete"
	OpSoftDelete  = "soft_delete"
	OpRestore     = "restore"
)

// MutationResult is the output of update, delete and restore. For ALTER
// TABLE mutations Rows is 1 when the store accepted the mutation and 0
// otherwise; for soft deletes and restores it is the number of rows written.
type MutationResult struct {
	Operation string `json:"operation"`
	Rows      int    `json:"rows"`
	SQL       string `json:"sql,omitempty"`
}

// MutateOptions holds flags shared by the mutating commands.
type MutateOptions struct {
	*RootOptions
	IDs    []string
	Force  bool
	DryRun bool
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <query-file>",
		Short: "Submit an ALTER TABLE ... UPDATE mutation",
		Long: `Submit an asynchronous ALTER TABLE ... UPDATE mutation setting the
file's "set" values on every row its conditions match.

The store applies the mutation in the background, so the result only says
whether it was accepted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the mutation without submitting it")

	return cmd
}

func runUpdate(opts *MutateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := newSession(cmd.Context(), opts.RootOptions, !opts.DryRun)
	if err != nil {
		return formatter.Fail("opening session", err)
	}
	defer s.Close()

	q, b, err := s.loadQuery(path)
	if err != nil {
		return formatter.Fail("loading query", err)
	}

	if opts.DryRun {
		sql, err := b.UpdateSQL(q.Set)
		if err != nil {
			return formatter.Fail("compiling update", err)
		}
		return outputMutation(formatter, MutationResult{Operation: OpUpdate, SQL: sql})
	}

	n, err := b.Update(cmd.Context(), q.Set)
	if err != nil {
		return formatter.Fail("updating", err)
	}
	return outputMutation(formatter, MutationResult{Operation: OpUpdate, Rows: n})
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <query-file>",
		Short: "Delete the rows a query file matches",
		Long: `Delete the rows a query file matches, optionally narrowed to --id keys.

Plain tables get an asynchronous ALTER TABLE ... DELETE mutation.
Soft-delete tables get tombstone rows instead; --force submits the
ALTER TABLE mutation for them too.

Example:
  chq delete queries/stale.yaml
  chq delete --id 7 --id 9 queries/events.yaml
  chq delete --force --dry-run queries/events.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.IDs, "id", nil, "key to delete (repeatable)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "physically delete soft-delete rows")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the mutation without submitting it")

	return cmd
}

func runDelete(opts *MutateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := newSession(cmd.Context(), opts.RootOptions, !opts.DryRun)
	if err != nil {
		return formatter.Fail("opening session", err)
	}
	defer s.Close()

	q, b, err := s.loadQuery(path)
	if err != nil {
		return formatter.Fail("loading query", err)
	}
	ids := parseKeys(opts.IDs)

	op := OpDelete
	if q.SoftDelete {
		op = OpSoftDelete
		if opts.Force {
			op = OpForceDelete
			b.WithoutScope(softdelete.ScopeName)
		}
	}

	if opts.DryRun {
		if op == OpSoftDelete {
			return formatter.Fail("compiling delete", NewExitError(ExitCommandError, "soft deletes write rows; --dry-run needs --force"))
		}
		sql, err := b.DeleteSQL(ids...)
		if err != nil {
			return formatter.Fail("compiling delete", err)
		}
		return outputMutation(formatter, MutationResult{Operation: op, SQL: sql})
	}

	var n int
	if op == OpForceDelete {
		n, err = b.ForceDelete(cmd.Context(), ids...)
	} else {
		n, err = b.Delete(cmd.Context(), ids...)
	}
	if err != nil {
		return formatter.Fail("deleting", err)
	}
	return outputMutation(formatter, MutationResult{Operation: op, Rows: n})
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "restore <query-file>",
		Short: "Restore soft-deleted rows",
		Long: `Restore the deleted rows of a soft-delete table by writing live copies.

The file's conditions and --id keys select which deleted rows to restore.
Without either, every deleted row is restored.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.IDs, "id", nil, "key to restore (repeatable)")

	return cmd
}

func runRestore(opts *MutateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	s, err := newSession(ctx, opts.RootOptions, true)
	if err != nil {
		return formatter.Fail("opening session", err)
	}
	defer s.Close()

	q, err := LoadQueryFile(path)
	if err != nil {
		return formatter.Fail("loading query", err)
	}
	if !q.SoftDelete {
		return formatter.Fail("restoring", NewExitError(ExitCommandError, fmt.Sprintf("%s is not a soft-delete query", path)))
	}

	t, err := s.softTable(q)
	if err != nil {
		return formatter.Fail("restoring", err)
	}
	keys := parseKeys(opts.IDs)

	if len(q.Where) > 0 {
		q.Trashed = TrashedOnly
		b, err := s.query(q)
		if err != nil {
			return formatter.Fail("loading query", err)
		}
		key := t.Config().KeyColumn
		if len(keys) > 0 {
			b.WhereIn(key, keys)
		}
		keys, err = b.Pluck(ctx, key)
		if err != nil {
			return formatter.Fail("restoring", err)
		}
		if len(keys) == 0 {
			return outputMutation(formatter, MutationResult{Operation: OpRestore})
		}
	}

	n, err := t.Restore(ctx, keys...)
	if err != nil {
		return formatter.Fail("restoring", err)
	}
	return outputMutation(formatter, MutationResult{Operation: OpRestore, Rows: n})
}

func outputMutation(formatter *OutputFormatter, result MutationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	switch {
	case result.SQL != "":
		fmt.Fprintln(formatter.Writer, result.SQL)
	case result.Operation == OpSoftDelete || result.Operation == OpRestore:
		fmt.Fprintf(formatter.Writer, "%s: %d row(s) written\n", result.Operation, result.Rows)
	case result.Rows > 0:
		fmt.Fprintf(formatter.Writer, "%s: mutation accepted\n", result.Operation)
	default:
		fmt.Fprintf(formatter.Writer, "%s: mutation rejected\n", result.Operation)
	}
	return nil
}

// parseKeys converts --id values to integers where they parse as one.
func parseKeys(ids []string) []any {
	keys := make([]any, 0, len(ids))
	for _, id := range ids {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			keys = append(keys, n)
			continue
		}
		keys = append(keys, id)
	}
	return keys
}
