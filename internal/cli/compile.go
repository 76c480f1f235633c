package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Raw      bool   // inline bindings as literals
	Mutation string // "" | "update" | "delete"
}

// CompilationResult is the output of the compile command.
type CompilationResult struct {
	SQL      string `json:"sql"`
	Bindings []any  `json:"bindings"`
	Raw      string `json:"raw,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-file>",
		Short: "Compile a query file to SQL",
		Long: `Compile a YAML query file to SQL with positional bindings.

No connection is opened. With --raw the bindings are inlined as literals
in the configured dialect. With --mutation the file is compiled to the
ALTER TABLE statement update or delete would submit; update takes its
values from the file's "set" section.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "inline bindings as literals")
	cmd.Flags().StringVar(&opts.Mutation, "mutation", "", "compile a mutation instead (update|delete)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := newSession(cmd.Context(), opts.RootOptions, false)
	if err != nil {
		return formatter.Fail("loading config", err)
	}
	q, b, err := s.loadQuery(path)
	if err != nil {
		return formatter.Fail("compiling query", err)
	}
	formatter.VerboseLog("Compiling %s from %s", q.Table, path)

	result := &CompilationResult{}
	switch opts.Mutation {
	case "":
		result.SQL, result.Bindings, err = b.ToSQL()
		if err == nil && opts.Raw {
			result.Raw, err = b.ToRawSQL()
		}
	case "update":
		result.SQL, err = b.UpdateSQL(q.Set)
	case "delete":
		result.SQL, err = b.DeleteSQL()
	default:
		err = NewExitError(ExitCommandError, fmt.Sprintf("invalid mutation %q: must be update or delete", opts.Mutation))
	}
	if err != nil {
		return formatter.Fail("compiling query", err)
	}
	if result.Bindings == nil {
		result.Bindings = []any{}
	}

	return outputCompileSuccess(formatter, result)
}

// outputCompileSuccess outputs the compiled statement.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if result.Raw != "" {
		fmt.Fprintln(formatter.Writer, result.Raw)
		return nil
	}
	fmt.Fprintln(formatter.Writer, result.SQL)
	if len(result.Bindings) > 0 {
		fmt.Fprintf(formatter.Writer, "Bindings: %v\n", result.Bindings)
	}
	return nil
}
