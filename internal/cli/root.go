package cli

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/chq/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DSN        string // overrides connection.dsn
	Metrics    bool   // dump statement metrics to stderr after the command

	// Config is loaded on first use. Tests may set it directly.
	Config *config.Config

	registry *prometheus.Registry
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the chq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chq",
		Short: "chq - query builder for append-only column stores",
		Long: `Build, inspect and run queries against an append-only columnar store.

Queries are described in YAML files. Updates and deletes are submitted as
asynchronous ALTER TABLE mutations; soft-deletable tables write tombstone
rows instead.

The sqlite3 and duckdb drivers are built in. duckdb cannot run ALTER TABLE
mutations, so use it for compile, get, count and paginate only.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := opts.config()
			if err != nil {
				return WrapExitError(ExitCommandError, "loading config", err)
			}
			if opts.Metrics {
				opts.registry = newMetricsRegistry()
			}
			return configureLogging(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.registry == nil {
				return nil
			}
			if err := writeMetrics(cmd.ErrOrStderr(), opts.registry); err != nil {
				return WrapExitError(ExitFailure, "writing metrics", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to chq.yaml")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "data source name, overrides the config file")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "write statement metrics to stderr after the command")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewPaginateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// config returns the configuration, loading it on first use.
func (o *RootOptions) config() (*config.Config, error) {
	if o.Config == nil {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		o.Config = cfg
	}
	if o.DSN != "" {
		o.Config.Connection.DSN = o.DSN
	}
	return o.Config, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// configureLogging installs the configured slog handler. --verbose raises
// the level to debug.
func configureLogging(l config.Log, verbose bool, w io.Writer) error {
	if verbose {
		l.Level = "debug"
	}
	if err := l.Configure(w); err != nil {
		return WrapExitError(ExitCommandError, "configuring logging", err)
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
