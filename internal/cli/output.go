package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/roach88/chq/internal/builder"
	"github.com/roach88/chq/internal/config"
	"github.com/roach88/chq/internal/queryir"
	"github.com/roach88/chq/internal/querysql"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The store rejected or failed a query
	ExitCommandError = 2 // Invalid input (config, query file, arguments)
)

// Error codes reported in CLI output.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeNotFound     = "E002" // Query or config file not found
	ErrCodeConfig       = "E003" // Invalid configuration
	ErrCodeQueryFile    = "E004" // Malformed query file
	ErrCodeInvalidQuery = "E101" // Builder rejected an argument
	ErrCodePrecondition = "E102" // Operation precondition not met
	ErrCodeNotSupported = "E103" // Operation not supported by the store
	ErrCodeConnection   = "E201" // Could not open the store
	ErrCodeExecution    = "E202" // The store failed a statement
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Rows outputs result rows. Text output is a table with columns sorted by
// name; JSON output keeps the rows as objects.
func (f *OutputFormatter) Rows(rows []builder.Row) error {
	if f.Format == "json" {
		return f.Success(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(f.Writer, "(no rows)")
		return nil
	}

	columns := rowColumns(rows)
	table := tablewriter.NewWriter(f.Writer)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(columns)
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = formatValue(row[col])
		}
		table.Append(record)
	}
	table.Render()

	fmt.Fprintf(f.Writer, "%d row(s)\n", len(rows))
	return nil
}

// Stream writes rows as the sequence yields them: one JSON object per line
// in json format, tab-separated values under a header in text format. It
// returns the number of rows written and the first error of the sequence.
func (f *OutputFormatter) Stream(rows iter.Seq2[builder.Row, error]) (int, error) {
	enc := json.NewEncoder(f.Writer)
	var columns []string
	n := 0
	for row, err := range rows {
		if err != nil {
			return n, err
		}
		if f.Format == "json" {
			if err := enc.Encode(row); err != nil {
				return n, err
			}
			n++
			continue
		}
		if columns == nil {
			columns = rowColumns([]builder.Row{row})
			fmt.Fprintln(f.Writer, strings.Join(columns, "\t"))
		}
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = formatValue(row[col])
		}
		fmt.Fprintln(f.Writer, strings.Join(record, "\t"))
		n++
	}

	if f.Format != "json" {
		if n == 0 {
			fmt.Fprintln(f.Writer, "(no rows)")
		} else {
			fmt.Fprintf(f.Writer, "%d row(s)\n", n)
		}
	}
	return n, nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// Fail reports err in the configured format and returns the ExitError the
// command should return.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := classify(err)
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(exit, message, err)
}

// classify maps an error to its CLI error code and exit code.
func classify(err error) (string, int) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return ErrCodeGeneric, exitErr.Code
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, ExitCommandError
	}
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return ErrCodeConfig, ExitCommandError
	}

	switch {
	case queryir.IsInvalidArgument(err):
		return ErrCodeInvalidQuery, ExitCommandError
	case queryir.IsPreconditionViolation(err):
		return ErrCodePrecondition, ExitCommandError
	case queryir.IsNotSupported(err):
		return ErrCodeNotSupported, ExitFailure
	case errors.Is(err, queryir.ErrNoRecords), errors.Is(err, queryir.ErrMultipleRecords):
		return ErrCodePrecondition, ExitFailure
	}
	return ErrCodeExecution, ExitFailure
}

func rowColumns(rows []builder.Row) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

// formatValue renders a cell for text output. NULL is printed as NULL so it
// can be told apart from an empty string.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return val.Format(querysql.DateFormat)
	default:
		return fmt.Sprint(val)
	}
}
