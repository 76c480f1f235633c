package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chq/internal/cli"
	"github.com/roach88/chq/internal/config"
)

// Step operations.
const (
	OpGet         = "get"
	OpFirst       = "first"
	OpCount       = "count"
	OpExists      = "exists"
	OpInsert      = "insert"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpForceDelete = "force_delete"
	OpRestore     = "restore"
)

var validOps = []string{OpGet, OpFirst, OpCount, OpExists, OpInsert, OpUpdate, OpDelete, OpForceDelete, OpRestore}

// Scenario is a sequence of builder operations run against a fresh
// in-memory store, with expectations on each step and on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup holds literal SQL run before the steps, untraced.
	Setup []string `yaml:"setup"`

	// SoftDelete overrides the soft-delete column defaults for every
	// soft_delete query in the scenario.
	SoftDelete config.SoftDelete `yaml:"soft_delete"`

	// Steps run in order. A failed expectation does not stop later steps.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one builder operation.
type Step struct {
	// Op is one of get, first, count, exists, insert, update, delete,
	// force_delete and restore.
	Op string `yaml:"op"`

	// Query selects the rows the operation applies to. Its set section
	// holds the update assignments.
	Query cli.QueryFile `yaml:"query"`

	// IDs narrows delete, force_delete and restore to these keys.
	IDs []any `yaml:"ids,omitempty"`

	// Rows are inserted by insert.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Expect validates the outcome. Nil expects success.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Rows is the rows returned, counted, written, or 1/0 for accepted
	// mutations and exists.
	Rows *int64 `yaml:"rows,omitempty"`

	// Error is a substring of the expected error. Empty expects success.
	Error string `yaml:"error,omitempty"`

	// SQL is the last statement the step submitted.
	SQL string `yaml:"sql,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is statement_contains, statement_count, statement_order or
	// final_state.
	Type string `yaml:"type"`

	// SQL is the expected statement substring (statement_contains).
	SQL string `yaml:"sql,omitempty"`

	// Count is the expected number of statements (statement_count).
	Count int `yaml:"count,omitempty"`

	// Statements are substrings expected in order (statement_order).
	Statements []string `yaml:"statements,omitempty"`

	// Table is read by final_state.
	Table string `yaml:"table,omitempty"`

	// Where selects the row final_state checks. Exactly one row must match.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (final_state subset match).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertStatementContains = "statement_contains"
	AssertStatementCount    = "statement_count"
	AssertStatementOrder    = "statement_order"
	AssertFinalState        = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario. Unknown fields are rejected and the
// soft-delete section starts from the configuration defaults.
func ParseScenario(data []byte) (*Scenario, error) {
	cfg, err := config.Default()
	if err != nil {
		return nil, err
	}

	scenario := Scenario{SoftDelete: cfg.SoftDelete}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if !slices.Contains(validOps, step.Op) {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if err := step.Query.Validate(); err != nil {
			return fmt.Errorf("steps[%d].query: %w", i, err)
		}
		switch step.Op {
		case OpInsert:
			if len(step.Rows) == 0 {
				return fmt.Errorf("steps[%d]: rows are required for insert", i)
			}
		case OpRestore:
			if !step.Query.SoftDelete {
				return fmt.Errorf("steps[%d]: restore requires a soft_delete query", i)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertStatementContains:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for statement_contains", index)
		}
	case AssertStatementCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for statement_count", index)
		}
	case AssertStatementOrder:
		if len(a.Statements) == 0 {
			return fmt.Errorf("assertions[%d]: statements list is required for statement_order", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
