package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/chq/internal/builder"
	"github.com/roach88/chq/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// The builder inlines identifiers, so final_state names are checked first.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nStatements:\n")
		for _, event := range e.Trace {
			if event.Kind == KindStatement {
				fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event.SQL)
			}
		}
	}

	return buf.String()
}

// assertStatementContains checks that some statement contains the
// assertion's SQL.
func assertStatementContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Kind == KindStatement && strings.Contains(event.SQL, assertion.SQL) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertStatementContains,
		Expected: fmt.Sprintf("statement containing %q", assertion.SQL),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertStatementCount checks the number of statements sent.
func assertStatementCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Kind == KindStatement {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertStatementCount,
			Expected: fmt.Sprintf("%d statement(s)", assertion.Count),
			Actual:   fmt.Sprintf("%d statement(s)", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertStatementOrder checks that statements matching each substring
// appear in the given order. Other statements may come in between.
func assertStatementOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(assertion.Statements) {
			break
		}
		if event.Kind == KindStatement && strings.Contains(event.SQL, assertion.Statements[next]) {
			next++
		}
	}

	if next < len(assertion.Statements) {
		return &AssertionError{
			Type:     AssertStatementOrder,
			Expected: fmt.Sprintf("statements in order: %q", assertion.Statements),
			Actual:   fmt.Sprintf("no statement containing %q after the ones before it", assertion.Statements[next]),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState reads the single row of assertion.Table matching
// assertion.Where and compares the expected fields (subset semantics).
func assertFinalState(ctx context.Context, db *store.DB, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}
	for key := range assertion.Where {
		if !validIdentifier.MatchString(key) {
			return fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
	}

	b := builder.Table(db, assertion.Table)
	if len(assertion.Where) > 0 {
		b.Where(assertion.Where)
	}
	rows, err := b.Limit(2).Get(ctx)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(rows) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := rows[0]
	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, sortedKeys(actualRow)),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares a YAML value with a value read from the store.
// sqlite returns int64 for integers and float64 for reals.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case int:
		return numericEqual(float64(exp), actual)
	case int64:
		return numericEqual(float64(exp), actual)
	case float64:
		return numericEqual(exp, actual)
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		// sqlite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

func numericEqual(expected float64, actual any) bool {
	switch a := actual.(type) {
	case int64:
		return expected == float64(a)
	case int:
		return expected == float64(a)
	case float64:
		return expected == a
	}
	return false
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// db provides the final tables for final_state assertions.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, db *store.DB) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertStatementContains:
			err = assertStatementContains(result.Trace, assertion)
		case AssertStatementCount:
			err = assertStatementCount(result.Trace, assertion)
		case AssertStatementOrder:
			err = assertStatementOrder(result.Trace, assertion)
		case AssertFinalState:
			if db == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a database", i)
			} else {
				err = assertFinalState(ctx, db, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
