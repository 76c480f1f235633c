package queryir

import (
	"fmt"
	"strings"
)

// Operator is a predicate comparison operator.
type Operator string

const (
	OpEquals       Operator = "="
	OpNotEquals    Operator = "!="
	OpNotEqualsAlt Operator = "<>"
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLike         Operator = "LIKE"
	OpNotLike      Operator = "NOT LIKE"
	OpILike        Operator = "ILIKE"
	OpNotILike     Operator = "NOT ILIKE"
	OpIn           Operator = "IN"
	OpNotIn        Operator = "NOT IN"
	OpGlobalIn     Operator = "GLOBAL IN"
	OpGlobalNotIn  Operator = "GLOBAL NOT IN"
	OpBetween      Operator = "BETWEEN"
	OpNotBetween   Operator = "NOT BETWEEN"
	OpIsNull       Operator = "IS NULL"
	OpIsNotNull    Operator = "IS NOT NULL"
)

var validOperators = map[Operator]bool{
	OpEquals: true, OpNotEquals: true, OpNotEqualsAlt: true,
	OpLess: true, OpLessEqual: true, OpGreater: true, OpGreaterEqual: true,
	OpLike: true, OpNotLike: true, OpILike: true, OpNotILike: true,
	OpIn: true, OpNotIn: true, OpGlobalIn: true, OpGlobalNotIn: true,
	OpBetween: true, OpNotBetween: true,
	OpIsNull: true, OpIsNotNull: true,
}

// negations is the closed inversion table used by WhereNot. <> has no
// entry of its own as a target: it negates to = and back to !=, so double
// negation normalizes <> to !=.
var negations = map[Operator]Operator{
	OpEquals:       OpNotEquals,
	OpNotEquals:    OpEquals,
	OpNotEqualsAlt: OpEquals,
	OpLess:         OpGreaterEqual,
	OpGreaterEqual: OpLess,
	OpGreater:      OpLessEqual,
	OpLessEqual:    OpGreater,
	OpIn:           OpNotIn,
	OpNotIn:        OpIn,
	OpGlobalIn:     OpGlobalNotIn,
	OpGlobalNotIn:  OpGlobalIn,
	OpLike:         OpNotLike,
	OpNotLike:      OpLike,
	OpILike:        OpNotILike,
	OpNotILike:     OpILike,
	OpBetween:      OpNotBetween,
	OpNotBetween:   OpBetween,
	OpIsNull:       OpIsNotNull,
	OpIsNotNull:    OpIsNull,
}

// ParseOperator normalizes s (case and inner whitespace) and checks it
// against the supported operator set.
func ParseOperator(s string) (Operator, error) {
	op := Operator(upper(strings.Join(strings.Fields(s), " ")))
	if !validOperators[op] {
		return "", NewInvalidOperatorError(s)
	}
	return op, nil
}

// IsValid reports whether op is a supported operator.
func (op Operator) IsValid() bool {
	return validOperators[op]
}

// Negate returns the inverse operator. ok is false when op has no inverse,
// in which case callers wrap the predicate in NOT (...).
func (op Operator) Negate() (Operator, bool) {
	n, ok := negations[op]
	return n, ok
}

// IsIn reports whether op takes a value list or subquery.
func (op Operator) IsIn() bool {
	switch op {
	case OpIn, OpNotIn, OpGlobalIn, OpGlobalNotIn:
		return true
	}
	return false
}

// IsBetween reports whether op takes a two value range.
func (op Operator) IsBetween() bool {
	return op == OpBetween || op == OpNotBetween
}

// IsNullCheck reports whether op is a value-less null test.
func (op Operator) IsNullCheck() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// ValidatePredicate checks the value shape expected by the predicate's operator.
func ValidatePredicate(p Predicate) error {
	if p.IsRaw() {
		return nil
	}
	if !p.Operator.IsValid() {
		return NewInvalidOperatorError(string(p.Operator))
	}
	switch {
	case p.Operator.IsBetween():
		vals, ok := p.Value.([]any)
		if !ok || len(vals) != 2 {
			return NewInvalidArgumentError(fmt.Sprintf("%s requires exactly two values", p.Operator), nil)
		}
	case p.Operator.IsIn():
		switch p.Value.(type) {
		case []any, Expression:
		default:
			return NewInvalidArgumentError(fmt.Sprintf("%s requires a value list or subquery, got %T", p.Operator, p.Value), nil)
		}
	}
	return nil
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
