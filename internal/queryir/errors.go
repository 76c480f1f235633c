package queryir

import (
	"errors"
	"fmt"
)

// Error is a query construction or execution contract violation.
//
// Error categories:
//   - Invalid argument: unknown operator, binding category or malformed subquery
//   - Precondition violation: missing ORDER BY for chunking, missing cursor
//     column, empty update values
//   - Not supported: transactions
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes query errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a malformed builder call.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodePreconditionViolation indicates an operation ran against a query
	// that does not satisfy its requirements.
	ErrCodePreconditionViolation ErrorCode = "PRECONDITION_VIOLATION"

	// ErrCodeNotSupported indicates an operation the store cannot perform.
	ErrCodeNotSupported ErrorCode = "NOT_SUPPORTED"
)

var (
	// ErrNoRecords is returned by Sole when the query matched nothing.
	ErrNoRecords = errors.New("no records found")

	// ErrMultipleRecords is returned by Sole when the query matched more than one row.
	ErrMultipleRecords = errors.New("multiple records found")
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code ErrorCode) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

// IsInvalidArgument returns true if err is an invalid argument error.
// Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrCodeInvalidArgument)
}

// IsPreconditionViolation returns true if err is a precondition violation.
func IsPreconditionViolation(err error) bool {
	return hasCode(err, ErrCodePreconditionViolation)
}

// IsNotSupported returns true if err is a not supported error.
func IsNotSupported(err error) bool {
	return hasCode(err, ErrCodeNotSupported)
}

// NewInvalidArgumentError creates an Error with ErrCodeInvalidArgument.
func NewInvalidArgumentError(message string, details map[string]string) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: message, Details: details}
}

// NewInvalidBindingCategoryError reports an unknown binding category.
func NewInvalidBindingCategoryError(category string) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Message: fmt.Sprintf("invalid binding type: %s", category),
		Details: map[string]string{"category": category},
	}
}

// NewInvalidOperatorError reports an operator outside the supported set.
func NewInvalidOperatorError(op string) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Message: fmt.Sprintf("illegal operator %q", op),
		Details: map[string]string{"operator": op},
	}
}

// NewMissingOrderError reports a chunked read without ORDER BY.
func NewMissingOrderError() *Error {
	return &Error{
		Code:    ErrCodePreconditionViolation,
		Message: "you must specify an orderBy clause when using this function",
	}
}

// NewMissingCursorError reports a keyset chunk whose cursor column is absent
// from the fetched rows.
func NewMissingCursorError(alias string) *Error {
	return &Error{
		Code:    ErrCodePreconditionViolation,
		Message: fmt.Sprintf("the chunkById operation was aborted because the [%s] column is not present in the query result", alias),
		Details: map[string]string{"column": alias},
	}
}

// NewEmptyUpdateError reports an update without assignments.
func NewEmptyUpdateError() *Error {
	return &Error{
		Code:    ErrCodePreconditionViolation,
		Message: "cannot update with empty values",
	}
}

// NewNotSupportedError creates an Error with ErrCodeNotSupported.
func NewNotSupportedError(message string) *Error {
	return &Error{Code: ErrCodeNotSupported, Message: message}
}
