package queryir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		invalid      bool
		precondition bool
		notSupported bool
	}{
		{"binding category", NewInvalidBindingCategoryError("x"), true, false, false},
		{"operator", NewInvalidOperatorError("~"), true, false, false},
		{"missing order", NewMissingOrderError(), false, true, false},
		{"missing cursor", NewMissingCursorError("id"), false, true, false},
		{"empty update", NewEmptyUpdateError(), false, true, false},
		{"not supported", NewNotSupportedError("transactions"), false, false, true},
		{"wrapped", fmt.Errorf("chunk: %w", NewMissingOrderError()), false, true, false},
		{"plain", errors.New("boom"), false, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.invalid, IsInvalidArgument(tc.err))
			assert.Equal(t, tc.precondition, IsPreconditionViolation(tc.err))
			assert.Equal(t, tc.notSupported, IsNotSupported(tc.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := NewMissingCursorError("event_id")
	assert.Equal(t, "PRECONDITION_VIOLATION: the chunkById operation was aborted because the [event_id] column is not present in the query result", err.Error())
	assert.Equal(t, "event_id", err.Details["column"])
}
