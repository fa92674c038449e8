package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineError_ErrorString(t *testing.T) {
	err := NewError(ErrCodeNotFound, "action not found")
	assert.Equal(t, "[NOT_FOUND] action not found", err.Error())
}

func TestNewErrorf(t *testing.T) {
	err := NewErrorf(ErrCodeConflict, "action %q is not in status %q", "a-1", "approved")
	assert.Equal(t, ErrCodeConflict, err.Code)
	assert.Contains(t, err.Message, `action "a-1"`)
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := NewError(ErrCodeStore, "insert failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestWithDetails(t *testing.T) {
	err := NewError(ErrCodeValidation, "bad parameters").WithDetails(map[string]any{
		"violations": []string{"title is required"},
	})
	assert.Equal(t, []string{"title is required"}, err.Details["violations"])
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeApprovalRequired, CodeOf(NewError(ErrCodeApprovalRequired, "x")))
	assert.Equal(t, ErrCodeExecution, CodeOf(errors.New("plain")))
}
