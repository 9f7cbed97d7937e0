package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodePlacementConflict, "ingress adjacent to deposit egress"),
			expected: "[PLACEMENT_CONFLICT] ingress adjacent to deposit egress",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeInputFormat, "parse task", errors.New("unexpected EOF")),
			expected: "[INPUT_FORMAT_ERROR] parse task: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeStructuralAnomaly, "non-mine touches deposit egress", underlying)

	unwrapped := err.Unwrap()
	assert.Equal(t, underlying, unwrapped)
}

func TestAppError_Is(t *testing.T) {
	err1 := New(CodePlacementConflict, "error 1")
	err2 := New(CodePlacementConflict, "error 2")
	err3 := New(CodeBudgetExhausted, "error 3")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestIsPlacementConflict(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "placement conflict",
			err:      ErrPlacementConflict,
			expected: true,
		},
		{
			name:     "wrapped placement conflict",
			err:      Wrap(CodePlacementConflict, "egress fan-out", errors.New("two ingresses")),
			expected: true,
		},
		{
			name:     "other error",
			err:      ErrBudgetExhausted,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPlacementConflict(tt.err))
		})
	}
}

func TestIsBudgetExhausted(t *testing.T) {
	assert.True(t, IsBudgetExhausted(ErrBudgetExhausted))
	assert.False(t, IsBudgetExhausted(ErrPlacementConflict))
}

func TestIsInputFormat(t *testing.T) {
	assert.True(t, IsInputFormat(ErrInputFormat))
	assert.False(t, IsInputFormat(ErrPlacementConflict))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodePlacementConflict, "conflict"),
			expected: CodePlacementConflict,
		},
		{
			name:     "wrapped app error",
			err:      Wrap(CodeInputFormat, "parse", errors.New("inner")),
			expected: CodeInputFormat,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: CodeUnknown,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeStructuralAnomaly, "non-mine touches deposit egress"),
			expected: "non-mine touches deposit egress",
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: "standard error",
		},
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorMessage(tt.err))
		})
	}
}
