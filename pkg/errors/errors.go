// Package errors defines common error types for the solver.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the solver, mapped onto the four error kinds of the
// placement/search/simulation pipeline plus an internal catch-all.
const (
	CodeUnknown = "UNKNOWN_ERROR"

	// CodeInputFormat marks malformed task/solution/combined-file JSON.
	// Fatal to the run; surfaced to the operator.
	CodeInputFormat = "INPUT_FORMAT_ERROR"

	// CodePlacementConflict marks an object that violates a board invariant.
	// Recovered locally by the caller (solver back-tracks, path-finder
	// discards the branch).
	CodePlacementConflict = "PLACEMENT_CONFLICT"

	// CodeBudgetExhausted marks a path-finder plateau or a per-iteration or
	// global deadline. Recovered locally: yields none / breaks loops.
	CodeBudgetExhausted = "BUDGET_EXHAUSTED"

	// CodeStructuralAnomaly marks a structural error found during
	// simulation (e.g. a non-mine object touching a deposit egress).
	CodeStructuralAnomaly = "STRUCTURAL_ANOMALY"

	CodeConfigError = "CONFIG_ERROR"
	CodeInternal    = "INTERNAL_ERROR"
)

// AppError represents a solver error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Sentinel instances for errors.Is-style comparisons by kind.
var (
	ErrInputFormat       = New(CodeInputFormat, "malformed input")
	ErrPlacementConflict = New(CodePlacementConflict, "placement conflict")
	ErrBudgetExhausted   = New(CodeBudgetExhausted, "budget exhausted")
	ErrStructuralAnomaly = New(CodeStructuralAnomaly, "structural anomaly during simulation")
	ErrConfigError       = New(CodeConfigError, "configuration error")
)

// IsPlacementConflict reports whether err is (or wraps) a placement conflict.
func IsPlacementConflict(err error) bool {
	return errors.Is(err, ErrPlacementConflict)
}

// IsBudgetExhausted reports whether err is (or wraps) a budget-exhaustion error.
func IsBudgetExhausted(err error) bool {
	return errors.Is(err, ErrBudgetExhausted)
}

// IsInputFormat reports whether err is (or wraps) an input-format error.
func IsInputFormat(err error) bool {
	return errors.Is(err, ErrInputFormat)
}

// GetErrorCode extracts the error code from an error, if any.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
