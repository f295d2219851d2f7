package engine

import (
	"errors"
	"fmt"
)

// RunError represents a fatal error that prevents a run from producing a
// report.
//
// Run errors include:
//   - Invalid options: validation failed before any work started
//   - Enumeration failure: the artifact provider could not enumerate
//   - Illegal transition: the orchestrator state machine was misused
//   - Sink failure: the finished report could not be written
//
// Per-artifact failures (rule exceptions, load failures, oversized
// artifacts) are never RunErrors; they become notifications.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeInvalidOptions indicates Options failed validation.
	ErrCodeInvalidOptions RunErrorCode = "INVALID_OPTIONS"

	// ErrCodeEnumerationFailed indicates the provider could not enumerate.
	ErrCodeEnumerationFailed RunErrorCode = "ENUMERATION_FAILED"

	// ErrCodeIllegalTransition indicates a state machine misuse.
	ErrCodeIllegalTransition RunErrorCode = "ILLEGAL_TRANSITION"

	// ErrCodeSinkFailed indicates the report sink returned an error.
	ErrCodeSinkFailed RunErrorCode = "SINK_FAILED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RunErrorCode) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsInvalidOptions returns true if err is an options validation error.
// Uses errors.As to handle wrapped errors.
func IsInvalidOptions(err error) bool {
	return hasCode(err, ErrCodeInvalidOptions)
}

// IsEnumerationError returns true if err is an enumeration failure.
func IsEnumerationError(err error) bool {
	return hasCode(err, ErrCodeEnumerationFailed)
}

// IsSinkError returns true if err came from the report sink.
func IsSinkError(err error) bool {
	return hasCode(err, ErrCodeSinkFailed)
}

// ErrIncompatible is wrapped by errors a rule returns when it cannot run
// against the current artifact.
var ErrIncompatible = errors.New("rule is incompatible with analysis target")

// IncompatibleError carries the reason a rule declined an artifact.
type IncompatibleError struct {
	RuleID string
	Reason string
}

// Incompatible returns an error wrapping ErrIncompatible. The engine fills
// in the rule ID.
func Incompatible(reason string) error {
	return &IncompatibleError{Reason: reason}
}

// Error implements the error interface.
func (e *IncompatibleError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("rule %s is incompatible with analysis target: %s", e.RuleID, e.Reason)
	}
	return fmt.Sprintf("rule is incompatible with analysis target: %s", e.Reason)
}

// Unwrap makes errors.Is(err, ErrIncompatible) hold.
func (e *IncompatibleError) Unwrap() error {
	return ErrIncompatible
}

// errAbandoned is returned by Checkpoint once the artifact's work can no
// longer be kept.
var errAbandoned = errors.New("analysis abandoned")

// panicError wraps a value recovered from a panicking rule.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
