package explore

import (
	"errors"
	"fmt"
)

// ErrorClass classifies an exploration error for recovery logic.
type ErrorClass string

const (
	// ErrorClassConfig indicates a misconfiguration (bad condition types,
	// bad technique registration). Config errors surface immediately to the
	// caller that created them.
	ErrorClassConfig ErrorClass = "config"

	// ErrorClassStep indicates a per-state runtime failure during
	// exploration. Step errors are recovered locally: the offending state is
	// quarantined into the "errored" stash and the round continues.
	ErrorClassStep ErrorClass = "step"

	// ErrorClassStorage indicates a secondary-storage failure while
	// spilling or restoring a state.
	ErrorClassStorage ErrorClass = "storage"
)

// ExploreError represents a classified error with context.
type ExploreError struct {
	// Class is the error classification for recovery logic.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// StateID is the execution state involved, if applicable.
	StateID string `json:"state_id,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ExploreError) Error() string {
	if e.StateID != "" {
		return fmt.Sprintf("[%s] %s (state=%s): %s", e.Class, e.Message, e.StateID, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ExploreError) Unwrap() error {
	return e.Err
}

func (e *ExploreError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *ExploreError) Is(target error) bool {
	t, ok := target.(*ExploreError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string, err error) *ExploreError {
	return &ExploreError{Class: ErrorClassConfig, Message: message, Err: err}
}

// NewStepError creates a new per-state stepping error.
func NewStepError(message string, err error) *ExploreError {
	return &ExploreError{Class: ErrorClassStep, Message: message, Err: err}
}

// NewStorageError creates a new spill-storage error.
func NewStorageError(message string, err error) *ExploreError {
	return &ExploreError{Class: ErrorClassStorage, Message: message, Err: err}
}

// WithCode adds an error code to an error.
func (e *ExploreError) WithCode(code string) *ExploreError {
	e.Code = code
	return e
}

// WithState adds state context to an error.
func (e *ExploreError) WithState(stateID string) *ExploreError {
	e.StateID = stateID
	return e
}

// IsConfig returns true if the error is classified as a misconfiguration.
func IsConfig(err error) bool {
	var e *ExploreError
	if errors.As(err, &e) {
		return e.Class == ErrorClassConfig
	}
	return false
}

// IsStep returns true if the error is a recoverable per-state failure.
func IsStep(err error) bool {
	var e *ExploreError
	if errors.As(err, &e) {
		return e.Class == ErrorClassStep
	}
	return false
}

// Common error codes.
const (
	ErrCodeUnsupportedCondition = "UNSUPPORTED_CONDITION"
	ErrCodeBadTechnique         = "BAD_TECHNIQUE"
	ErrCodeUnknownStash         = "UNKNOWN_STASH"
	ErrCodeDuplicateState       = "DUPLICATE_STATE"
	ErrCodeStepFailed           = "STEP_FAILED"
	ErrCodeSpillFailed          = "SPILL_FAILED"
	ErrCodeRestoreFailed        = "RESTORE_FAILED"
)
