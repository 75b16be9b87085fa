package types

import (
	"errors"
	"fmt"
)

// Severity classifies an error for the caller's continuation decision.
type Severity string

const (
	// SeverityError marks an operation-scoped failure a caller may choose
	// to skip past.
	SeverityError Severity = "ERROR"
	// SeverityFatal marks a configuration or structural problem that makes
	// continuing meaningless.
	SeverityFatal Severity = "FATAL"
)

// Error is the severity-tagged error carried across the execution core.
type Error struct {
	Severity Severity
	Msg      string
	Err      error
}

// NewError creates an ERROR-severity error.
func NewError(format string, args ...any) *Error {
	return &Error{Severity: SeverityError, Msg: fmt.Sprintf(format, args...)}
}

// NewFatal creates a FATAL-severity error.
func NewFatal(format string, args ...any) *Error {
	return &Error{Severity: SeverityFatal, Msg: fmt.Sprintf(format, args...)}
}

// WrapError wraps a cause with ERROR severity.
func WrapError(err error, format string, args ...any) *Error {
	return &Error{Severity: SeverityError, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WrapFatal wraps a cause with FATAL severity.
func WrapFatal(err error, format string, args ...any) *Error {
	return &Error{Severity: SeverityFatal, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Severity, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Severity, e.Msg)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// IsFatal reports whether any error in err's chain carries FATAL severity.
func IsFatal(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Severity == SeverityFatal
	}
	return false
}

// StepError wraps a failure with the step (and optionally sub-step) that
// raised it. Executors add identity here without changing severity.
type StepError struct {
	StepID    string
	SubStepID string
	Err       error
}

// NewStepError wraps err with step identity.
func NewStepError(stepID, subStepID string, err error) *StepError {
	return &StepError{StepID: stepID, SubStepID: subStepID, Err: err}
}

func (e *StepError) Error() string {
	if e.SubStepID != "" {
		return fmt.Sprintf("step %s.%s: %v", e.StepID, e.SubStepID, e.Err)
	}
	return fmt.Sprintf("step %s: %v", e.StepID, e.Err)
}

// Unwrap returns the wrapped error.
func (e *StepError) Unwrap() error { return e.Err }
