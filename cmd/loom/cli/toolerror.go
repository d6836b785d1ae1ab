// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies command errors.
type ErrorCategory string

const (
	// CategoryValidation means the caller provided invalid input:
	// unknown flags, conflicting options, unusable config values.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound means a referenced file or resource does not
	// exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryTransient means a temporary failure such as an
	// unreachable endpoint.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal means an unexpected failure.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorised error with an optional hint telling the
// user what to do next.
type ToolError struct {
	Category ErrorCategory
	Err      error
	Hint     string
}

// Error returns the message followed by the hint, separated by a
// blank line.
func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

func (e *ToolError) Unwrap() error { return e.Err }

// WithHint sets the hint and returns the receiver.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// ExitCode is 2 for validation errors and 1 otherwise.
func (e *ToolError) ExitCode() int {
	if e.Category == CategoryValidation {
		return 2
	}
	return 1
}

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// ExitError signals a non-zero exit without an error message. The
// command has already written its own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit code %d", e.Code) }

func (e *ExitError) ExitCode() int { return e.Code }

// ExitCode returns the process exit code for err: 0 for nil, the code
// of the first error in the chain implementing ExitCode, otherwise 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// Silent reports whether err should be reported without printing.
func Silent(err error) bool {
	var exit *ExitError
	return errors.As(err, &exit)
}
