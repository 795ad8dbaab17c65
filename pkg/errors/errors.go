// Package errors provides structured error types for cratebuild.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across all pipeline stages
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes map to translation failure classes:
//   - MANIFEST_*: manifest syntax or schema failures
//   - AMBIGUOUS_*: conflicting dependency source declarations
//   - UNRESOLVED_* / UNKNOWN_*: label resolution failures
//   - DRIFT_DETECTED: check-mode mismatch between manifest and descriptor
//
// # Usage
//
//	err := errors.New(errors.ErrCodeManifestSchema, "missing package name in %s", path)
//	if errors.Is(err, errors.ErrCodeManifestSchema) {
//	    // Handle schema error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeManifestParse, origErr, "parse %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Manifest reading errors
	ErrCodeManifestParse  Code = "MANIFEST_PARSE"
	ErrCodeManifestSchema Code = "MANIFEST_SCHEMA"

	// Dependency classification errors
	ErrCodeAmbiguousSource Code = "AMBIGUOUS_DEPENDENCY_SOURCE"

	// Label resolution errors
	ErrCodeUnresolvedPath  Code = "UNRESOLVED_PATH"
	ErrCodeUnknownExternal Code = "UNKNOWN_EXTERNAL_DEPENDENCY"

	// Output errors
	ErrCodeDriftDetected Code = "DRIFT_DETECTED"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidMapping Code = "INVALID_MAPPING"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
