// Package errors provides structured error types for bindgraph infrastructure.
//
// Graph-level problems such as missing bindings or cycles are not errors in
// this sense: they are diagnostics, see package diag. Codes here cover the
// work around the resolver, for example reading declarations or loading
// cross-module metadata.
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND, METADATA_*: Lookup failures
//   - STORAGE_ERROR: Metadata backend failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidDeclaration, "graph %s has no name", file)
//	if errors.Is(err, errors.ErrCodeInvalidDeclaration) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStorage, origErr, "write metadata for %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeInvalidDeclaration Code = "INVALID_DECLARATION"
	ErrCodeInvalidSchema      Code = "INVALID_SCHEMA"
	ErrCodeInvalidFormat      Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig      Code = "INVALID_CONFIG"

	// Lookup errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeMetadataMissing  Code = "METADATA_MISSING"
	ErrCodeMetadataCorrupt  Code = "METADATA_CORRUPT"
	ErrCodeMetadataMismatch Code = "METADATA_MISMATCH"

	// Backend errors
	ErrCodeStorage Code = "STORAGE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is an infrastructure failure with a machine-readable code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error renders "CODE: message" followed by the cause, when there is one.
func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause == nil {
		return msg
	}
	return msg + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message and no cause.
func New(code Code, format string, args ...any) *Error {
	return Wrap(code, nil, format, args...)
}

// Wrap returns an Error carrying cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// GetCode returns the code of the outermost *Error in err's chain, or the
// empty code when there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	return code != "" && GetCode(err) == code
}

// UserMessage returns the message of the outermost *Error without its code,
// or err.Error() for any other error.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
