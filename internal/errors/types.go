// Package errors defines the structured errors of the command line tool and
// a collector for per-file emit errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeEngine     ErrorType = "engine"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes used across the tool.
const (
	CodeNoInputs        = "NO_INPUTS"
	CodeEmitFailed      = "EMIT_FAILED"
	CodeWriteFailed     = "WRITE_FAILED"
	CodeRemoveFailed    = "REMOVE_FAILED"
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeTSConfigInvalid = "TSCONFIG_INVALID"
	CodeEngineStart     = "ENGINE_START"
	CodeWatchFailed     = "WATCH_FAILED"
)

// VuedtsError is a structured error type with context.
type VuedtsError struct {
	Type     ErrorType
	Code     string
	Message  string
	Cause    error
	Context  map[string]interface{}
	FilePath string
	Line     int
	Column   int
}

// Error implements the error interface.
func (e *VuedtsError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *VuedtsError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *VuedtsError) Is(target error) bool {
	var t *VuedtsError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *VuedtsError) WithContext(key string, value interface{}) *VuedtsError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *VuedtsError) WithLocation(filePath string, line, column int) *VuedtsError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// Error creation functions

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *VuedtsError {
	return &VuedtsError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *VuedtsError {
	return &VuedtsError{
		Type:    ErrorTypeBuild,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *VuedtsError {
	return &VuedtsError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string, cause error) *VuedtsError {
	return &VuedtsError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewEngineError creates an error for a compiler that could not run.
func NewEngineError(code, message string, cause error) *VuedtsError {
	return &VuedtsError{
		Type:    ErrorTypeEngine,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	var ve *VuedtsError
	if errors.As(err, &ve) {
		return ve.Type == ErrorTypeConfig
	}

	return false
}

// IsBuildError checks if an error is build-related.
func IsBuildError(err error) bool {
	var ve *VuedtsError
	if errors.As(err, &ve) {
		return ve.Type == ErrorTypeBuild
	}

	return false
}
