package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Command-surface errors
	ErrCodeUsage ErrorCode = "USAGE"

	// Descriptor errors
	ErrCodeDescriptorNotFound ErrorCode = "DESCRIPTOR_NOT_FOUND"
	ErrCodeDescriptorParse    ErrorCode = "DESCRIPTOR_PARSE"

	// Scheduler errors
	ErrCodeSubmitFailed  ErrorCode = "SUBMIT_FAILED"
	ErrCodeQueryFailed   ErrorCode = "QUERY_FAILED"
	ErrCodePollTimeout   ErrorCode = "POLL_TIMEOUT"
	ErrCodePollVanished  ErrorCode = "POLL_VANISHED"
	ErrCodeJobUnrunnable ErrorCode = "JOB_UNRUNNABLE"

	// Relay errors
	ErrCodeRelaySpawn       ErrorCode = "RELAY_SPAWN"
	ErrCodeBootstrapTimeout ErrorCode = "BOOTSTRAP_TIMEOUT"
	ErrCodeRelayExited      ErrorCode = "RELAY_EXITED"

	// Configuration errors
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// General errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// BatchError represents a structured error with context
type BatchError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *BatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *BatchError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *BatchError) WithDetail(key string, value interface{}) *BatchError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *BatchError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new BatchError
func New(code ErrorCode, message string) *BatchError {
	return &BatchError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a BatchError
func Wrap(err error, code ErrorCode, message string) *BatchError {
	return &BatchError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific BatchError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	batchErr, ok := err.(*BatchError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return batchErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	batchErr, ok := err.(*BatchError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return batchErr.Code
}
