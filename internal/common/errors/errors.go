// Package errors provides the standardized error taxonomy of the loyalty agent.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeCustomerNotFound   ErrorCode = "CUSTOMER_NOT_FOUND"
	ErrCodeDataLoadFailed     ErrorCode = "DATA_LOAD_FAILED"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeMemoryIOFailed     ErrorCode = "MEMORY_IO_FAILED"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeRegistrationFailed ErrorCode = "REGISTRATION_FAILED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any *StandardError carrying the same code, so callers can write
// errors.Is(err, errors.ErrCustomerNotFound).
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrCustomerNotFound   = &StandardError{Code: ErrCodeCustomerNotFound}
	ErrDataLoadFailed     = &StandardError{Code: ErrCodeDataLoadFailed}
	ErrValidationFailed   = &StandardError{Code: ErrCodeValidationFailed}
	ErrMemoryIOFailed     = &StandardError{Code: ErrCodeMemoryIOFailed}
	ErrServiceUnavailable = &StandardError{Code: ErrCodeServiceUnavailable}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewCustomerNotFoundError reports an identifier that does not resolve in the store.
func NewCustomerNotFoundError(customerID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCustomerNotFound,
		Message:   "Customer not found",
		Details:   fmt.Sprintf("Customer %s not found", customerID),
		Retryable: false,
		Metadata:  map[string]interface{}{"customerId": customerID},
		Timestamp: time.Now().UTC(),
	}
}

// NewDataLoadError reports an unreadable or malformed data source.
func NewDataLoadError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataLoadFailed,
		Message:   "Failed to load source data",
		Details:   fmt.Sprintf("source: %s, error: %s", source, err.Error()),
		Retryable: false,
		Metadata:  map[string]interface{}{"source": source},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewValidationError reports malformed caller input.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewMemoryIOError reports a durable-storage read or write failure.
func NewMemoryIOError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMemoryIOFailed,
		Message:   "Memory storage operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewServiceUnavailableError reports that the agent cannot serve requests.
func NewServiceUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeServiceUnavailable,
		Message:   "Agent is not initialized. Service temporarily unavailable.",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRegistrationError reports a failed supervisor call.
func NewRegistrationError(supervisorURL string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistrationFailed,
		Message:   "Supervisor registration failed",
		Details:   fmt.Sprintf("supervisor: %s, error: %s", supervisorURL, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"supervisorUrl": supervisorURL},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Classification
// ==========================

// AsStandardError returns the *StandardError in err's chain, normalizing
// anything else to INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsCustomerNotFound reports whether err is a CUSTOMER_NOT_FOUND error.
func IsCustomerNotFound(err error) bool {
	return stderrors.Is(err, ErrCustomerNotFound)
}

// IsValidation reports whether err is a VALIDATION_FAILED error.
func IsValidation(err error) bool {
	return stderrors.Is(err, ErrValidationFailed)
}

// HTTPStatusMapping maps error codes to HTTP status codes at the API boundary.
var HTTPStatusMapping = map[ErrorCode]int{
	ErrCodeCustomerNotFound:   http.StatusNotFound,
	ErrCodeValidationFailed:   http.StatusUnprocessableEntity,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeDataLoadFailed:     http.StatusServiceUnavailable,
	ErrCodeRegistrationFailed: http.StatusBadGateway,
	ErrCodeMemoryIOFailed:     http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,
}

// GetHTTPStatus returns the status code for an error code.
func GetHTTPStatus(code ErrorCode) int {
	if status, ok := HTTPStatusMapping[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeMemoryIOFailed, ErrCodeServiceUnavailable, ErrCodeRegistrationFailed:
		return true
	default:
		return false
	}
}
