// Package errors provides the marketplace error taxonomy shared by the HTTP API and the notification worker.
package errors

import (
	"context"
	"database/sql"
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
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrCodeInvalidState    ErrorCode = "INVALID_STATE"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeRaceLost        ErrorCode = "RACE_LOST"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrCodeInternal        ErrorCode = "INTERNAL"

	ErrCodeDatabaseUnavailable ErrorCode = "DATABASE_UNAVAILABLE"
	ErrCodeSearchFailed        ErrorCode = "SEARCH_FAILED"
	ErrCodeNotificationFailed  ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeTimeout             ErrorCode = "TIMEOUT"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another *StandardError by code so callers can compare against a template error.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause attaches the underlying error.
func (e *StandardError) WithCause(err error) *StandardError {
	e.cause = err
	if e.Details == "" && err != nil {
		e.Details = err.Error()
	}
	return e
}

// WithMetadata adds a key to Metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewUnauthenticatedError is returned when no valid session is attached to the request.
func NewUnauthenticatedError(details string) *StandardError {
	return newError(ErrCodeUnauthenticated, "Authentication required", details, false)
}

// NewForbiddenError is returned when the caller is not allowed to act on a resource.
func NewForbiddenError(message string) *StandardError {
	return newError(ErrCodeForbidden, message, "", false)
}

// NewNotFoundError names the missing resource kind and id.
func NewNotFoundError(resource, id string) *StandardError {
	return newError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), fmt.Sprintf("id: %s", id), false).
		WithMetadata("resource", resource)
}

func NewInvalidArgumentError(message, details string) *StandardError {
	return newError(ErrCodeInvalidArgument, message, details, false)
}

func NewInvalidStateError(message string) *StandardError {
	return newError(ErrCodeInvalidState, message, "", false)
}

func NewConflictError(message string) *StandardError {
	return newError(ErrCodeConflict, message, "", false)
}

// NewRaceLostError is returned when a concurrent writer committed first.
func NewRaceLostError(message string) *StandardError {
	return newError(ErrCodeRaceLost, message, "", false)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Internal server error", "", false).WithCause(err)
}

// NewDatabaseUnavailableError is the retryable form of a connection-class failure.
func NewDatabaseUnavailableError(err error) *StandardError {
	return newError(ErrCodeDatabaseUnavailable, "Database temporarily unavailable", "", true).WithCause(err)
}

func NewSearchFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchFailed, "Search query failed", "", true).
		WithCause(err).
		WithMetadata("index", index)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %v", channel, err), true).WithCause(err)
}

func NewRateLimitedError(limit float64) *StandardError {
	return newError(ErrCodeRateLimited, "Too many requests", fmt.Sprintf("limit is %.0f requests per second", limit), true)
}

func NewTimeoutError(operation string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Operation '%s' timed out", operation), "", true).WithCause(err)
}

// ==========================
// 3. Classification
// ==========================

// As extracts a *StandardError from err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// Normalize always returns a StandardError; unknown errors become INTERNAL.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return newError(ErrCodeNotFound, "Resource not found", "", false).WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("request", err)
	case stderrors.Is(err, context.Canceled):
		return newError(ErrCodeTimeout, "Request cancelled", "", false).WithCause(err)
	}
	return NewInternalError(err)
}

// HTTPStatus maps an error code to the response status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeInvalidState, ErrCodeConflict, ErrCodeRaceLost:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeDatabaseUnavailable, ErrCodeSearchFailed:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns how many times a job worker should retry before giving up.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseUnavailable, ErrCodeNotificationFailed, ErrCodeSearchFailed:
		return 3
	case ErrCodeTimeout:
		return 2
	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for log aggregation.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeUnauthenticated, ErrCodeForbidden, ErrCodeRateLimited:
		return "AUTH"
	case ErrCodeInvalidArgument:
		return "VALIDATION"
	case ErrCodeNotFound, ErrCodeInvalidState, ErrCodeConflict, ErrCodeRaceLost:
		return "BUSINESS"
	case ErrCodeDatabaseUnavailable:
		return "DATABASE"
	case ErrCodeSearchFailed:
		return "SEARCH"
	case ErrCodeNotificationFailed:
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
