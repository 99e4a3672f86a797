// Package errors provides standardized error handling for the query pipeline.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodePlanningFailed  ErrorCode = "PLANNING_FAILED"
	ErrCodePlanMalformed   ErrorCode = "PLAN_MALFORMED"
	ErrCodePlanningTimeout ErrorCode = "PLANNING_TIMEOUT"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeChaosPersistenceFailed ErrorCode = "CHAOS_PERSISTENCE_FAILED"
	ErrCodeCacheUnavailable       ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewPlanningFailedError creates a non-retryable planning collaborator error.
// A failed planning call is terminal for the request.
func NewPlanningFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanningFailed,
		Message:   "Planning collaborator error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanMalformedError creates a non-retryable error for an unparseable or
// incomplete plan returned by the planning collaborator.
func NewPlanMalformedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanMalformed,
		Message:   "Planning collaborator returned a malformed plan",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanningTimeoutError creates a non-retryable planning timeout error.
func NewPlanningTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodePlanningTimeout,
		Message:   "Planning collaborator timeout",
		Details:   "planning call exceeded timeout threshold",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryIndex int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryIndex: %d, error: %s", queryIndex, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryIndex int) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("queryIndex: %d", queryIndex),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewChaosPersistenceFailedError creates a retryable chaos state write error.
// Chaos persistence is best-effort and never blocks the response.
func NewChaosPersistenceFailedError(userID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeChaosPersistenceFailed,
		Message:   "Chaos state persistence failed",
		Details:   fmt.Sprintf("userId: %s, error: %s", userID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Plan cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable request validation error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HTTPStatus maps internal error codes to the status returned to callers.
// Anything not listed is an internal error; the caller never sees internals.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodePlanningFailed, ErrCodePlanMalformed, ErrCodePlanningTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}
