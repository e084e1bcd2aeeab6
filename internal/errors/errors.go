package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/job-insights/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents bad request parameters (4xx)
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound represents missing resources
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryRateLimit represents throttled clients
	CategoryRateLimit ErrorCategory = "rate_limit"
	// CategoryParse represents malformed job exports
	CategoryParse ErrorCategory = "parse"
	// CategorySource represents failures reading a job source
	CategorySource ErrorCategory = "source"
	// CategoryCache represents report cache failures
	CategoryCache ErrorCategory = "cache"
	// CategorySystem represents unexpected internal failures (5xx)
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewSnapshotNotLoadedError is returned when no job snapshot has been loaded yet
func NewSnapshotNotLoadedError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SNAPSHOT_NOT_LOADED",
		Message:    "no job snapshot has been loaded",
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "rate limit exceeded",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
		},
	}
}

// NewParseError creates an error for an unreadable job export
func NewParseError(reason string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryParse,
		StatusCode: http.StatusBadRequest,
		Code:       "PARSE_ERROR",
		Message:    fmt.Sprintf("cannot parse job export: %s", reason),
		Cause:      cause,
		Details: map[string]interface{}{
			"reason": reason,
		},
	}
}

// NewSourceError creates an error for a job source that could not be read.
// statusCode is the upstream HTTP status when known, 0 otherwise.
func NewSourceError(source string, statusCode int, cause error) *CategorizedError {
	details := map[string]interface{}{
		"source": source,
	}
	if statusCode != 0 {
		details["upstreamStatus"] = statusCode
	}
	return &CategorizedError{
		Category:   CategorySource,
		StatusCode: http.StatusBadGateway,
		Code:       "SOURCE_ERROR",
		Message:    fmt.Sprintf("cannot load jobs from %s", source),
		Cause:      cause,
		Details:    details,
	}
}

// NewCacheError creates a cache error
func NewCacheError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCache,
		StatusCode: http.StatusInternalServerError,
		Code:       "CACHE_ERROR",
		Message:    fmt.Sprintf("cache error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error, looking through wrapped errors
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return categorizeServiceError(svcErr)
	}

	return NewInternalError("unexpected error", err)
}

func categorizeServiceError(err *types.ServiceError) *CategorizedError {
	out := &CategorizedError{
		Code:    err.Code,
		Message: err.Message,
		Details: err.Details,
	}
	switch err.Code {
	case "INVALID_PARAMETER", "PARSE_ERROR":
		out.Category = CategoryValidation
		out.StatusCode = http.StatusBadRequest
	case "NOT_FOUND":
		out.Category = CategoryNotFound
		out.StatusCode = http.StatusNotFound
	case "SNAPSHOT_NOT_LOADED":
		out.Category = CategoryNotFound
		out.StatusCode = http.StatusServiceUnavailable
	case "RATE_LIMIT_EXCEEDED":
		out.Category = CategoryRateLimit
		out.StatusCode = http.StatusTooManyRequests
	default:
		out.Category = CategorySystem
		out.StatusCode = http.StatusInternalServerError
	}
	return out
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable determines if an error is worth another attempt.
// Source errors are retryable unless the upstream answered with a 4xx.
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryCache:
		return true
	case CategorySource:
		if status, ok := catErr.Details["upstreamStatus"].(int); ok {
			return status >= 500 || status == http.StatusTooManyRequests
		}
		return true
	default:
		return false
	}
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}
