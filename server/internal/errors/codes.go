package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of API failure.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeUnauthorized indicates the caller is not on the allow-list.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeLLMUnavailable indicates the completion provider failed.
	ErrCodeLLMUnavailable ErrorCode = "LLM_UNAVAILABLE"
	// ErrCodeEnrichmentIncomplete indicates a note could not be fully enriched.
	ErrCodeEnrichmentIncomplete ErrorCode = "ENRICHMENT_INCOMPLETE"
	// ErrCodeStoreUnavailable indicates the note store could not be reached.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// APIError is a structured error returned to HTTP clients.
type APIError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to a response status.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeLLMUnavailable, ErrCodeEnrichmentIncomplete:
		return http.StatusBadGateway
	case ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON shape of an error response.
type Body struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Body returns the client-facing representation. The cause is not exposed.
func (e *APIError) Body() Body {
	return Body{Code: e.Code, Message: e.Message}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *APIError {
	return &APIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *APIError {
	return &APIError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *APIError {
	return &APIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// LLMUnavailable creates an LLM unavailable error.
func LLMUnavailable(cause error) *APIError {
	return &APIError{Code: ErrCodeLLMUnavailable, Message: "language model unavailable", Cause: cause}
}

// EnrichmentIncomplete creates an enrichment incomplete error.
func EnrichmentIncomplete(cause error) *APIError {
	return &APIError{Code: ErrCodeEnrichmentIncomplete, Message: "note could not be enriched", Cause: cause}
}

// StoreUnavailable creates a store unavailable error.
func StoreUnavailable(cause error) *APIError {
	return &APIError{Code: ErrCodeStoreUnavailable, Message: "note store unavailable", Cause: cause}
}

// Wrap wraps an existing error with a code.
func Wrap(cause error, code ErrorCode, msg string) *APIError {
	return &APIError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error chain carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an APIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return defaultCode
}
