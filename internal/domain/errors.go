package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code       string
	Message    string
	RetryAfter int // seconds; zero means no hint
	Err        error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewServiceUnavailable creates a SERVICE_UNAVAILABLE error carrying a
// retry-after hint in seconds
func NewServiceUnavailable(message string, retryAfter int, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeServiceUnavailable,
		Message:    message,
		RetryAfter: retryAfter,
		Err:        err,
	}
}

// Common domain error codes
const (
	ErrCodeConfiguration      = "CONFIGURATION_ERROR"
	ErrCodeFeed               = "FEED_ERROR"
	ErrCodeProcessingFailed   = "PROCESSING_FAILED"
	ErrCodeInvalidQuery       = "INVALID_QUERY"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Query validation errors
var (
	ErrQueryTooShort   = NewDomainError(ErrCodeInvalidQuery, fmt.Sprintf("query must be at least %d characters", MinQueryLength))
	ErrQueryTooLong    = NewDomainError(ErrCodeInvalidQuery, fmt.Sprintf("query must be at most %d characters", MaxQueryLength))
	ErrLimitOutOfRange = NewDomainError(ErrCodeInvalidQuery, fmt.Sprintf("limit must be between %d and %d", MinSearchLimit, MaxSearchLimit))
)

// Not found errors
var (
	ErrFingerprintNotFound = NewDomainError(ErrCodeNotFound, "fingerprint not found")
	ErrArtifactNotFound    = NewDomainError(ErrCodeNotFound, "summary artifact not found")
)

// Ingestion errors
var (
	ErrFeedUnavailable  = NewDomainError(ErrCodeFeed, "repository feed could not be fetched")
	ErrSummarizerFailed = NewDomainError(ErrCodeProcessingFailed, "summarization failed")
)
