package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/reposift/reposift/internal/domain"
)

// ErrorBody is the payload inside every error envelope
type ErrorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// ErrorResponse is the envelope all error responses share
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes an error envelope
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// DomainErrorToHTTP maps domain error codes to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeInvalidQuery:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case domain.ErrCodeFeed:
		return http.StatusBadGateway
	case domain.ErrCodeConfiguration:
		return http.StatusInternalServerError
	case domain.ErrCodeProcessingFailed:
		return http.StatusInternalServerError
	case domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes the envelope for a domain error, carrying its retry
// hint when present. Non-domain errors become opaque 500s.
func HandleError(w http.ResponseWriter, err error) {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		Error(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error")
		return
	}

	JSON(w, DomainErrorToHTTP(err), ErrorResponse{Error: ErrorBody{
		Code:       domainErr.Code,
		Message:    domainErr.Message,
		RetryAfter: domainErr.RetryAfter,
	}})
}
