// Package errmap translates domain errors into transport-level responses.
package errmap

import (
	"errors"
	"net/http"

	"github.com/agribridge/auth-service/internal/domain"
)

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e HTTPError) Error() string {
	return e.Message
}

// httpMapping defines a domain error to HTTP status/code mapping.
type httpMapping struct {
	err        error
	statusCode int
	code       string
}

// httpMappings maps domain errors to HTTP status codes and error codes.
// Order matters: first match wins (via errors.Is).
var httpMappings = []httpMapping{
	// Resource errors
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},

	// Auth errors — 401
	{domain.ErrTokenInvalid, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{domain.ErrCodeExpired, http.StatusUnauthorized, "CODE_EXPIRED"},
	{domain.ErrCodeMismatch, http.StatusUnauthorized, "CODE_MISMATCH"},

	// Lockout and rate limiting — 429
	{domain.ErrLocked, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},

	// Validation errors — 400
	{domain.ErrInvalidPhoneNumber, http.StatusBadRequest, "INVALID_PHONE_NUMBER"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_ARGUMENT"},

	// Write races — 409
	{domain.ErrConflict, http.StatusConflict, "CONFLICT"},

	// Availability
	{domain.ErrUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
}

// ToHTTPError converts a domain error to an HTTP error.
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{StatusCode: http.StatusOK}
	}
	for _, m := range httpMappings {
		if errors.Is(err, m.err) {
			return HTTPError{StatusCode: m.statusCode, Code: m.code, Message: err.Error()}
		}
	}
	// Never expose internal error details to clients
	return HTTPError{StatusCode: http.StatusInternalServerError, Code: "INTERNAL", Message: "internal error"}
}

// ToHTTPStatusCode extracts just the HTTP status code for a domain error.
func ToHTTPStatusCode(err error) int {
	return ToHTTPError(err).StatusCode
}
