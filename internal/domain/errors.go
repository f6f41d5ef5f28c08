package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// Resource errors
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")

	// Validation errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidPhoneNumber = errors.New("invalid phone number")

	// OTP lifecycle errors
	ErrCodeExpired  = errors.New("verification code has expired")
	ErrCodeMismatch = errors.New("verification code does not match")
	ErrLocked       = errors.New("too many failed verification attempts")

	// Token errors
	ErrTokenInvalid = errors.New("invalid or expired token")

	// Crypto errors
	ErrDecryptFailed = errors.New("decryption failed")

	// Operational errors
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrConflict    = errors.New("concurrent modification conflict")
	ErrUnavailable = errors.New("service temporarily unavailable")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
	ErrConfigInvalid  = errors.New("invalid configuration")
)

// CodeMismatchError reports a failed code verification along with the
// number of attempts the caller has left before lockout.
// Matches ErrCodeMismatch via errors.Is.
type CodeMismatchError struct {
	Remaining int
}

func (e *CodeMismatchError) Error() string {
	return fmt.Sprintf("verification code does not match (%d attempt(s) remaining)", e.Remaining)
}

func (e *CodeMismatchError) Unwrap() error {
	return ErrCodeMismatch
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrRateLimited)
}

// clientErrors enumerates all domain errors that represent client-side issues.
var clientErrors = []error{
	ErrInvalidInput,
	ErrInvalidPhoneNumber,
	ErrNotFound,
	ErrCodeExpired,
	ErrCodeMismatch,
	ErrLocked,
	ErrTokenInvalid,
}

// IsClientError returns true if the error represents a client-side issue
// that will not succeed on retry without client-side changes.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true if the error represents a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
