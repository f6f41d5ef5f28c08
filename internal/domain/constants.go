package domain

import "time"

// Normative limits for the OTP lifecycle and token issuance.
// These are compiled defaults that can be overridden via configuration
// where a config key exists; the OTP window and attempt cap are fixed.
const (
	// OTP lifecycle
	OTPValidityDuration = 10 * time.Minute // How long a requested code remains valid
	MaxOTPAttempts      = 3                // Failed verifications before the record locks

	// CodeLength is the number of digits in a generated verification code.
	CodeLength = 6

	// Rate limiting for code requests
	OTPRequestRateLimitPerPhone = 5                // Max code requests per phone per window
	OTPRateLimitWindow          = 15 * time.Minute // Fixed window for request rate limiting

	// Token configuration
	DefaultTokenTTL = 24 * time.Hour // Bearer token validity when not configured

	// Timeout contracts for external collaborators
	DynamoDBTimeout = 5 * time.Second // Max time for DynamoDB operations
	RedisTimeout    = 2 * time.Second // Max time for Redis operations
	SNSTimeout      = 10 * time.Second // Max time for SMS dispatch

	// Graceful shutdown
	GracefulShutdownTimeout = 30 * time.Second
	ShutdownDrainDelay      = 2 * time.Second  // Let load balancer propagate endpoint removal
	ShutdownHTTPTimeout     = 10 * time.Second // Max time to drain in-flight HTTP requests
	ShutdownOTELTimeout     = 5 * time.Second  // Max time to flush telemetry on exit
)

// UserType classifies an authenticated account.
type UserType string

const (
	UserTypeFarmer UserType = "farmer"
	UserTypeBuyer  UserType = "buyer"
)

// IsValidUserType checks if a user type is supported.
func IsValidUserType(ut UserType) bool {
	return ut == UserTypeFarmer || ut == UserTypeBuyer
}
