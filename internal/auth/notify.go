package auth

import "context"

// Notifier abstracts verification-code delivery for vendor independence.
type Notifier interface {
	// SendCode delivers the verification code to the given phone number.
	// Returns nil on successful delivery acceptance (not necessarily receipt).
	SendCode(ctx context.Context, phone string, code string) error
}
