package domain

import "fmt"

// countryCodePrefix is the national dialing prefix collapsed during
// normalization so numbers submitted with and without it hash identically.
const countryCodePrefix = "91"

// nationalNumberLength is the canonical number of digits after normalization.
const nationalNumberLength = 10

// NormalizePhone reduces a raw phone string to its canonical digit form:
// all non-digit characters are stripped, and a leading country-code prefix
// is removed when the remainder is longer than the national length.
// "+91 98-76-543-210", "919876543210" and "9876543210" all normalize to
// "9876543210". Returns ErrInvalidPhoneNumber when no digits remain.
func NormalizePhone(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("phone number cannot be empty: %w", ErrInvalidInput)
	}

	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) == 0 {
		return "", fmt.Errorf("phone number %q contains no digits: %w", raw, ErrInvalidPhoneNumber)
	}

	normalized := string(digits)
	if len(normalized) > nationalNumberLength &&
		normalized[:len(countryCodePrefix)] == countryCodePrefix {
		normalized = normalized[len(countryCodePrefix):]
	}

	return normalized, nil
}

// PhoneNumber is a value object pairing the caller-submitted form of a
// phone number with its canonical digit form. Always valid in memory —
// use NewPhoneNumber to construct.
type PhoneNumber struct {
	raw       string
	canonical string
}

// NewPhoneNumber creates a PhoneNumber, normalizing the raw input.
func NewPhoneNumber(raw string) (PhoneNumber, error) {
	canonical, err := NormalizePhone(raw)
	if err != nil {
		return PhoneNumber{}, err
	}
	return PhoneNumber{raw: raw, canonical: canonical}, nil
}

// MustPhoneNumber creates a PhoneNumber, panicking on invalid input. Use only in tests.
func MustPhoneNumber(raw string) PhoneNumber {
	p, err := NewPhoneNumber(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Raw returns the phone number exactly as the caller submitted it.
func (p PhoneNumber) Raw() string { return p.raw }

// Canonical returns the normalized digit form used for hashing.
func (p PhoneNumber) Canonical() string { return p.canonical }

// Dialable returns the E.164 form for SMS dispatch: the country code
// prefixed to the canonical digits. Carriers reject bare national numbers.
func (p PhoneNumber) Dialable() string { return "+" + countryCodePrefix + p.canonical }

func (p PhoneNumber) String() string { return p.canonical }
func (p PhoneNumber) IsZero() bool   { return p.canonical == "" }
