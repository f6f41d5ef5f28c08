// Package auth contains the cryptographic primitives of the authentication
// core: phone pseudonymization, verification-code hashing, and bearer-token
// issuance. Adapters and the app layer build on these; nothing here touches
// the network or a store.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/agribridge/auth-service/internal/domain"
)

// PhoneHasher derives stable pseudonymous identifiers from phone numbers.
// The identifier is HMAC-SHA256(salt, canonical digits), so the same logical
// number always maps to the same storage key while the raw number never
// appears in any store.
type PhoneHasher struct {
	salt []byte
}

// NewPhoneHasher creates a PhoneHasher keyed with the given secret salt.
func NewPhoneHasher(salt []byte) (*PhoneHasher, error) {
	if len(salt) == 0 {
		return nil, fmt.Errorf("phone hasher: salt cannot be empty: %w", domain.ErrInvalidInput)
	}
	return &PhoneHasher{salt: salt}, nil
}

// Hash returns the hex-encoded identifier for a phone number. The input is
// normalized first, so punctuation and country-code variants of the same
// number produce the same identifier.
func (h *PhoneHasher) Hash(phone string) (string, error) {
	canonical, err := domain.NormalizePhone(phone)
	if err != nil {
		return "", fmt.Errorf("phone hasher: %w", err)
	}

	mac := hmac.New(sha256.New, h.salt)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether phone hashes to identifier, using constant-time
// comparison to prevent timing side-channels. Invalid input verifies false.
func (h *PhoneHasher) Verify(phone, identifier string) bool {
	computed, err := h.Hash(phone)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(identifier)) == 1
}
