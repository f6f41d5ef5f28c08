package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/agribridge/auth-service/internal/domain"
)

var codeMax = big.NewInt(1_000_000) // 10^6 for 6-digit codes

// CodeHasher generates verification codes and produces keyed hashes of them
// for storage. Only the hash is ever persisted; the plaintext code exists
// just long enough to be dispatched to the user.
type CodeHasher struct {
	key []byte
}

// NewCodeHasher creates a CodeHasher keyed with the given secret.
func NewCodeHasher(key []byte) (*CodeHasher, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("code hasher: key cannot be empty: %w", domain.ErrInvalidInput)
	}
	return &CodeHasher{key: key}, nil
}

// Generate returns a cryptographically random 6-digit code.
// Uses crypto/rand with rejection sampling (via big.Int) to avoid modulo
// bias, and zero-pads so leading zeros are preserved ("000123" is valid).
func (h *CodeHasher) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeMax)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", domain.CodeLength, n.Int64()), nil
}

// Hash computes the hex-encoded HMAC-SHA256 of a code.
func (h *CodeHasher) Hash(code string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether code hashes to digest using constant-time comparison.
func (h *CodeHasher) Verify(code, digest string) bool {
	computed := h.Hash(code)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
