package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agribridge/auth-service/internal/auth"
	"github.com/agribridge/auth-service/internal/domain"
	"github.com/agribridge/auth-service/internal/domain/domaintest"
)

var testSigningKey = []byte("test-signing-key-32-bytes-long!!")

var tokenTestStart = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func newTestIssuer(t *testing.T, clock domain.Clock) *auth.Issuer {
	t.Helper()
	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		Algorithm: "HS256",
		Key:       testSigningKey,
		TTL:       24 * time.Hour,
		Clock:     clock,
	})
	require.NoError(t, err)
	return issuer
}

func TestNewIssuer(t *testing.T) {
	clock := domaintest.NewFakeClock(tokenTestStart)

	t.Run("rejects unknown algorithm", func(t *testing.T) {
		_, err := auth.NewIssuer(auth.IssuerConfig{Algorithm: "XX999", Key: testSigningKey, Clock: clock})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConfigInvalid)
	})

	t.Run("rejects non-HMAC algorithm", func(t *testing.T) {
		_, err := auth.NewIssuer(auth.IssuerConfig{Algorithm: "RS256", Key: testSigningKey, Clock: clock})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConfigInvalid)
	})

	t.Run("rejects empty key", func(t *testing.T) {
		_, err := auth.NewIssuer(auth.IssuerConfig{Algorithm: "HS256", Clock: clock})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConfigRequired)
	})

	t.Run("accepts HS512", func(t *testing.T) {
		_, err := auth.NewIssuer(auth.IssuerConfig{Algorithm: "HS512", Key: testSigningKey, Clock: clock})
		require.NoError(t, err)
	})
}

func TestIssuer_IssueAndValidate(t *testing.T) {
	t.Run("round trip preserves identity claims", func(t *testing.T) {
		clock := domaintest.NewFakeClock(tokenTestStart)
		issuer := newTestIssuer(t, clock)

		result, err := issuer.Issue("user-0123456789abcdef", "9876543210", domain.UserTypeFarmer)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.NotEmpty(t, result.JTI)
		assert.Equal(t, tokenTestStart.Add(24*time.Hour), result.ExpiresAt)

		claims, err := issuer.Validate(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "user-0123456789abcdef", claims.UserID)
		assert.Equal(t, "9876543210", claims.PhoneNumber)
		assert.Equal(t, domain.UserTypeFarmer, claims.UserType)
		assert.Equal(t, result.JTI, claims.ID)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		clock := domaintest.NewFakeClock(tokenTestStart)
		issuer := newTestIssuer(t, clock)

		result, err := issuer.Issue("user-1", "9876543210", domain.UserTypeBuyer)
		require.NoError(t, err)

		clock.Advance(24*time.Hour + time.Minute)

		_, err = issuer.Validate(result.Token)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("token signed with different key rejected", func(t *testing.T) {
		clock := domaintest.NewFakeClock(tokenTestStart)
		issuer := newTestIssuer(t, clock)

		other, err := auth.NewIssuer(auth.IssuerConfig{
			Algorithm: "HS256",
			Key:       []byte("a-different-key-32-bytes-long!!!"),
			TTL:       time.Hour,
			Clock:     clock,
		})
		require.NoError(t, err)

		result, err := other.Issue("user-1", "9876543210", domain.UserTypeFarmer)
		require.NoError(t, err)

		_, err = issuer.Validate(result.Token)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("malformed token rejected with same error as expiry", func(t *testing.T) {
		clock := domaintest.NewFakeClock(tokenTestStart)
		issuer := newTestIssuer(t, clock)

		_, err := issuer.Validate("not.a.token")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)

		_, err = issuer.Validate("")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("tampered payload rejected", func(t *testing.T) {
		clock := domaintest.NewFakeClock(tokenTestStart)
		issuer := newTestIssuer(t, clock)

		result, err := issuer.Issue("user-1", "9876543210", domain.UserTypeFarmer)
		require.NoError(t, err)

		tampered := result.Token[:len(result.Token)-2] + "xx"
		_, err = issuer.Validate(tampered)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("default TTL applied when unset", func(t *testing.T) {
		clock := domaintest.NewFakeClock(tokenTestStart)
		issuer, err := auth.NewIssuer(auth.IssuerConfig{
			Algorithm: "HS256",
			Key:       testSigningKey,
			Clock:     clock,
		})
		require.NoError(t, err)

		result, err := issuer.Issue("user-1", "9876543210", domain.UserTypeFarmer)
		require.NoError(t, err)
		assert.Equal(t, tokenTestStart.Add(domain.DefaultTokenTTL), result.ExpiresAt)
	})
}
