package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agribridge/auth-service/internal/domain"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare national number", "9876543210", "9876543210"},
		{"with country code", "919876543210", "9876543210"},
		{"with plus and country code", "+919876543210", "9876543210"},
		{"with punctuation and spaces", "+91 98-76-543-210", "9876543210"},
		{"with parentheses", "(91) 98765 43210", "9876543210"},
		{"ten digits starting with 91 kept intact", "9198765432", "9198765432"},
		{"short number untouched", "12345", "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.NormalizePhone(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("empty input rejected", func(t *testing.T) {
		_, err := domain.NormalizePhone("")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("digit-free input rejected", func(t *testing.T) {
		_, err := domain.NormalizePhone("not-a-number")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidPhoneNumber)
	})

	t.Run("idempotent", func(t *testing.T) {
		once, err := domain.NormalizePhone("+91 98765 43210")
		require.NoError(t, err)
		twice, err := domain.NormalizePhone(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	})
}

func TestPhoneNumber(t *testing.T) {
	t.Run("keeps raw and canonical forms", func(t *testing.T) {
		p, err := domain.NewPhoneNumber("+91 9876543210")
		require.NoError(t, err)
		assert.Equal(t, "+91 9876543210", p.Raw())
		assert.Equal(t, "9876543210", p.Canonical())
		assert.False(t, p.IsZero())
	})

	t.Run("country-code variants collapse to one canonical form", func(t *testing.T) {
		a := domain.MustPhoneNumber("9876543210")
		b := domain.MustPhoneNumber("919876543210")
		c := domain.MustPhoneNumber("+91 98-76-543-210")
		assert.Equal(t, a.Canonical(), b.Canonical())
		assert.Equal(t, b.Canonical(), c.Canonical())
	})

	t.Run("dialable form is E.164 regardless of submitted form", func(t *testing.T) {
		for _, raw := range []string{"9876543210", "919876543210", "+91 98-76-543-210"} {
			assert.Equal(t, "+919876543210", domain.MustPhoneNumber(raw).Dialable())
		}
	})

	t.Run("zero value", func(t *testing.T) {
		var p domain.PhoneNumber
		assert.True(t, p.IsZero())
	})
}
