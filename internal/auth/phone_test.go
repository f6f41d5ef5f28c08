package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agribridge/auth-service/internal/auth"
	"github.com/agribridge/auth-service/internal/domain"
)

var testSalt = []byte("test-salt-32-bytes-long-secret!!")

func TestNewPhoneHasher(t *testing.T) {
	t.Run("rejects empty salt", func(t *testing.T) {
		_, err := auth.NewPhoneHasher(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPhoneHasher_Hash(t *testing.T) {
	hasher, err := auth.NewPhoneHasher(testSalt)
	require.NoError(t, err)

	t.Run("deterministic", func(t *testing.T) {
		h1, err := hasher.Hash("9876543210")
		require.NoError(t, err)
		h2, err := hasher.Hash("9876543210")
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
	})

	t.Run("format and country-code variants collapse to one identifier", func(t *testing.T) {
		h1, err := hasher.Hash("+91 98-76-543-210")
		require.NoError(t, err)
		h2, err := hasher.Hash("9876543210")
		require.NoError(t, err)
		h3, err := hasher.Hash("919876543210")
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
		assert.Equal(t, h2, h3)
	})

	t.Run("different phones produce different identifiers", func(t *testing.T) {
		h1, err := hasher.Hash("9876543210")
		require.NoError(t, err)
		h2, err := hasher.Hash("9876543211")
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})

	t.Run("different salts produce different identifiers", func(t *testing.T) {
		other, err := auth.NewPhoneHasher([]byte("another-salt-32-bytes-long-sec!!"))
		require.NoError(t, err)
		h1, err := hasher.Hash("9876543210")
		require.NoError(t, err)
		h2, err := other.Hash("9876543210")
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})

	t.Run("produces 64-char hex HMAC-SHA256", func(t *testing.T) {
		h, err := hasher.Hash("9876543210")
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9a-f]{64}$`, h)
	})

	t.Run("empty phone rejected", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPhoneHasher_Verify(t *testing.T) {
	hasher, err := auth.NewPhoneHasher(testSalt)
	require.NoError(t, err)

	identifier, err := hasher.Hash("9876543210")
	require.NoError(t, err)

	t.Run("matching phone verifies", func(t *testing.T) {
		assert.True(t, hasher.Verify("9876543210", identifier))
	})

	t.Run("country-code variant verifies", func(t *testing.T) {
		assert.True(t, hasher.Verify("+91 9876543210", identifier))
	})

	t.Run("different phone rejects", func(t *testing.T) {
		assert.False(t, hasher.Verify("9876543211", identifier))
	})

	t.Run("empty phone rejects without error", func(t *testing.T) {
		assert.False(t, hasher.Verify("", identifier))
	})
}
