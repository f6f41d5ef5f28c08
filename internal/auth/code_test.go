package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agribridge/auth-service/internal/auth"
	"github.com/agribridge/auth-service/internal/domain"
)

var testCodeKey = []byte("test-code-key-32-bytes-long-ok!!")

func TestNewCodeHasher(t *testing.T) {
	t.Run("rejects empty key", func(t *testing.T) {
		_, err := auth.NewCodeHasher(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestCodeHasher_Generate(t *testing.T) {
	hasher, err := auth.NewCodeHasher(testCodeKey)
	require.NoError(t, err)

	t.Run("produces 6-digit string", func(t *testing.T) {
		code, err := hasher.Generate()
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
	})

	t.Run("produces different values", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			code, err := hasher.Generate()
			require.NoError(t, err)
			seen[code] = true
		}
		assert.Greater(t, len(seen), 90, "expected at least 90 unique codes from 100 draws")
	})

	t.Run("preserves leading zeros", func(t *testing.T) {
		// P(no leading zero in 2000 draws) = 0.9^2000, vanishingly small.
		leadingZero := false
		for i := 0; i < 2000; i++ {
			code, err := hasher.Generate()
			require.NoError(t, err)
			require.Len(t, code, 6)
			if strings.HasPrefix(code, "0") {
				leadingZero = true
				break
			}
		}
		assert.True(t, leadingZero, "expected at least one code with a leading zero")
	})
}

func TestCodeHasher_HashAndVerify(t *testing.T) {
	hasher, err := auth.NewCodeHasher(testCodeKey)
	require.NoError(t, err)

	t.Run("hash is deterministic hex HMAC-SHA256", func(t *testing.T) {
		assert.Equal(t, hasher.Hash("123456"), hasher.Hash("123456"))
		assert.Regexp(t, `^[0-9a-f]{64}$`, hasher.Hash("123456"))
	})

	t.Run("code verifies against its own hash", func(t *testing.T) {
		digest := hasher.Hash("042042")
		assert.True(t, hasher.Verify("042042", digest))
	})

	t.Run("different code rejects", func(t *testing.T) {
		digest := hasher.Hash("123456")
		assert.False(t, hasher.Verify("654321", digest))
	})

	t.Run("different key rejects", func(t *testing.T) {
		other, err := auth.NewCodeHasher([]byte("another-code-key-32-bytes-long!!"))
		require.NoError(t, err)
		digest := hasher.Hash("123456")
		assert.False(t, other.Verify("123456", digest))
	})
}
