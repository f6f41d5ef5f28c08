package adapter_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agribridge/auth-service/internal/authsvc/adapter"
	redisclient "github.com/agribridge/auth-service/internal/redis"
)

func newTestRateLimiter(t *testing.T) (*adapter.RateLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redisclient.NewClient(redisclient.Config{
		Addr:         mr.Addr(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})

	return adapter.NewRateLimiter(client.RDB), mr
}

func TestRateLimiter_CheckAndIncrement(t *testing.T) {
	t.Run("allows requests under the limit", func(t *testing.T) {
		rl, _ := newTestRateLimiter(t)
		ctx := context.Background()

		allowed, err := rl.CheckAndIncrement(ctx, "code_req:phone:abc", 5, 900)

		require.NoError(t, err)
		assert.True(t, allowed, "first request should be allowed")
	})

	t.Run("allows exactly up to the limit", func(t *testing.T) {
		rl, _ := newTestRateLimiter(t)
		ctx := context.Background()
		key := "code_req:phone:def"
		limit := 5

		for i := 0; i < limit; i++ {
			allowed, err := rl.CheckAndIncrement(ctx, key, limit, 900)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d of %d should be allowed", i+1, limit)
		}
	})

	t.Run("denies once the limit is exceeded", func(t *testing.T) {
		rl, _ := newTestRateLimiter(t)
		ctx := context.Background()
		key := "code_req:phone:ghi"
		limit := 3

		for i := 0; i < limit; i++ {
			_, err := rl.CheckAndIncrement(ctx, key, limit, 900)
			require.NoError(t, err)
		}

		allowed, err := rl.CheckAndIncrement(ctx, key, limit, 900)

		require.NoError(t, err)
		assert.False(t, allowed, "request over the limit should be denied")
	})

	t.Run("sets a TTL on the first increment", func(t *testing.T) {
		rl, mr := newTestRateLimiter(t)
		ctx := context.Background()
		key := "code_req:phone:jkl"

		_, err := rl.CheckAndIncrement(ctx, key, 5, 900)
		require.NoError(t, err)

		assert.Equal(t, 900*time.Second, mr.TTL(key))
	})

	t.Run("window expiry resets the counter", func(t *testing.T) {
		rl, mr := newTestRateLimiter(t)
		ctx := context.Background()
		key := "code_req:phone:mno"
		limit := 2

		for i := 0; i < limit; i++ {
			_, err := rl.CheckAndIncrement(ctx, key, limit, 900)
			require.NoError(t, err)
		}

		allowed, err := rl.CheckAndIncrement(ctx, key, limit, 900)
		require.NoError(t, err)
		require.False(t, allowed)

		mr.FastForward(901 * time.Second)

		allowed, err = rl.CheckAndIncrement(ctx, key, limit, 900)
		require.NoError(t, err)
		assert.True(t, allowed, "counter should reset after the window expires")
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl, _ := newTestRateLimiter(t)
		ctx := context.Background()
		limit := 1

		allowed, err := rl.CheckAndIncrement(ctx, "code_req:phone:aaa", limit, 900)
		require.NoError(t, err)
		require.True(t, allowed)

		allowed, err = rl.CheckAndIncrement(ctx, "code_req:phone:bbb", limit, 900)
		require.NoError(t, err)
		assert.True(t, allowed, "a different key has its own window")
	})

	t.Run("redis failure returns an error, never a silent allow", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redisclient.NewClient(redisclient.Config{
			Addr:         mr.Addr(),
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})
		require.NoError(t, client.Close())
		rl := adapter.NewRateLimiter(client.RDB)

		allowed, err := rl.CheckAndIncrement(context.Background(), "code_req:phone:xyz", 5, 900)

		require.Error(t, err)
		assert.False(t, allowed)
	})
}
