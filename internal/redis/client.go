// Package redis owns the go-redis client behind the OTP request rate
// limiter. Only this package imports go-redis; adapters work against the
// Cmdable handle.
package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Cmdable aliases redis.Cmdable so the rate-limit adapter and its
// miniredis-backed tests accept the handle without an SDK import.
type Cmdable = redis.Cmdable

// Config holds the parameters needed to connect to a Redis instance.
type Config struct {
	Addr         string
	Password     string
	DB           int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Client wraps a go-redis client. The RDB field satisfies the Cmdable
// interface and is the handle adapters use for Redis operations.
type Client struct {
	RDB *redis.Client
}

// NewClient creates a Redis client configured from cfg. Connection checks
// are left to the first command; the rate limiter fails closed when Redis
// is unreachable.
func NewClient(cfg Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	return &Client{RDB: rdb}
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.RDB.Close()
}
