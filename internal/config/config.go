// Package config provides configuration loading using koanf.
// Precedence: env vars → AWS Secrets Manager → compiled defaults.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/agribridge/auth-service/internal/domain"
)

// Config holds all service configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	// Logging configuration
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// Auth service configuration
	Auth AuthConfig `koanf:"auth"`

	// Infrastructure configurations
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
	Redis    RedisConfig    `koanf:"redis"`
	SNS      SNSConfig      `koanf:"sns"`
	KMS      KMSConfig      `koanf:"kms"`
	Secrets  SecretsConfig  `koanf:"secrets"`
	AWS      AWSConfig      `koanf:"aws"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// AuthConfig holds the auth service's own configuration.
type AuthConfig struct {
	HTTPPort int `koanf:"http_port"`

	// TokenSigningKey is the HS256 shared secret for bearer tokens.
	// In prod it is loaded from Secrets Manager when empty.
	TokenSigningKey domain.SecretString `koanf:"token_signing_key"`

	// PhoneHashSalt keys the phone-number HMAC used for storage identifiers.
	// In prod it is loaded from Secrets Manager when empty.
	PhoneHashSalt domain.SecretString `koanf:"phone_hash_salt"`

	// FieldEncryptionKey is the local AES-256 key material for field
	// encryption. Ignored when KMS is configured.
	FieldEncryptionKey domain.SecretString `koanf:"field_encryption_key"`

	// TokenTTL is the bearer token lifetime.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// DevOTPEcho returns the OTP code in the API response when SMS dispatch
	// fails. Must never be enabled in prod; Load rejects that combination.
	DevOTPEcho bool `koanf:"dev_otp_echo"`
}

// DynamoDBConfig holds DynamoDB configuration.
type DynamoDBConfig struct {
	Endpoint      string        `koanf:"endpoint"` // Empty for production (uses default AWS endpoint)
	OTPTable      string        `koanf:"otp_table"`
	ProfilesTable string        `koanf:"profiles_table"`
	Timeout       time.Duration `koanf:"timeout"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string        `koanf:"addr"` // Required in prod
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

// SNSConfig holds SNS configuration for SMS dispatch.
type SNSConfig struct {
	Endpoint string `koanf:"endpoint"` // LocalStack endpoint for development
	SenderID string `koanf:"sender_id"`
}

// KMSConfig holds KMS configuration for field encryption.
// When KeyID is empty, the local AES backend is used instead.
type KMSConfig struct {
	Endpoint string `koanf:"endpoint"`
	KeyID    string `koanf:"key_id"`
}

// SecretsConfig holds Secrets Manager configuration.
type SecretsConfig struct {
	Endpoint string `koanf:"endpoint"`
	// Name is the Secrets Manager secret holding the signing key and
	// phone-hash salt as a JSON document. Required in prod when those
	// values are not set via env.
	Name string `koanf:"name"`
}

// AWSConfig holds AWS SDK configuration.
type AWSConfig struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"` // LocalStack endpoint for development
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LogFormat:   "json",

		Auth: AuthConfig{
			HTTPPort:   8080,
			TokenTTL:   domain.DefaultTokenTTL,
			DevOTPEcho: false,
		},

		DynamoDB: DynamoDBConfig{
			OTPTable:      "agribridge-otp",
			ProfilesTable: "agribridge-profiles",
			Timeout:       domain.DynamoDBTimeout,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			DB:      0,
			Timeout: domain.RedisTimeout,
		},
		AWS: AWSConfig{
			Region: "ap-south-1",
		},
	}
}

// Load loads configuration following the precedence:
// 1. Environment variables (highest)
// 2. AWS Secrets Manager (signing key and salt, resolved at startup)
// 3. Compiled defaults (lowest)
//
// Required keys missing → startup failure.
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	// Start with compiled defaults
	cfg := defaults()

	// Load environment variables
	// Prefix: none. Double underscore separates config sections so
	// single underscores survive inside key names:
	// AUTH__TOKEN_SIGNING_KEY → auth.token_signing_key
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	// Unmarshal into config struct
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Validate required fields
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that required configuration is present and that unsafe
// combinations are rejected at startup rather than discovered in traffic.
func validate(cfg *Config) error {
	// The dev echo path returns OTP codes to API callers. Refusing to start
	// beats silently leaking codes from a misconfigured prod deployment.
	if cfg.IsProd() && cfg.Auth.DevOTPEcho {
		return fmt.Errorf("%w: auth.dev_otp_echo cannot be enabled in prod", domain.ErrConfigInvalid)
	}

	if cfg.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: auth.token_ttl must be positive", domain.ErrConfigInvalid)
	}

	// In local environment, remaining fields have sensible defaults.
	if cfg.IsLocal() {
		return nil
	}

	if cfg.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr", domain.ErrConfigRequired)
	}
	if cfg.DynamoDB.OTPTable == "" {
		return fmt.Errorf("%w: dynamodb.otp_table", domain.ErrConfigRequired)
	}
	if cfg.DynamoDB.ProfilesTable == "" {
		return fmt.Errorf("%w: dynamodb.profiles_table", domain.ErrConfigRequired)
	}

	// Secrets must come from the environment or from Secrets Manager.
	if cfg.Auth.TokenSigningKey.IsEmpty() && cfg.Secrets.Name == "" {
		return fmt.Errorf("%w: auth.token_signing_key or secrets.name", domain.ErrConfigRequired)
	}
	if cfg.Auth.PhoneHashSalt.IsEmpty() && cfg.Secrets.Name == "" {
		return fmt.Errorf("%w: auth.phone_hash_salt or secrets.name", domain.ErrConfigRequired)
	}

	return nil
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
