package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/agribridge/auth-service/internal/auth"
	"github.com/agribridge/auth-service/internal/authsvc/adapter"
	"github.com/agribridge/auth-service/internal/authsvc/app"
	"github.com/agribridge/auth-service/internal/authsvc/port"
	"github.com/agribridge/auth-service/internal/config"
	"github.com/agribridge/auth-service/internal/domain"
	"github.com/agribridge/auth-service/internal/dynamo"
	"github.com/agribridge/auth-service/internal/fieldcrypt"
	"github.com/agribridge/auth-service/internal/redis"
	"github.com/agribridge/auth-service/internal/server"
)

// tokenAlgorithm is the JWT signing method for bearer tokens. The key is a
// shared secret, so only HMAC methods are valid here.
const tokenAlgorithm = "HS256"

// setup is the auth service composition root. It creates infrastructure
// clients, adapters, the auth core, and registers HTTP handlers.
func setup(ctx context.Context, deps server.SetupDeps) (server.CleanupFunc, error) {
	cfg := deps.Config
	logger := deps.Logger

	// 1. Secret material. Prod installs pull the signing key and phone-hash
	// salt from Secrets Manager; elsewhere they come from env/config.
	signingKey, phoneSalt, err := loadSecrets(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("authsvc setup: load secrets: %w", err)
	}

	// 2. Infrastructure clients.
	dynamoClient, err := dynamo.NewClient(ctx, dynamo.Config{
		Endpoint: cfg.DynamoDB.Endpoint,
		Region:   cfg.AWS.Region,
		Timeout:  cfg.DynamoDB.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("authsvc setup: create dynamo client: %w", err)
	}

	redisClient := redis.NewClient(redis.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
	})

	// 3. Field encryption backend (KMS when a key is configured, local AES
	// otherwise) and adapters.
	encryptor, err := createEncryptor(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("authsvc setup: create field encryptor: %w", err)
	}
	crypter := fieldcrypt.NewItemEncryptor(encryptor, logger)

	otpStore := adapter.NewOTPStore(dynamoClient.DB, cfg.DynamoDB.OTPTable)
	profileStore := adapter.NewProfileStore(dynamoClient.DB, cfg.DynamoDB.ProfilesTable, crypter)
	rateLimiter := adapter.NewRateLimiter(redisClient.RDB)
	notifier, err := createNotifier(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("authsvc setup: create notifier: %w", err)
	}

	// 4. Auth core.
	clock := domain.RealClock{}

	phoneHasher, err := auth.NewPhoneHasher([]byte(phoneSalt.Expose()))
	if err != nil {
		return nil, fmt.Errorf("authsvc setup: create phone hasher: %w", err)
	}
	// Domain-separated from the phone hasher so the two HMACs never share
	// a key even though both derive from the same secret.
	codeHasher, err := auth.NewCodeHasher([]byte(phoneSalt.Expose() + "/otp-code"))
	if err != nil {
		return nil, fmt.Errorf("authsvc setup: create code hasher: %w", err)
	}
	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		Algorithm: tokenAlgorithm,
		Key:       []byte(signingKey.Expose()),
		TTL:       cfg.Auth.TokenTTL,
		Clock:     clock,
	})
	if err != nil {
		return nil, fmt.Errorf("authsvc setup: create token issuer: %w", err)
	}

	// 5. Auth service + HTTP handlers.
	authSvc := app.NewAuthService(app.AuthServiceConfig{
		OTPStore:     otpStore,
		ProfileStore: profileStore,
		RateLimiter:  rateLimiter,
		Notifier:     notifier,
		PhoneHasher:  phoneHasher,
		CodeHasher:   codeHasher,
		Issuer:       issuer,
		Clock:        clock,
		Logger:       logger,
		DevCodeEcho:  cfg.Auth.DevOTPEcho,
	})

	port.NewHandler(authSvc, logger).Register(deps.Mux)

	logger.InfoContext(ctx, "auth service initialized",
		slog.String("otp_table", cfg.DynamoDB.OTPTable),
		slog.String("profiles_table", cfg.DynamoDB.ProfilesTable),
		slog.Bool("dev_otp_echo", cfg.Auth.DevOTPEcho),
	)

	cleanup := func(_ context.Context) error {
		return redisClient.Close()
	}

	return cleanup, nil
}

// loadSecrets resolves the token signing key and phone-hash salt. Values set
// directly in config win; otherwise both come from the Secrets Manager
// document named in config. Validation guarantees at least one source.
func loadSecrets(ctx context.Context, cfg *config.Config) (signingKey, phoneSalt domain.SecretString, err error) {
	signingKey = cfg.Auth.TokenSigningKey
	phoneSalt = cfg.Auth.PhoneHashSalt
	if signingKey.Expose() != "" && phoneSalt.Expose() != "" {
		return signingKey, phoneSalt, nil
	}

	awsCfg, err := loadAWSConfig(ctx, cfg, cfg.Secrets.Endpoint)
	if err != nil {
		return "", "", err
	}
	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Secrets.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Secrets.Endpoint)
		}
	})

	loader, err := adapter.NewSecretsLoader(client, cfg.Secrets.Name)
	if err != nil {
		return "", "", err
	}
	secrets, err := loader.Load(ctx)
	if err != nil {
		return "", "", err
	}

	if signingKey.Expose() == "" {
		signingKey = secrets.TokenSigningKey
	}
	if phoneSalt.Expose() == "" {
		phoneSalt = secrets.PhoneHashSalt
	}
	return signingKey, phoneSalt, nil
}

// createEncryptor returns the field encryption backend for the environment.
// A configured KMS key selects the KMS backend; otherwise the local AES key
// derived from config is used.
func createEncryptor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (fieldcrypt.Encryptor, error) {
	if cfg.KMS.KeyID != "" {
		awsCfg, err := loadAWSConfig(ctx, cfg, cfg.KMS.Endpoint)
		if err != nil {
			return nil, err
		}
		client := kms.NewFromConfig(awsCfg, func(o *kms.Options) {
			if cfg.KMS.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.KMS.Endpoint)
			}
		})
		logger.Info("using KMS field encryption", slog.String("key_id", cfg.KMS.KeyID))
		return fieldcrypt.NewKMSEncryptor(client, cfg.KMS.KeyID)
	}

	key := cfg.Auth.FieldEncryptionKey.Expose()
	if key == "" {
		return nil, fmt.Errorf("field encryption key not configured: %w", domain.ErrConfigRequired)
	}
	logger.Info("using local AES field encryption")
	return fieldcrypt.NewLocalEncryptorFromSecret([]byte(key))
}

// createNotifier returns the SMS dispatch backend for the environment.
// Local installs log codes instead of sending real SMS.
func createNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.Notifier, error) {
	if cfg.IsLocal() {
		logger.Info("using log-only SMS notifier for local development")
		return adapter.NewLogNotifier(logger), nil
	}

	awsCfg, err := loadAWSConfig(ctx, cfg, cfg.SNS.Endpoint)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.SNS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SNS.Endpoint)
		}
	})
	return adapter.NewSNSNotifier(client, cfg.SNS.SenderID), nil
}

// loadAWSConfig builds the shared AWS SDK config. A non-empty service
// endpoint implies LocalStack, which wants static dummy credentials.
func loadAWSConfig(ctx context.Context, cfg *config.Config, endpoint string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if endpoint == "" {
		endpoint = cfg.AWS.Endpoint
	}
	if endpoint != "" {
		opts = append(opts,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("test", "test", ""),
			),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.DynamoDB.Timeout > 0 {
		awsCfg.HTTPClient = &http.Client{Timeout: cfg.DynamoDB.Timeout}
	}
	return awsCfg, nil
}
