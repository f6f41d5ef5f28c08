package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/agribridge/auth-service/internal/domain"
)

// smClient is the narrow consumer-defined interface for Secrets Manager
// operations. The real *secretsmanager.Client satisfies it.
type smClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AuthSecrets holds the secret material the service refuses to start without.
type AuthSecrets struct {
	TokenSigningKey domain.SecretString
	PhoneHashSalt   domain.SecretString
}

// SecretsLoader fetches auth secrets from AWS Secrets Manager.
// Loading happens once at startup; the service must not start on failure.
type SecretsLoader struct {
	sm         smClient
	secretName string
}

// NewSecretsLoader creates a SecretsLoader for the given secret name.
func NewSecretsLoader(sm smClient, secretName string) (*SecretsLoader, error) {
	if secretName == "" {
		return nil, fmt.Errorf("secrets loader: secret name not configured: %w", domain.ErrConfigRequired)
	}
	return &SecretsLoader{sm: sm, secretName: secretName}, nil
}

// secretDocument is the JSON shape of the Secrets Manager secret.
type secretDocument struct {
	TokenSigningKey string `json:"token_signing_key"`
	PhoneHashSalt   string `json:"phone_hash_salt"`
}

// Load fetches and parses the secret document. Both keys are required;
// a partially populated secret is a deployment error, not a fallback case.
func (l *SecretsLoader) Load(ctx context.Context) (*AuthSecrets, error) {
	out, err := l.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &l.secretName,
	})
	if err != nil {
		return nil, fmt.Errorf("secrets loader: get %q: %w", l.secretName, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secrets loader: secret %q has no string value: %w", l.secretName, domain.ErrConfigInvalid)
	}

	var doc secretDocument
	if err := json.Unmarshal([]byte(*out.SecretString), &doc); err != nil {
		return nil, fmt.Errorf("secrets loader: parse %q: %w", l.secretName, domain.ErrConfigInvalid)
	}

	if doc.TokenSigningKey == "" {
		return nil, fmt.Errorf("secrets loader: %q missing token_signing_key: %w", l.secretName, domain.ErrConfigRequired)
	}
	if doc.PhoneHashSalt == "" {
		return nil, fmt.Errorf("secrets loader: %q missing phone_hash_salt: %w", l.secretName, domain.ErrConfigRequired)
	}

	return &AuthSecrets{
		TokenSigningKey: domain.SecretString(doc.TokenSigningKey),
		PhoneHashSalt:   domain.SecretString(doc.PhoneHashSalt),
	}, nil
}
