package fieldcrypt

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/agribridge/auth-service/internal/domain"
)

// kmsAPI is a narrow, consumer-defined interface for the subset of KMS
// operations the encryptor requires. The real *kms.Client satisfies it.
type kmsAPI interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
	GenerateDataKey(ctx context.Context, params *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
}

// Compile-time check: KMSEncryptor implements Encryptor.
var _ Encryptor = (*KMSEncryptor)(nil)

// DataKey is an envelope-encryption primitive: a plaintext key usable
// immediately plus its KMS-wrapped form safe to persist. The plaintext
// half must never be stored.
type DataKey struct {
	Plaintext  []byte
	WrappedKey string // base64-encoded KMS ciphertext of the key
}

// KMSEncryptor delegates field encryption to AWS KMS by key reference.
// Raw key material never crosses this boundary — only ciphertext blobs do.
type KMSEncryptor struct {
	client kmsAPI
	keyID  string
}

// NewKMSEncryptor creates a KMSEncryptor for the given KMS key ID or ARN.
func NewKMSEncryptor(client kmsAPI, keyID string) (*KMSEncryptor, error) {
	if keyID == "" {
		return nil, fmt.Errorf("kms encryptor: key ID not configured: %w", domain.ErrConfigRequired)
	}
	return &KMSEncryptor{client: client, keyID: keyID}, nil
}

// Encrypt encrypts plaintext under the configured KMS key and returns the
// base64-encoded ciphertext blob.
func (e *KMSEncryptor) Encrypt(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("kms encryptor: plaintext cannot be empty: %w", domain.ErrInvalidInput)
	}

	out, err := e.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(e.keyID),
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return "", fmt.Errorf("kms encryptor: encrypt: %w", err)
	}

	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}

// Decrypt decrypts a base64-encoded KMS ciphertext blob. KMS resolves the
// key from the blob itself, so no key ID is passed.
func (e *KMSEncryptor) Decrypt(ctx context.Context, blob string) (string, error) {
	if blob == "" {
		return "", fmt.Errorf("kms encryptor: encrypted data cannot be empty: %w", domain.ErrInvalidInput)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("kms encryptor: decode blob: %w", domain.ErrDecryptFailed)
	}

	out, err := e.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: ciphertext,
	})
	if err != nil {
		return "", fmt.Errorf("kms encryptor: decrypt: %w", err)
	}

	return string(out.Plaintext), nil
}

// GenerateDataKey asks KMS for a fresh AES-256 data key, returned both in
// plaintext (for immediate local use) and wrapped under the configured key
// (for storage alongside the data it protects).
func (e *KMSEncryptor) GenerateDataKey(ctx context.Context) (*DataKey, error) {
	out, err := e.client.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(e.keyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("kms encryptor: generate data key: %w", err)
	}

	return &DataKey{
		Plaintext:  out.Plaintext,
		WrappedKey: base64.StdEncoding.EncodeToString(out.CiphertextBlob),
	}, nil
}
