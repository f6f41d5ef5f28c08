package fieldcrypt

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/agribridge/auth-service/internal/domain"
)

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

// Compile-time check: LocalEncryptor implements Encryptor.
var _ Encryptor = (*LocalEncryptor)(nil)

// LocalEncryptor encrypts fields with AES-256-CBC using a locally held key.
// Each encryption uses a fresh random IV, prepended to the ciphertext; the
// whole blob is base64-encoded.
type LocalEncryptor struct {
	block cipher.Block
}

// NewLocalEncryptor creates a LocalEncryptor from a 32-byte key.
func NewLocalEncryptor(key []byte) (*LocalEncryptor, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("field crypt: key must be exactly %d bytes, got %d: %w",
			KeySize, len(key), domain.ErrInvalidInput)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("field crypt: create cipher: %w", err)
	}
	return &LocalEncryptor{block: block}, nil
}

// NewLocalEncryptorFromSecret derives a 32-byte key from arbitrary secret
// material via SHA-256 and creates a LocalEncryptor with it.
func NewLocalEncryptorFromSecret(secret []byte) (*LocalEncryptor, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("field crypt: secret cannot be empty: %w", domain.ErrInvalidInput)
	}
	key := sha256.Sum256(secret)
	return NewLocalEncryptor(key[:])
}

// Encrypt encrypts plaintext and returns base64(IV || ciphertext).
func (e *LocalEncryptor) Encrypt(_ context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("field crypt: plaintext cannot be empty: %w", domain.ErrInvalidInput)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("field crypt: generate IV: %w", err)
	}

	padded := padPKCS7([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(e.block, iv).CryptBlocks(ciphertext, padded)

	blob := make([]byte, 0, len(iv)+len(ciphertext))
	blob = append(blob, iv...)
	blob = append(blob, ciphertext...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt inverts Encrypt. Malformed blobs are rejected before any cipher
// operation; padding failures after decryption (the wrong-key case) are
// reported as domain.ErrDecryptFailed.
func (e *LocalEncryptor) Decrypt(_ context.Context, blob string) (string, error) {
	if blob == "" {
		return "", fmt.Errorf("field crypt: encrypted data cannot be empty: %w", domain.ErrInvalidInput)
	}

	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("field crypt: decode blob: %w", domain.ErrDecryptFailed)
	}
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("field crypt: blob too short or misaligned: %w", domain.ErrDecryptFailed)
	}

	iv, ciphertext := data[:aes.BlockSize], data[aes.BlockSize:]
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(e.block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := unpadPKCS7(padded, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("field crypt: %w", domain.ErrDecryptFailed)
	}
	return string(plaintext), nil
}

// padPKCS7 pads data to a multiple of blockSize.
func padPKCS7(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

// unpadPKCS7 strips and validates PKCS7 padding.
func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
