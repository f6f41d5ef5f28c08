package fieldcrypt

import (
	"context"
	"fmt"
	"log/slog"
)

// MarkerSuffix is appended to a field name to form the boolean attribute
// recording that the field holds ciphertext.
const MarkerSuffix = "_encrypted"

// ItemEncryptor applies the encryption capability to named fields of a
// DynamoDB-style item. Encrypted fields get a companion boolean marker so
// readers can tell transformed values from plaintext ones.
type ItemEncryptor struct {
	enc    Encryptor
	logger *slog.Logger
}

// NewItemEncryptor creates an ItemEncryptor backed by the given Encryptor.
func NewItemEncryptor(enc Encryptor, logger *slog.Logger) *ItemEncryptor {
	return &ItemEncryptor{enc: enc, logger: logger}
}

// EncryptItem returns a copy of item with each named field replaced by its
// encrypted form and a "<field>_encrypted" marker set to true. Absent or
// empty fields are skipped. An encryption failure aborts the whole call —
// a half-protected item must never reach the store.
func (w *ItemEncryptor) EncryptItem(ctx context.Context, item map[string]any, fields []string) (map[string]any, error) {
	out := make(map[string]any, len(item)+len(fields))
	for k, v := range item {
		out[k] = v
	}

	for _, field := range fields {
		value, ok := out[field]
		if !ok || value == nil {
			continue
		}
		str := fmt.Sprint(value)
		if str == "" {
			continue
		}

		blob, err := w.enc.Encrypt(ctx, str)
		if err != nil {
			return nil, fmt.Errorf("encrypt field %q: %w", field, err)
		}
		out[field] = blob
		out[field+MarkerSuffix] = true
	}

	return out, nil
}

// DecryptItem returns a copy of item with each marked field restored to
// plaintext and its marker removed. Decryption is best-effort: a field that
// fails to decrypt is logged and left in its encrypted state with the
// marker intact, favoring availability of the rest of the record.
func (w *ItemEncryptor) DecryptItem(ctx context.Context, item map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = v
	}

	for _, field := range fields {
		marked, _ := out[field+MarkerSuffix].(bool)
		if !marked {
			continue
		}
		blob, ok := out[field].(string)
		if !ok {
			continue
		}

		plaintext, err := w.enc.Decrypt(ctx, blob)
		if err != nil {
			w.logger.ErrorContext(ctx, "failed to decrypt field, leaving encrypted",
				slog.String("field", field), slog.String("error", err.Error()))
			continue
		}
		out[field] = plaintext
		delete(out, field+MarkerSuffix)
	}

	return out
}

// RecordEncryptor applies the encryption capability to named fields of a
// plain string record (the relational-row analogue of ItemEncryptor).
// No markers are written; the schema itself records which columns are
// protected.
type RecordEncryptor struct {
	enc    Encryptor
	logger *slog.Logger
}

// NewRecordEncryptor creates a RecordEncryptor backed by the given Encryptor.
func NewRecordEncryptor(enc Encryptor, logger *slog.Logger) *RecordEncryptor {
	return &RecordEncryptor{enc: enc, logger: logger}
}

// EncryptFields returns a copy of record with each named, non-empty field
// replaced by its encrypted form. Any encryption failure aborts the call.
func (w *RecordEncryptor) EncryptFields(ctx context.Context, record map[string]string, fields []string) (map[string]string, error) {
	out := make(map[string]string, len(record))
	for k, v := range record {
		out[k] = v
	}

	for _, field := range fields {
		value, ok := out[field]
		if !ok || value == "" {
			continue
		}
		blob, err := w.enc.Encrypt(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("encrypt field %q: %w", field, err)
		}
		out[field] = blob
	}

	return out, nil
}

// DecryptFields is the best-effort inverse of EncryptFields: fields that
// fail to decrypt are logged and left encrypted.
func (w *RecordEncryptor) DecryptFields(ctx context.Context, record map[string]string, fields []string) map[string]string {
	out := make(map[string]string, len(record))
	for k, v := range record {
		out[k] = v
	}

	for _, field := range fields {
		value, ok := out[field]
		if !ok || value == "" {
			continue
		}
		plaintext, err := w.enc.Decrypt(ctx, value)
		if err != nil {
			w.logger.ErrorContext(ctx, "failed to decrypt field, leaving encrypted",
				slog.String("field", field), slog.String("error", err.Error()))
			continue
		}
		out[field] = plaintext
	}

	return out
}
