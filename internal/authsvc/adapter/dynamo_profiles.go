package adapter

import (
	"context"
	"fmt"

	"github.com/agribridge/auth-service/internal/authsvc/app"
	"github.com/agribridge/auth-service/internal/domain"
	"github.com/agribridge/auth-service/internal/dynamo"
	"github.com/agribridge/auth-service/internal/fieldcrypt"
)

// profileDynamoDB is a narrow, consumer-defined interface for DynamoDB
// operations required by the profile store.
type profileDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
}

// Compile-time check: ProfileStore implements the app-layer port.
var _ app.ProfileStore = (*ProfileStore)(nil)

// profilePIIFields are the profile attributes encrypted at rest.
var profilePIIFields = []string{"phone_number", "name", "location", "crops"}

// ProfileStore persists user profiles in DynamoDB, keyed by user ID.
// PII attributes pass through a fieldcrypt.ItemEncryptor on the way in and
// out, so the table only ever holds ciphertext for those fields.
type ProfileStore struct {
	db        profileDynamoDB
	tableName string
	crypter   *fieldcrypt.ItemEncryptor
}

// NewProfileStore creates a ProfileStore backed by the given DynamoDB client
// and field encryptor.
func NewProfileStore(db profileDynamoDB, tableName string, crypter *fieldcrypt.ItemEncryptor) *ProfileStore {
	return &ProfileStore{
		db:        db,
		tableName: tableName,
		crypter:   crypter,
	}
}

// Put writes a profile, replacing any existing one for the same user ID.
// PII fields are encrypted first; an encryption failure aborts the write.
func (s *ProfileStore) Put(ctx context.Context, record app.ProfileRecord) error {
	item := map[string]any{
		"user_id":      record.UserID,
		"phone_number": record.PhoneNumber,
		"user_type":    string(record.UserType),
		"name":         record.Name,
		"location":     record.Location,
		"crops":        record.Crops,
		"created_at":   record.CreatedAt,
		"updated_at":   record.UpdatedAt,
	}

	protected, err := s.crypter.EncryptItem(ctx, item, profilePIIFields)
	if err != nil {
		return fmt.Errorf("profile store: encrypt: %w", err)
	}

	av, err := dynamo.MarshalMap(protected)
	if err != nil {
		return fmt.Errorf("profile store: marshal item: %w", err)
	}

	_, err = s.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName: &s.tableName,
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("profile store: put: %w", err)
	}

	return nil
}

// Get retrieves a profile by user ID and decrypts its PII fields.
// Decryption is best-effort: a field that cannot be decrypted comes back in
// its encrypted form rather than failing the whole read.
func (s *ProfileStore) Get(ctx context.Context, userID string) (*app.ProfileRecord, error) {
	out, err := s.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"user_id": &dynamo.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("profile store: get: %w", err)
	}

	if out.Item == nil {
		return nil, fmt.Errorf("profile store: get: %w", domain.ErrNotFound)
	}

	var item map[string]any
	if err := dynamo.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("profile store: unmarshal: %w", err)
	}

	plain := s.crypter.DecryptItem(ctx, item, profilePIIFields)

	return &app.ProfileRecord{
		UserID:      stringField(plain, "user_id"),
		PhoneNumber: stringField(plain, "phone_number"),
		UserType:    domain.UserType(stringField(plain, "user_type")),
		Name:        stringField(plain, "name"),
		Location:    stringField(plain, "location"),
		Crops:       stringField(plain, "crops"),
		CreatedAt:   stringField(plain, "created_at"),
		UpdatedAt:   stringField(plain, "updated_at"),
	}, nil
}

// stringField reads a string attribute from a decoded item, tolerating
// absent or non-string values.
func stringField(item map[string]any, key string) string {
	v, _ := item[key].(string)
	return v
}
