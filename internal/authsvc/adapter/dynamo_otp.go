package adapter

import (
	"context"
	"fmt"

	"github.com/agribridge/auth-service/internal/authsvc/app"
	"github.com/agribridge/auth-service/internal/domain"
	"github.com/agribridge/auth-service/internal/dynamo"
)

// otpDynamoDB is a narrow, consumer-defined interface for DynamoDB operations
// required by the OTP store. Only the methods this adapter calls are declared.
// The *dynamodb.Client satisfies this interface (optFns is variadic so callers
// may omit it), and test stubs implement it directly.
type otpDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamo.UpdateItemInput, optFns ...func(*dynamo.Options)) (*dynamo.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamo.DeleteItemInput, optFns ...func(*dynamo.Options)) (*dynamo.DeleteItemOutput, error)
}

// Compile-time check: OTPStore implements the app-layer port.
var _ app.OTPStore = (*OTPStore)(nil)

// otpItem is the DynamoDB item shape for the OTP table.
// Struct tags drive attributevalue.MarshalMap / UnmarshalMap serialization.
type otpItem struct {
	PhoneHash string `dynamodbav:"phone_hash"`
	CodeHash  string `dynamodbav:"code_hash"`
	CreatedAt string `dynamodbav:"created_at"`
	ExpiresAt string `dynamodbav:"expires_at"`
	Attempts  int    `dynamodbav:"attempts"`
	TTL       int64  `dynamodbav:"ttl"`
}

// OTPStore persists verification records in DynamoDB, keyed by phone hash.
type OTPStore struct {
	db        otpDynamoDB
	tableName string
}

// NewOTPStore creates an OTPStore backed by the given DynamoDB client.
func NewOTPStore(db otpDynamoDB, tableName string) *OTPStore {
	return &OTPStore{
		db:        db,
		tableName: tableName,
	}
}

// Put writes a verification record, unconditionally replacing any existing
// record for the same phone hash. A repeat request always supersedes the
// outstanding code.
func (s *OTPStore) Put(ctx context.Context, record app.OTPRecord) error {
	item := otpItem{
		PhoneHash: record.PhoneHash,
		CodeHash:  record.CodeHash,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
		Attempts:  record.Attempts,
		TTL:       record.TTL,
	}

	av, err := dynamo.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("otp store: marshal item: %w", err)
	}

	_, err = s.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName: &s.tableName,
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("otp store: put: %w", err)
	}

	return nil
}

// Get retrieves a verification record by phone hash using a strongly
// consistent read. Returns domain.ErrNotFound when no record exists.
func (s *OTPStore) Get(ctx context.Context, phoneHash string) (*app.OTPRecord, error) {
	consistentRead := true

	out, err := s.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"phone_hash": &dynamo.AttributeValueMemberS{Value: phoneHash},
		},
		ConsistentRead: &consistentRead,
	})
	if err != nil {
		return nil, fmt.Errorf("otp store: get: %w", err)
	}

	if out.Item == nil {
		return nil, fmt.Errorf("otp store: get: %w", domain.ErrNotFound)
	}

	var item otpItem
	if err := dynamo.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("otp store: unmarshal: %w", err)
	}

	return &app.OTPRecord{
		PhoneHash: item.PhoneHash,
		CodeHash:  item.CodeHash,
		CreatedAt: item.CreatedAt,
		ExpiresAt: item.ExpiresAt,
		Attempts:  item.Attempts,
		TTL:       item.TTL,
	}, nil
}

// SetAttempts moves the attempt counter from expected to next with a
// compare-and-set. The condition also requires the record to still exist,
// so a concurrent consume or overwrite surfaces as domain.ErrConflict
// rather than resurrecting a deleted record.
func (s *OTPStore) SetAttempts(ctx context.Context, phoneHash string, expected, next int) error {
	expr, err := dynamo.NewExpressionBuilder().
		WithUpdate(dynamo.Set(dynamo.Name("attempts"), dynamo.Value(next))).
		WithCondition(dynamo.Name("phone_hash").AttributeExists().
			And(dynamo.Name("attempts").Equal(dynamo.Value(expected)))).
		Build()
	if err != nil {
		return fmt.Errorf("otp store: build attempts expression: %w", err)
	}

	_, err = s.db.UpdateItem(ctx, &dynamo.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"phone_hash": &dynamo.AttributeValueMemberS{Value: phoneHash},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return fmt.Errorf("otp store: set attempts: %w", domain.ErrConflict)
		}
		return fmt.Errorf("otp store: set attempts: %w", err)
	}

	return nil
}

// Delete removes the verification record for phoneHash. Deleting an absent
// record is not an error; consume races resolve at the caller.
func (s *OTPStore) Delete(ctx context.Context, phoneHash string) error {
	_, err := s.db.DeleteItem(ctx, &dynamo.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"phone_hash": &dynamo.AttributeValueMemberS{Value: phoneHash},
		},
	})
	if err != nil {
		return fmt.Errorf("otp store: delete: %w", err)
	}

	return nil
}
