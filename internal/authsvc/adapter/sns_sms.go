package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/agribridge/auth-service/internal/auth"
)

// smsTemplate is the exact message body sent for every verification code.
const smsTemplate = "Your verification code is: %s. Valid for 10 minutes. Do not share this code."

// snsPublisher is a narrow, consumer-defined interface for the subset of SNS
// operations required by the notifier. The real *sns.Client satisfies it.
type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Compile-time interface satisfaction checks.
var _ auth.Notifier = (*SNSNotifier)(nil)
var _ auth.Notifier = (*LogNotifier)(nil)

// SNSNotifier delivers verification codes via Amazon SNS SMS.
type SNSNotifier struct {
	client   snsPublisher
	senderID string
}

// NewSNSNotifier creates an SNSNotifier backed by the given SNS client.
// senderID is the optional alphanumeric sender shown to recipients; carriers
// that do not support sender IDs ignore it.
func NewSNSNotifier(client snsPublisher, senderID string) *SNSNotifier {
	return &SNSNotifier{client: client, senderID: senderID}
}

// SendCode publishes the verification message to the given phone number.
func (n *SNSNotifier) SendCode(ctx context.Context, phone, code string) error {
	message := fmt.Sprintf(smsTemplate, code)

	input := &sns.PublishInput{
		PhoneNumber: &phone,
		Message:     &message,
	}
	if n.senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    strPtr("String"),
				StringValue: &n.senderID,
			},
		}
	}

	_, err := n.client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("sns notifier: send code to %s: %w", maskPhone(phone), err)
	}

	return nil
}

// LogNotifier is a fake Notifier that logs code delivery instead of sending
// real SMS. Suitable for local development and testing environments.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier that writes delivery events to the
// given structured logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendCode logs the delivery with a masked phone number (last 4 digits
// visible). It never sends a real SMS.
func (n *LogNotifier) SendCode(ctx context.Context, phone, code string) error {
	n.logger.InfoContext(ctx, "code delivery (log-only)",
		slog.String("recipient", maskPhone(phone)),
		slog.String("code", code),
	)

	return nil
}

// maskPhone returns a masked representation of the phone number showing only
// the last 4 digits. Numbers shorter than 5 characters are fully masked.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "***" + phone[len(phone)-4:]
}

func strPtr(s string) *string { return &s }
