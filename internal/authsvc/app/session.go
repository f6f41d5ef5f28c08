package app

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// ValidateToken checks a bearer token and returns the session behind it.
// Every validation failure surfaces as domain.ErrTokenInvalid; callers never
// learn whether a token was malformed, expired, or forged.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "auth.validate_token")
	defer span.End()

	claims, err := s.issuer.Validate(token)
	if err != nil {
		authFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "invalid_token")))
		span.SetStatus(codes.Error, "token rejected")
		return nil, err
	}

	return &Session{
		UserID:      claims.UserID,
		PhoneNumber: claims.PhoneNumber,
		UserType:    claims.UserType,
		ExpiresAt:   claims.ExpiresAt.Time,
		JTI:         claims.ID,
	}, nil
}
