package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/agribridge/auth-service/internal/domain"
	"github.com/agribridge/auth-service/internal/observability"
)

// GetProfile returns the stored profile for the authenticated user.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*ProfileRecord, error) {
	ctx, span := tracer.Start(ctx, "auth.get_profile")
	defer span.End()

	record, err := s.profileStore.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	return record, nil
}

// UpdateProfile creates or replaces the authenticated user's profile.
// The session supplies identity; the update supplies the mutable fields.
func (s *AuthService) UpdateProfile(ctx context.Context, session *Session, update ProfileUpdate) (*ProfileRecord, error) {
	ctx, span := tracer.Start(ctx, "auth.update_profile")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	userType := update.UserType
	if userType == "" {
		userType = session.UserType
	}
	if !domain.IsValidUserType(userType) {
		err := fmt.Errorf("unsupported user type %q: %w", userType, domain.ErrInvalidInput)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := s.clock.Now().UTC().Format(time.RFC3339)
	record := ProfileRecord{
		UserID:      session.UserID,
		PhoneNumber: session.PhoneNumber,
		UserType:    userType,
		Name:        update.Name,
		Location:    update.Location,
		Crops:       update.Crops,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Preserve the original creation timestamp on replacement.
	existing, err := s.profileStore.Get(ctx, session.UserID)
	switch {
	case err == nil:
		record.CreatedAt = existing.CreatedAt
	case !errors.Is(err, domain.ErrNotFound):
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load existing profile: %w", err)
	}

	if err := s.profileStore.Put(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("store profile: %w", err)
	}

	profileUpdatesTotal.Add(ctx, 1)
	logger.InfoContext(ctx, "profile.updated", "user_id", session.UserID)

	return &record, nil
}
