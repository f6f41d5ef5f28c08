package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/agribridge/auth-service/internal/domain"
	"github.com/agribridge/auth-service/internal/observability"
)

// VerifyCode checks a code candidate against the stored record and issues a
// bearer token on success. Codes are single-use: the record is deleted the
// moment a candidate matches.
//
// Failure ordering is deliberate: expiry is checked before the lockout so a
// stale locked record reports "expired" rather than "locked", and the stored
// hash is never consulted for a locked record.
func (s *AuthService) VerifyCode(ctx context.Context, phone, candidate string, userType domain.UserType) (*VerifyCodeResult, error) {
	ctx, span := tracer.Start(ctx, "auth.verify_code")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	number, err := domain.NewPhoneNumber(phone)
	if err != nil {
		authFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "invalid_phone")))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if candidate == "" {
		err := fmt.Errorf("verification code is required: %w", domain.ErrInvalidInput)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if userType == "" {
		userType = domain.UserTypeFarmer
	}
	if !domain.IsValidUserType(userType) {
		err := fmt.Errorf("unsupported user type %q: %w", userType, domain.ErrInvalidInput)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	phoneHash, err := s.phoneHasher.Hash(number.Canonical())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("hash phone: %w", err)
	}

	if err := s.checkCandidate(ctx, phoneHash, candidate); err != nil {
		logger.InfoContext(ctx, "auth.code_rejected", "phone_hash", phoneHash)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Single-use: remove the record before the token leaves the service.
	if err := s.otpStore.Delete(ctx, phoneHash); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("consume code: %w", err)
	}

	issued, err := s.issuer.Issue(phoneHash, number.Canonical(), userType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("issue token: %w", err)
	}

	codeVerifiedTotal.Add(ctx, 1)
	tokensIssuedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("user_type", string(userType))))
	logger.InfoContext(ctx, "auth.code_verified",
		"user_id", phoneHash,
		"user_type", string(userType),
	)

	return &VerifyCodeResult{
		UserID:      phoneHash,
		PhoneNumber: number.Canonical(),
		UserType:    userType,
		Token:       issued.Token,
		ExpiresAt:   issued.ExpiresAt,
	}, nil
}

// checkCandidate walks the verification state machine for one candidate.
func (s *AuthService) checkCandidate(ctx context.Context, phoneHash, candidate string) error {
	record, err := s.otpStore.Get(ctx, phoneHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Indistinguishable from a wrong code so callers cannot
			// probe which phones have outstanding requests.
			authFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "no_record")))
			return domain.ErrCodeMismatch
		}
		return fmt.Errorf("get code record: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339, record.ExpiresAt)
	if err != nil {
		return fmt.Errorf("parse code expiry: %w", err)
	}
	if s.clock.Now().UTC().After(expiresAt) {
		authFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "code_expired")))
		// Remove the dead record now rather than waiting for the TTL
		// purge, so the phone can start a fresh request cycle. Best
		// effort: the caller sees Expired either way.
		if delErr := s.otpStore.Delete(ctx, phoneHash); delErr != nil {
			observability.WithTraceID(ctx, s.logger).WarnContext(ctx,
				"failed to delete expired code record", "error", delErr, "phone_hash", phoneHash)
		}
		return domain.ErrCodeExpired
	}

	if record.Attempts >= domain.MaxOTPAttempts {
		authFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "locked")))
		return domain.ErrLocked
	}

	if s.codeHasher.Verify(candidate, record.CodeHash) {
		return nil
	}

	return s.recordFailedAttempt(ctx, phoneHash, record.Attempts)
}

// recordFailedAttempt bumps the attempt counter with a compare-and-set.
// Losing the race means a concurrent verification already moved the counter;
// the fresh record decides whether the caller sees a mismatch or the lockout.
func (s *AuthService) recordFailedAttempt(ctx context.Context, phoneHash string, attempts int) error {
	authFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "code_mismatch")))

	err := s.otpStore.SetAttempts(ctx, phoneHash, attempts, attempts+1)
	if err == nil {
		if attempts+1 >= domain.MaxOTPAttempts {
			// The mismatch that exhausts the allowance reports the
			// lockout itself, not a zero-remaining mismatch.
			return domain.ErrLocked
		}
		return &domain.CodeMismatchError{Remaining: domain.MaxOTPAttempts - (attempts + 1)}
	}
	if !errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("record failed attempt: %w", err)
	}

	fresh, getErr := s.otpStore.Get(ctx, phoneHash)
	if getErr != nil {
		if errors.Is(getErr, domain.ErrNotFound) {
			return domain.ErrCodeMismatch
		}
		return fmt.Errorf("reload code record: %w", getErr)
	}
	if fresh.Attempts >= domain.MaxOTPAttempts {
		return domain.ErrLocked
	}
	return &domain.CodeMismatchError{Remaining: domain.MaxOTPAttempts - fresh.Attempts}
}
