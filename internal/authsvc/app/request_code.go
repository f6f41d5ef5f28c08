package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/agribridge/auth-service/internal/domain"
	"github.com/agribridge/auth-service/internal/observability"
)

// RequestCode validates the phone number, enforces rate limits, generates a
// verification code, stores it, and dispatches it over SMS. A new request
// always replaces any outstanding code for the same phone.
func (s *AuthService) RequestCode(ctx context.Context, phone string) (*RequestCodeResult, error) {
	ctx, span := tracer.Start(ctx, "auth.request_code")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	number, err := domain.NewPhoneNumber(phone)
	if err != nil {
		authFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "invalid_phone")))
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

	// Rate limit per phone. Fail-closed: a broken limiter must not allow
	// unlimited SMS dispatch.
	allowed, err := s.rateLimiter.CheckAndIncrement(
		ctx,
		"code_req:phone:"+phoneHash,
		domain.OTPRequestRateLimitPerPhone,
		int(domain.OTPRateLimitWindow.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("check phone rate limit: %w", err)
	}
	if !allowed {
		rateLimitsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("endpoint", "request_code"),
			attribute.String("limit_type", "phone"),
		))
		span.SetStatus(codes.Error, "phone rate limited")
		return nil, domain.ErrRateLimited
	}

	code, err := s.codeHasher.Generate()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := s.clock.Now().UTC()
	expiresAt := now.Add(domain.OTPValidityDuration)

	record := OTPRecord{
		PhoneHash: phoneHash,
		CodeHash:  s.codeHasher.Hash(code),
		CreatedAt: now.Format(time.RFC3339),
		ExpiresAt: expiresAt.Format(time.RFC3339),
		Attempts:  0,
		TTL:       expiresAt.Unix(),
	}

	// Unconditional overwrite: a fresh request invalidates the previous
	// code and resets the attempt counter.
	if err := s.otpStore.Put(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("store code: %w", err)
	}

	// SMS dispatch is synchronous: the echo fallback below depends on the
	// outcome, so the send cannot be detached to a background goroutine.
	if sendErr := s.notifier.SendCode(ctx, number.Dialable(), code); sendErr != nil {
		logger.ErrorContext(ctx, "failed to send verification SMS",
			"error", sendErr, "phone_hash", phoneHash)

		if s.devCodeEcho {
			codeRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "dev_echo")))
			logger.WarnContext(ctx, "auth.code_echoed", "phone_hash", phoneHash)
			return &RequestCodeResult{
				ExpiresAt:    expiresAt,
				SMSDelivered: false,
				DevCode:      code,
			}, nil
		}

		span.RecordError(sendErr)
		span.SetStatus(codes.Error, sendErr.Error())
		return nil, fmt.Errorf("send verification SMS: %w", domain.ErrUnavailable)
	}

	codeRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	logger.InfoContext(ctx, "auth.code_requested", "phone_hash", phoneHash)

	return &RequestCodeResult{
		ExpiresAt:    expiresAt,
		SMSDelivered: true,
	}, nil
}
