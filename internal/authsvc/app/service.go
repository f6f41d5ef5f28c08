// Package app contains the authentication use cases: code request, code
// verification, session introspection, and profile management.
package app

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/agribridge/auth-service/internal/auth"
	"github.com/agribridge/auth-service/internal/domain"
)

var tracer = otel.Tracer("authsvc/app")

var (
	codeRequestsTotal   metric.Int64Counter
	codeVerifiedTotal   metric.Int64Counter
	tokensIssuedTotal   metric.Int64Counter
	authFailuresTotal   metric.Int64Counter
	rateLimitsTotal     metric.Int64Counter
	profileUpdatesTotal metric.Int64Counter
)

func init() {
	m := otel.Meter("authsvc/app")

	codeRequestsTotal, _ = m.Int64Counter("auth_code_requests_total",
		metric.WithDescription("Total verification code requests"))
	codeVerifiedTotal, _ = m.Int64Counter("auth_code_verified_total",
		metric.WithDescription("Total successful code verifications"))
	tokensIssuedTotal, _ = m.Int64Counter("auth_tokens_issued_total",
		metric.WithDescription("Total bearer tokens issued"))
	authFailuresTotal, _ = m.Int64Counter("security_auth_failures_total",
		metric.WithDescription("Total authentication failures"))
	rateLimitsTotal, _ = m.Int64Counter("security_rate_limits_total",
		metric.WithDescription("Total rate limit hits"))
	profileUpdatesTotal, _ = m.Int64Counter("profile_updates_total",
		metric.WithDescription("Total profile writes"))
}

// OTPRecord is the verification record stored per phone identifier.
// Structurally mirrors the adapter record; the wiring layer converts between them.
type OTPRecord struct {
	PhoneHash string
	CodeHash  string
	CreatedAt string // RFC3339
	ExpiresAt string // RFC3339
	Attempts  int
	TTL       int64
}

// ProfileRecord is a user profile stored in the profiles table.
// Name, Location, and Crops are PII and are encrypted at rest by the adapter.
type ProfileRecord struct {
	UserID      string
	PhoneNumber string
	UserType    domain.UserType
	Name        string
	Location    string
	Crops       string
	CreatedAt   string // RFC3339
	UpdatedAt   string // RFC3339
}

// OTPStore persists verification records keyed by phone identifier.
type OTPStore interface {
	// Put stores a record, unconditionally replacing any existing one.
	Put(ctx context.Context, record OTPRecord) error
	Get(ctx context.Context, phoneHash string) (*OTPRecord, error)
	// SetAttempts updates the attempt counter only if the stored value
	// still equals expected. A lost race returns domain.ErrConflict.
	SetAttempts(ctx context.Context, phoneHash string, expected, next int) error
	Delete(ctx context.Context, phoneHash string) error
}

// ProfileStore persists user profiles keyed by user ID.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*ProfileRecord, error)
	Put(ctx context.Context, record ProfileRecord) error
}

// RateLimiter checks and enforces rate limits.
type RateLimiter interface {
	CheckAndIncrement(ctx context.Context, key string, limit, windowSeconds int) (bool, error)
}

// RequestCodeResult is returned by RequestCode on success.
type RequestCodeResult struct {
	ExpiresAt time.Time

	// SMSDelivered is false when dispatch failed but the request still
	// succeeded via the development echo fallback.
	SMSDelivered bool

	// DevCode carries the generated code back to the caller when the
	// development echo fallback fired. Empty in every other case.
	DevCode string
}

// VerifyCodeResult is returned by VerifyCode on success.
type VerifyCodeResult struct {
	UserID      string
	PhoneNumber string
	UserType    domain.UserType
	Token       string
	ExpiresAt   time.Time
}

// Session describes the authenticated caller behind a bearer token.
type Session struct {
	UserID      string
	PhoneNumber string
	UserType    domain.UserType
	ExpiresAt   time.Time
	JTI         string
}

// ProfileUpdate holds the mutable profile fields for UpdateProfile.
type ProfileUpdate struct {
	Name     string
	Location string
	Crops    string
	UserType domain.UserType
}

// AuthServiceConfig holds the dependencies for AuthService.
type AuthServiceConfig struct {
	OTPStore     OTPStore
	ProfileStore ProfileStore
	RateLimiter  RateLimiter
	Notifier     auth.Notifier
	PhoneHasher  *auth.PhoneHasher
	CodeHasher   *auth.CodeHasher
	Issuer       *auth.Issuer
	Clock        domain.Clock
	Logger       *slog.Logger

	// DevCodeEcho enables the non-production fallback that returns the
	// generated code to the caller when SMS dispatch fails. Config loading
	// guarantees this is never set in prod.
	DevCodeEcho bool
}

// AuthService orchestrates the phone verification flows: request code,
// verify code, session introspection, and profile reads/writes.
type AuthService struct {
	otpStore     OTPStore
	profileStore ProfileStore
	rateLimiter  RateLimiter
	notifier     auth.Notifier
	phoneHasher  *auth.PhoneHasher
	codeHasher   *auth.CodeHasher
	issuer       *auth.Issuer
	clock        domain.Clock
	logger       *slog.Logger
	devCodeEcho  bool
}

// NewAuthService creates a new AuthService with the given dependencies.
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	return &AuthService{
		otpStore:     cfg.OTPStore,
		profileStore: cfg.ProfileStore,
		rateLimiter:  cfg.RateLimiter,
		notifier:     cfg.Notifier,
		phoneHasher:  cfg.PhoneHasher,
		codeHasher:   cfg.CodeHasher,
		issuer:       cfg.Issuer,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
		devCodeEcho:  cfg.DevCodeEcho,
	}
}
