package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/agribridge/auth-service/internal/domain"
)

// IssueResult holds the result of issuing a bearer token.
type IssueResult struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Issuer mints and validates signed bearer tokens. Tokens are stateless:
// validity is solely a function of the signature and the expiry claim, so
// there is no server-side revocation list.
type Issuer struct {
	method jwt.SigningMethod
	key    []byte
	ttl    time.Duration
	clock  domain.Clock
}

// IssuerConfig holds configuration for creating an Issuer.
type IssuerConfig struct {
	// Algorithm names the signing method, e.g. "HS256". Must be an
	// HMAC family method since the key is a shared secret.
	Algorithm string
	Key       []byte
	TTL       time.Duration
	Clock     domain.Clock
}

// NewIssuer creates a token issuer. The algorithm must name a known HMAC
// signing method and the key must be non-empty; both are checked here so a
// misconfiguration fails at startup rather than on the first login.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("token issuer: unknown signing algorithm %q: %w", cfg.Algorithm, domain.ErrConfigInvalid)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("token issuer: algorithm %q is not an HMAC method: %w", cfg.Algorithm, domain.ErrConfigInvalid)
	}
	if len(cfg.Key) == 0 {
		return nil, fmt.Errorf("token issuer: signing key cannot be empty: %w", domain.ErrConfigRequired)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = domain.DefaultTokenTTL
	}

	return &Issuer{
		method: method,
		key:    cfg.Key,
		ttl:    ttl,
		clock:  cfg.Clock,
	}, nil
}

// Issue mints a signed bearer token carrying the given identity.
func (i *Issuer) Issue(userID, phoneNumber string, userType domain.UserType) (IssueResult, error) {
	now := i.clock.Now().UTC()
	expiresAt := now.Add(i.ttl)
	jti := uuid.NewString()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
		UserID:      userID,
		PhoneNumber: phoneNumber,
		UserType:    userType,
	}

	token := jwt.NewWithClaims(i.method, &claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return IssueResult{}, fmt.Errorf("sign bearer token: %w", err)
	}

	return IssueResult{
		Token:     signed,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate parses and validates a bearer token, returning its claims.
// Signature mismatch, malformed structure, and expiry are all reported
// identically as domain.ErrTokenInvalid so callers cannot distinguish
// why validation failed.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	var claims Claims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	}

	_, err := jwt.ParseWithClaims(tokenString, &claims, i.keyFunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("validate bearer token: %w", domain.ErrTokenInvalid)
	}

	return &claims, nil
}

func (i *Issuer) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return i.key, nil
}
