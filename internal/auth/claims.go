package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/agribridge/auth-service/internal/domain"
)

// Claims represents the signed payload of a bearer token.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string          `json:"user_id"`
	PhoneNumber string          `json:"phone_number"`
	UserType    domain.UserType `json:"user_type"`
}
