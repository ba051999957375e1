// Package auth validates the storefront backend's bearer tokens locally so
// cart and checkout requests can be attributed to a user without a round trip.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/middleware"
)

var errMissingSubject = errors.New("token has no subject")

type tokenClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTValidator verifies HS256 tokens issued by the storefront backend.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator creates a validator sharing the backend's signing secret.
func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

// Validate parses and verifies a token, returning the identity it carries.
// The user ID comes from the user_id claim, falling back to the standard
// subject.
func (v *JWTValidator) Validate(token string) (*middleware.Claims, error) {
	var claims tokenClaims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, errMissingSubject
	}

	return &middleware.Claims{UserID: userID, Role: claims.Role}, nil
}
