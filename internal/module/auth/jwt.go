package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/cuentia/server/internal/shared/config"
	"github.com/cuentia/server/internal/shared/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the bearer token claims issued by the identity provider.
// The subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// JWTValidator validates HS256 access tokens.
type JWTValidator struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTValidator creates a validator from auth configuration.
func NewJWTValidator(cfg *config.AuthConfig) (*JWTValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	return &JWTValidator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		leeway: 30 * time.Second,
	}, nil
}

// ValidateToken parses the token and returns the caller it identifies.
func (v *JWTValidator) ValidateToken(tokenString string) (*middleware.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return nil, fmt.Errorf("%w: subject %q", ErrInvalidTokenClaims, claims.Subject)
	}

	return &middleware.Principal{UserID: userID, Email: claims.Email}, nil
}

var _ middleware.TokenValidator = (*JWTValidator)(nil)
