// Package services contains the identity logic the realtime core trusts:
// issuing and validating tokens, registering users and checking passwords.
package services

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jamoveo/backend/internal/models"
)

// Claims represents the JWT payload for authenticated requests.
// The role is what the transports consult before a selection reaches the hub.
type Claims struct {
	UserID     int64       `json:"uid"`
	Username   string      `json:"username"`
	Role       models.Role `json:"role"`
	Instrument string      `json:"instrument,omitempty"`
	jwt.RegisteredClaims
}

// IsSinger reports whether the user performs vocals.
func (c *Claims) IsSinger() bool {
	return c != nil && models.IsSinger(c.Instrument)
}

// AuthService handles JWT token generation and validation.
type AuthService struct {
	secret        []byte
	tokenDuration time.Duration
}

// NewAuthService creates an AuthService with the given signing secret and token lifetime.
func NewAuthService(secret string, tokenDuration time.Duration) *AuthService {
	return &AuthService{
		secret:        []byte(secret),
		tokenDuration: tokenDuration,
	}
}

// GenerateToken creates a signed JWT for the given user.
func (s *AuthService) GenerateToken(userID int64, username string, role models.Role, instrument string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:     userID,
		Username:   username,
		Role:       role,
		Instrument: instrument,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "jamoveo",
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken verifies the JWT signature and expiry, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
