// Package auth issues and verifies bearer tokens and hashes operator passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fleetwatch-io/fleetwatch/internal/pkg/util"
)

// Claims is the payload of a fleetwatch bearer token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens.
type TokenManager struct {
	secret []byte
	issuer string
	expiry time.Duration

	now func() time.Time
}

// NewTokenManager creates a TokenManager. expiry is the lifetime of issued tokens.
func NewTokenManager(secret, issuer string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue returns a signed token for subject carrying role.
func (m *TokenManager) Issue(subject, role string) (string, error) {
	now := m.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify parses token and returns its claims. Every failure wraps util.ErrUnauthorized.
func (m *TokenManager) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, util.Unauthorizedf("missing token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, util.Unauthorizedf("token expired")
		}
		return nil, util.Unauthorizedf("invalid token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, util.Unauthorizedf("invalid token")
	}

	return claims, nil
}
