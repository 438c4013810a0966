// Package auth issues and verifies the bearer tokens that authenticate API
// callers. Tokens are HS256 JWTs carrying the username and role.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gekina/medichat/internal/domain"
)

// TokenIssuer signs and verifies access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a token issuer with the given signing secret and
// token lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a token for the principal.
func (t *TokenIssuer) Issue(p domain.Principal) (string, error) {
	now := time.Now()
	c := claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the embedded principal.
// Expired, malformed or foreign-signed tokens all map to ErrUnauthorized.
func (t *TokenIssuer) Verify(token string) (domain.Principal, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Principal{}, fmt.Errorf("token invalid: %w", domain.ErrUnauthorized)
	}
	if c.Subject == "" {
		return domain.Principal{}, fmt.Errorf("token has no subject: %w", domain.ErrUnauthorized)
	}

	return domain.Principal{Username: c.Subject, Role: c.Role}, nil
}

// ErrNoPrincipal is returned by FromContext when a handler runs outside the
// auth middleware.
var ErrNoPrincipal = errors.New("no principal in context")
