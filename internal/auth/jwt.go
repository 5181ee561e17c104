// Package auth gates the wishlist behind a single access code.
//
// AUTHENTICATION FLOW:
// 1. User opens /login and submits the access code
// 2. Server verifies it against the configured code (or its bcrypt hash)
// 3. Server issues a JWT session token in an HttpOnly cookie
// 4. Middleware validates the cookie on every protected request
//
// There are no user accounts. The app has one owner, so the token's subject
// is always "owner" — the JWT exists to avoid re-prompting for the code on
// every request and to give the session an expiry.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is how long a login lasts before the access code is asked for
// again.
const SessionTTL = 7 * 24 * time.Hour

const issuer = "wishlist"

// Subject is the fixed JWT subject for the single owner session.
const Subject = "owner"

// TokenService signs and verifies session tokens.
//
// HS256 is symmetric: the same secret signs and verifies. Fine for a
// single-server deployment; keep the secret out of version control.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be random data, e.g. JWT_SECRET=$(openssl rand -hex 32).
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds jwt.RegisteredClaims; no custom fields are needed since the
// session carries no identity beyond "the owner logged in".
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates a signed session token valid for SessionTTL.
func (s *TokenService) Generate() (string, error) {
	return s.GenerateWithDuration(SessionTTL)
}

// GenerateWithDuration creates a token with a custom expiry. Tests use this
// to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token.
//
// The jwt library checks the signature, the expiry, and the issuer.
// Restricting the algorithm to HS256 blocks algorithm-confusion attacks
// where an attacker submits a token claiming a different signing method.
func (s *TokenService) Validate(tokenStr string) error {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("auth: token expired")
		}
		return fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject != Subject {
		return fmt.Errorf("auth: unexpected token subject")
	}

	return nil
}
