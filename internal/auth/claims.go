// Package auth keeps the client's credentials: the token store, JWT expiry
// inspection and the session provider created at application start.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims the client reads from an access token.
// The signature is never checked; the backend is the authority on validity.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ErrNotJWT is returned by ParseClaims for opaque tokens.
var ErrNotJWT = errors.New("token is not a JWT")

// ParseClaims decodes the claims of a JWT without verifying it.
func ParseClaims(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrNotJWT
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// Expiry returns the exp claim of token. ok is false for opaque tokens and
// JWTs without exp.
func Expiry(token string) (exp time.Time, ok bool) {
	claims, err := ParseClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether token carries an exp claim at or before now+leeway.
// Tokens without an expiry never count as expired.
func Expired(token string, now time.Time, leeway time.Duration) bool {
	exp, ok := Expiry(token)
	if !ok {
		return false
	}
	return !now.Add(leeway).Before(exp)
}
