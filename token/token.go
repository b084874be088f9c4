package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when a token is not three non-empty dot-separated
	// segments or its header/claims segments cannot be decoded.
	ErrMalformed = errors.New("malformed session token")
	// ErrMissingExpiry is returned when the claims segment carries no exp claim.
	ErrMissingExpiry = errors.New("session token has no exp claim")
)

// Claims is the decoded payload segment of a session token.
type Claims struct {
	Role  string `json:"role,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ExpiresAtTime returns the exp claim as a time; zero when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Expired reports whether exp lies strictly before now minus leeway.
func (c *Claims) Expired(now time.Time, leeway time.Duration) bool {
	if c == nil || c.ExpiresAt == nil {
		return true
	}
	return c.ExpiresAt.Time.Before(now.Add(-leeway))
}

var parser = jwt.NewParser()

// Parse checks the token structure and decodes its claims without verifying the
// signature.
func Parse(raw string) (*Claims, error) {
	if !wellFormed(raw) {
		return nil, ErrMalformed
	}

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	if claims.ExpiresAt == nil {
		return nil, ErrMissingExpiry
	}

	return claims, nil
}

// IsExpired parses raw and reports whether it is expired at now. Tokens that cannot
// be parsed are reported as expired.
func IsExpired(raw string, now time.Time, leeway time.Duration) bool {
	claims, err := Parse(raw)
	if err != nil {
		return true
	}
	return claims.Expired(now, leeway)
}

func wellFormed(raw string) bool {
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return false
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
	}
	return true
}
