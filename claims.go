package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenClaims is the locally decoded view of a bearer token. Only the fields
// needed for the fast-path expiry check are kept.
type TokenClaims struct {
	Subject   string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// DecodeToken parses the claims of a bearer token without verifying its
// signature. The client never holds the signing key, so the result is trusted
// for expiry only; authorization always goes through the remote service.
func DecodeToken(raw string) (*TokenClaims, error) {
	if raw == "" {
		return nil, ErrTokenMalformed
	}

	parser := jwt.NewParser()

	claims := &jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	decoded := &TokenClaims{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		iat := claims.IssuedAt.Time
		decoded.IssuedAt = &iat
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		decoded.ExpiresAt = &exp
	}

	return decoded, nil
}

// Expired reports whether the token's expiry claim is at or before now.
// A token without an expiry claim is treated as expired.
func (c *TokenClaims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return true
	}
	return !c.ExpiresAt.After(now)
}
