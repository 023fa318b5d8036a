package authclient_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authclient "github.com/goliatone/go-auth-client"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	return token
}

func TestDecodeToken(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := mintToken(t, "user-123", expiry)

	claims, err := authclient.DecodeToken(raw)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, expiry, *claims.ExpiresAt, time.Second)
}

func TestDecodeTokenIgnoresSignature(t *testing.T) {
	// the client never holds the signing key; a token signed with a
	// different key still decodes
	claims := jwt.RegisteredClaims{
		Subject:   "user-456",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("some-other-key"))
	require.NoError(t, err)

	decoded, err := authclient.DecodeToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-456", decoded.Subject)
}

func TestDecodeTokenMalformed(t *testing.T) {
	cases := []string{
		"",
		"garbage",
		"a.b",
		"not.a.token",
	}

	for _, raw := range cases {
		_, err := authclient.DecodeToken(raw)
		require.Error(t, err, "token %q should not decode", raw)

		var rich *goerrors.Error
		require.ErrorAs(t, err, &rich)
		assert.Equal(t, authclient.ErrTokenMalformed.TextCode, rich.TextCode)
	}
}

func TestTokenClaimsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name    string
		claims  *authclient.TokenClaims
		expired bool
	}{
		{"future expiry", &authclient.TokenClaims{ExpiresAt: &future}, false},
		{"past expiry", &authclient.TokenClaims{ExpiresAt: &past}, true},
		{"expiry equals now", &authclient.TokenClaims{ExpiresAt: &now}, true},
		{"no expiry claim", &authclient.TokenClaims{}, true},
		{"nil claims", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tt.claims.Expired(now))
		})
	}
}
