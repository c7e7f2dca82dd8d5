package server

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthenticatorDisabledWithoutSecret(t *testing.T) {
	assert.Nil(t, NewAuthenticator("", "issuer"))
}

func TestVerify(t *testing.T) {
	auth := NewAuthenticator("secret", "")
	valid, err := auth.Issue("client-7", time.Minute)
	require.NoError(t, err)

	expired, err := auth.Issue("client-7", -time.Minute)
	require.NoError(t, err)

	foreign, err := NewAuthenticator("other-secret", "").Issue("client-7", time.Minute)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		subject string
		err     error
	}{
		{"valid", "Bearer " + valid, "client-7", nil},
		{"padded token", "Bearer   " + valid + " ", "client-7", nil},
		{"missing header", "", "", ErrMissingToken},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", ErrMissingToken},
		{"empty token", "Bearer ", "", ErrMissingToken},
		{"expired", "Bearer " + expired, "", ErrExpiredToken},
		{"wrong secret", "Bearer " + foreign, "", ErrInvalidToken},
		{"alg none", "Bearer " + none, "", ErrInvalidToken},
		{"garbage", "Bearer not.a.jwt", "", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := auth.Verify(tt.header)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.subject, sub)
		})
	}
}

func TestVerifyIssuer(t *testing.T) {
	auth := NewAuthenticator("secret", "template")

	token, err := NewAuthenticator("secret", "someone-else").Issue("client", time.Minute)
	require.NoError(t, err)
	_, err = auth.Verify("Bearer " + token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, err = auth.Issue("client", time.Minute)
	require.NoError(t, err)
	sub, err := auth.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "client", sub)
}
