package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learn-and-earn/internal/session"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return token
}

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token := signToken(t, jwt.MapClaims{"email": "a@example.com", "exp": exp.Unix()})

	got, err := session.ExpiresAt(token)
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   string
		expired bool
	}{
		{"future exp", signToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), false},
		{"exp equals now", signToken(t, jwt.MapClaims{"exp": now.Unix()}), false},
		{"past exp", signToken(t, jwt.MapClaims{"exp": now.Add(-time.Second).Unix()}), true},
		{"missing exp", signToken(t, jwt.MapClaims{"email": "a@example.com"}), true},
		{"empty token", "", true},
		{"not a jwt", "not.a.jwt", true},
		{"two segments", "abc.def", true},
		{"string exp", signToken(t, jwt.MapClaims{"exp": "tomorrow"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, session.IsExpired(tt.token, now))
		})
	}
}

func TestExpiresAtErrors(t *testing.T) {
	_, err := session.ExpiresAt("")
	assert.ErrorIs(t, err, session.ErrNoToken)

	_, err = session.ExpiresAt(signToken(t, jwt.MapClaims{"sub": "x"}))
	assert.ErrorIs(t, err, session.ErrNoExpiry)
}
