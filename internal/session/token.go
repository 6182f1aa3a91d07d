package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken  = errors.New("no token")
	ErrNoExpiry = errors.New("token has no exp claim")
)

// ExpiresAt reads the exp claim of a JWT without verifying its signature.
// The backend remains the authority on validity; this only tells the client
// whether a call is worth making.
func ExpiresAt(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, ErrNoToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("decode exp: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// IsExpired reports whether token is unusable at now. Anything that cannot
// be decoded counts as expired.
func IsExpired(token string, now time.Time) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return true
	}
	return exp.Before(now)
}
