package remote

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a database auth token without checking
// its signature; the server does that. ok is false when the token carries no
// expiry.
func TokenExpiry(token string) (exp time.Time, ok bool, err error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false, fmt.Errorf("parse auth token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}
	return claims.ExpiresAt.Time, true, nil
}

// TokenExpired reports whether the token's exp lies before now. Tokens
// without an expiry never expire.
func TokenExpired(token string, now time.Time) (bool, error) {
	exp, ok, err := TokenExpiry(token)
	if err != nil || !ok {
		return false, err
	}
	return exp.Before(now), nil
}
