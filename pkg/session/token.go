package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired peeks at the exp claim of a stored access token without
// verifying the signature. Advisory only: presence/absence of the token
// remains the authoritative signal, and a token without a readable exp
// claim counts as not expired.
func TokenExpired(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
