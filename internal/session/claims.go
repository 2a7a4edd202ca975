package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PeekExpiry reads the advertised expiry of a JWT bearer token without
// verifying it. The token stays opaque to the client: the result is for
// display only and never decides session state. ok is false when the
// token is not a JWT or carries no exp claim.
func PeekExpiry(token string) (expiresAt time.Time, ok bool) {
	if token == "" {
		return time.Time{}, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &jwt.RegisteredClaims{})
	if err != nil {
		return time.Time{}, false
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
