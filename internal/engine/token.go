package engine

import (
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry returns the expiration time of a JWT auth token. The signature is not
// verified, only the primary can do that. ok is false for tokens that are not JWTs or
// carry no expiration.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	token = strings.TrimPrefix(token, "Bearer ")
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	nd, err := claims.GetExpirationTime()
	if err != nil || nd == nil {
		return time.Time{}, false
	}
	return nd.Time, true
}

// checkAuthToken warns about an expired token before it is sent to the primary.
func checkAuthToken(token string) {
	if token == "" {
		return
	}
	exp, ok := TokenExpiry(token)
	if !ok {
		log.Printf("[DEBUG] auth token has no readable expiration")
		return
	}
	if exp.Before(time.Now()) {
		log.Printf("[WARN] auth token expired at %s, the primary will likely refuse it", exp.Format(time.RFC3339))
	}
}
