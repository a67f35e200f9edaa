package auth

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/task-portal/internal/domain"
)

// CredentialExpiry reads the exp claim of a bearer credential without
// verifying its signature; the portal does not hold the backend's key.
// ok is false for opaque credentials and JWTs without exp.
func CredentialExpiry(cred domain.Credential) (time.Time, bool) {
	if cred == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(string(cred), claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// CredentialExpired reports whether cred is a JWT that expired before now.
func CredentialExpired(cred domain.Credential, now time.Time) bool {
	exp, ok := CredentialExpiry(cred)
	return ok && !now.Before(exp)
}
