package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// TokenExpiry extracts the exp claim from a JWT without verifying the
// signature. Elevation tokens are issued and verified upstream; the
// companion only reads the expiry to clamp its own in-memory TTL. The
// second return is false when the token is not a JWT or carries no exp.
func TokenExpiry(tokenString string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// VerifyPassphrase compares the local admin passphrase against its bcrypt
// hash. An empty hash means no local gate is configured.
func VerifyPassphrase(hash, passphrase string) error {
	if hash == "" {
		return nil
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(passphrase))
}

// HashPassphrase produces a bcrypt hash suitable for ADMIN_PASSPHRASE_HASH.
func HashPassphrase(passphrase string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
