package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/wordshelf/internal/model"
)

// DefaultAccessTTL is assumed when neither the response nor the token carries an expiry.
const DefaultAccessTTL = 15 * time.Minute

// ExpiryFromJWT reads the exp claim without verifying the signature.
// The client never holds the signing key; the API verifies tokens.
func ExpiryFromJWT(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Complete fills missing expiry fields from the tokens' claims, falling back to DefaultAccessTTL.
func Complete(s model.Session, now time.Time) model.Session {
	if s.AccessTokenExpiresAt == 0 {
		if exp, ok := ExpiryFromJWT(s.AccessToken); ok {
			s.AccessTokenExpiresAt = exp.Unix()
		} else {
			s.AccessTokenExpiresAt = now.Add(DefaultAccessTTL).Unix()
		}
	}
	if s.RefreshTokenExpiresAt == 0 && s.RefreshToken != "" {
		if exp, ok := ExpiryFromJWT(s.RefreshToken); ok {
			s.RefreshTokenExpiresAt = exp.Unix()
		}
	}
	return s
}
