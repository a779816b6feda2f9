// utils/access_token.go
package utils

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
)

// NewAccessToken wraps a raw access token string as an *oauth2.Token.
//
// FamilySearch session tokens are usually opaque; for those the returned token
// has no expiry and is considered valid until the server rejects it. When the
// string is a JWT, its exp claim becomes the token's Expiry. The signature is
// not verified: the client only needs to know when to stop sending it.
func NewAccessToken(raw string) *oauth2.Token {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "Bearer ")
	tok := &oauth2.Token{
		AccessToken: raw,
		TokenType:   "Bearer",
	}
	if exp, ok := ExpiryFromJWT(raw); ok {
		tok.Expiry = exp
	}
	return tok
}

// ExpiryFromJWT returns the exp claim of an unverified JWT.
func ExpiryFromJWT(raw string) (time.Time, bool) {
	if strings.Count(raw, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsExpired reports whether tok has a known expiry that has passed, allowing
// for skew.
func IsExpired(tok *oauth2.Token, now time.Time, skew time.Duration) bool {
	if tok == nil || tok.Expiry.IsZero() {
		return false
	}
	return !now.Add(skew).Before(tok.Expiry)
}
