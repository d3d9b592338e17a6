package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

// RandomToken returns a URL-safe random string built from n random bytes.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TokensEqual compares two opaque tokens for exact equality in constant time.
func TokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
