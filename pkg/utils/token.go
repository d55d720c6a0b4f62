package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateURLToken returns a URL-safe random token from n random bytes.
// RawURLEncoding keeps it free of '=', '+' and '/'.
func GenerateURLToken(n int) (string, error) {
	if n <= 0 {
		n = 24
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
