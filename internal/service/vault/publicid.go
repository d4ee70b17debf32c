package vault

import (
	"crypto/rand"
	"fmt"
)

const (
	publicIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	publicIDLength   = 10
	// publicIDAttempts bounds retries on unique collisions
	publicIDAttempts = 5
)

// PublicIDGenerator produces URL-safe public identifiers
type PublicIDGenerator func() (string, error)

// NewPublicID returns 10 characters from the URL-safe alphabet. The alphabet has
// 64 symbols, so masking a random byte to 6 bits keeps the distribution uniform.
func NewPublicID() (string, error) {
	buf := make([]byte, publicIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate public id: %w", err)
	}
	for i, b := range buf {
		buf[i] = publicIDAlphabet[b&63]
	}
	return string(buf), nil
}

// ValidPublicID reports whether s has the shape of a generated public id
func ValidPublicID(s string) bool {
	if len(s) != publicIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
		if !ok {
			return false
		}
	}
	return true
}
