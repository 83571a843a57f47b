package password

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// RandomKey returns n random bytes as lowercase hex, so the result is 2n
// characters long.
func RandomKey(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("password: key length must be positive, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("password: read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Fingerprint is the hex SHA-256 of s. It identifies a secret in caches and
// logs; it does not protect it.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
