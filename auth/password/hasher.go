// Package password hashes and verifies secrets with bcrypt. faultline uses
// it for API keys: configuration holds only the hashes.
//
//	hasher := password.NewBcryptHasher()
//	hash, err := hasher.Hash(key)
//	err = hasher.Verify(key, hash)
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Length limits enforced by Hash. bcrypt ignores input past 72 bytes.
const (
	MinLength = 8
	MaxLength = 72
)

// ErrMismatch is returned by Verify when the secret does not match.
var ErrMismatch = errors.New("password: secret does not match")

// Hasher defines the interface for hashing and verification.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) error
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// BcryptOption configures the bcrypt hasher.
type BcryptOption func(*BcryptHasher)

// WithCost sets the bcrypt cost parameter (default: 12, range: 4-31).
// Out-of-range values are ignored.
func WithCost(cost int) BcryptOption {
	return func(h *BcryptHasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// NewBcryptHasher creates a bcrypt-based hasher.
func NewBcryptHasher(opts ...BcryptOption) *BcryptHasher {
	h := &BcryptHasher{cost: 12}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash returns the bcrypt hash of secret.
func (h *BcryptHasher) Hash(secret string) (string, error) {
	if len(secret) < MinLength {
		return "", fmt.Errorf("password: minimum length is %d characters", MinLength)
	}
	if len(secret) > MaxLength {
		return "", fmt.Errorf("password: maximum length is %d characters (bcrypt limit)", MaxLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(hash), nil
}

// Verify returns nil when secret matches hash and ErrMismatch when it does not.
// A malformed hash is reported as its own error.
func (h *BcryptHasher) Verify(secret, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return fmt.Errorf("password: verify: %w", err)
	}
}

// Cost returns the cost recorded in hash.
func Cost(hash string) (int, error) {
	return bcrypt.Cost([]byte(hash))
}
