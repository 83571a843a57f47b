package auth

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/faultline/authz"
)

// ErrUnauthenticated is returned when no validator accepts a credential.
var ErrUnauthenticated = errors.New("auth: invalid credentials")

// Credential methods recorded on a Principal.
const (
	MethodJWT    = "jwt"
	MethodAPIKey = "api_key"
)

// TokenValidator validates a credential and returns the authenticated principal.
type TokenValidator interface {
	ValidateToken(token string) (any, error)
}

// TokenValidatorFunc adapts an ordinary function to the TokenValidator interface.
type TokenValidatorFunc func(token string) (any, error)

// ValidateToken implements TokenValidator.
func (f TokenValidatorFunc) ValidateToken(token string) (any, error) {
	return f(token)
}

// Principal identifies an authenticated caller.
type Principal struct {
	Subject string   `json:"subject"`
	Method  string   `json:"method"`
	Scopes  []string `json:"scopes"`
}

// Can reports whether the principal's scopes grant permission.
func (p *Principal) Can(permission string) bool {
	return p != nil && authz.MatchAny(p.Scopes, permission)
}

// Claims are the JWT claims faultline issues and accepts.
type Claims struct {
	gojwt.RegisteredClaims
	// Scope is a space-delimited list of permission patterns, e.g.
	// "errors:write notifications:read". Empty means full access.
	Scope string `json:"scope,omitempty"`
}

// SetDefaults fills unset time, issuer and audience claims.
func (c *Claims) SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string) {
	if c.IssuedAt == nil {
		c.IssuedAt = gojwt.NewNumericDate(now)
	}
	if c.ExpiresAt == nil && ttl > 0 {
		c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	if c.Issuer == "" {
		c.Issuer = issuer
	}
	if len(c.Audience) == 0 && len(audience) > 0 {
		c.Audience = audience
	}
}

// Chain tries each validator in order and returns the first success.
func Chain(validators ...TokenValidator) TokenValidator {
	return TokenValidatorFunc(func(token string) (any, error) {
		for _, v := range validators {
			if p, err := v.ValidateToken(token); err == nil {
				return p, nil
			}
		}
		return nil, ErrUnauthenticated
	})
}
