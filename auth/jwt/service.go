// Package jwt signs and verifies bearer tokens for any claims type that
// implements golang-jwt's Claims interface.
//
//	svc, err := jwt.NewService(&cfg, func() *auth.Claims { return &auth.Claims{} })
//	token, err := svc.GenerateAccess(&auth.Claims{...}, 0)
//	claims, err := svc.Parse(token)
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ErrNoSigningKey is returned by Generate on a verify-only service.
var ErrNoSigningKey = errors.New("jwt: no signing key configured")

// defaultable claims get iat/exp/iss/aud filled by GenerateAccess.
type defaultable interface {
	SetDefaults(now time.Time, ttl time.Duration, issuer string, audience []string)
}

type Service[T gojwt.Claims] struct {
	cfg    Config
	keys   keys
	parser *gojwt.Parser
	blank  func() T
	now    func() time.Time
}

// NewService applies defaults to cfg, validates it and loads its keys.
// blank returns an empty T for Parse to decode into.
func NewService[T gojwt.Claims](cfg *Config, blank func() T) (*Service[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k, err := cfg.loadKeys()
	if err != nil {
		return nil, err
	}
	s := &Service[T]{cfg: *cfg, keys: k, blank: blank, now: time.Now}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{cfg.signingMethod().Alg()}),
		gojwt.WithTimeFunc(func() time.Time { return s.now() }),
	}
	if cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audience) > 0 {
		opts = append(opts, gojwt.WithAudience(cfg.Audience[0]))
	}
	s.parser = gojwt.NewParser(opts...)
	return s, nil
}

// Generate signs claims unchanged.
func (s *Service[T]) Generate(claims T) (string, error) {
	if s.keys.sign == nil {
		return "", ErrNoSigningKey
	}
	signed, err := gojwt.NewWithClaims(s.cfg.signingMethod(), claims).SignedString(s.keys.sign)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// GenerateAccess stamps unset registered claims before signing. A ttl of
// zero or less means AccessTokenTTL.
func (s *Service[T]) GenerateAccess(claims T, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.cfg.AccessTokenTTL
	}
	if d, ok := any(claims).(defaultable); ok {
		d.SetDefaults(s.now(), ttl, s.cfg.Issuer, s.cfg.Audience)
	}
	return s.Generate(claims)
}

// Parse verifies the signature, expiry and the configured issuer and
// first audience.
func (s *Service[T]) Parse(raw string) (T, error) {
	var zero T
	token, err := s.parser.ParseWithClaims(raw, s.blank(), func(*gojwt.Token) (any, error) {
		return s.keys.verify, nil
	})
	if err != nil {
		return zero, fmt.Errorf("jwt: parse: %w", err)
	}
	claims, ok := token.Claims.(T)
	if !ok || !token.Valid {
		return zero, errors.New("jwt: invalid token")
	}
	return claims, nil
}
