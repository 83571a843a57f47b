package report

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims identify the reporting session to the collector.
type Claims struct {
	gojwt.RegisteredClaims
	SessionID   string `json:"sid,omitempty"`
	Fingerprint string `json:"fp,omitempty"`
}

type signer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func (s *signer) sign(sessionID, fingerprint string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   sessionID,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(s.ttl)),
		},
		SessionID:   sessionID,
		Fingerprint: fingerprint,
	}
	if s.audience != "" {
		claims.Audience = gojwt.ClaimStrings{s.audience}
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("report: sign token: %w", err)
	}
	return token, nil
}

// ParseToken verifies a report token signed with key. Collectors and tests
// use it; the reporter itself only signs.
func ParseToken(tokenString string, key []byte, opts ...gojwt.ParserOption) (*Claims, error) {
	claims := &Claims{}
	opts = append([]gojwt.ParserOption{gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()})}, opts...)
	_, err := gojwt.ParseWithClaims(tokenString, claims, func(*gojwt.Token) (any, error) {
		return key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("report: parse token: %w", err)
	}
	return claims, nil
}
