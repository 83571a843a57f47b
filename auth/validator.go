package auth

import (
	"sync"

	"github.com/kbukum/faultline/auth/jwt"
	"github.com/kbukum/faultline/auth/password"
	"github.com/kbukum/faultline/authz"
)

// New builds the validator chain described by cfg: JWT first, then API keys.
func New(cfg Config) (TokenValidator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var chain []TokenValidator
	if cfg.JWT.IsConfigured() {
		svc, err := NewTokenService(cfg.JWT)
		if err != nil {
			return nil, err
		}
		chain = append(chain, TokenValidatorFunc(func(token string) (any, error) {
			claims, err := svc.Parse(token)
			if err != nil {
				return nil, err
			}
			return &Principal{
				Subject: claims.Subject,
				Method:  MethodJWT,
				Scopes:  authz.ParseScope(claims.Scope),
			}, nil
		}))
	}
	if len(cfg.APIKeyHashes) > 0 {
		chain = append(chain, NewAPIKeyValidator(cfg.APIKeyHashes))
	}
	return Chain(chain...), nil
}

// NewTokenService returns a JWT service for Claims.
func NewTokenService(cfg jwt.Config) (*jwt.Service[*Claims], error) {
	return jwt.NewService(&cfg, func() *Claims { return &Claims{} })
}

// APIKeyValidator accepts keys whose bcrypt hash is configured. Keys that
// verified once are remembered by SHA-256 digest, so bcrypt runs once per
// key rather than once per request.
type APIKeyValidator struct {
	hashes []string
	hasher password.Hasher

	mu       sync.RWMutex
	verified map[string]*Principal
}

// NewAPIKeyValidator creates a validator for the given bcrypt hashes. API
// keys carry full access.
func NewAPIKeyValidator(hashes []string) *APIKeyValidator {
	return &APIKeyValidator{
		hashes:   hashes,
		hasher:   password.NewBcryptHasher(),
		verified: make(map[string]*Principal),
	}
}

// ValidateToken implements TokenValidator. The principal's subject is a
// short digest of the key, never the key itself.
func (v *APIKeyValidator) ValidateToken(key string) (any, error) {
	if key == "" || len(key) > password.MaxLength {
		return nil, ErrUnauthenticated
	}
	digest := password.Fingerprint(key)

	v.mu.RLock()
	p, ok := v.verified[digest]
	v.mu.RUnlock()
	if ok {
		return p, nil
	}

	for _, h := range v.hashes {
		if v.hasher.Verify(key, h) != nil {
			continue
		}
		p := &Principal{
			Subject: "key:" + digest[:12],
			Method:  MethodAPIKey,
			Scopes:  []string{authz.FullAccess},
		}
		v.mu.Lock()
		v.verified[digest] = p
		v.mu.Unlock()
		return p, nil
	}
	return nil, ErrUnauthenticated
}
