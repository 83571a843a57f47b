package auth

import (
	"fmt"
	"strings"

	"github.com/kbukum/faultline/auth/jwt"
	"github.com/kbukum/faultline/auth/password"
)

// Config holds API authentication configuration.
type Config struct {
	// Enabled requires a credential on every /api/v1 route.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// JWT verifies bearer tokens. Unused when no key material is set.
	JWT jwt.Config `yaml:"jwt" mapstructure:"jwt"`

	// APIKeyHashes are bcrypt hashes of the accepted API keys.
	APIKeyHashes []string `yaml:"api_key_hashes" mapstructure:"api_key_hashes"`

	// BcryptCost is used when generating new API key hashes (default: 12).
	BcryptCost int `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// ApplyDefaults sets sensible defaults.
func (c *Config) ApplyDefaults() {
	c.JWT.ApplyDefaults()
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
}

// Validate requires at least one credential source when enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if !c.JWT.IsConfigured() && len(c.APIKeyHashes) == 0 {
		return fmt.Errorf("auth: enabled without jwt keys or api_key_hashes")
	}
	if c.JWT.IsConfigured() {
		if err := c.JWT.Validate(); err != nil {
			return err
		}
	}
	for i, h := range c.APIKeyHashes {
		if _, err := password.Cost(h); err != nil {
			return fmt.Errorf("auth: api_key_hashes[%d] is not a bcrypt hash", i)
		}
	}
	return nil
}

// Describe returns a one-liner for the startup summary, e.g.
// "jwt(HS256) api_keys=2".
func (c *Config) Describe() string {
	if !c.Enabled {
		return "disabled"
	}
	var parts []string
	if c.JWT.IsConfigured() {
		parts = append(parts, fmt.Sprintf("jwt(%s)", c.JWT.Method))
	}
	if n := len(c.APIKeyHashes); n > 0 {
		parts = append(parts, fmt.Sprintf("api_keys=%d", n))
	}
	return strings.Join(parts, " ")
}
