package report

import (
	"time"

	"github.com/kbukum/faultline/security"
	"github.com/kbukum/faultline/validation"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultPath        = "/api/v1/client-errors"
	DefaultTimeout     = 10 * time.Second
	DefaultDedupeTTL   = 10 * time.Minute
	DefaultTokenTTL    = 5 * time.Minute
	DefaultIssuer      = "faultline"
	DefaultMaxFailures = 5
	DefaultCooldown    = 30 * time.Second
	DefaultRate        = 5
	DefaultBurst       = 10
)

// Config configures the remote reporter.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Endpoint is the collector base URL.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,url"`
	Path     string `yaml:"path" mapstructure:"path"`

	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// DedupeTTL is how long an identical report is suppressed.
	DedupeTTL time.Duration `yaml:"dedupe_ttl" mapstructure:"dedupe_ttl"`

	// SigningKey enables HS256 bearer tokens.
	SigningKey string        `yaml:"signing_key" mapstructure:"signing_key" json:"-"`
	Issuer     string        `yaml:"issuer" mapstructure:"issuer"`
	Audience   string        `yaml:"audience" mapstructure:"audience"`
	TokenTTL   time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`

	// APIKey is sent in APIKeyHeader on every report. A signing key
	// replaces it with a per-report bearer token.
	APIKey       string `yaml:"api_key" mapstructure:"api_key" json:"-"`
	APIKeyHeader string `yaml:"api_key_header" mapstructure:"api_key_header"`

	// TLS verifies the collector and optionally presents a client certificate.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls" validate:"-"`

	// Circuit breaker and rate limiter guarding the collector.
	MaxFailures int           `yaml:"max_failures" mapstructure:"max_failures" validate:"gte=0"`
	Cooldown    time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
	Rate        float64       `yaml:"rate" mapstructure:"rate" validate:"gte=0"`
	Burst       int           `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DedupeTTL <= 0 {
		c.DedupeTTL = DefaultDedupeTTL
	}
	if c.Issuer == "" {
		c.Issuer = DefaultIssuer
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = DefaultMaxFailures
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.Rate <= 0 {
		c.Rate = DefaultRate
	}
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := validation.New().
		Custom(!c.Enabled || c.Endpoint != "", "endpoint", "is required when reporting is enabled").
		Err(); err != nil {
		return err
	}
	return c.TLS.Validate()
}
