package httpclient

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kbukum/faultline/resilience"
	"github.com/kbukum/faultline/security"
)

const defaultTimeout = 30 * time.Second

// Config shapes a Client. The guards (Retry, Breaker, Limiter) are off
// while nil.
type Config struct {
	// BaseURL is joined with relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout bounds one attempt, not the whole retry sequence.
	Timeout time.Duration       `yaml:"timeout" mapstructure:"timeout"`
	Headers map[string]string   `yaml:"headers" mapstructure:"headers"`
	TLS     *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Auth applies to requests that do not bring their own.
	Auth Authorizer `yaml:"-" mapstructure:"-"`

	Retry   *resilience.Policy               `yaml:"retry" mapstructure:"retry"`
	Breaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
	Limiter *resilience.RateLimiterConfig    `yaml:"-" mapstructure:"-"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("httpclient: base_url %q is not an absolute URL", c.BaseURL)
		}
	}
	return c.TLS.Validate()
}
