package redis

import (
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/faultline/security"
)

// Config holds Redis connection configuration. Either URL or Addr names
// the server; URL wins and may carry the password and database.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// URL is a redis:// or rediss:// connection string.
	URL string `yaml:"url" mapstructure:"url"`

	Addr     string `yaml:"addr" mapstructure:"addr"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`

	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	PoolTimeout  time.Duration `yaml:"pool_timeout" mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxConnAge   time.Duration `yaml:"max_conn_age" mapstructure:"max_conn_age"`

	MaxRetries      int           `yaml:"max_retries" mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `yaml:"min_retry_backoff" mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `yaml:"max_retry_backoff" mapstructure:"max_retry_backoff"`

	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`

	// TLS enables TLS to the server, e.g. managed Redis. A rediss:// URL
	// enables it too.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills zero-valued fields. Durations follow the go-redis
// defaults, shortened where the error log would otherwise stall a request.
func (c *Config) ApplyDefaults() {
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MinRetryBackoff == 0 {
		c.MinRetryBackoff = 8 * time.Millisecond
	}
	if c.MaxRetryBackoff == 0 {
		c.MaxRetryBackoff = 512 * time.Millisecond
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// Validate checks an enabled configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" && c.Addr == "" {
		return errors.New("redis: url or addr is required")
	}
	if c.URL != "" {
		if _, err := goredis.ParseURL(c.URL); err != nil {
			return fmt.Errorf("redis: invalid url: %w", err)
		}
	}
	if c.PoolSize <= 0 {
		return errors.New("redis: pool_size must be > 0")
	}
	if c.MinRetryBackoff > c.MaxRetryBackoff {
		return fmt.Errorf("redis: min_retry_backoff %s exceeds max_retry_backoff %s", c.MinRetryBackoff, c.MaxRetryBackoff)
	}
	for name, d := range map[string]time.Duration{
		"dial_timeout":  c.DialTimeout,
		"read_timeout":  c.ReadTimeout,
		"write_timeout": c.WriteTimeout,
		"pool_timeout":  c.PoolTimeout,
		"idle_timeout":  c.IdleTimeout,
		"max_conn_age":  c.MaxConnAge,
	} {
		if d < 0 {
			return fmt.Errorf("redis: %s must not be negative", name)
		}
	}
	return c.TLS.Validate()
}

// Endpoint names the server for logs, without credentials.
func (c *Config) Endpoint() string {
	if c.URL != "" {
		if o, err := goredis.ParseURL(c.URL); err == nil {
			return fmt.Sprintf("%s db=%d", o.Addr, o.DB)
		}
	}
	return fmt.Sprintf("%s db=%d", c.Addr, c.DB)
}

// options translates c into go-redis options.
func (c *Config) options() (*goredis.Options, error) {
	opts := &goredis.Options{
		Addr:     c.Addr,
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
	}
	if c.URL != "" {
		parsed, err := goredis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: invalid url: %w", err)
		}
		opts = parsed
	}

	opts.PoolSize = c.PoolSize
	opts.MinIdleConns = c.MinIdleConns
	opts.PoolTimeout = c.PoolTimeout
	opts.ConnMaxIdleTime = c.IdleTimeout
	opts.ConnMaxLifetime = c.MaxConnAge
	opts.MaxRetries = c.MaxRetries
	opts.MinRetryBackoff = c.MinRetryBackoff
	opts.MaxRetryBackoff = c.MaxRetryBackoff
	opts.DialTimeout = c.DialTimeout
	opts.ReadTimeout = c.ReadTimeout
	opts.WriteTimeout = c.WriteTimeout

	tlsCfg, err := c.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("redis tls: %w", err)
	}
	if tlsCfg != nil {
		opts.TLSConfig = tlsCfg
	}
	return opts, nil
}
