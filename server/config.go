package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/faultline/server/middleware"
)

const defaultMaxBodySize = 1 << 20

// Config is the HTTP listener and its request limits.
type Config struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host" mapstructure:"host"`
	Port    int    `yaml:"port" mapstructure:"port"`

	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`

	// MaxBodySize accepts a plain byte count or a KB/MB/GB suffix.
	MaxBodySize string `yaml:"max_body_size" mapstructure:"max_body_size"`

	CORS middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`

	// Per client IP token bucket for POST /errors.
	IngestRate  float64 `yaml:"ingest_rate" mapstructure:"ingest_rate"`
	IngestBurst int     `yaml:"ingest_burst" mapstructure:"ingest_burst"`
}

func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	for _, d := range []struct {
		field *time.Duration
		def   time.Duration
	}{
		{&c.ReadTimeout, 15 * time.Second},
		{&c.WriteTimeout, 15 * time.Second},
		{&c.IdleTimeout, time.Minute},
	} {
		if *d.field == 0 {
			*d.field = d.def
		}
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	if c.IngestRate <= 0 {
		c.IngestRate = 5
	}
	if c.IngestBurst <= 0 {
		c.IngestBurst = 20
	}
	c.applyCORSDefaults()
}

func (c *Config) applyCORSDefaults() {
	cors := &c.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{
			"Origin", "Accept", "Content-Type", "Authorization",
			middleware.APIKeyHeader, middleware.RequestIDHeader,
		}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = 10 * time.Minute
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Port))
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}
	if _, err := parseSize(c.MaxBodySize); err != nil {
		errs = append(errs, fmt.Errorf("server.max_body_size: %w", err))
	}
	return errors.Join(errs...)
}

// Addr is host:port for net.Listen.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

var sizeUnits = []struct {
	suffix string
	shift  uint
}{{"GB", 30}, {"MB", 20}, {"KB", 10}, {"B", 0}}

// parseSize reads "512", "64KB", "10mb" or "1GB". Empty is the default
// body limit.
func parseSize(raw string) (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return defaultMaxBodySize, nil
	}
	var shift uint
	for _, u := range sizeUnits {
		if num, ok := strings.CutSuffix(s, u.suffix); ok {
			s, shift = strings.TrimSpace(num), u.shift
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", raw)
	}
	return n << shift, nil
}
