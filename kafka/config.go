package kafka

import (
	"fmt"
	"time"

	"github.com/kbukum/faultline/security"
)

// DefaultTopic receives error events when no topic is configured.
const DefaultTopic = "faultline.errors"

// SASL mechanisms.
const (
	MechanismPlain       = "PLAIN"
	MechanismSCRAMSHA256 = "SCRAM-SHA-256"
	MechanismSCRAMSHA512 = "SCRAM-SHA-512"
)

// SASLConfig authenticates the publisher to the brokers.
type SASLConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Mechanism string `yaml:"mechanism" mapstructure:"mechanism"`
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password" mapstructure:"password"`
}

// Config is the events section: where error entries are published and how
// the writer batches them.
type Config struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
	// MinLevel is the lowest entry level published: info, warning or error.
	MinLevel string `yaml:"min_level" mapstructure:"min_level"`

	EnableTLS bool               `yaml:"enable_tls" mapstructure:"enable_tls"`
	TLS       security.TLSConfig `yaml:"tls" mapstructure:"tls"`
	SASL      SASLConfig         `yaml:"sasl" mapstructure:"sasl"`

	Compression  string        `yaml:"compression" mapstructure:"compression"` // none, gzip, snappy, lz4, zstd
	BatchSize    int           `yaml:"batch_size" mapstructure:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout" mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	// RequiredAcks is -1 (all in-sync replicas), 0 or 1.
	RequiredAcks int `yaml:"required_acks" mapstructure:"required_acks"`

	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MetadataTTL time.Duration `yaml:"metadata_ttl" mapstructure:"metadata_ttl"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.MinLevel == "" {
		c.MinLevel = "warning"
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	setDuration(&c.BatchTimeout, time.Second)
	setDuration(&c.WriteTimeout, 10*time.Second)
	setDuration(&c.DialTimeout, 10*time.Second)
	setDuration(&c.IdleTimeout, 30*time.Second)
	setDuration(&c.MetadataTTL, 6*time.Second)
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}
	if c.SASL.Enabled && c.SASL.Mechanism == "" {
		c.SASL.Mechanism = MechanismPlain
	}
}

func setDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

// Validate is a no-op while publishing is disabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case len(c.Brokers) == 0:
		return fmt.Errorf("kafka: brokers are required")
	case c.Topic == "":
		return fmt.Errorf("kafka: topic is required")
	case c.BatchSize <= 0:
		return fmt.Errorf("kafka: batch_size must be > 0")
	case c.RequiredAcks < -1 || c.RequiredAcks > 1:
		return fmt.Errorf("kafka: required_acks must be -1, 0 or 1")
	}
	if _, ok := levelRank[c.MinLevel]; !ok {
		return fmt.Errorf("kafka: invalid min_level %q", c.MinLevel)
	}
	if _, ok := compressionCodecs[c.Compression]; !ok {
		return fmt.Errorf("kafka: unsupported compression %q", c.Compression)
	}
	for name, d := range map[string]time.Duration{
		"batch_timeout": c.BatchTimeout,
		"write_timeout": c.WriteTimeout,
		"dial_timeout":  c.DialTimeout,
		"idle_timeout":  c.IdleTimeout,
		"metadata_ttl":  c.MetadataTTL,
	} {
		if d < 0 {
			return fmt.Errorf("kafka: %s must not be negative", name)
		}
	}
	if c.SASL.Enabled {
		switch c.SASL.Mechanism {
		case MechanismPlain, MechanismSCRAMSHA256, MechanismSCRAMSHA512:
		default:
			return fmt.Errorf("kafka: unsupported SASL mechanism %q", c.SASL.Mechanism)
		}
		if c.SASL.Username == "" {
			return fmt.Errorf("kafka: SASL username is required")
		}
	}
	return c.TLS.Validate()
}
