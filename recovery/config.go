package recovery

import (
	"fmt"
	"time"

	"github.com/kbukum/faultline/auth"
	"github.com/kbukum/faultline/config"
	"github.com/kbukum/faultline/database"
	"github.com/kbukum/faultline/kafka"
	"github.com/kbukum/faultline/logstore"
	"github.com/kbukum/faultline/notify"
	"github.com/kbukum/faultline/observability"
	"github.com/kbukum/faultline/redis"
	"github.com/kbukum/faultline/report"
	"github.com/kbukum/faultline/resilience"
	"github.com/kbukum/faultline/server"
	"github.com/kbukum/faultline/storage"
	"github.com/kbukum/faultline/storage/local"
	"github.com/kbukum/faultline/storage/s3"
)

// DefaultShutdownTimeout bounds Run's graceful stop.
const DefaultShutdownTimeout = 15 * time.Second

// StorageConfig selects the backend the error log persists to.
type StorageConfig struct {
	storage.Config `yaml:",inline" mapstructure:",squash"`
	Local          local.Config    `yaml:"local" mapstructure:"local"`
	S3             s3.Config       `yaml:"s3" mapstructure:"s3"`
	SQL            database.Config `yaml:"sql" mapstructure:"sql"`
}

// providerConfig returns the provider-specific config storage.New expects.
func (c *StorageConfig) providerConfig(rc *redis.Config) any {
	switch c.Provider {
	case storage.ProviderLocal:
		return &c.Local
	case storage.ProviderS3:
		return &c.S3
	case storage.ProviderRedis:
		return rc
	case storage.ProviderSQL:
		return &c.SQL
	default:
		return nil
	}
}

// TracingConfig enables OTLP trace export.
type TracingConfig struct {
	Enabled                    bool `yaml:"enabled" mapstructure:"enabled"`
	observability.TracerConfig `yaml:",inline" mapstructure:",squash"`
}

// MetricsConfig enables OTLP metric export.
type MetricsConfig struct {
	Enabled                   bool `yaml:"enabled" mapstructure:"enabled"`
	observability.MeterConfig `yaml:",inline" mapstructure:",squash"`
}

// Config is the complete faultline configuration, as read from config.yml.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Storage StorageConfig        `yaml:"storage" mapstructure:"storage"`
	Redis   redis.Config         `yaml:"redis" mapstructure:"redis"`
	Store   logstore.Config      `yaml:"store" mapstructure:"store"`
	Retry   resilience.PolicySet `yaml:"retry" mapstructure:"retry"`
	Notify  notify.Config        `yaml:"notify" mapstructure:"notify"`
	Events  kafka.Config         `yaml:"events" mapstructure:"events"`
	Report  report.Config        `yaml:"report" mapstructure:"report"`
	Server  server.Config        `yaml:"server" mapstructure:"server"`
	Auth    auth.Config          `yaml:"auth" mapstructure:"auth"`
	Tracing TracingConfig        `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig        `yaml:"metrics" mapstructure:"metrics"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Storage.ApplyDefaults()
	switch c.Storage.Provider {
	case storage.ProviderLocal:
		c.Storage.Local.ApplyDefaults()
	case storage.ProviderS3:
		c.Storage.S3.ApplyDefaults()
	case storage.ProviderSQL:
		c.Storage.SQL.ApplyDefaults()
	}
	if c.Redis.Enabled || c.Storage.Provider == storage.ProviderRedis {
		c.Redis.ApplyDefaults()
	}
	c.Store.ApplyDefaults()
	c.Retry.ApplyDefaults()
	c.Notify.ApplyDefaults()
	if c.Events.Enabled {
		c.Events.ApplyDefaults()
	}
	c.Report.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Auth.ApplyDefaults()

	if c.Tracing.ServiceName == "" {
		c.Tracing.TracerConfig = observability.DefaultTracerConfig(c.Name)
		c.Tracing.ServiceVersion = c.Version
		c.Tracing.Environment = c.Environment
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.MeterConfig = observability.DefaultMeterConfig(c.Name)
		c.Metrics.ServiceVersion = c.Version
		c.Metrics.Environment = c.Environment
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks every section and stops at the first failure.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	switch c.Storage.Provider {
	case storage.ProviderMemory:
	case storage.ProviderLocal:
		if err := c.Storage.Local.Validate(); err != nil {
			return err
		}
	case storage.ProviderS3:
		if err := c.Storage.S3.Validate(); err != nil {
			return err
		}
	case storage.ProviderSQL:
		if err := c.Storage.SQL.Validate(); err != nil {
			return err
		}
	case storage.ProviderRedis:
		rc := c.Redis
		rc.Enabled = true
		if err := rc.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage: unknown provider %q", c.Storage.Provider)
	}
	if c.Redis.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	}
	checks := []struct {
		section string
		check   func() error
	}{
		{"store", c.Store.Validate},
		{"retry", c.Retry.Validate},
		{"notify", c.Notify.Validate},
		{"events", c.Events.Validate},
		{"report", c.Report.Validate},
		{"server", c.Server.Validate},
		{"auth", c.Auth.Validate},
	}
	for _, ch := range checks {
		if err := ch.check(); err != nil {
			return fmt.Errorf("config.%s: %w", ch.section, err)
		}
	}
	return nil
}
