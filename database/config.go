package database

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultDriver = DriverSQLite
	DefaultDSN    = "faultline.db"
	DefaultTable  = "faultline_kv"
)

// Config is the SQL storage backend.
type Config struct {
	// Driver is a name passed to RegisterDriver; sqlite is built in.
	Driver string `yaml:"driver" mapstructure:"driver"`
	// DSN is driver specific. For SQLite it is a file path.
	DSN string `yaml:"dsn" mapstructure:"dsn"`
	// Table is created on open when missing.
	Table string `yaml:"table" mapstructure:"table"`

	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`

	// MaxRetries bounds connection attempts when the server is unreachable.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// Queries slower than SlowQuery are logged at warn.
	SlowQuery time.Duration `yaml:"slow_query" mapstructure:"slow_query"`
	// LogLevel is the gorm level: silent, error, warn or info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// ApplyDefaults fills unset fields. SQLite allows one writer, so its pool
// is a single connection.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DefaultDriver
	}
	sqlite := c.Driver == DriverSQLite
	if c.DSN == "" && sqlite {
		c.DSN = DefaultDSN
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
		if sqlite {
			c.MaxOpenConns = 1
		}
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = min(5, c.MaxOpenConns)
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.SlowQuery == 0 {
		c.SlowQuery = 200 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("database: "+format, args...))
	}

	if _, ok := lookupDriver(c.Driver); !ok {
		fail("unknown driver %q", c.Driver)
	}
	if c.DSN == "" {
		fail("dsn is required")
	}
	if c.Table == "" {
		fail("table is required")
	}
	switch {
	case c.MaxOpenConns <= 0 || c.MaxIdleConns <= 0:
		fail("max_open_conns and max_idle_conns must be positive")
	case c.MaxIdleConns > c.MaxOpenConns:
		fail("max_idle_conns (%d) exceeds max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	if c.ConnMaxLifetime < 0 || c.ConnMaxIdleTime < 0 || c.SlowQuery < 0 {
		fail("conn_max_lifetime, conn_max_idle_time and slow_query must not be negative")
	}
	if c.MaxRetries <= 0 {
		fail("max_retries must be positive")
	}
	if _, ok := gormLevels[c.LogLevel]; !ok {
		fail("invalid log_level %q", c.LogLevel)
	}
	return errors.Join(errs...)
}
