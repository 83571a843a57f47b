package logstore

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultMaxEntries     = 1000
	DefaultPersistEntries = 100
	DefaultStorageKey     = "error_logs"
	DefaultBurstWindow    = 5 * time.Minute
	DefaultBurstThreshold = 3
	DefaultRecentWindow   = 24 * time.Hour
	DefaultRecentLimit    = 10
	DefaultTopLimit       = 10
	DefaultInflightLimit  = 8
)

// DefaultCriticalPatterns are the message fragments that make an error
// eligible for burst detection. Matching is case-insensitive.
var DefaultCriticalPatterns = []string{
	"network error",
	"failed to fetch",
	"server error",
	"unauthorized",
	"permission denied",
}

// Config holds log store configuration.
type Config struct {
	// MaxEntries bounds the in-memory log; the oldest entries are evicted first.
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries" validate:"gte=0"`

	// PersistEntries is how many of the most recent entries are persisted.
	PersistEntries int `yaml:"persist_entries" mapstructure:"persist_entries" validate:"gte=0"`

	// StorageKey is the key the persisted snapshot lives under.
	StorageKey string `yaml:"storage_key" mapstructure:"storage_key"`

	// BurstWindow is the trailing window counted by the burst detector.
	BurstWindow time.Duration `yaml:"burst_window" mapstructure:"burst_window"`

	// BurstThreshold is the count at which a critical pattern alert fires.
	BurstThreshold int `yaml:"burst_threshold" mapstructure:"burst_threshold" validate:"gte=0"`

	// BurstCooldown suppresses repeat alerts for the same component and
	// message. Zero means BurstWindow; a negative value alerts on every
	// qualifying entry.
	BurstCooldown time.Duration `yaml:"burst_cooldown" mapstructure:"burst_cooldown"`

	// CriticalPatterns overrides DefaultCriticalPatterns when non-empty.
	CriticalPatterns []string `yaml:"critical_patterns" mapstructure:"critical_patterns"`

	// RecentWindow and RecentLimit bound Metrics.RecentErrors.
	RecentWindow time.Duration `yaml:"recent_window" mapstructure:"recent_window"`
	RecentLimit  int           `yaml:"recent_limit" mapstructure:"recent_limit" validate:"gte=0"`

	// TopLimit bounds Metrics.TopErrors.
	TopLimit int `yaml:"top_limit" mapstructure:"top_limit" validate:"gte=0"`

	// ReportErrors hands every error-level entry to the configured Reporter.
	ReportErrors bool `yaml:"report_errors" mapstructure:"report_errors"`

	// MaxInflightReports bounds concurrent Reporter calls. Entries logged
	// while the limit is reached are not reported.
	MaxInflightReports int `yaml:"max_inflight_reports" mapstructure:"max_inflight_reports" validate:"gte=0"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.PersistEntries <= 0 {
		c.PersistEntries = DefaultPersistEntries
	}
	if c.PersistEntries > c.MaxEntries {
		c.PersistEntries = c.MaxEntries
	}
	if c.StorageKey == "" {
		c.StorageKey = DefaultStorageKey
	}
	if c.BurstWindow <= 0 {
		c.BurstWindow = DefaultBurstWindow
	}
	if c.BurstThreshold <= 0 {
		c.BurstThreshold = DefaultBurstThreshold
	}
	if c.BurstCooldown == 0 {
		c.BurstCooldown = c.BurstWindow
	}
	if len(c.CriticalPatterns) == 0 {
		c.CriticalPatterns = DefaultCriticalPatterns
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = DefaultRecentWindow
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = DefaultRecentLimit
	}
	if c.TopLimit <= 0 {
		c.TopLimit = DefaultTopLimit
	}
	if c.MaxInflightReports <= 0 {
		c.MaxInflightReports = DefaultInflightLimit
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.MaxEntries <= 0 {
		return fmt.Errorf("logstore: max_entries must be > 0")
	}
	if c.PersistEntries > c.MaxEntries {
		return fmt.Errorf("logstore: persist_entries (%d) exceeds max_entries (%d)", c.PersistEntries, c.MaxEntries)
	}
	if c.StorageKey == "" {
		return fmt.Errorf("logstore: storage_key is required")
	}
	return nil
}
