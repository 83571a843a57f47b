package notify

import (
	"fmt"
	"time"

	"github.com/kbukum/faultline/validation"
)

// Default toast durations.
const (
	DefaultDuration         = 5 * time.Second
	DefaultCriticalDuration = 10 * time.Second
)

// Config holds notification bridge configuration.
type Config struct {
	// SupportEmail pre-fills the contact support action.
	SupportEmail string `yaml:"support_email" mapstructure:"support_email" validate:"omitempty,email"`

	// LoginURL is the target of the login action.
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`

	// Duration is how long regular toasts stay visible.
	Duration time.Duration `yaml:"duration" mapstructure:"duration"`

	// CriticalDuration is how long critical pattern alerts stay visible.
	CriticalDuration time.Duration `yaml:"critical_duration" mapstructure:"critical_duration"`

	// StreamPattern selects the SSE clients toasts are broadcast to.
	StreamPattern string `yaml:"stream_pattern" mapstructure:"stream_pattern"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.SupportEmail == "" {
		c.SupportEmail = "support@example.com"
	}
	if c.LoginURL == "" {
		c.LoginURL = "/login"
	}
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	if c.CriticalDuration <= 0 {
		c.CriticalDuration = DefaultCriticalDuration
	}
	if c.StreamPattern == "" {
		c.StreamPattern = "*"
	}
}

// Validate checks the support address and the durations.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.CriticalDuration < c.Duration {
		return fmt.Errorf("notify: critical_duration (%s) is shorter than duration (%s)", c.CriticalDuration, c.Duration)
	}
	return nil
}
