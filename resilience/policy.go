package resilience

import (
	"fmt"
	"math"
	"time"

	"github.com/kbukum/faultline/errors"
)

// Policy configures a single retry invocation.
type Policy struct {
	// MaxRetries is the number of re-invocations after the first attempt.
	// Zero means DefaultMaxRetries; use NoRetries for a single attempt.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	// MaxDelay caps the exponential part of the delay.
	MaxDelay time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	// BackoffFactor is the multiplier between consecutive delays.
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	// MaxJitter bounds the random delay added on top of the backoff.
	// Zero means one second; negative disables jitter.
	MaxJitter time.Duration `yaml:"max_jitter" mapstructure:"max_jitter"`
	// Quiet suppresses "retrying" and "recovered" progress notifications.
	// The final failure notification is always sent.
	Quiet bool `yaml:"quiet" mapstructure:"quiet"`
}

// Default policy values.
const (
	DefaultMaxRetries    = 3
	DefaultBaseDelay     = time.Second
	DefaultMaxDelay      = 10 * time.Second
	DefaultBackoffFactor = 2.0
	DefaultMaxJitter     = time.Second
)

// NoRetries as MaxRetries runs the operation exactly once.
const NoRetries = -1

// DefaultPolicy returns {3 retries, 1s base, 10s max, factor 2, progress on}.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    DefaultMaxRetries,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		BackoffFactor: DefaultBackoffFactor,
		MaxJitter:     DefaultMaxJitter,
	}
}

// normalized fills zero or invalid fields with defaults.
func (p Policy) normalized() Policy {
	switch {
	case p.MaxRetries == 0:
		p.MaxRetries = DefaultMaxRetries
	case p.MaxRetries < 0:
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = DefaultBackoffFactor
	}
	switch {
	case p.MaxJitter == 0:
		p.MaxJitter = DefaultMaxJitter
	case p.MaxJitter < 0:
		p.MaxJitter = 0
	}
	return p
}

// Backoff returns min(BaseDelay * BackoffFactor^(attempt-1), MaxDelay) for
// attempt >= 1.
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.normalized()
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt-1))
	if d > float64(p.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Delay returns the backoff for attempt plus jitter.
func (p Policy) Delay(attempt int, jitter time.Duration) time.Duration {
	if jitter < 0 {
		jitter = 0
	}
	return p.Backoff(attempt) + jitter
}

// Validate rejects policies that cannot be normalized into something sane.
func (p Policy) Validate() error {
	if p.MaxRetries < NoRetries {
		return fmt.Errorf("max_retries must be >= %d (got: %d)", NoRetries, p.MaxRetries)
	}
	if p.MaxDelay > 0 && p.BaseDelay > p.MaxDelay {
		return fmt.Errorf("base_delay %s exceeds max_delay %s", p.BaseDelay, p.MaxDelay)
	}
	if p.BackoffFactor != 0 && p.BackoffFactor < 1 {
		return fmt.Errorf("backoff_factor must be >= 1 (got: %g)", p.BackoffFactor)
	}
	return nil
}

// PolicySet holds the default policy and per-action overrides.
type PolicySet struct {
	Default  Policy            `yaml:"default" mapstructure:"default"`
	ByAction map[string]Policy `yaml:"actions" mapstructure:"actions"`
}

// DefaultPolicySet returns the adaptive per-operation policies.
func DefaultPolicySet() PolicySet {
	return PolicySet{
		Default: DefaultPolicy(),
		ByAction: map[string]Policy{
			errors.OpDownload: {
				MaxRetries:    3,
				BaseDelay:     2 * time.Second,
				MaxDelay:      30 * time.Second,
				BackoffFactor: 2,
			},
			errors.OpAnalysis: {
				MaxRetries:    2,
				BaseDelay:     5 * time.Second,
				MaxDelay:      60 * time.Second,
				BackoffFactor: 1.5,
			},
			errors.OpFetchData: {
				MaxRetries:    3,
				BaseDelay:     time.Second,
				MaxDelay:      10 * time.Second,
				BackoffFactor: 2,
			},
		},
	}
}

// ApplyDefaults fills the default policy and the built-in action policies
// that were not configured.
func (s *PolicySet) ApplyDefaults() {
	defaults := DefaultPolicySet()
	if s.Default == (Policy{}) {
		s.Default = defaults.Default
	}
	if s.ByAction == nil {
		s.ByAction = make(map[string]Policy, len(defaults.ByAction))
	}
	for action, p := range defaults.ByAction {
		if _, ok := s.ByAction[action]; !ok {
			s.ByAction[action] = p
		}
	}
}

// Validate validates every policy in the set.
func (s *PolicySet) Validate() error {
	if err := s.Default.Validate(); err != nil {
		return fmt.Errorf("retry.default: %w", err)
	}
	for action, p := range s.ByAction {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("retry.actions.%s: %w", action, err)
		}
	}
	return nil
}

// For returns the policy for an operation type, falling back to Default.
func (s PolicySet) For(action string) Policy {
	if p, ok := s.ByAction[action]; ok {
		return p
	}
	if s.Default == (Policy{}) {
		return DefaultPolicy()
	}
	return s.Default
}

var builtinPolicies = DefaultPolicySet()

// PolicyFor returns the built-in policy for an operation type.
func PolicyFor(action string) Policy {
	return builtinPolicies.For(action)
}
