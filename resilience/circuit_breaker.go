package resilience

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/kbukum/faultline/errors"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen lets a limited number of probes through.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling the function while open.
var ErrCircuitOpen = stderrors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// MaxFailures is the number of consecutive tripping failures that open
	// the circuit.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
	// HalfOpenProbes is the number of calls allowed while half-open.
	HalfOpenProbes int `yaml:"half_open_probes" mapstructure:"half_open_probes"`
	// Trips decides whether a failure counts against the circuit.
	// The default counts only retryable failures, so a rejected request
	// (validation, permission) never opens the circuit.
	Trips func(error) bool `yaml:"-" mapstructure:"-"`
	// OnStateChange is called when state changes, outside the lock.
	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:           name,
		MaxFailures:    5,
		Cooldown:       30 * time.Second,
		HalfOpenProbes: 1,
	}
}

// CircuitBreaker fails fast while a dependency is unhealthy.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.HalfOpenProbes <= 0 {
		config.HalfOpenProbes = 1
	}
	if config.Trips == nil {
		config.Trips = errors.IsRetryable
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Execute runs fn through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.release(err)
	return err
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	state, change := cb.advance()
	cb.mu.Unlock()
	cb.notify(change)
	return state
}

// Reset closes the circuit and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	change := cb.transition(StateClosed)
	cb.mu.Unlock()
	cb.notify(change)
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

type stateChange struct {
	from, to State
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	state, change := cb.advance()
	allowed := state == StateClosed
	if state == StateHalfOpen && cb.probes < cb.config.HalfOpenProbes {
		cb.probes++
		allowed = true
	}
	cb.mu.Unlock()
	cb.notify(change)

	if !allowed {
		return ErrCircuitOpen
	}
	return nil
}

func (cb *CircuitBreaker) release(err error) {
	cb.mu.Lock()
	var change *stateChange
	state, _ := cb.advance()
	switch {
	case err != nil && cb.config.Trips(err):
		cb.failures++
		if state == StateHalfOpen || cb.failures >= cb.config.MaxFailures {
			change = cb.transition(StateOpen)
		}
	case state == StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.HalfOpenProbes {
			change = cb.transition(StateClosed)
		}
	default:
		cb.failures = 0
	}
	cb.mu.Unlock()
	cb.notify(change)
}

// advance moves an open circuit to half-open once the cooldown passed.
// Caller holds the lock.
func (cb *CircuitBreaker) advance() (State, *stateChange) {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.Cooldown {
		return StateHalfOpen, cb.transition(StateHalfOpen)
	}
	return cb.state, nil
}

// transition changes state and resets counters. Caller holds the lock.
func (cb *CircuitBreaker) transition(to State) *stateChange {
	from := cb.state
	cb.state = to
	cb.successes = 0
	cb.probes = 0
	switch to {
	case StateClosed:
		cb.failures = 0
	case StateOpen:
		cb.openedAt = cb.now()
	}
	if from == to {
		return nil
	}
	return &stateChange{from: from, to: to}
}

func (cb *CircuitBreaker) notify(c *stateChange) {
	if c != nil && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, c.from, c.to)
	}
}
