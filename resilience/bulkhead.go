package resilience

import (
	"context"
	stderrors "errors"
	"sync"
	"time"
)

// Bulkhead rejections.
var (
	ErrBulkheadFull    = stderrors.New("bulkhead is full")
	ErrBulkheadTimeout = stderrors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// MaxConcurrent is the number of calls allowed in flight.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait is how long Execute waits for a slot. Zero fails immediately.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
	// OnReject is called when a call is turned away.
	OnReject func(name string) `yaml:"-" mapstructure:"-"`
}

// DefaultBulkheadConfig returns sensible defaults.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 10,
	}
}

// Bulkhead bounds the number of concurrent calls through it.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
	wg     sync.WaitGroup
}

// NewBulkhead creates a bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Execute runs fn in the caller's goroutine once a slot is free.
// It returns ErrBulkheadFull, ErrBulkheadTimeout or ctx.Err() without
// calling fn when no slot could be taken.
func (b *Bulkhead) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		b.reject()
		return err
	}
	defer b.release()
	return fn(ctx)
}

// Go runs fn on a new goroutine if a slot is free right now, and returns
// ErrBulkheadFull otherwise. It never waits, whatever MaxWait says.
func (b *Bulkhead) Go(ctx context.Context, fn func(context.Context)) error {
	select {
	case b.sem <- struct{}{}:
	default:
		b.reject()
		return ErrBulkheadFull
	}
	b.wg.Go(func() {
		defer b.release()
		fn(ctx)
	})
	return nil
}

// Wait blocks until every call started by Go has returned.
func (b *Bulkhead) Wait() {
	b.wg.Wait()
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}
	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) release() {
	<-b.sem
}

func (b *Bulkhead) reject() {
	if b.config.OnReject != nil {
		b.config.OnReject(b.config.Name)
	}
}

// InUse returns the number of slots taken.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// Available returns the number of free slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}
