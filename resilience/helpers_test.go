package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/faultline/errors"
)

type statusError struct{ status int }

func (e statusError) Error() string { return fmt.Sprintf("HTTP %d", e.status) }

func (e statusError) ClassifierInput() errors.Input {
	return errors.HTTPError{Status: e.status, Err: e}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sleepSpy struct {
	mu     sync.Mutex
	delays []time.Duration
	clock  *fakeClock
}

func (s *sleepSpy) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	if s.clock != nil {
		s.clock.Advance(d)
	}
	return nil
}

func (s *sleepSpy) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type progressSpy struct {
	mu        sync.Mutex
	retrying  []int
	delays    []time.Duration
	recovered []int
	failed    []*errors.ClassifiedError
}

func (p *progressSpy) Retrying(_ context.Context, _ *errors.ClassifiedError, attempt int, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retrying = append(p.retrying, attempt)
	p.delays = append(p.delays, delay)
}

func (p *progressSpy) Recovered(_ context.Context, _ errors.Context, retries int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recovered = append(p.recovered, retries)
}

func (p *progressSpy) Failed(_ context.Context, ce *errors.ClassifiedError) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, ce)
}

type recorded struct {
	ce    *errors.ClassifiedError
	final bool
}

type recorderSpy struct {
	mu      sync.Mutex
	entries []recorded
}

func (r *recorderSpy) RecordFailure(ce *errors.ClassifiedError, final bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recorded{ce: ce, final: final})
}

func (r *recorderSpy) finals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.final {
			n++
		}
	}
	return n
}

type harness struct {
	retrier  *Retrier
	sleep    *sleepSpy
	progress *progressSpy
	recorder *recorderSpy
	clock    *fakeClock
}

func newHarness(jitter time.Duration) *harness {
	h := &harness{
		progress: &progressSpy{},
		recorder: &recorderSpy{},
		clock:    newFakeClock(),
	}
	h.sleep = &sleepSpy{clock: h.clock}
	h.retrier = NewRetrier(
		WithProgress(h.progress),
		WithRecorder(h.recorder),
		WithJitter(func(time.Duration) time.Duration { return jitter }),
		WithSleep(h.sleep.Sleep),
		WithClock(h.clock.Now),
	)
	return h
}
