package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/observability"
)

// Recorder receives every classified failure seen by the retry engine.
// Intermediate failures have final=false.
type Recorder interface {
	RecordFailure(ce *errors.ClassifiedError, final bool)
}

// ProgressNotifier is told about retry progress.
type ProgressNotifier interface {
	// Retrying is called before waiting delay for the given retry attempt.
	Retrying(ctx context.Context, ce *errors.ClassifiedError, attempt int, delay time.Duration)
	// Recovered is called when an operation succeeds after retries.
	Recovered(ctx context.Context, ectx errors.Context, retries int)
	// Failed is called once with the error returned to the caller.
	Failed(ctx context.Context, ce *errors.ClassifiedError)
}

// Retry outcomes recorded in metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeRecovered = "recovered"
	OutcomeExhausted = "exhausted"
	OutcomeTerminal  = "terminal"
	OutcomeCanceled  = "canceled"
)

// Retrier runs operations under a Policy. It holds no per-call state and is
// safe for concurrent use.
type Retrier struct {
	classifier *errors.Classifier
	recorder   Recorder
	progress   ProgressNotifier
	metrics    *observability.Metrics
	log        *logger.Logger
	jitter     func(max time.Duration) time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithClassifier sets the classifier used for failures.
func WithClassifier(c *errors.Classifier) Option {
	return func(r *Retrier) { r.classifier = c }
}

// WithRecorder sets where classified failures are logged.
func WithRecorder(rec Recorder) Option {
	return func(r *Retrier) { r.recorder = rec }
}

// WithProgress sets the progress notifier.
func WithProgress(p ProgressNotifier) Option {
	return func(r *Retrier) { r.progress = p }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Retrier) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Retrier) { r.log = l }
}

// WithJitter replaces the jitter source. fn receives the policy's MaxJitter.
func WithJitter(fn func(max time.Duration) time.Duration) Option {
	return func(r *Retrier) { r.jitter = fn }
}

// WithSleep replaces the context-aware wait used between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retrier) { r.sleep = fn }
}

// WithClock replaces the time source used by Poll.
func WithClock(now func() time.Time) Option {
	return func(r *Retrier) { r.now = now }
}

// NewRetrier creates a Retrier.
func NewRetrier(opts ...Option) *Retrier {
	r := &Retrier{
		classifier: errors.Default(),
		jitter:     uniformJitter,
		sleep:      sleepContext,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrier) lg() *logger.Logger {
	if r.log != nil {
		return r.log
	}
	return logger.Get("retry")
}

var defaultRetrier = NewRetrier()

func orDefault(r *Retrier) *Retrier {
	if r == nil {
		return defaultRetrier
	}
	return r
}

// Do runs an operation that returns only an error.
func (r *Retrier) Do(ctx context.Context, ectx errors.Context, p Policy, op func(context.Context) error) error {
	_, err := Retry(ctx, r, ectx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Retry invokes op until it succeeds, fails with a non-retryable error, or
// MaxRetries re-invocations have failed. The returned error, when non-nil,
// is always a *errors.ClassifiedError whose context carries the retry count.
// A nil Retrier uses a package default.
func Retry[T any](ctx context.Context, r *Retrier, ectx errors.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	r = orDefault(r)
	p = p.normalized()

	ctx, span := observability.StartSpan(ctx, observability.SpanRetry)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrAction, ectx.Action)
	observability.SetSpanAttribute(ctx, observability.AttrComponent, ectx.Component)

	var zero T
	for attempt := 0; ; {
		if err := ctx.Err(); err != nil {
			return zero, r.canceled(ctx, err, ectx, attempt)
		}

		r.metrics.RecordAttempt(ctx, ectx.Action, attempt)
		result, err := op(ctx)
		if err == nil {
			r.succeeded(ctx, ectx, p, attempt)
			return result, nil
		}

		ce := r.classifier.Classify(err, ectx.WithRetryCount(attempt+1))
		r.metrics.RecordClassified(ctx, ce.Kind().String(), ectx.Component, ce.Retryable())

		if !ce.Retryable() || attempt+1 > p.MaxRetries {
			r.failed(ctx, ce, attempt)
			return zero, ce
		}
		r.record(ce, false)

		attempt++
		delay := p.Delay(attempt, r.jitter(p.MaxJitter))
		r.metrics.RecordRetryDelay(ctx, ectx.Action, delay)
		r.lg().Debug("retrying operation", logger.Fields(
			logger.FieldComponent, ectx.Component,
			logger.FieldAction, ectx.Action,
			logger.FieldKind, ce.Kind().String(),
			logger.FieldAttempt, attempt,
			logger.FieldDelay, delay.Milliseconds(),
		))
		if !p.Quiet && r.progress != nil {
			r.progress.Retrying(ctx, ce, attempt, delay)
		}

		if err := ctx.Err(); err != nil {
			return zero, r.canceled(ctx, err, ectx, attempt)
		}
		if err := r.sleep(ctx, delay); err != nil {
			return zero, r.canceled(ctx, err, ectx, attempt)
		}
	}
}

func (r *Retrier) succeeded(ctx context.Context, ectx errors.Context, p Policy, retries int) {
	observability.SetSpanAttribute(ctx, observability.AttrAttempts, retries+1)
	if retries == 0 {
		r.metrics.RecordOutcome(ctx, ectx.Action, OutcomeSuccess, 1)
		return
	}
	r.metrics.RecordOutcome(ctx, ectx.Action, OutcomeRecovered, retries+1)
	r.lg().Info("operation recovered", logger.Fields(
		logger.FieldComponent, ectx.Component,
		logger.FieldAction, ectx.Action,
		logger.FieldAttempt, retries,
	))
	if !p.Quiet && r.progress != nil {
		r.progress.Recovered(ctx, ectx, retries)
	}
}

func (r *Retrier) failed(ctx context.Context, ce *errors.ClassifiedError, attempt int) {
	outcome := OutcomeExhausted
	if !ce.Retryable() {
		outcome = OutcomeTerminal
	}
	ectx := ce.Context()
	r.metrics.RecordOutcome(ctx, ectx.Action, outcome, attempt+1)
	observability.SetSpanAttribute(ctx, observability.AttrAttempts, attempt+1)
	observability.SetSpanAttribute(ctx, observability.AttrErrorKind, ce.Kind().String())
	observability.SetSpanError(ctx, ce)

	r.record(ce, true)
	if r.progress != nil {
		r.progress.Failed(ctx, ce)
	}
}

// canceled classifies the context error without notifying: the caller
// abandoned the operation.
func (r *Retrier) canceled(ctx context.Context, err error, ectx errors.Context, attempt int) *errors.ClassifiedError {
	ce := r.classifier.Classify(err, ectx.WithRetryCount(attempt))
	r.metrics.RecordOutcome(ctx, ectx.Action, OutcomeCanceled, attempt)
	r.lg().Debug("retry abandoned", logger.Fields(
		logger.FieldComponent, ectx.Component,
		logger.FieldAction, ectx.Action,
		logger.FieldAttempt, attempt,
		logger.FieldError, err.Error(),
	))
	return ce
}

func (r *Retrier) record(ce *errors.ClassifiedError, final bool) {
	if r.recorder != nil {
		r.recorder.RecordFailure(ce, final)
	}
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
