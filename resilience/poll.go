package resilience

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/observability"
)

// ErrPollTimeout is wrapped by the error Poll returns when MaxPollTime
// elapses before the resource reaches the expected state.
var ErrPollTimeout = stderrors.New("poll timed out waiting for expected state")

// PollOptions configures Poll.
type PollOptions struct {
	// Interval is the constant delay between checks.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	// MaxPollTime bounds the total time spent polling.
	MaxPollTime time.Duration `yaml:"max_poll_time" mapstructure:"max_poll_time"`
}

// Default poll values.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxPollTime  = 5 * time.Minute
)

// Poll calls check until done reports true for its result, a check fails
// with a non-retryable error, or MaxPollTime elapses. Retryable check errors
// are recorded and polling continues. The last observed value is returned
// with any error.
func Poll[T any](
	ctx context.Context,
	r *Retrier,
	ectx errors.Context,
	opts PollOptions,
	check func(context.Context) (T, error),
	done func(T) bool,
) (T, error) {
	r = orDefault(r)
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.MaxPollTime <= 0 {
		opts.MaxPollTime = DefaultMaxPollTime
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanPoll)
	defer span.End()

	var last T
	start := r.now()
	for polls := 1; ; polls++ {
		if err := ctx.Err(); err != nil {
			return last, r.canceled(ctx, err, ectx, polls-1)
		}

		v, err := check(ctx)
		switch {
		case err != nil:
			ce := r.classifier.Classify(err, ectx.WithRetryCount(polls))
			if !ce.Retryable() {
				r.failed(ctx, ce, polls-1)
				return last, ce
			}
			r.record(ce, false)
		case done(v):
			observability.SetSpanAttribute(ctx, observability.AttrAttempts, polls)
			return v, nil
		default:
			last = v
		}

		if r.now().Sub(start)+opts.Interval > opts.MaxPollTime {
			timeout := fmt.Errorf("%w after %s (%d checks)", ErrPollTimeout, opts.MaxPollTime, polls)
			ce := r.classifier.Classify(timeout, ectx.WithRetryCount(polls))
			r.failed(ctx, ce, polls-1)
			return last, ce
		}
		if err := r.sleep(ctx, opts.Interval); err != nil {
			return last, r.canceled(ctx, err, ectx, polls)
		}
	}
}
