package resilience

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/faultline/errors"
)

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:    maxRetries,
		BaseDelay:     10 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2,
	}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	h := newHarness(0)
	calls := 0

	got, err := Retry(context.Background(), h.retrier, errors.Context{}, fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	if err != nil || got != "ok" {
		t.Fatalf("expected ok, got %q %v", got, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if len(h.progress.recovered) != 0 || len(h.sleep.Delays()) != 0 {
		t.Error("first-try success must not sleep or report recovery")
	}
}

func TestRetry_SucceedsAfterTwoFailures(t *testing.T) {
	h := newHarness(0)
	calls := 0

	got, err := Retry(context.Background(), h.retrier, errors.Context{Component: "Library"}, fastPolicy(3), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("network error")
		}
		return 42, nil
	})

	if err != nil || got != 42 {
		t.Fatalf("expected 42, got %d %v", got, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
	if fmt.Sprint(h.progress.retrying) != "[1 2]" {
		t.Errorf("expected retrying notifications for attempts 1 and 2, got %v", h.progress.retrying)
	}
	if fmt.Sprint(h.progress.recovered) != "[2]" {
		t.Errorf("expected one recovery after 2 retries, got %v", h.progress.recovered)
	}
	if len(h.progress.failed) != 0 {
		t.Error("recovered operation must not report failure")
	}
	if len(h.recorder.entries) != 2 || h.recorder.finals() != 0 {
		t.Errorf("expected 2 intermediate failures recorded, got %d (finals %d)", len(h.recorder.entries), h.recorder.finals())
	}
}

func TestRetry_Exhaustion(t *testing.T) {
	h := newHarness(0)
	calls := 0

	_, err := Retry(context.Background(), h.retrier, errors.Context{Action: "sync"}, fastPolicy(2), func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, statusError{status: 503}
	})

	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
	ce, ok := errors.AsClassified(err)
	if !ok {
		t.Fatalf("expected classified error, got %T", err)
	}
	if ce.Kind() != errors.KindServer {
		t.Errorf("expected server kind, got %s", ce.Kind())
	}
	if ce.Context().RetryCount != 3 {
		t.Errorf("expected retryCount 3, got %d", ce.Context().RetryCount)
	}
	if len(h.progress.failed) != 1 || h.progress.failed[0] != ce {
		t.Error("expected exactly one failure notification carrying the returned error")
	}
	if h.recorder.finals() != 1 || len(h.recorder.entries) != 3 {
		t.Errorf("expected 2 intermediate + 1 final record, got %d entries", len(h.recorder.entries))
	}
}

func TestRetry_NonRetryableShortCircuits(t *testing.T) {
	h := newHarness(0)
	calls := 0

	_, err := Retry(context.Background(), h.retrier, errors.Context{}, fastPolicy(5), func(context.Context) (int, error) {
		calls++
		return 0, statusError{status: 404}
	})

	if calls != 1 {
		t.Errorf("expected 1 invocation, got %d", calls)
	}
	if errors.KindOf(err) != errors.KindNotFound {
		t.Errorf("expected not_found, got %s", errors.KindOf(err))
	}
	if len(h.progress.retrying) != 0 || len(h.sleep.Delays()) != 0 {
		t.Error("non-retryable failure must not schedule retries")
	}
	if len(h.progress.failed) != 1 {
		t.Errorf("expected 1 failure notification, got %d", len(h.progress.failed))
	}
}

func TestRetry_DownloadServerErrorScenario(t *testing.T) {
	h := newHarness(50 * time.Millisecond)
	calls := 0
	p := Policy{MaxRetries: 2, BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second, BackoffFactor: 2}

	_, err := Retry(context.Background(), h.retrier, errors.Context{Component: "Downloader", Action: errors.OpDownload}, p,
		func(context.Context) ([]byte, error) {
			calls++
			return nil, statusError{status: 500}
		})

	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
	want := []time.Duration{150 * time.Millisecond, 250 * time.Millisecond}
	got := h.sleep.Delays()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected delays %v, got %v", want, got)
	}
	if fmt.Sprint(h.progress.delays) != fmt.Sprint(want) {
		t.Errorf("progress should report the actual delays, got %v", h.progress.delays)
	}
	if errors.KindOf(err) != errors.KindServer {
		t.Errorf("expected server kind, got %s", errors.KindOf(err))
	}
}

func TestRetry_QuietSuppressesProgressButNotFailure(t *testing.T) {
	h := newHarness(0)
	p := fastPolicy(1)
	p.Quiet = true

	calls := 0
	_, _ = Retry(context.Background(), h.retrier, errors.Context{}, p, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, fmt.Errorf("failed to fetch")
		}
		return 1, nil
	})
	if len(h.progress.retrying) != 0 || len(h.progress.recovered) != 0 {
		t.Error("quiet policy must not emit progress")
	}

	_, err := Retry(context.Background(), h.retrier, errors.Context{}, p, func(context.Context) (int, error) {
		return 0, fmt.Errorf("failed to fetch")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(h.progress.failed) != 1 {
		t.Errorf("final failure must always notify, got %d", len(h.progress.failed))
	}
}

func TestRetry_NoRetries(t *testing.T) {
	h := newHarness(0)
	var calls atomic.Int32
	_, err := Retry(context.Background(), h.retrier, errors.Context{}, fastPolicy(NoRetries), func(context.Context) (int, error) {
		calls.Add(1)
		return 0, fmt.Errorf("network down")
	})
	if err == nil || calls.Load() != 1 {
		t.Errorf("expected single failing invocation, got %d calls", calls.Load())
	}
}

func TestRetry_PartialPolicyKeepsDefaultRetries(t *testing.T) {
	h := newHarness(0)
	var calls atomic.Int32
	p := Policy{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, MaxJitter: -1}
	_, err := Retry(context.Background(), h.retrier, errors.Context{}, p, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, fmt.Errorf("network down")
	})
	if err == nil {
		t.Fatal("expected failure")
	}
	if got := calls.Load(); got != DefaultMaxRetries+1 {
		t.Errorf("calls = %d, want %d", got, DefaultMaxRetries+1)
	}
}

func TestRetry_CanceledBeforeFirstAttempt(t *testing.T) {
	h := newHarness(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Retry(ctx, h.retrier, errors.Context{}, fastPolicy(3), func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	if calls != 0 {
		t.Errorf("expected no invocation, got %d", calls)
	}
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if !errors.IsClassified(err) {
		t.Error("cancellation should still return a classified error")
	}
	if len(h.progress.failed) != 0 {
		t.Error("cancellation must not notify")
	}
}

func TestRetry_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	progress := &progressSpy{}
	r := NewRetrier(
		WithProgress(progress),
		WithJitter(func(time.Duration) time.Duration { return 0 }),
	)

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, r, errors.Context{}, Policy{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}, func(context.Context) (int, error) {
			calls++
			cancel()
			return 0, fmt.Errorf("network error")
		})
		done <- err
	}()

	select {
	case err := <-done:
		if !stderrors.Is(err, context.Canceled) {
			t.Errorf("expected cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
	if calls != 1 {
		t.Errorf("expected 1 invocation, got %d", calls)
	}
}

func TestRetry_NilRetrierUsesDefault(t *testing.T) {
	got, err := Retry(context.Background(), nil, errors.Context{}, DefaultPolicy(), func(context.Context) (string, error) {
		return "fine", nil
	})
	if err != nil || got != "fine" {
		t.Errorf("expected fine, got %q %v", got, err)
	}
}

func TestRetrier_Do(t *testing.T) {
	h := newHarness(0)
	calls := 0
	err := h.retrier.Do(context.Background(), errors.Context{}, fastPolicy(2), func(context.Context) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("network error")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("expected success on second call, got %v after %d calls", err, calls)
	}
}

func TestUniformJitter_Bounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		j := uniformJitter(time.Second)
		if j < 0 || j >= time.Second {
			t.Fatalf("jitter %v out of [0, 1s)", j)
		}
	}
	if uniformJitter(0) != 0 {
		t.Error("zero max must yield zero jitter")
	}
}
