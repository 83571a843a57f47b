package resilience

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"
)

// occupy takes every slot of b and returns a func that frees them.
func occupy(t *testing.T, b *Bulkhead, n int) func() {
	t.Helper()
	release := make(chan struct{})
	for range n {
		started := make(chan struct{})
		if err := b.Go(context.Background(), func(context.Context) {
			close(started)
			<-release
		}); err != nil {
			t.Fatalf("occupy: %v", err)
		}
		<-started
	}
	return func() {
		close(release)
		b.Wait()
	}
}

func TestBulkhead_GoRejectsWhenFull(t *testing.T) {
	var rejected atomic.Int32
	b := NewBulkhead(BulkheadConfig{
		Name:          "reports",
		MaxConcurrent: 2,
		OnReject:      func(string) { rejected.Add(1) },
	})
	done := occupy(t, b, 2)

	ran := false
	err := b.Go(context.Background(), func(context.Context) { ran = true })
	if !stderrors.Is(err, ErrBulkheadFull) {
		t.Fatalf("expected ErrBulkheadFull, got %v", err)
	}
	if b.InUse() != 2 || b.Available() != 0 {
		t.Errorf("in use = %d, available = %d", b.InUse(), b.Available())
	}
	done()

	if ran {
		t.Error("rejected call must not run")
	}
	if rejected.Load() != 1 {
		t.Errorf("rejections = %d, want 1", rejected.Load())
	}
	if b.InUse() != 0 {
		t.Errorf("slots not released: %d", b.InUse())
	}
}

func TestBulkhead_Execute(t *testing.T) {
	tests := []struct {
		name    string
		maxWait time.Duration
		ctx     func() (context.Context, context.CancelFunc)
		want    error
	}{
		{
			name: "fails immediately without wait",
			ctx:  func() (context.Context, context.CancelFunc) { return context.Background(), func() {} },
			want: ErrBulkheadFull,
		},
		{
			name:    "times out waiting",
			maxWait: 10 * time.Millisecond,
			ctx:     func() (context.Context, context.CancelFunc) { return context.Background(), func() {} },
			want:    ErrBulkheadTimeout,
		},
		{
			name:    "respects context",
			maxWait: time.Second,
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 10*time.Millisecond)
			},
			want: context.DeadlineExceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrent: 1, MaxWait: tt.maxWait})
			done := occupy(t, b, 1)
			defer done()

			ctx, cancel := tt.ctx()
			defer cancel()
			err := b.Execute(ctx, func(context.Context) error { return nil })
			if !stderrors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBulkhead_ExecuteWaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "test", MaxConcurrent: 1, MaxWait: time.Second})
	done := occupy(t, b, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		done()
	}()

	calls := 0
	if err := b.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("expected slot after wait, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBulkhead_DefaultsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})
	if b.Available() != 10 {
		t.Errorf("available = %d, want 10", b.Available())
	}
}
