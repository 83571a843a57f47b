package notify

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/sse"
)

// LogToaster writes toasts to a logger. It is the fallback when no UI is attached.
type LogToaster struct {
	log *logger.Logger
}

// NewLogToaster creates a LogToaster. A nil logger uses the "notify" logger.
func NewLogToaster(l *logger.Logger) *LogToaster {
	if l == nil {
		l = logger.Get("notify")
	}
	return &LogToaster{log: l}
}

// Show logs t at a level matching its severity.
func (l *LogToaster) Show(_ context.Context, t Toast) error {
	fields := logger.Fields(
		"title", t.Title,
		"description", t.Description,
		"critical", t.Critical,
	)
	if t.ErrorID != "" {
		fields[logger.FieldErrorID] = t.ErrorID
	}
	if t.Action != nil {
		fields[logger.FieldAction] = string(t.Action.Kind)
	}
	switch {
	case t.Critical, t.Level == LevelError:
		l.log.Error("toast", fields)
	case t.Level == LevelWarning:
		l.log.Warn("toast", fields)
	default:
		l.log.Info("toast", fields)
	}
	return nil
}

// BroadcastToaster publishes toasts as SSE events so browser tabs can render them.
type BroadcastToaster struct {
	b       sse.Broadcaster
	pattern string
}

// NewBroadcastToaster publishes to every client whose id matches pattern.
// An empty pattern reaches all clients.
func NewBroadcastToaster(b sse.Broadcaster, pattern string) *BroadcastToaster {
	if pattern == "" {
		pattern = "*"
	}
	return &BroadcastToaster{b: b, pattern: pattern}
}

type toastPayload struct {
	Toast
	DurationMs int64 `json:"durationMs,omitempty"`
}

// Show encodes t and broadcasts it; critical toasts use their own event type.
func (bt *BroadcastToaster) Show(_ context.Context, t Toast) error {
	typ := sse.EventTypeToast
	if t.Critical {
		typ = sse.EventTypeCriticalAlert
	}
	ev, err := sse.NewJSONEvent(typ, toastPayload{Toast: t, DurationMs: t.Duration.Milliseconds()})
	if err != nil {
		return err
	}
	bt.b.Broadcast(bt.pattern, ev)
	return nil
}

// MultiToaster shows every toast on all of its toasters.
type MultiToaster []Toaster

// Show calls every toaster and joins their errors.
func (m MultiToaster) Show(ctx context.Context, t Toast) error {
	var errs []error
	for _, ts := range m {
		if err := ts.Show(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

var (
	_ Toaster = (*LogToaster)(nil)
	_ Toaster = (*BroadcastToaster)(nil)
	_ Toaster = MultiToaster(nil)
)
