package notify

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/logstore"
	"github.com/kbukum/faultline/observability"
	"github.com/kbukum/faultline/resilience"
)

// Bridge decides which toast a classified error produces and hands it to a
// Toaster. None of its methods fail: toaster errors and panics are logged.
type Bridge struct {
	cfg     Config
	toaster Toaster
	metrics *observability.Metrics
	log     *logger.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithLogger sets the side-channel logger.
func WithLogger(l *logger.Logger) BridgeOption {
	return func(b *Bridge) { b.log = l }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) BridgeOption {
	return func(b *Bridge) { b.metrics = m }
}

// NewBridge creates a Bridge. A nil toaster logs toasts.
func NewBridge(cfg Config, toaster Toaster, opts ...BridgeOption) *Bridge {
	cfg.ApplyDefaults()
	b := &Bridge{cfg: cfg, toaster: toaster}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Get("notify")
	}
	if b.toaster == nil {
		b.toaster = NewLogToaster(b.log)
	}
	return b
}

// Option customizes a single Notify call.
type Option func(*notifyOptions)

type notifyOptions struct {
	retry       func()
	title       string
	description string
	duration    time.Duration
}

// WithRetry offers a retry action running fn when the error is retryable.
func WithRetry(fn func()) Option {
	return func(o *notifyOptions) { o.retry = fn }
}

// WithTitle overrides the kind-derived title.
func WithTitle(title string) Option {
	return func(o *notifyOptions) { o.title = title }
}

// WithDescription overrides the error's user message.
func WithDescription(desc string) Option {
	return func(o *notifyOptions) { o.description = desc }
}

// WithDuration overrides the display duration.
func WithDuration(d time.Duration) Option {
	return func(o *notifyOptions) { o.duration = d }
}

// Notify shows the toast for ce and returns it.
func (b *Bridge) Notify(ctx context.Context, ce *errors.ClassifiedError, opts ...Option) Toast {
	if ce == nil {
		return Toast{}
	}
	t := b.ToastFor(ce, opts...)
	b.show(ctx, t)
	return t
}

// ToastFor builds the toast for ce without showing it.
func (b *Bridge) ToastFor(ce *errors.ClassifiedError, opts ...Option) Toast {
	var o notifyOptions
	for _, opt := range opts {
		opt(&o)
	}
	level, title := severity(ce.Kind())
	if o.title != "" {
		title = o.title
	}
	desc := ce.UserMessage()
	if o.description != "" {
		desc = o.description
	}
	d := b.cfg.Duration
	if o.duration > 0 {
		d = o.duration
	}
	return Toast{
		Level:       level,
		Title:       title,
		Description: desc,
		Action:      b.actionFor(ce, o.retry),
		ErrorID:     ce.ID(),
		Duration:    d,
	}
}

// severity maps a kind to its toast level and title.
func severity(k errors.Kind) (Level, string) {
	switch k {
	case errors.KindPermission:
		return LevelError, "Access Denied"
	case errors.KindNotFound:
		return LevelWarning, "Not Found"
	case errors.KindNetwork:
		return LevelError, "Connection Problem"
	case errors.KindServer:
		return LevelError, "Server Error"
	case errors.KindValidation:
		return LevelWarning, "Invalid Request"
	default:
		return LevelError, "Error"
	}
}

// actionFor picks at most one action. A retry callback on a retryable error
// wins over the suggested action.
func (b *Bridge) actionFor(ce *errors.ClassifiedError, retry func()) *Action {
	if retry != nil && ce.Retryable() {
		return &Action{Kind: ActionRetry, Label: "Try Again", Run: retry}
	}
	switch ce.SuggestedAction() {
	case errors.ActionGoBack:
		return &Action{Kind: ActionGoBack, Label: "Go Back"}
	case errors.ActionRefresh:
		return &Action{Kind: ActionReload, Label: "Reload Page"}
	case errors.ActionContactSupport:
		return &Action{Kind: ActionContactSupport, Label: "Contact Support", Target: b.supportLink(ce)}
	case errors.ActionLogin:
		return &Action{Kind: ActionLogin, Label: "Log In", Target: b.cfg.LoginURL}
	default:
		return nil
	}
}

func (b *Bridge) supportLink(ce *errors.ClassifiedError) string {
	ectx := ce.Context()
	body := fmt.Sprintf("Error ID: %s\nType: %s\nMessage: %s\nComponent: %s\nAction: %s\nTime: %s",
		ce.ID(), ce.Kind(), ce.RawMessage(), ectx.Component, ectx.Action, ectx.Timestamp.UTC().Format(time.RFC3339))
	q := url.Values{}
	q.Set("subject", "Error Report: "+ce.ID())
	q.Set("body", body)
	return "mailto:" + b.cfg.SupportEmail + "?" + q.Encode()
}

// CriticalPattern shows the higher-severity alert for a burst of identical
// failures.
func (b *Bridge) CriticalPattern(ctx context.Context, entry logstore.Entry, count int) {
	component := entry.Context.Component
	if component == "" {
		component = "unknown component"
	}
	b.show(ctx, Toast{
		Level:       LevelError,
		Title:       "Critical Error Pattern Detected",
		Description: fmt.Sprintf("%s failed %d times in a short period: %s", component, count, entry.Message),
		Critical:    true,
		ErrorID:     entry.ID,
		Duration:    b.cfg.CriticalDuration,
		Action: &Action{
			Kind:  ActionViewDetails,
			Label: "View Details",
			Detail: map[string]any{
				"component": entry.Context.Component,
				"action":    entry.Context.Action,
				"timestamp": entry.Timestamp().UTC().Format(time.RFC3339),
				"message":   entry.Message,
				"url":       entry.Context.URL,
				"count":     count,
			},
		},
	})
}

// Retrying shows the retry countdown.
func (b *Bridge) Retrying(ctx context.Context, ce *errors.ClassifiedError, attempt int, delay time.Duration) {
	b.show(ctx, Toast{
		Level:       LevelInfo,
		Title:       "Retrying",
		Description: fmt.Sprintf("Attempt %d failed. Retrying in %.1fs...", attempt, delay.Seconds()),
		ErrorID:     ce.ID(),
		Duration:    delay,
	})
}

// Recovered shows the success toast after a retried operation succeeds.
func (b *Bridge) Recovered(ctx context.Context, _ errors.Context, retries int) {
	b.show(ctx, Toast{
		Level:       LevelSuccess,
		Title:       "Recovered",
		Description: fmt.Sprintf("Succeeded after %d attempts.", retries+1),
		Duration:    b.cfg.Duration,
	})
}

// Failed shows the final error without a retry affordance.
func (b *Bridge) Failed(ctx context.Context, ce *errors.ClassifiedError) {
	b.Notify(ctx, ce)
}

func (b *Bridge) show(ctx context.Context, t Toast) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("toaster panicked", logger.Fields("panic", fmt.Sprint(r), "title", t.Title))
		}
	}()
	if err := b.toaster.Show(ctx, t); err != nil {
		b.log.Warn("failed to show notification", logger.Fields(
			logger.FieldErrorID, t.ErrorID,
			"title", t.Title,
			"error", err.Error(),
		))
		return
	}
	b.metrics.RecordNotification(ctx, string(t.Level), t.Critical)
}

var (
	_ logstore.Alerter            = (*Bridge)(nil)
	_ resilience.ProgressNotifier = (*Bridge)(nil)
)
