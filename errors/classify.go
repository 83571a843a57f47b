package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Classifier turns failures into ClassifiedErrors.
// It is safe for concurrent use.
type Classifier struct {
	patterns PatternTable
	rules    []ActionRule
	now      func() time.Time
	seq      atomic.Uint64
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithPatterns replaces the message pattern table.
func WithPatterns(t PatternTable) ClassifierOption {
	return func(c *Classifier) { c.patterns = t }
}

// WithRules replaces the action refinement rules.
func WithRules(rules []ActionRule) ClassifierOption {
	return func(c *Classifier) { c.rules = rules }
}

// WithClock sets the time source used for timestamps and IDs.
func WithClock(now func() time.Time) ClassifierOption {
	return func(c *Classifier) { c.now = now }
}

// NewClassifier creates a Classifier with the default tables.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		patterns: DefaultPatterns,
		rules:    DefaultRules,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultClassifier = NewClassifier()

// Default returns the package-level classifier.
func Default() *Classifier { return defaultClassifier }

// Classify classifies v with the package-level classifier.
func Classify(v any, ctx Context) *ClassifiedError {
	return defaultClassifier.Classify(v, ctx)
}

// draft is a classification in progress.
type draft struct {
	kind      Kind
	raw       string
	user      string
	retryable bool
	action    SuggestedAction
	status    int
	cause     error
}

// Classify converts any value into a ClassifiedError. It never fails and
// never returns nil. Already classified errors are re-issued with ctx merged
// over their context.
func (c *Classifier) Classify(v any, ctx Context) *ClassifiedError {
	if isNilPointer(v) {
		v = nil
	}
	if err, ok := v.(error); ok {
		var ce *ClassifiedError
		if stderrors.As(err, &ce) && ce != nil {
			return c.reissue(ce, ctx)
		}
	}
	d := c.fromInput(Adapt(v))
	if err, ok := v.(error); ok && d.cause == nil {
		d.cause = err
	}
	d = c.refine(d, ctx.Action)
	return c.build(d, ctx)
}

func (c *Classifier) fromInput(in Input) draft {
	switch x := in.(type) {
	case HTTPError:
		if x.Status == 0 {
			return c.connectivity(ConnectivityError{Err: x.Err})
		}
		return c.fromStatus(x)
	case ConnectivityError:
		return c.connectivity(x)
	case GenericError:
		return c.fromMessage(x.Message, x.Err)
	case Unknown:
		return draft{
			kind:   KindUnknown,
			raw:    x.rawMessage(),
			user:   MsgUnknown,
			action: ActionRefresh,
		}
	default:
		return draft{kind: KindUnknown, raw: fmt.Sprint(in), user: MsgUnknown, action: ActionRefresh}
	}
}

func (c *Classifier) connectivity(x ConnectivityError) draft {
	return draft{
		kind:      KindNetwork,
		raw:       x.rawMessage(),
		user:      MsgNetwork,
		retryable: true,
		action:    ActionCheckConnection,
		cause:     x.Err,
	}
}

func (c *Classifier) fromStatus(x HTTPError) draft {
	d := draft{raw: x.rawMessage(), status: x.Status, cause: x.Err}
	switch {
	case x.Status >= http.StatusInternalServerError:
		d.kind, d.user, d.retryable, d.action = KindServer, MsgServer, true, ActionRetry
	case x.Status == http.StatusNotFound:
		d.kind, d.user, d.action = KindNotFound, MsgNotFound, ActionGoBack
	case x.Status == http.StatusForbidden:
		d.kind, d.user, d.action = KindPermission, MsgForbidden, ActionContactSupport
	case x.Status == http.StatusUnauthorized:
		d.kind, d.user, d.action = KindPermission, MsgUnauthorized, ActionLogin
	case x.Status >= http.StatusBadRequest:
		d.kind, d.user, d.action = KindValidation, MsgValidation, ActionCheckInput
		if msg := BodyMessage(x.Body); msg != "" {
			d.user = msg
		}
	default:
		m := c.fromMessage(d.raw, x.Err)
		m.status = x.Status
		return m
	}
	return d
}

func (c *Classifier) fromMessage(msg string, cause error) draft {
	p := c.patterns.Match(msg)
	if msg == "" {
		msg = "error"
	}
	return draft{
		kind:      p.Kind,
		raw:       msg,
		user:      p.UserMessage,
		retryable: p.Retryable,
		action:    p.Action,
		cause:     cause,
	}
}

func (c *Classifier) refine(d draft, action string) draft {
	if action == "" {
		return d
	}
	lower := strings.ToLower(d.raw)
	for _, r := range c.rules {
		if !r.applies(action, d.kind, lower) {
			continue
		}
		if r.UserMessage != "" {
			d.user = r.UserMessage
		}
		switch r.Retry {
		case RetryForce:
			d.retryable = true
		case RetryNever:
			d.retryable = false
		}
		if r.Suggested != ActionNone {
			d.action = r.Suggested
		}
		return d
	}
	return d
}

func (c *Classifier) build(d draft, ctx Context) *ClassifiedError {
	now := c.now()
	ctx = ctx.Clone()
	if ctx.Timestamp.IsZero() {
		ctx.Timestamp = now
	}
	return &ClassifiedError{
		id:          c.newID(now),
		kind:        d.kind,
		rawMessage:  d.raw,
		userMessage: d.user,
		context:     ctx,
		retryable:   d.retryable,
		action:      d.action,
		status:      d.status,
		cause:       d.cause,
	}
}

func (c *Classifier) reissue(e *ClassifiedError, ctx Context) *ClassifiedError {
	merged := e.context.Merge(ctx)
	if !ctx.Timestamp.IsZero() {
		merged.Timestamp = ctx.Timestamp
	} else {
		merged.Timestamp = c.now()
	}
	return c.build(draft{
		kind:      e.kind,
		raw:       e.rawMessage,
		user:      e.userMessage,
		retryable: e.retryable,
		action:    e.action,
		status:    e.status,
		cause:     e.cause,
	}, merged)
}

// newID returns "err_<unix millis>_<sequence><random>".
func (c *Classifier) newID(now time.Time) string {
	n := c.seq.Add(1)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("err_%d_%x%s", now.UnixMilli(), n, suffix)
}
