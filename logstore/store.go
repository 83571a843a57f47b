package logstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/observability"
	"github.com/kbukum/faultline/resilience"
	"github.com/kbukum/faultline/storage"
)

// Alerter receives critical pattern alerts raised by the burst detector.
// count is the number of matching entries inside the burst window.
type Alerter interface {
	CriticalPattern(ctx context.Context, entry Entry, count int)
}

// Reporter forwards an error entry to a remote collector.
type Reporter interface {
	Report(ctx context.Context, entry Entry) error
}

// Publisher streams appended entries to an external consumer such as a
// message broker. It is called after the store lock is released.
type Publisher interface {
	PublishEntry(ctx context.Context, entry Entry) error
}

// Store is the error log. All mutations run to completion under its lock and
// reads return copies.
type Store struct {
	cfg         Config
	kv          storage.Store
	classifier  *errors.Classifier
	alerter     Alerter
	reporter    Reporter
	publisher   Publisher
	instruments *observability.Metrics
	log         *logger.Logger
	now         func() time.Time
	sessionID   string

	mu         sync.RWMutex
	entries    []Entry
	lastAlert  map[string]time.Time
	persistErr error
	started    bool

	reports *resilience.Bulkhead
}

// Option configures a Store.
type Option func(*Store)

// WithClassifier sets the classifier used by LogError.
func WithClassifier(c *errors.Classifier) Option {
	return func(s *Store) { s.classifier = c }
}

// WithAlerter sets the critical pattern sink.
func WithAlerter(a Alerter) Option {
	return func(s *Store) { s.alerter = a }
}

// WithReporter sets the remote reporter used when Config.ReportErrors is on.
func WithReporter(r Reporter) Option {
	return func(s *Store) { s.reporter = r }
}

// WithPublisher streams every appended entry to p.
func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.instruments = m }
}

// WithLogger sets the side-channel logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock sets the time source for user actions and metrics windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(s *Store) { s.sessionID = id }
}

// New creates a Store persisting to kv. A nil kv keeps the log in memory only.
func New(cfg Config, kv storage.Store, opts ...Option) *Store {
	cfg.ApplyDefaults()
	if kv == nil {
		kv = storage.NewMemory()
	}
	s := &Store{
		cfg:        cfg,
		kv:         kv,
		classifier: errors.Default(),
		now:        time.Now,
		lastAlert:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("logstore")
	}
	bh := resilience.DefaultBulkheadConfig("error_reports")
	bh.MaxConcurrent = cfg.MaxInflightReports
	s.reports = resilience.NewBulkhead(bh)
	if s.sessionID == "" {
		s.sessionID = fmt.Sprintf("session_%d_%s", s.now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
	}
	return s
}

// SessionID returns the id stamped on every entry created by this process.
func (s *Store) SessionID() string { return s.sessionID }

// Config returns the effective configuration.
func (s *Store) Config() Config { return s.cfg }

// Init loads the persisted snapshot. A missing or unreadable snapshot
// starts an empty log; only invalid configuration is returned as an error.
func (s *Store) Init(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	var loaded []Entry
	err := storage.GetJSON(ctx, s.kv, s.cfg.StorageKey, &loaded)
	switch {
	case err == nil:
	case stderrors.Is(err, storage.ErrNotFound):
		loaded = nil
	default:
		s.log.Warn("failed to load persisted error logs", logger.ErrorFields("load", err))
		loaded = nil
	}
	if over := len(loaded) - s.cfg.MaxEntries; over > 0 {
		loaded = loaded[over:]
	}

	s.mu.Lock()
	delta := len(loaded) - len(s.entries)
	s.entries = loaded
	s.started = true
	s.mu.Unlock()

	s.instruments.AddEntries(ctx, int64(delta))
	s.log.Debug("error log store initialized", logger.Fields(
		"entries", len(loaded),
		logger.FieldSessionID, s.sessionID,
	))
	return nil
}

// Dispose waits for in-flight reports and flushes the log one last time.
func (s *Store) Dispose(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.reports.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("dispose: gave up waiting for error reports", logger.ErrorFields("dispose", ctx.Err()))
	}

	s.mu.Lock()
	s.persistLocked(context.WithoutCancel(ctx))
	s.started = false
	s.mu.Unlock()
	return nil
}

// LogError classifies v and appends it as an error-level entry. A
// *ClassifiedError passed with a zero ectx is stored as is.
func (s *Store) LogError(ctx context.Context, v any, ectx errors.Context) Entry {
	if ce, ok := v.(*errors.ClassifiedError); ok && ce != nil && ectx.IsZero() {
		return s.LogClassified(ctx, ce, LevelError)
	}
	return s.LogClassified(ctx, s.classifier.Classify(v, ectx), LevelError)
}

// LogClassified appends an already classified error at the given level.
func (s *Store) LogClassified(ctx context.Context, ce *errors.ClassifiedError, level Level) Entry {
	ctx, span := observability.StartSpan(ctx, observability.SpanLogIngest)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrErrorID, ce.ID())
	observability.SetSpanAttribute(ctx, observability.AttrErrorKind, string(ce.Kind()))

	return s.append(ctx, entryFromClassified(ce, level, s.sessionID))
}

// RecordFailure logs a failure seen by the retry engine: intermediate
// attempts as warnings, the final one as an error.
func (s *Store) RecordFailure(ce *errors.ClassifiedError, final bool) {
	level := LevelWarning
	if final {
		level = LevelError
	}
	s.LogClassified(context.Background(), ce, level)
}

// LogUserAction appends an info-level audit entry.
func (s *Store) LogUserAction(ctx context.Context, action, component string, data map[string]any) Entry {
	now := s.now()
	e := Entry{
		ID:      fmt.Sprintf("log_%d_%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9]),
		Message: "User action: " + action,
		Context: errors.Context{
			Component:      component,
			Action:         action,
			AdditionalData: data,
			Timestamp:      now,
		}.Clone(),
		Level:     LevelInfo,
		SessionID: s.sessionID,
	}
	return s.append(ctx, e)
}

func (s *Store) append(ctx context.Context, e Entry) Entry {
	s.mu.Lock()
	report := s.cfg.ReportErrors && s.reporter != nil && e.IsError()
	e.ReportedToService = report
	s.entries = append(s.entries, e)
	evicted := 0
	if over := len(s.entries) - s.cfg.MaxEntries; over > 0 {
		s.entries = slices.Delete(s.entries, 0, over)
		evicted = over
	}
	count, alert := s.detectBurstLocked(e)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.instruments.AddEntries(ctx, int64(1-evicted))
	s.log.Debug("error logged", logger.Fields(
		logger.FieldEntryID, e.ID,
		logger.FieldKind, string(e.Kind),
		logger.FieldComponent, e.Context.Component,
		"level", string(e.Level),
	))

	if alert {
		s.instruments.RecordAlert(ctx, e.Context.Component)
		s.log.Warn("critical error pattern detected", logger.Fields(
			logger.FieldComponent, e.Context.Component,
			"count", count,
			"message", e.Message,
		))
		if s.alerter != nil {
			s.alerter.CriticalPattern(ctx, e.clone(), count)
		}
	}
	if report && !s.dispatchReport(ctx, e.clone()) {
		e.ReportedToService = false
		s.mu.Lock()
		if i := s.indexLocked(e.ID); i >= 0 {
			s.entries[i].ReportedToService = false
			s.persistLocked(ctx)
		}
		s.mu.Unlock()
	}
	if s.publisher != nil {
		if err := s.publisher.PublishEntry(ctx, e.clone()); err != nil {
			s.log.Warn("failed to publish error entry", logger.Fields(
				logger.FieldEntryID, e.ID,
				"error", err.Error(),
			))
		}
	}
	return e.clone()
}

// dispatchReport hands e to the reporter in the background. Entries that
// arrive while MaxInflightReports reports are pending are dropped and it
// returns false; they stay claimable through MarkReported.
func (s *Store) dispatchReport(ctx context.Context, e Entry) bool {
	err := s.reports.Go(context.WithoutCancel(ctx), func(ctx context.Context) {
		if err := s.reporter.Report(ctx, e); err != nil {
			s.log.Warn("failed to report error to service", logger.Fields(
				logger.FieldEntryID, e.ID,
				"error", err.Error(),
			))
		}
	})
	if err != nil {
		s.log.Warn("dropped error report", logger.Fields(
			logger.FieldEntryID, e.ID,
			"in_flight", s.reports.InUse(),
			"error", err.Error(),
		))
		return false
	}
	return true
}

// persistLocked writes the most recent PersistEntries. Failures are logged
// and remembered for Health.
func (s *Store) persistLocked(ctx context.Context) {
	tail := s.entries[max(0, len(s.entries)-s.cfg.PersistEntries):]
	if tail == nil {
		tail = []Entry{}
	}
	data, err := json.Marshal(tail)
	if err == nil {
		err = s.kv.Set(ctx, s.cfg.StorageKey, data)
	}
	if err != nil {
		if s.persistErr == nil {
			s.log.Warn("failed to persist error logs", logger.ErrorFields("persist", err))
		}
		s.persistErr = err
		return
	}
	s.persistErr = nil
}

// ResolveError marks the entry resolved. It reports whether the id exists;
// resolving twice or resolving an unknown id changes nothing.
func (s *Store) ResolveError(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	if !s.entries[i].Resolved {
		s.entries[i].Resolved = true
		s.persistLocked(ctx)
	}
	return true
}

// MarkReported sets the reported flag once. It returns true only for the
// call that flipped it, so callers can use it to claim the single report
// attempt an entry is allowed.
func (s *Store) MarkReported(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 || s.entries[i].ReportedToService {
		return false
	}
	s.entries[i].ReportedToService = true
	s.persistLocked(ctx)
	return true
}

func (s *Store) indexLocked(id string) int {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.entries[i].clone(), true
	}
	return Entry{}, false
}

// Entries returns a copy of the log in arrival order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entries)
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ClearLogs empties the log and deletes the persisted snapshot.
func (s *Store) ClearLogs(ctx context.Context) {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = nil
	clear(s.lastAlert)
	err := s.kv.Delete(ctx, s.cfg.StorageKey)
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("failed to clear persisted error logs", logger.ErrorFields("clear", err))
	}
	s.instruments.AddEntries(ctx, int64(-n))
	s.log.Info("error logs cleared", logger.Fields("entries", n))
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = e.clone()
	}
	return out
}
