package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/logstore"
)

// Event envelope constants.
const (
	EventType    = "faultline.error.logged"
	EventVersion = "1"
	ContentType  = "application/json"
)

// ErrClosed is returned by PublishEntry after Close.
var ErrClosed = errors.New("kafka: publisher is closed")

var levelRank = map[string]int{
	string(logstore.LevelInfo):    0,
	string(logstore.LevelWarning): 1,
	string(logstore.LevelError):   2,
}

// Event is the envelope written for each entry.
type Event struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	ContentType string         `json:"content_type"`
	Version     string         `json:"version"`
	Timestamp   time.Time      `json:"timestamp"`
	Subject     string         `json:"subject,omitempty"`
	Data        logstore.Entry `json:"data"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// Publisher writes log entries to a topic. It implements logstore.Publisher.
type Publisher struct {
	writer  messageWriter
	topic   string
	source  string
	minRank int
	log     *logger.Logger
	now     func() time.Time
	stats   counters

	mu     sync.RWMutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithSource sets the envelope's source, usually the service name.
func WithSource(source string) Option {
	return func(p *Publisher) { p.source = source }
}

// WithClock overrides the envelope timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func withWriter(w messageWriter) Option {
	return func(p *Publisher) { p.writer = w }
}

// NewPublisher validates cfg and creates an asynchronous, batching writer.
// No connection is made until the first batch is flushed.
func NewPublisher(cfg Config, log *logger.Logger, opts ...Option) (*Publisher, error) {
	cfg.ApplyDefaults()
	cfg.Enabled = true
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get("kafka")
	}

	p := &Publisher{
		topic:   cfg.Topic,
		source:  "faultline",
		minRank: levelRank[cfg.MinLevel],
		log:     log.WithComponent("kafka.publisher"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer != nil {
		return p, nil
	}

	transport, err := cfg.transport()
	if err != nil {
		return nil, err
	}
	p.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  codec(cfg.Compression),
		WriteTimeout: cfg.WriteTimeout,
		Async:        true,
		Completion:   p.completion,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			p.log.Error("writer: " + fmt.Sprintf(msg, args...))
		}),
	}

	p.log.Info("kafka publisher initialized", logger.Fields(
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"compression", cfg.Compression,
		"min_level", cfg.MinLevel,
	))
	return p, nil
}

func (p *Publisher) completion(msgs []kafkago.Message, err error) {
	if err == nil {
		p.stats.delivered.Add(int64(len(msgs)))
		return
	}
	p.stats.failed.Add(int64(len(msgs)))
	p.log.Warn("failed to deliver error events", logger.Fields(
		"topic", p.topic,
		"messages", len(msgs),
		"error", err.Error(),
	))
}

// PublishEntry queues e unless it is below the configured level.
func (p *Publisher) PublishEntry(ctx context.Context, e logstore.Entry) error {
	if levelRank[string(e.Level)] < p.minRank {
		p.stats.filtered.Add(1)
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	msg, err := p.message(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: publish %s: %w", e.ID, err)
	}
	p.stats.queued.Add(1)
	return nil
}

func (p *Publisher) message(e logstore.Entry) (kafkago.Message, error) {
	ev := Event{
		ID:          uuid.NewString(),
		Type:        EventType,
		Source:      p.source,
		ContentType: ContentType,
		Version:     EventVersion,
		Timestamp:   p.now().UTC(),
		Subject:     e.ID,
		Data:        e,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("kafka: encode %s: %w", e.ID, err)
	}

	msg := kafkago.Message{
		Value: data,
		Time:  ev.Timestamp,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte(ContentType)},
			{Key: "event-type", Value: []byte(EventType)},
			{Key: "level", Value: []byte(e.Level)},
		},
	}
	if c := e.Context.Component; c != "" {
		msg.Key = []byte(c)
	}
	return msg, nil
}

// Metrics returns the publisher's running totals.
func (p *Publisher) Metrics() Metrics {
	return p.stats.snapshot(p.topic, p.writer.Stats())
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string { return p.topic }

// Close flushes queued messages and closes the writer. Safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

var _ logstore.Publisher = (*Publisher)(nil)
