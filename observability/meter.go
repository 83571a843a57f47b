package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/faultline/logger"
)

// MeterConfig points metric export at an OTLP/HTTP collector.
type MeterConfig struct {
	ServiceName    string            `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string            `yaml:"service_version" mapstructure:"service_version"`
	Environment    string            `yaml:"environment" mapstructure:"environment"`
	Endpoint       string            `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool              `yaml:"insecure" mapstructure:"insecure"`
	Headers        map[string]string `yaml:"headers" mapstructure:"headers"`
	// Interval between pushes; zero keeps the SDK default of one minute.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig targets a local collector, pushing every 15s.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider with a periodic OTLP reader.
// Shutting the provider down pushes the last collection.
func InitMeter(ctx context.Context, cfg *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: metric exporter: %w", err)
	}

	res, err := serviceResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("observability: resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("metric export enabled", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments for classification, retries and alerts.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	classified    metric.Int64Counter
	retryAttempts metric.Int64Counter
	retryOutcomes metric.Int64Counter
	retryDelay    metric.Float64Histogram
	alerts        metric.Int64Counter
	notifications metric.Int64Counter
	entries       metric.Int64UpDownCounter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	classified, err := meter.Int64Counter("faultline.errors.classified",
		metric.WithDescription("Classified errors by kind and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating faultline.errors.classified counter: %w", err)
	}

	retryAttempts, err := meter.Int64Counter("faultline.retry.attempts",
		metric.WithDescription("Operation invocations made by the retry engine"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating faultline.retry.attempts counter: %w", err)
	}

	retryOutcomes, err := meter.Int64Counter("faultline.retry.outcomes",
		metric.WithDescription("Finished retry invocations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating faultline.retry.outcomes counter: %w", err)
	}

	retryDelay, err := meter.Float64Histogram("faultline.retry.delay",
		metric.WithDescription("Backoff delay before a retry"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating faultline.retry.delay histogram: %w", err)
	}

	alerts, err := meter.Int64Counter("faultline.alerts.critical",
		metric.WithDescription("Critical pattern alerts raised by burst detection"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating faultline.alerts.critical counter: %w", err)
	}

	notifications, err := meter.Int64Counter("faultline.notifications.shown",
		metric.WithDescription("Notifications handed to toasters"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating faultline.notifications.shown counter: %w", err)
	}

	entries, err := meter.Int64UpDownCounter("faultline.logstore.entries",
		metric.WithDescription("Entries currently retained by the log store"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating faultline.logstore.entries counter: %w", err)
	}

	return &Metrics{
		classified:    classified,
		retryAttempts: retryAttempts,
		retryOutcomes: retryOutcomes,
		retryDelay:    retryDelay,
		alerts:        alerts,
		notifications: notifications,
		entries:       entries,
	}, nil
}

// RecordClassified counts a classified error.
func (m *Metrics) RecordClassified(ctx context.Context, kind, component string, retryable bool) {
	if m == nil {
		return
	}
	m.classified.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrErrorKind, kind),
		attribute.String(AttrComponent, component),
		attribute.Bool(AttrRetryable, retryable),
	))
}

// RecordAttempt counts one invocation of a retried operation.
func (m *Metrics) RecordAttempt(ctx context.Context, action string, attempt int) {
	if m == nil {
		return
	}
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAction, action),
		attribute.Bool("first", attempt == 0),
	))
}

// RecordRetryDelay records the backoff chosen before a retry.
func (m *Metrics) RecordRetryDelay(ctx context.Context, action string, d time.Duration) {
	if m == nil {
		return
	}
	m.retryDelay.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrAction, action)))
}

// RecordOutcome counts a finished retry invocation.
// Outcome is one of "success", "recovered", "exhausted", "terminal", "canceled".
func (m *Metrics) RecordOutcome(ctx context.Context, action, outcome string, attempts int) {
	if m == nil {
		return
	}
	m.retryOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAction, action),
		attribute.String(AttrOutcome, outcome),
		attribute.Int(AttrAttempts, attempts),
	))
}

// RecordAlert counts a critical pattern alert.
func (m *Metrics) RecordAlert(ctx context.Context, component string) {
	if m == nil {
		return
	}
	m.alerts.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrComponent, component)))
}

// RecordNotification counts a notification handed to the toaster.
func (m *Metrics) RecordNotification(ctx context.Context, level string, critical bool) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("level", level),
		attribute.Bool("critical", critical),
	))
}

// AddEntries adjusts the retained entry gauge.
func (m *Metrics) AddEntries(ctx context.Context, delta int64) {
	if m == nil || delta == 0 {
		return
	}
	m.entries.Add(ctx, delta)
}
