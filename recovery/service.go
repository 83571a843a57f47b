package recovery

import (
	"context"
	stderrors "errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/faultline/auth"
	"github.com/kbukum/faultline/component"
	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/kafka"
	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/logstore"
	"github.com/kbukum/faultline/notify"
	"github.com/kbukum/faultline/observability"
	"github.com/kbukum/faultline/redis"
	"github.com/kbukum/faultline/report"
	"github.com/kbukum/faultline/resilience"
	"github.com/kbukum/faultline/server"
	"github.com/kbukum/faultline/sse"
	"github.com/kbukum/faultline/storage"
)

// StreamPath is where the notification stream is served.
const StreamPath = "/api/v1/notifications/stream"

// Service owns every faultline component.
type Service struct {
	cfg        Config
	log        *logger.Logger
	classifier *errors.Classifier
	metrics    *observability.Metrics

	registry *component.Registry
	storage  *storage.Component
	redis    *redis.Component
	events   *kafka.Component
	stream   *sse.Component
	server   *server.Component

	store    *logstore.Store
	bridge   *notify.Bridge
	reporter *report.Reporter
	retrier  *resilience.Retrier

	shutdown []func(context.Context) error
}

// Option configures a Service.
type Option func(*options)

type options struct {
	log        *logger.Logger
	classifier *errors.Classifier
	toasters   []notify.Toaster
	sleep      func(ctx context.Context, d time.Duration) error
	store      []logstore.Option
}

// WithLogger sets the service logger. The default is the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClassifier replaces the default classifier.
func WithClassifier(c *errors.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

// WithToaster adds a toast sink next to the log and stream toasters.
func WithToaster(t notify.Toaster) Option {
	return func(o *options) { o.toasters = append(o.toasters, t) }
}

// WithRetrySleep replaces the retry engine's wait.
func WithRetrySleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

// WithStoreOptions passes extra options to the error log.
func WithStoreOptions(opts ...logstore.Option) Option {
	return func(o *options) { o.store = append(o.store, opts...) }
}

// New validates cfg and wires the components. Nothing is started.
func New(cfg Config, opts ...Option) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("recovery: config validation: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	if o.classifier == nil {
		o.classifier = errors.Default()
	}

	metrics, err := observability.NewMetrics(observability.Meter("github.com/kbukum/faultline"))
	if err != nil {
		return nil, fmt.Errorf("recovery: metrics: %w", err)
	}

	s := &Service{
		cfg:        cfg,
		log:        o.log.WithComponent("recovery"),
		classifier: o.classifier,
		metrics:    metrics,
		registry:   component.NewRegistry(o.log.WithComponent("component")),
	}

	if cfg.Redis.Enabled {
		s.redis = redis.NewComponent(cfg.Redis, o.log)
		if err := s.registry.Register(s.redis); err != nil {
			return nil, err
		}
	}

	s.storage = storage.NewComponent(cfg.Storage.Config, cfg.Storage.providerConfig(&cfg.Redis), o.log)
	if err := s.registry.Register(s.storage); err != nil {
		return nil, err
	}
	kv := lateStore{name: "storage", resolve: s.storage.Store}

	s.stream = sse.NewComponent(StreamPath, sse.WithLogger(o.log.WithComponent("sse")))
	toasters := notify.MultiToaster{
		notify.NewLogToaster(o.log.WithComponent("notify")),
		notify.NewBroadcastToaster(s.stream.Hub(), cfg.Notify.StreamPattern),
	}
	toasters = append(toasters, o.toasters...)
	s.bridge = notify.NewBridge(cfg.Notify, toasters,
		notify.WithLogger(o.log.WithComponent("notify")),
		notify.WithMetrics(metrics),
	)

	storeOpts := []logstore.Option{
		logstore.WithClassifier(o.classifier),
		logstore.WithAlerter(s.bridge),
		logstore.WithMetrics(metrics),
		logstore.WithLogger(o.log.WithComponent("logstore")),
	}
	if cfg.Events.Enabled {
		s.events = kafka.NewComponent(cfg.Events, o.log, kafka.WithSource(cfg.Name))
		if err := s.registry.Register(s.events); err != nil {
			return nil, err
		}
		storeOpts = append(storeOpts, logstore.WithPublisher(s.events))
	}
	if cfg.Report.Enabled {
		s.reporter, err = report.New(cfg.Report, s.dedupeStore(kv), report.WithLogger(o.log.WithComponent("report")))
		if err != nil {
			return nil, err
		}
		storeOpts = append(storeOpts, logstore.WithReporter(s.reporter))
	}
	s.store = logstore.New(cfg.Store, kv, append(storeOpts, o.store...)...)
	if err := s.registry.Register(s.store); err != nil {
		return nil, err
	}
	if err := s.registry.Register(s.stream); err != nil {
		return nil, err
	}

	retryOpts := []resilience.Option{
		resilience.WithClassifier(o.classifier),
		resilience.WithRecorder(s.store),
		resilience.WithProgress(s.bridge),
		resilience.WithMetrics(metrics),
		resilience.WithLogger(o.log.WithComponent("retry")),
	}
	if o.sleep != nil {
		retryOpts = append(retryOpts, resilience.WithSleep(o.sleep))
	}
	s.retrier = resilience.NewRetrier(retryOpts...)

	if cfg.Server.Enabled {
		api := server.API{
			ServiceName: cfg.Name,
			Health:      s.registry.HealthAll,
			Logs:        s.store,
			Errors:      s,
			Hub:         s.stream.Hub(),
		}
		if cfg.Auth.Enabled {
			if api.Auth, err = auth.New(cfg.Auth); err != nil {
				return nil, fmt.Errorf("recovery: auth: %w", err)
			}
			s.log.Info("api authentication enabled", logger.Fields("credentials", cfg.Auth.Describe()))
		}
		srv := server.New(cfg.Server, o.log)
		srv.RegisterAPI(api)
		s.server = server.NewComponent(srv)
		if err := s.registry.Register(s.server); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// dedupeStore keeps report fingerprints in Redis when it is enabled, so
// several instances share one dedupe window.
func (s *Service) dedupeStore(fallback storage.Store) storage.Store {
	if s.redis == nil {
		return fallback
	}
	return lateStore{name: "redis", resolve: func() storage.Store {
		if st := s.redis.Store(); st != nil {
			return storage.WithPrefix(st, s.cfg.Name)
		}
		return nil
	}}
}

// Start initializes telemetry exporters and starts every component in
// order. On failure the components already started are stopped again.
func (s *Service) Start(ctx context.Context) error {
	if err := s.startTelemetry(ctx); err != nil {
		return err
	}
	if err := s.registry.StartAll(ctx); err != nil {
		if stopErr := s.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			s.log.Warn("cleanup after failed start", logger.ErrorFields("stop", stopErr))
		}
		return fmt.Errorf("recovery: start: %w", err)
	}
	fields := logger.Fields("service", s.cfg.Name, "version", s.cfg.Version, logger.FieldSessionID, s.store.SessionID())
	if s.server != nil {
		fields["addr"] = s.server.Server().Addr()
	}
	s.log.Info("faultline started", fields)
	return nil
}

func (s *Service) startTelemetry(ctx context.Context) error {
	if s.cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, s.cfg.Tracing.TracerConfig)
		if err != nil {
			return fmt.Errorf("recovery: tracer: %w", err)
		}
		s.shutdown = append(s.shutdown, tp.Shutdown)
	}
	if s.cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, &s.cfg.Metrics.MeterConfig)
		if err != nil {
			return fmt.Errorf("recovery: meter: %w", err)
		}
		s.shutdown = append(s.shutdown, mp.Shutdown)
	}
	return nil
}

// Stop stops the components in reverse order and flushes telemetry.
func (s *Service) Stop(ctx context.Context) error {
	errs := []error{s.registry.StopAll(ctx)}
	for i := len(s.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, s.shutdown[i](ctx))
	}
	s.shutdown = nil
	return stderrors.Join(errs...)
}

// Run starts the service, blocks until ctx is canceled or SIGINT/SIGTERM
// arrives, and stops within the configured shutdown timeout.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	<-sigCtx.Done()
	stop()
	s.log.Info("shutting down", logger.Fields("timeout", s.cfg.ShutdownTimeout.String()))

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		s.log.Error("shutdown completed with errors", logger.ErrorFields("stop", err))
		return err
	}
	s.log.Info("shutdown complete")
	return nil
}

// Classify turns v into a ClassifiedError without logging or notifying.
func (s *Service) Classify(v any, ectx errors.Context) *errors.ClassifiedError {
	return s.classifier.Classify(v, ectx)
}

// Handle classifies v, appends it to the error log and shows a toast. It is
// the single entry point for failures the application does not retry.
func (s *Service) Handle(ctx context.Context, v any, ectx errors.Context, opts ...notify.Option) *errors.ClassifiedError {
	ce, ok := v.(*errors.ClassifiedError)
	if ok && ce == nil {
		v = nil
	}
	if !ok || ce == nil || !ectx.IsZero() {
		ce = s.classifier.Classify(v, ectx)
	}
	s.metrics.RecordClassified(ctx, ce.Kind().String(), ce.Context().Component, ce.Retryable())
	s.store.LogClassified(ctx, ce, logstore.LevelError)
	s.bridge.Notify(ctx, ce, opts...)
	return ce
}

// Execute runs op under the retry policy configured for ectx.Action.
func (s *Service) Execute(ctx context.Context, ectx errors.Context, op func(context.Context) error) error {
	return s.retrier.Do(ctx, ectx, s.cfg.Retry.For(ectx.Action), op)
}

// Retry is Execute for operations that return a value.
func Retry[T any](ctx context.Context, s *Service, ectx errors.Context, op func(context.Context) (T, error)) (T, error) {
	return resilience.Retry(ctx, s.retrier, ectx, s.cfg.Retry.For(ectx.Action), op)
}

// Health returns the status of every component.
func (s *Service) Health(ctx context.Context) []component.Health {
	return s.registry.HealthAll(ctx)
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Retrier returns the shared retry engine.
func (s *Service) Retrier() *resilience.Retrier { return s.retrier }

// Store returns the error log.
func (s *Service) Store() *logstore.Store { return s.store }

// Bridge returns the notification bridge.
func (s *Service) Bridge() *notify.Bridge { return s.bridge }

// Hub returns the notification stream hub.
func (s *Service) Hub() *sse.Hub { return s.stream.Hub() }

// Reporter returns the remote reporter, or nil when reporting is disabled.
func (s *Service) Reporter() *report.Reporter { return s.reporter }

// Server returns the diagnostics server, or nil when it is disabled.
func (s *Service) Server() *server.Server {
	if s.server == nil {
		return nil
	}
	return s.server.Server()
}

// Components returns the registered components in start order.
func (s *Service) Components() []component.Component { return s.registry.All() }
