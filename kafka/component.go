package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/faultline/component"
	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/logstore"
)

// Component owns a Publisher and implements component.Component. It can be
// handed to the log store before Start: entries published while it is
// stopped are dropped.
type Component struct {
	cfg  Config
	log  *logger.Logger
	opts []Option

	mu  sync.RWMutex
	pub *Publisher
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
	_ logstore.Publisher    = (*Component)(nil)
)

// NewComponent creates a Kafka component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger, opts ...Option) *Component {
	if log == nil {
		log = logger.Get("kafka")
	}
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("kafka"), opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string { return "kafka" }

// Publisher returns the running publisher, or nil if not started.
func (c *Component) Publisher() *Publisher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pub
}

// Start creates the publisher.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pub != nil {
		return nil
	}
	pub, err := NewPublisher(c.cfg, c.log, c.opts...)
	if err != nil {
		return fmt.Errorf("kafka start: %w", err)
	}
	c.pub = pub
	return nil
}

// Stop flushes and closes the publisher.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	pub := c.pub
	c.pub = nil
	c.mu.Unlock()
	if pub == nil {
		return nil
	}
	err := pub.Close()
	m := pub.Metrics()
	c.log.Info("kafka publisher stopped", logger.Fields(
		"topic", m.Topic,
		"queued", m.Queued,
		"delivered", m.Delivered,
		"failed", m.Failed,
	))
	return err
}

// PublishEntry forwards to the running publisher.
func (c *Component) PublishEntry(ctx context.Context, e logstore.Entry) error {
	pub := c.Publisher()
	if pub == nil {
		return nil
	}
	return pub.PublishEntry(ctx, e)
}

// Health checks broker connectivity by dialling the first broker.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.Publisher() == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "kafka not started"}
	}
	if len(c.cfg.Brokers) == 0 {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "no brokers configured"}
	}

	dialer, err := c.cfg.dialer()
	if err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("dialer: %v", err)}
	}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Brokers[0])
	if err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("broker unreachable: %v", err)}
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: fmt.Sprintf("broker metadata: %v", err)}
	}
	if m := c.Publisher().Metrics(); m.Failed > 0 {
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: fmt.Sprintf("%d of %d events undelivered", m.Failed, m.Queued)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns infrastructure summary info for the startup display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Kafka",
		Type:    "kafka",
		Details: fmt.Sprintf("brokers=%v topic=%s min_level=%s", c.cfg.Brokers, c.cfg.Topic, c.cfg.MinLevel),
	}
}
