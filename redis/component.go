package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/faultline/component"
	"github.com/kbukum/faultline/logger"
)

// slowPing marks the connection degraded without failing it.
const slowPing = 250 * time.Millisecond

// Component owns the shared Redis connection. Report dedupe and the redis
// storage provider both read through Store once it has started.
type Component struct {
	cfg Config
	log *logger.Logger

	mu           sync.RWMutex
	client       *Client
	lastTimeouts uint32
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	if log == nil {
		log = logger.Get("redis")
	}
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

func (c *Component) Name() string { return "redis" }

// Client is nil until Start succeeds and again after Stop.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Store wraps the live client as a storage.Store, or returns nil when the
// component is not running.
func (c *Component) Store() *Store {
	if cl := c.Client(); cl != nil {
		return NewStore(cl)
	}
	return nil
}

// Start connects and refuses to come up if the server does not answer.
func (c *Component) Start(ctx context.Context) error {
	cl, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis: start: %w", err)
	}
	if err := cl.Ping(ctx); err != nil {
		_ = cl.Close()
		return fmt.Errorf("redis: start: %w", err)
	}

	c.mu.Lock()
	c.client = cl
	c.mu.Unlock()
	c.log.Info("redis connected", logger.Fields("endpoint", c.cfg.Endpoint()))
	return nil
}

// Stop drops the client; later calls are no-ops.
func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	cl := c.client
	c.client = nil
	c.mu.Unlock()
	if cl == nil {
		return nil
	}
	return cl.Close()
}

// Health pings the server. A slow answer, or pool timeouts since the last
// probe, degrade the component.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy}
	cl := c.Client()
	if cl == nil {
		h.Message = "not connected"
		return h
	}

	began := time.Now()
	if err := cl.Ping(ctx); err != nil {
		h.Message = err.Error()
		return h
	}
	rtt := time.Since(began)

	st := cl.PoolStats()
	c.mu.Lock()
	newTimeouts := st.Timeouts - c.lastTimeouts
	c.lastTimeouts = st.Timeouts
	c.mu.Unlock()

	h.Status = component.StatusHealthy
	h.Message = fmt.Sprintf("rtt=%s conns=%d idle=%d", rtt.Round(time.Microsecond), st.TotalConns, st.IdleConns)
	if rtt > slowPing || newTimeouts > 0 {
		h.Status = component.StatusDegraded
		h.Message += fmt.Sprintf(" pool_timeouts=%d", newTimeouts)
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Redis",
		Type:    "redis",
		Details: fmt.Sprintf("%s pool=%d", c.cfg.Endpoint(), c.cfg.PoolSize),
	}
}
