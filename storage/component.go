package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kbukum/faultline/component"
	"github.com/kbukum/faultline/logger"
)

// probeKey is read by Health. Nothing writes it, so ErrNotFound is the
// expected answer from a reachable backend.
const probeKey = ".health"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component owns the Store built from Config for the registry lifecycle.
type Component struct {
	cfg      Config
	provider any
	log      *logger.Logger

	mu    sync.RWMutex
	store Store
}

// NewComponent takes the backend's own config (s3.Config, redis options,
// local.Config) as provider; memory needs none.
func NewComponent(cfg Config, provider any, log *logger.Logger) *Component {
	if log == nil {
		log = logger.Get("storage")
	}
	return &Component{cfg: cfg, provider: provider, log: log.WithComponent("storage")}
}

func (c *Component) Name() string { return "storage" }

// Store is nil outside Start/Stop.
func (c *Component) Store() Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

// Start opens the backend. When storage is disabled entries still need a
// home, so the component serves a memory store instead.
func (c *Component) Start(_ context.Context) error {
	cfg := c.cfg
	if !cfg.Enabled {
		cfg.Provider = ProviderMemory
		c.log.Info("storage disabled, entries kept in memory")
	}
	s, err := New(cfg, c.provider, c.log)
	if err != nil {
		return fmt.Errorf("storage: start %s: %w", cfg.Provider, err)
	}
	c.mu.Lock()
	c.store = s
	c.mu.Unlock()
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	s := c.store
	c.store = nil
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	if err := Close(s); err != nil {
		return fmt.Errorf("storage: stop: %w", err)
	}
	return nil
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	s := c.Store()
	if s == nil {
		h.Status, h.Message = component.StatusUnhealthy, "not started"
		return h
	}
	if _, err := s.Get(ctx, probeKey); err != nil && !errors.Is(err, ErrNotFound) {
		h.Status, h.Message = component.StatusUnhealthy, "probe: "+err.Error()
	}
	return h
}

// BucketDescriber is implemented by provider configs that name a bucket.
type BucketDescriber interface {
	GetBucket() string
}

func (c *Component) Describe() component.Description {
	parts := []string{"provider=" + c.cfg.Provider}
	if c.cfg.Prefix != "" {
		parts = append(parts, "prefix="+c.cfg.Prefix)
	}
	if bd, ok := c.provider.(BucketDescriber); ok && bd.GetBucket() != "" {
		parts = append(parts, "bucket="+bd.GetBucket())
	}
	return component.Description{Name: "Storage", Type: "storage", Details: strings.Join(parts, " ")}
}
