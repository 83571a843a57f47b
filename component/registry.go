package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/faultline/logger"
)

// stopBudget bounds each component's Stop.
const stopBudget = 10 * time.Second

type slot struct {
	c       Component
	running bool
}

// Registry owns component lifecycles: start in registration order, stop
// in reverse.
type Registry struct {
	mu     sync.RWMutex
	slots  []*slot
	byName map[string]*slot
	log    *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Get("component")
	}
	return &Registry{byName: map[string]*slot{}, log: log}
}

// Register appends c. Dependencies must be registered before dependents.
func (r *Registry) Register(c Component) error {
	name := c.Name()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("component: %q registered twice", name)
	}
	s := &slot{c: c}
	r.slots = append(r.slots, s)
	r.byName[name] = s
	return nil
}

// StartAll starts components that are not running yet and returns the
// first failure. Whatever started before it keeps running until StopAll.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.running {
			continue
		}
		if err := r.start(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) start(ctx context.Context, s *slot) error {
	name := s.c.Name()
	if err := s.c.Start(ctx); err != nil {
		r.log.Error("component start failed", logger.ErrorFields("start "+name, err))
		return fmt.Errorf("component: start %s: %w", name, err)
	}
	s.running = true

	fields := logger.Fields(logger.FieldComponent, name)
	if d, ok := s.c.(Describable); ok {
		desc := d.Describe()
		fields["type"], fields["details"] = desc.Type, desc.Details
	}
	r.log.Info("component started", fields)
	if rp, ok := s.c.(RouteProvider); ok {
		for _, rt := range rp.Routes() {
			r.log.Debug("route", logger.Fields("method", rt.Method, "path", rt.Path, "handler", rt.Handler))
		}
	}
	return nil
}

// StopAll stops running components newest first and joins their errors.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for i := len(r.slots) - 1; i >= 0; i-- {
		if s := r.slots[i]; s.running {
			errs = append(errs, r.stop(ctx, s))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) stop(ctx context.Context, s *slot) error {
	name := s.c.Name()
	ctx, cancel := context.WithTimeout(ctx, stopBudget)
	defer cancel()
	s.running = false
	if err := s.c.Stop(ctx); err != nil {
		r.log.Error("component stop failed", logger.ErrorFields("stop "+name, err))
		return fmt.Errorf("component: stop %s: %w", name, err)
	}
	r.log.Debug("component stopped", logger.Fields(logger.FieldComponent, name))
	return nil
}

// HealthAll probes all components in parallel. Reports come back in
// registration order with Name filled in and Took measured.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	comps := r.All()
	out := make([]Health, len(comps))
	var g errgroup.Group
	for i, c := range comps {
		g.Go(func() error {
			began := time.Now()
			h := c.Health(ctx)
			if h.Name == "" {
				h.Name = c.Name()
			}
			h.Took = time.Since(began)
			out[i] = h
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Get returns the component registered as name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s := r.byName[name]; s != nil {
		return s.c
	}
	return nil
}

// All lists components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.c
	}
	return out
}
