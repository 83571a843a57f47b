package logstore

import (
	"context"
	"fmt"

	"github.com/kbukum/faultline/component"
)

var (
	_ component.Component   = (*Store)(nil)
	_ component.Describable = (*Store)(nil)
)

// Name returns the component name.
func (s *Store) Name() string { return "logstore" }

// Start loads the persisted log.
func (s *Store) Start(ctx context.Context) error { return s.Init(ctx) }

// Stop flushes the log.
func (s *Store) Stop(ctx context.Context) error { return s.Dispose(ctx) }

// Health is degraded while the last persist attempt failed.
func (s *Store) Health(_ context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case !s.started:
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not initialized"}
	case s.persistErr != nil:
		return component.Health{Name: s.Name(), Status: component.StatusDegraded, Message: fmt.Sprintf("persist failed: %v", s.persistErr)}
	default:
		return component.Health{Name: s.Name(), Status: component.StatusHealthy, Message: fmt.Sprintf("%d entries", len(s.entries))}
	}
}

// Describe returns summary info for the startup display.
func (s *Store) Describe() component.Description {
	return component.Description{
		Name:    "Error Log",
		Type:    "logstore",
		Details: fmt.Sprintf("max=%d persist=%d key=%s session=%s", s.cfg.MaxEntries, s.cfg.PersistEntries, s.cfg.StorageKey, s.sessionID),
	}
}
