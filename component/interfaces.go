package component

import (
	"context"
	"time"
)

// HealthStatus is the coarse state a component reports about itself.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// severity orders statuses; unknown values count as unhealthy.
func (s HealthStatus) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Health is one component's answer to a health probe. Took is filled in by
// the registry.
type Health struct {
	Name    string        `json:"name"`
	Status  HealthStatus  `json:"status"`
	Message string        `json:"message,omitempty"`
	Took    time.Duration `json:"took_ns,omitempty"`
}

// Overall folds a set of reports into the worst status seen. An empty set
// is healthy.
func Overall(reports []Health) HealthStatus {
	worst := StatusHealthy
	for _, h := range reports {
		if h.Status.severity() > worst.severity() {
			worst = h.Status
			if worst.severity() == StatusUnhealthy.severity() {
				break
			}
		}
	}
	return worst
}

// FirstUnhealthy returns the name of the first unhealthy report, or "".
func FirstUnhealthy(reports []Health) string {
	for _, h := range reports {
		if h.Status.severity() >= StatusUnhealthy.severity() {
			return h.Name
		}
	}
	return ""
}

// Component is a piece of the recovery service with its own lifecycle:
// the store backends, the log store, the event hub, the HTTP server.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	// Stop releases resources. The context carries the shutdown deadline.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description feeds the "component started" log line.
type Description struct {
	Name    string // falls back to Component.Name
	Type    string // "storage", "server", "redis", "kafka", ...
	Details string // e.g. "cache:6379 db=0"
	Port    int
}

// Describable components add a Description to their startup log.
type Describable interface {
	Describe() Description
}

// Route is one mounted HTTP route, listed at startup.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is implemented by components that serve HTTP.
type RouteProvider interface {
	Routes() []Route
}
