package server

import (
	"github.com/kbukum/faultline/auth"
	"github.com/kbukum/faultline/authz"
	"github.com/kbukum/faultline/server/endpoint"
	"github.com/kbukum/faultline/server/middleware"
	"github.com/kbukum/faultline/sse"
)

// API is what the diagnostics routes are served from. Nil fields leave
// their routes unregistered.
type API struct {
	ServiceName string
	Health      endpoint.HealthChecker
	Logs        endpoint.LogStore
	Errors      endpoint.ErrorHandler
	Hub         *sse.Hub
	// Auth, when set, guards every /api/v1 route and each route checks the
	// principal's scopes. Health probes stay open.
	Auth auth.TokenValidator
}

// RegisterAPI mounts the health, log, ingest, and notification routes.
func (s *Server) RegisterAPI(api API) {
	r := s.engine
	r.GET("/health", endpoint.Health(api.ServiceName, api.Health))
	r.GET("/ready", endpoint.Readiness(api.ServiceName, api.Health))

	v1 := r.Group("/api/v1")
	if api.Auth != nil {
		v1.Use(middleware.Auth(api.Auth))
	}
	ingest := middleware.RateLimit(middleware.RateLimitConfig{Rate: s.config.IngestRate, Burst: s.config.IngestBurst})

	read := middleware.Require(authz.LogsRead)
	write := middleware.Require(authz.LogsWrite)

	if api.Logs != nil {
		v1.GET("/logs", read, endpoint.ListLogs(api.Logs))
		v1.GET("/logs/export", read, endpoint.ExportLogs(api.Logs))
		v1.GET("/logs/metrics", read, endpoint.LogMetrics(api.Logs))
		v1.POST("/logs/:id/resolve", write, endpoint.ResolveLog(api.Logs))
		v1.DELETE("/logs", write, endpoint.ClearLogs(api.Logs))
		v1.POST("/actions", middleware.Require(authz.ErrorsWrite), ingest, endpoint.RecordAction(api.Logs))
	}
	if api.Errors != nil {
		v1.POST("/errors", middleware.Require(authz.ErrorsWrite), ingest, endpoint.IngestError(api.Errors))
	}
	if api.Hub != nil {
		v1.GET("/notifications/stream", middleware.Require(authz.NotificationsRead), endpoint.NotificationStream(api.Hub))
	}
}
