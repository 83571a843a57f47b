// Package server is the diagnostics HTTP API: a Gin engine served over
// HTTP/1.1 and h2c behind recovery, request id, CORS, body size, and
// request logging middleware.
//
// Routes (RegisterAPI):
//
//	GET    /health                        component health
//	GET    /ready                         readiness probe
//	GET    /api/v1/logs                   search the error log
//	GET    /api/v1/logs/export            export document download
//	GET    /api/v1/logs/metrics           aggregate metrics
//	POST   /api/v1/logs/:id/resolve       mark an entry resolved
//	DELETE /api/v1/logs                   clear the log
//	POST   /api/v1/errors                 browser-submitted failure
//	POST   /api/v1/actions                user action audit
//	GET    /api/v1/notifications/stream   toasts over SSE
package server
