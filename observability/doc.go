// Package observability wires OpenTelemetry tracing and metrics.
//
// InitTracer and InitMeter install global providers exporting over OTLP/HTTP.
// Metrics bundles the counters the retry engine, the log store and the
// notification bridge record into; a nil *Metrics records nothing.
package observability
