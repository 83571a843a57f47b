// Package report forwards error-level log entries to a remote collector.
//
// Reporter implements logstore.Reporter. Each report is a JSON POST through
// httpclient behind a circuit breaker and a rate limiter. Identical errors
// (same component, action, kind, and message) are sent once per dedupe
// window; the fingerprints live in a storage.Store so the window survives
// restarts when a durable backend is configured. When a signing key is set,
// every request carries a short-lived HS256 bearer token.
package report
