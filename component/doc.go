// Package component is the lifecycle contract for faultline's long-lived
// parts (storage, Redis, the error log, the notification hub, the HTTP
// server) and the Registry that starts them in order and stops them in
// reverse.
package component
