// Package security builds *tls.Config values from file-based settings. The
// report collector client and the Redis connection share it.
//
//	cfg := security.TLSConfig{CAFile: "/etc/faultline/ca.pem"}
//	tlsConfig, err := cfg.Build() // nil, nil when nothing is set
package security
