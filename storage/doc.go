// Package storage provides a small key-value persistence primitive with
// pluggable backends.
//
// The error log store keeps its bounded snapshot under a single key and the
// reporter keeps fingerprints of already-sent reports; both only need Get,
// Set and Delete. Backends register themselves through RegisterFactory:
//
//   - memory: in-process map, the default
//   - storage/local: one file per key under a base directory
//   - storage/s3: Amazon S3 and S3-compatible object stores
//   - redis: see the redis package
//   - sql: a GORM-managed table, see the database package
//
// # Configuration
//
//	storage:
//	  provider: "local"
//	  prefix: "faultline"
//	  local:
//	    base_path: "/var/lib/faultline"
package storage
