// Package database backs storage.Store with a SQL table managed by GORM.
//
// Each key is one row holding the raw value and an optional expiry, so the
// error log snapshot and report fingerprints survive restarts on any
// database GORM can reach. SQLite is registered by default; other drivers
// plug in through RegisterDriver:
//
//	import "gorm.io/driver/postgres"
//
//	database.RegisterDriver("postgres", postgres.Open)
//
// # Configuration
//
//	storage:
//	  enabled: true
//	  provider: "sql"
//	  sql:
//	    driver: "sqlite"
//	    dsn: "/var/lib/faultline/faultline.db"
//	    table: "faultline_kv"
//	    slow_query: 200ms
package database
