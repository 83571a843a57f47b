package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/faultline/logger"
)

// DriverSQLite is the built-in SQLite dialector.
const DriverSQLite = "sqlite"

// DriverFunc builds a GORM dialector from a DSN.
type DriverFunc func(dsn string) gorm.Dialector

var (
	driversMu sync.RWMutex
	drivers   = map[string]DriverFunc{DriverSQLite: sqlite.Open}
)

// RegisterDriver makes a dialector available under name.
func RegisterDriver(name string, fn DriverFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = fn
}

func lookupDriver(name string) (DriverFunc, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	fn, ok := drivers[name]
	return fn, ok
}

// DB wraps a GORM database with faultline logging.
type DB struct {
	gorm   *gorm.DB
	log    *logger.Logger
	mu     sync.Mutex
	closed bool
}

// Open connects using cfg.Driver, retrying transient connection failures
// with a linear backoff. Other failures are returned immediately.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get("database")
	}
	log = log.WithComponent("database")

	open, _ := lookupDriver(cfg.Driver)
	gormCfg := &gorm.Config{Logger: newQueryLog(log, cfg.SlowQuery, gormLevel(cfg.LogLevel))}

	var err error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("database connection canceled: %w", ctx.Err())
		}

		var db *DB
		db, err = connect(ctx, open(cfg.DSN), gormCfg, cfg)
		if err == nil {
			db.log = log
			log.Info("database connection established", logger.Fields("driver", cfg.Driver, "attempt", attempt))
			return db, nil
		}
		if !IsConnectionError(err) || attempt == cfg.MaxRetries {
			break
		}

		backoff := time.Duration(attempt) * time.Second
		log.Warn("database connection attempt failed, retrying", logger.Fields(
			"attempt", attempt, "error", err.Error(), "backoff", backoff.String(),
		))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("database connection canceled during retry: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("database: connect %s: %w", cfg.Driver, err)
}

func connect(ctx context.Context, d gorm.Dialector, gormCfg *gorm.Config, cfg Config) (*DB, error) {
	gdb, err := gorm.Open(d, gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // ping error takes precedence
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return &DB{gorm: gdb}, nil
}

// WithContext returns a GORM session scoped to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.gorm.WithContext(ctx)
}

// PingContext verifies the connection is alive.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool. Safe to call more than once.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	d.closed = true
	d.log.Info("closing database connection")
	return sqlDB.Close()
}
