package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderSQL, func(_ storage.Config, providerCfg any, log *logger.Logger) (storage.Store, error) {
		c := &Config{}
		if providerCfg != nil {
			pc, ok := providerCfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("database: expected *database.Config, got %T", providerCfg)
			}
			c = pc
		}
		return OpenStore(context.Background(), *c, log)
	})
}

// entry is one key-value row.
type entry struct {
	Key       string     `gorm:"column:entry_key;primaryKey;size:255"`
	Value     []byte     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

// Store implements storage.Store and storage.Expirer on a single table.
type Store struct {
	db    *DB
	table string
	now   func() time.Time
}

// OpenStore connects to the database and creates the table if it is missing.
func OpenStore(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	db, err := Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	s := NewStore(db, cfg.Table)
	if err := s.migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // migration error takes precedence
		return nil, err
	}
	return s, nil
}

// NewStore uses an open DB. The table must already exist; OpenStore creates it.
func NewStore(db *DB, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{db: db, table: table, now: time.Now}
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.table).AutoMigrate(&entry{}); err != nil {
		return fmt.Errorf("database: migrate %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.table)
}

// Get returns the value for key. Expired rows are deleted and reported as missing.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var e entry
	err := s.query(ctx).Where("entry_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database: get %q: %w", key, err)
	}
	if e.ExpiresAt != nil && !s.now().Before(*e.ExpiresAt) {
		if err := s.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, storage.ErrNotFound
	}
	return e.Value, nil
}

// Set writes value under key with no expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.put(ctx, key, value, nil)
}

// SetTTL writes value under key; it stops being readable after ttl.
// A non-positive ttl behaves like Set.
func (s *Store) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.put(ctx, key, value, nil)
	}
	exp := s.now().Add(ttl).UTC()
	return s.put(ctx, key, value, &exp)
}

func (s *Store) put(ctx context.Context, key string, value []byte, expiresAt *time.Time) error {
	if value == nil {
		value = []byte{}
	}
	e := entry{Key: key, Value: value, ExpiresAt: expiresAt, UpdatedAt: s.now().UTC()}
	err := s.query(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("database: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.query(ctx).Where("entry_key = ?", key).Delete(&entry{}).Error; err != nil {
		return fmt.Errorf("database: delete %q: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes every expired row and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.query(ctx).Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).Delete(&entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("database: purge expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Expirer = (*Store)(nil)
)
