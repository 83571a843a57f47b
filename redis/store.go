package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderRedis, func(_ storage.Config, providerCfg any, log *logger.Logger) (storage.Store, error) {
		switch pc := providerCfg.(type) {
		case *Client:
			return NewStore(pc), nil
		case *Config:
			cfg := *pc
			cfg.Enabled = true
			client, err := New(cfg, log)
			if err != nil {
				return nil, err
			}
			return NewStore(client), nil
		default:
			return nil, fmt.Errorf("redis: expected *redis.Client or *redis.Config, got %T", providerCfg)
		}
	})
}

// Store implements storage.Store on a Redis client. Values are stored as plain strings.
type Store struct {
	client *Client
}

// NewStore wraps client. The caller keeps ownership of the client.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// Get returns the value for key, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("redis store get %q: %w", key, err)
	}
	return data, nil
}

// Set stores value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetTTL(ctx, key, value, 0)
}

// SetTTL stores value with native key expiry.
func (s *Store) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl); err != nil {
		return fmt.Errorf("redis store set %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key); err != nil {
		return fmt.Errorf("redis store delete %q: %w", key, err)
	}
	return nil
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Expirer = (*Store)(nil)
)
