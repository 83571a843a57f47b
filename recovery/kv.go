package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/faultline/storage"
)

// lateStore resolves its backend on every call, so consumers built before
// the registry starts see the store once its component is running.
type lateStore struct {
	name    string
	resolve func() storage.Store
}

func (l lateStore) backend() (storage.Store, error) {
	if s := l.resolve(); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("recovery: %s store is not started", l.name)
}

func (l lateStore) Get(ctx context.Context, key string) ([]byte, error) {
	s, err := l.backend()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, key)
}

func (l lateStore) Set(ctx context.Context, key string, value []byte) error {
	s, err := l.backend()
	if err != nil {
		return err
	}
	return s.Set(ctx, key, value)
}

func (l lateStore) Delete(ctx context.Context, key string) error {
	s, err := l.backend()
	if err != nil {
		return err
	}
	return s.Delete(ctx, key)
}

func (l lateStore) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s, err := l.backend()
	if err != nil {
		return err
	}
	return storage.SetWithTTL(ctx, s, key, value, ttl)
}

var _ storage.Expirer = lateStore{}
