package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("storage: key not found")

// Store is a minimal durable key-value store.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Expirer is optionally implemented by stores that can expire keys on their own.
type Expirer interface {
	SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GetJSON reads key and decodes it into dst.
func GetJSON(ctx context.Context, s Store, key string, dst any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("storage: decode %q: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and writes it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %q: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// SetWithTTL uses the store's native expiry when available and falls back
// to a plain Set otherwise. Callers that need expiry on every backend must
// also check the age of what they read.
func SetWithTTL(ctx context.Context, s Store, key string, value []byte, ttl time.Duration) error {
	if e, ok := s.(Expirer); ok && ttl > 0 {
		return e.SetTTL(ctx, key, value, ttl)
	}
	return s.Set(ctx, key, value)
}

// WithPrefix namespaces every key of s under prefix.
func WithPrefix(s Store, prefix string) Store {
	prefix = strings.Trim(prefix, ":/ ")
	if prefix == "" {
		return s
	}
	return &prefixed{inner: s, prefix: prefix + ":"}
}

type prefixed struct {
	inner  Store
	prefix string
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}

func (p *prefixed) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return SetWithTTL(ctx, p.inner, p.prefix+key, value, ttl)
}

func (p *prefixed) unwrap() Store { return p.inner }

// Sealer encrypts values at rest. encryption.Cipher satisfies it.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// WithEncryption seals every value written through s with c and opens it
// again on read. Keys are stored in the clear.
func WithEncryption(s Store, c Sealer) Store {
	return &sealed{inner: s, cipher: c}
}

type sealed struct {
	inner  Store
	cipher Sealer
}

func (e *sealed) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := e.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plaintext, err := e.cipher.Open(data)
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", key, err)
	}
	return plaintext, nil
}

func (e *sealed) Set(ctx context.Context, key string, value []byte) error {
	data, err := e.cipher.Seal(value)
	if err != nil {
		return fmt.Errorf("storage: seal %q: %w", key, err)
	}
	return e.inner.Set(ctx, key, data)
}

func (e *sealed) Delete(ctx context.Context, key string) error {
	return e.inner.Delete(ctx, key)
}

func (e *sealed) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := e.cipher.Seal(value)
	if err != nil {
		return fmt.Errorf("storage: seal %q: %w", key, err)
	}
	return SetWithTTL(ctx, e.inner, key, data, ttl)
}

func (e *sealed) unwrap() Store { return e.inner }

// Close releases the backend behind s when it holds resources such as a
// connection pool. Stores without a Close method are left alone.
func Close(s Store) error {
	for {
		w, ok := s.(interface{ unwrap() Store })
		if !ok {
			break
		}
		s = w.unwrap()
	}
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
