// Package local implements storage.Store on the local filesystem, one file per key.
package local

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(_ storage.Config, providerCfg any, _ *logger.Logger) (storage.Store, error) {
		c := &Config{}
		if providerCfg != nil {
			pc, ok := providerCfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("local: expected *local.Config, got %T", providerCfg)
			}
			c = pc
		}
		c.ApplyDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NewStore(c.BasePath, c.FileMode)
	})
}

// Store keeps each key in its own file under basePath. Keys are path-escaped
// so they never leave the base directory.
type Store struct {
	basePath string
	mode     fs.FileMode
}

// NewStore creates the base directory if needed and returns a store rooted
// there. A zero mode uses DefaultFileMode.
func NewStore(basePath string, mode fs.FileMode) (*Store, error) {
	if mode == 0 {
		mode = DefaultFileMode
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Store{basePath: abs, mode: mode}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.basePath, url.PathEscape(key))
}

// Get reads the file for key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("storage: read %q: %w", key, err)
	}
	return data, nil
}

// Set writes value to a temporary file and renames it over the key's file,
// so readers never observe a partial write.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	f, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmp := f.Name()
	if err := f.Chmod(s.mode); err != nil {
		f.Close() //nolint:errcheck // chmod error takes precedence
		os.Remove(tmp)
		return fmt.Errorf("storage: chmod %q: %w", key, err)
	}
	if _, err := f.Write(value); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		os.Remove(tmp)
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: close %q: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: commit %q: %w", key, err)
	}
	return nil
}

// Delete removes the file for key. Returns nil if it does not exist.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

// BasePath returns the absolute root directory.
func (s *Store) BasePath() string { return s.basePath }

var _ storage.Store = (*Store)(nil)
