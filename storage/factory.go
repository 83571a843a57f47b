package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/faultline/encryption"
	"github.com/kbukum/faultline/logger"
)

// Factory creates a Store from core config and provider-specific
// configuration. Each provider type-asserts providerCfg to its own config type.
type Factory func(cfg Config, providerCfg any, log *logger.Logger) (Store, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{
		ProviderMemory: func(Config, any, *logger.Logger) (Store, error) { return NewMemory(), nil },
	}
)

// RegisterFactory registers a backend factory for the given provider name.
// Backend packages call this from an init function.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates a Store for cfg.Provider, namespaced under cfg.Prefix.
// The provider package must have been imported (for example
// _ "github.com/kbukum/faultline/storage/local") so its factory is registered.
func New(cfg Config, providerCfg any, log *logger.Logger) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get("storage")
	}
	l := log.WithComponent("storage")

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}

	l.Info("initializing storage", logger.Fields("provider", cfg.Provider, "prefix", cfg.Prefix))
	s, err := f(cfg, providerCfg, l)
	if err != nil {
		return nil, err
	}
	if cfg.EncryptionKey != "" {
		alg, _ := encryption.ParseAlgorithm(cfg.EncryptionAlgorithm)
		c, err := encryption.New(cfg.EncryptionKey, encryption.WithAlgorithm(alg))
		if err != nil {
			_ = Close(s)
			return nil, err
		}
		l.Info("storage values are encrypted", logger.Fields("algorithm", string(alg)))
		s = WithEncryption(s, c)
	}
	return WithPrefix(s, cfg.Prefix), nil
}
