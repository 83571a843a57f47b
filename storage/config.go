package storage

import (
	"fmt"

	"github.com/kbukum/faultline/encryption"
)

// Provider constants for the built-in backends.
const (
	ProviderMemory = "memory"
	ProviderLocal  = "local"
	ProviderS3     = "s3"
	ProviderRedis  = "redis"
	ProviderSQL    = "sql"
)

// DefaultProvider is used when no provider is configured.
const DefaultProvider = ProviderMemory

// Config holds backend-independent storage configuration. Provider-specific
// settings travel separately as providerCfg (see New).
type Config struct {
	// Provider selects the backend: "memory", "local", "s3", "redis" or "sql".
	Provider string `yaml:"provider" mapstructure:"provider" json:"provider"`

	// Prefix namespaces every key written through this store.
	Prefix string `yaml:"prefix" mapstructure:"prefix" json:"prefix"`

	// EncryptionKey, when set, seals every value before it reaches the
	// backend. Changing it makes existing values unreadable.
	EncryptionKey string `yaml:"encryption_key" mapstructure:"encryption_key" json:"-"`

	// EncryptionAlgorithm is "aes-256-gcm" (default) or "chacha20-poly1305".
	EncryptionAlgorithm string `yaml:"encryption_algorithm" mapstructure:"encryption_algorithm" json:"encryption_algorithm,omitempty"`

	// Enabled controls whether the storage component opens a backend.
	// A disabled component serves an in-memory store.
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
}

// Validate checks that a provider is selected and the cipher is known.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("storage: provider is required")
	}
	if _, err := encryption.ParseAlgorithm(c.EncryptionAlgorithm); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}
