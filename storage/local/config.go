package local

import (
	"fmt"
	"io/fs"
)

// Defaults for the local backend.
const (
	DefaultBasePath = "./data"
	DefaultFileMode = fs.FileMode(0o600)
)

// Config holds local filesystem storage configuration.
type Config struct {
	// BasePath is the directory holding one file per key. It is created on
	// start when missing.
	BasePath string `yaml:"base_path" mapstructure:"base_path" json:"base_path"`

	// FileMode is applied to every file written. Error logs can carry
	// request details, so the default is owner-only.
	FileMode fs.FileMode `yaml:"file_mode" mapstructure:"file_mode" json:"file_mode"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.FileMode == 0 {
		c.FileMode = DefaultFileMode
	}
}

// Validate rejects modes the service itself could not read back.
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("local: base_path is required")
	}
	if c.FileMode&^fs.ModePerm != 0 {
		return fmt.Errorf("local: file_mode %o has bits outside the permission range", c.FileMode)
	}
	if c.FileMode&0o600 != 0o600 {
		return fmt.Errorf("local: file_mode %o must let the owner read and write", c.FileMode)
	}
	return nil
}
