package logger

import (
	"errors"
	"fmt"
	"slices"
)

// Config is the logging section of the service config.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`

	// Components overrides Level per component, e.g. {database: debug}.
	Components map[string]string `yaml:"components" mapstructure:"components"`

	// File rotation, used when Output is "file".
	File       string `yaml:"file" mapstructure:"file"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // megabytes
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // number of backups
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // days
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
	LocalTime  bool   `yaml:"local_time" mapstructure:"local_time"`
}

var (
	levels  = []string{"trace", "debug", "info", "warn", "error", "fatal"}
	formats = []string{FormatJSON, FormatConsole, FormatPretty}
	outputs = []string{"stdout", "stderr", "file"}
)

// ApplyDefaults fills unset fields. Timestamps are always on.
func (c *Config) ApplyDefaults() {
	setString(&c.Level, "info")
	setString(&c.Format, FormatConsole)
	setString(&c.Output, "stdout")
	if c.Output == "file" {
		setString(&c.File, "faultline.log")
	}
	setInt(&c.MaxSize, 100)
	setInt(&c.MaxBackups, 3)
	setInt(&c.MaxAge, 28)
	c.Timestamp = true
}

// Validate reports every unknown level, format or output.
func (c *Config) Validate() error {
	var errs []error
	check := func(key, got string, allowed []string) {
		if !slices.Contains(allowed, got) {
			errs = append(errs, fmt.Errorf("logging.%s must be one of %v (got: %s)", key, allowed, got))
		}
	}
	check("level", c.Level, levels)
	check("format", c.Format, formats)
	check("output", c.Output, outputs)
	for name, lvl := range c.Components {
		check("components."+name, lvl, levels)
	}
	return errors.Join(errs...)
}

func setString(p *string, def string) {
	if *p == "" {
		*p = def
	}
}

func setInt(p *int, def int) {
	if *p == 0 {
		*p = def
	}
}
