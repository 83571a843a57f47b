package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem is what the loader needs from the disk. Tests swap it out.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem reads the real filesystem and loads .env files with godotenv.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (OSFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

// Files are the config and env files a load reads. Either may be empty.
type Files struct {
	Config string
	Env    string
}

// Locate picks the first existing config.yml and .env for service, looking
// under cmd/<service>, config/ and the working directory, then one and two
// levels up so tests run from package directories find them too.
func Locate(fsys FileSystem, service string) Files {
	var dirs []string
	for _, up := range []string{".", "..", filepath.Join("..", "..")} {
		dirs = append(dirs,
			filepath.Join(up, "cmd", service),
			filepath.Join(up, "config"),
			up,
		)
	}
	return Files{
		Config: first(fsys, dirs, "config.yml", "config.yaml"),
		Env:    first(fsys, dirs, ".env."+service, ".env"),
	}
}

func first(fsys FileSystem, dirs []string, names ...string) string {
	for _, name := range names {
		for _, dir := range dirs {
			if p := filepath.Join(dir, name); fsys.Exists(p) {
				return p
			}
		}
	}
	return ""
}

type options struct {
	fs        FileSystem
	files     Files
	envPrefix string
	defaults  map[string]any
}

// Option adjusts a LoadConfig call.
type Option func(*options)

// WithFileSystem replaces the OS filesystem.
func WithFileSystem(fs FileSystem) Option {
	return func(o *options) { o.fs = fs }
}

// WithConfigFile skips the search for config.yml.
func WithConfigFile(path string) Option {
	return func(o *options) { o.files.Config = path }
}

// WithEnvFile skips the search for .env.
func WithEnvFile(path string) Option {
	return func(o *options) { o.files.Env = path }
}

// WithEnvPrefix binds only variables named PREFIX_*, with the prefix cut.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) { o.envPrefix = strings.ToUpper(strings.TrimSuffix(prefix, "_")) }
}

// WithDefault sets the value for key when neither file nor environment does.
func WithDefault(key string, value any) Option {
	return func(o *options) {
		if o.defaults == nil {
			o.defaults = make(map[string]any)
		}
		o.defaults[key] = value
	}
}

// LoadConfig fills cfg from defaults, then config.yml, then .env and the
// process environment, later sources winning. Files that do not exist are
// skipped; files that exist but do not parse fail the load.
func LoadConfig(service string, cfg any, opts ...Option) error {
	o := options{fs: OSFileSystem{}}
	for _, opt := range opts {
		opt(&o)
	}

	found := Locate(o.fs, service)
	if o.files.Config == "" {
		o.files.Config = found.Config
	}
	if o.files.Env == "" {
		o.files.Env = found.Env
	}

	v := viper.New()
	for key, value := range o.defaults {
		v.SetDefault(key, value)
	}
	if path := o.files.Config; path != "" && o.fs.Exists(path) {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if path := o.files.Env; path != "" && o.fs.Exists(path) {
		if err := o.fs.LoadEnv(path); err != nil {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	bindEnvVars(v, os.Environ(), o.envPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", service, err)
	}
	return nil
}

// bindEnvVars sets each variable under every key its name could spell.
// With a prefix, variables without it are ignored.
func bindEnvVars(v *viper.Viper, environ []string, prefix string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			if name, ok = strings.CutPrefix(name, prefix+"_"); !ok {
				continue
			}
		}
		for _, key := range envKeys(name) {
			v.Set(key, value)
		}
	}
}

// maxSplitParts bounds envKeys to 2^(n-1) keys per variable.
const maxSplitParts = 6

// envKeys lists the config keys a variable name can address, reading each
// underscore either as a nesting dot or as part of a key:
//
//	STORE_MAX_ENTRIES -> store_max_entries, store.max_entries, store_max.entries, store.max.entries
//
// Longer names only get the flat and fully dotted forms.
func envKeys(name string) []string {
	parts := strings.Split(strings.ToLower(name), "_")
	if len(parts) == 1 {
		return parts
	}
	if len(parts) > maxSplitParts {
		flat := strings.Join(parts, "_")
		return []string{flat, strings.Join(parts, ".")}
	}

	seps := len(parts) - 1
	keys := make([]string, 0, 1<<seps)
	var b strings.Builder
	for mask := 0; mask < 1<<seps; mask++ {
		b.Reset()
		b.WriteString(parts[0])
		for i := 1; i < len(parts); i++ {
			if mask&(1<<(i-1)) != 0 {
				b.WriteByte('.')
			} else {
				b.WriteByte('_')
			}
			b.WriteString(parts[i])
		}
		keys = append(keys, b.String())
	}
	return keys
}
