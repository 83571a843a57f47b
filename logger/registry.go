package logger

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// componentLevels overrides the configured level for named components, so
// one noisy subsystem can be turned up without flooding the rest.
var componentLevels = struct {
	mu     sync.RWMutex
	levels map[string]zerolog.Level
}{levels: map[string]zerolog.Level{}}

// SetComponentLevels replaces the per-component level overrides, keyed by
// the name passed to WithComponent.
func SetComponentLevels(levels map[string]string) error {
	parsed := make(map[string]zerolog.Level, len(levels))
	for name, lvl := range levels {
		l, err := zerolog.ParseLevel(lvl)
		if err != nil || lvl == "" {
			return fmt.Errorf("logging.components.%s: invalid level %q", name, lvl)
		}
		parsed[name] = l
	}
	componentLevels.mu.Lock()
	componentLevels.levels = parsed
	componentLevels.mu.Unlock()
	return nil
}

func componentLevel(name string) (zerolog.Level, bool) {
	componentLevels.mu.RLock()
	defer componentLevels.mu.RUnlock()
	l, ok := componentLevels.levels[name]
	return l, ok
}

// Get returns the global logger tagged with component name.
func Get(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}
