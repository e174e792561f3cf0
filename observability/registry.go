package observability

import (
	"fmt"
	"log/slog"
	"sync"
)

// The global registry lets tooling select an observer by name, typically
// from a flag or config value. "noop" and "slog" come pre-registered.
var (
	registryMutex sync.RWMutex
	registry      = map[string]Observer{
		"noop": NoOpObserver{},
		"slog": NewSlogObserver(slog.Default()),
	}
)

// GetObserver looks up an observer by its registered name.
func GetObserver(name string) (Observer, error) {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	obs, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown observer %q", name)
	}
	return obs, nil
}

// RegisterObserver adds or replaces a named observer.
func RegisterObserver(name string, observer Observer) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	registry[name] = observer
}
