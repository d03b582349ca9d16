package transcript

import (
	"fmt"
	"slices"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Adapter)
)

// Register adds an adapter to the registry, keyed by its own Name(). Called
// from each agent subpackage's init().
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[a.Name()] = a
}

// Get retrieves a registered adapter by name.
func Get(name string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	a, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent: %s (available: %v)", name, list())
	}
	return a, nil
}

// List returns the names of every registered adapter, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return list()
}

func list() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FindAllSessions runs FindSessions across every registered adapter and
// returns the union, tagged with which adapter found each path.
func FindAllSessions(repoRoot string) (map[string][]string, error) {
	registryMu.RLock()
	adapters := make([]Adapter, 0, len(registry))
	for _, a := range registry {
		adapters = append(adapters, a)
	}
	registryMu.RUnlock()

	found := make(map[string][]string, len(adapters))
	for _, a := range adapters {
		sessions, err := a.FindSessions(repoRoot)
		if err != nil {
			if _, ok := err.(ErrNoSessionFound); ok {
				continue
			}
			return nil, fmt.Errorf("find sessions for %s: %w", a.Name(), err)
		}
		if len(sessions) > 0 {
			found[a.Name()] = sessions
		}
	}
	return found, nil
}
