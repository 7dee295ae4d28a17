package connector

import (
	"fmt"
	"sort"
	"sync"
)

// registry holds all registered connector kinds, keyed by Kind().
// Kinds register themselves in init(), so the map is effectively
// read-only once the package is initialised.
var registry = struct {
	mu    sync.RWMutex
	kinds map[string]Connector
}{
	kinds: make(map[string]Connector),
}

// Register adds a connector to the registry. It panics on a duplicate
// kind: that is a programming error, not a runtime condition.
func Register(c Connector) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	kind := c.Kind()
	if _, exists := registry.kinds[kind]; exists {
		panic(fmt.Sprintf("connector: kind %q registered twice", kind))
	}
	registry.kinds[kind] = c
}

// Lookup resolves a connector kind by name.
//
// Returns:
//   - Connector: The registered connector
//   - error: ErrUnknownConnector (wrapped with the kind) if unregistered
func Lookup(kind string) (Connector, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	c, ok := registry.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnector, kind)
	}
	return c, nil
}

// Kinds returns the sorted names of all registered connector kinds.
func Kinds() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.kinds))
	for name := range registry.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the metadata and capabilities a connector kind
// declares. Read-only, no side effects.
func Describe(kind string) (Info, Capabilities, error) {
	c, err := Lookup(kind)
	if err != nil {
		return Info{}, Capabilities{}, err
	}
	return c.Info(), c.Capabilities(), nil
}
