package resultset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pjfl/statetable/statetable"
)

// Wire names of the pre-registered table-level state keys.
const (
	WirePage     = "page"
	WirePageSize = "page_size"
	WireSort     = "sort"
	WireDesc     = "desc"
)

// ParamMap translates state keys into query parameter names. Entries are only ever added or
// explicitly overwritten, never removed.
type ParamMap struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewParamMap returns a map with the table-level keys registered.
func NewParamMap() *ParamMap {
	return &ParamMap{
		names: map[string]string{
			KeyPage:       WirePage,
			KeyPageSize:   WirePageSize,
			KeySortColumn: WireSort,
			KeySortDesc:   WireDesc,
		},
	}
}

// Wire returns the query parameter name of key. A key with no mapping cannot be serialised.
func (pm *ParamMap) Wire(key string) (string, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	wire, exists := pm.names[key]
	if !exists {
		return "", fmt.Errorf("%w: %q has no query parameter", statetable.ErrUnregisteredStateKey, key)
	}

	return wire, nil
}

// Register registers or overwrites the query parameter name of key.
func (pm *ParamMap) Register(key, wire string) error {
	if key == "" || wire == "" {
		return fmt.Errorf("%w: empty key or parameter name", statetable.ErrUnregisteredStateKey)
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.names[key] = wire

	return nil
}

// Key returns the state key mapped to a query parameter name.
func (pm *ParamMap) Key(wire string) (string, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	for key, name := range pm.names {
		if name == wire {
			return key, true
		}
	}

	return "", false
}

// Keys returns the registered state keys, sorted.
func (pm *ParamMap) Keys() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	keys := make([]string, 0, len(pm.names))
	for key := range pm.names {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}
