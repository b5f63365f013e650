// Package trait applies named capability records (roles, column traits, row traits) to
// host objects through the advice engine.
//
// A capability record is plain data: an optional initialiser that runs once per
// application and a table of around functions keyed by operation name. Registries are
// injected, never global, so each table, test or embedding application can assemble
// its own set.
package trait

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/advice"
)

// Args carries the per-application arguments a trait's initialiser reads.
type Args map[string]any

// Host is any object whose extension points live on an advice target.
type Host interface {
	Advice() *advice.Target
}

// Binder binds an around function to the host it is applied to.
type Binder[H Host] func(host H) advice.Advice

// Trait is a capability record.
type Trait[H Host] struct {
	Initialise func(host H, args Args) error
	Around     map[string]Binder[H]
}

// Bind is a convenience for building a Binder from a host-aware around function.
func Bind[H Host, A, R any](fn func(host H, original advice.Op[A, R], arg A) R) Binder[H] {
	return func(host H) advice.Advice {
		return advice.Around[A, R](func(original advice.Op[A, R], arg A) R {
			return fn(host, original, arg)
		})
	}
}

// Registry maps capability names to records for one kind of host.
type Registry[H Host] struct {
	kind   string
	mu     sync.RWMutex
	traits map[string]Trait[H]
}

// NewRegistry creates an empty registry. kind names the registry in errors ("role", "cell trait").
func NewRegistry[H Host](kind string) *Registry[H] {
	return &Registry[H]{
		kind:   kind,
		traits: make(map[string]Trait[H]),
	}
}

// Kind returns the registry kind.
func (r *Registry[H]) Kind() string {
	return r.kind
}

// Register adds a capability. Names are unique within a registry.
func (r *Registry[H]) Register(name string, t Trait[H]) error {
	if name == "" {
		return fmt.Errorf("trait: empty %s name", r.kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.traits[name]; exists {
		return fmt.Errorf("%w: %s %q", statetable.ErrCapabilityAlreadyDefined, r.kind, name)
	}

	r.traits[name] = t

	return nil
}

// MustRegister is like Register but panics on error. Meant for building default registries.
func (r *Registry[H]) MustRegister(name string, t Trait[H]) {
	if err := r.Register(name, t); err != nil {
		panic(err)
	}
}

// Lookup returns the named capability.
func (r *Registry[H]) Lookup(name string) (Trait[H], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.traits[name]
	if !exists {
		return Trait[H]{}, &statetable.UnknownCapabilityError{Kind: r.kind, Name: name}
	}

	return t, nil
}

// Has reports whether the named capability is registered.
func (r *Registry[H]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.traits[name]
	return exists
}

// Names returns the registered names, sorted.
func (r *Registry[H]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.traits))
	for name := range r.traits {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Clone returns an independent copy that can be extended without affecting r.
func (r *Registry[H]) Clone() *Registry[H] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := NewRegistry[H](r.kind)
	for name, t := range r.traits {
		clone.traits[name] = t
	}

	return clone
}

// Apply applies the named capabilities to host in the given order. Each capability is
// initialised first, then its around functions are bound to host and installed, in
// operation name order.
func Apply[H Host](host H, registry *Registry[H], names []string, args Args) error {
	for _, name := range names {
		t, err := registry.Lookup(name)
		if err != nil {
			return err
		}

		if t.Initialise != nil {
			if err := t.Initialise(host, args); err != nil {
				return fmt.Errorf("trait: initialising %s %q: %w", registry.kind, name, err)
			}
		}

		if err := install(host, registry.kind, name, t); err != nil {
			return err
		}
	}

	return nil
}

// Reapply restores the host's operations to their base implementations and applies names
// again. Repeating it never stacks advice.
func Reapply[H Host](host H, registry *Registry[H], names []string, args Args) error {
	host.Advice().Reset()

	return Apply(host, registry, names, args)
}

func install[H Host](host H, kind, name string, t Trait[H]) error {
	arounds := make(map[string]advice.Advice, len(t.Around))
	for operation, bind := range t.Around {
		if bind != nil {
			arounds[operation] = bind(host)
		}
	}

	if err := advice.InstallAll(host.Advice(), arounds); err != nil {
		return fmt.Errorf("trait: applying %s %q: %w", kind, name, err)
	}

	return nil
}
