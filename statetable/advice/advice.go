// Package advice implements named extension points with ordered "around" chains.
//
// A base component declares every operation that may be extended on its Target.
// Roles and traits then Wrap those operations; each wrapper receives the operation as
// it stood immediately before the wrapper was registered, so the last registered
// wrapper runs outermost. Operations that were never declared cannot be wrapped.
//
//	target := advice.NewTarget("users")
//	render, _ := advice.Declare(target, "render", func(ctx context.Context) error { ... })
//
//	_ = advice.Wrap(target, "render", func(original advice.Op[context.Context, error], ctx context.Context) error {
//		if err := original(ctx); err != nil {
//			return err
//		}
//		return refreshStatus(ctx)
//	})
//
//	err := render.Call(ctx)
package advice

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pjfl/statetable/statetable"
)

// Op is the implementation of an extension point.
type Op[A, R any] func(arg A) R

// Around intercepts an extension point. It decides whether and how to call original.
type Around[A, R any] func(original Op[A, R], arg A) R

// Advice is a type-erased around function that can install itself on a target.
type Advice interface {
	Check(target *Target, name string) error
	Install(target *Target, name string) error
}

// Check reports whether fn could wrap the named operation of target, without wrapping it.
func (fn Around[A, R]) Check(target *Target, name string) error {
	if fn == nil {
		return fmt.Errorf("advice: nil around for %q on %q", name, target.owner)
	}

	_, err := Lookup[A, R](target, name)
	return err
}

// Install wraps the named operation of target with fn.
func (fn Around[A, R]) Install(target *Target, name string) error {
	return Wrap(target, name, fn)
}

// Compose folds chain over base. The first element of chain is innermost.
func Compose[A, R any](base Op[A, R], chain ...Around[A, R]) Op[A, R] {
	composed := base
	for _, around := range chain {
		composed = bindAround(around, composed)
	}

	return composed
}

func bindAround[A, R any](around Around[A, R], original Op[A, R]) Op[A, R] {
	return func(arg A) R {
		return around(original, arg)
	}
}

type point interface {
	reset()
	depth() int
}

// Target owns the extension points of one object. Chains live on the target, never in a
// global registry, so each table instance starts from its own baseline.
type Target struct {
	owner  string
	mu     sync.RWMutex
	points map[string]point
	order  []string
}

// NewTarget creates an empty target. owner is used in error messages only.
func NewTarget(owner string) *Target {
	return &Target{
		owner:  owner,
		points: make(map[string]point),
	}
}

// Owner returns the name the target was created with.
func (t *Target) Owner() string {
	return t.owner
}

// Point is one declared extension point.
type Point[A, R any] struct {
	target  *Target
	name    string
	base    Op[A, R]
	chain   []Around[A, R]
	current Op[A, R]
}

// Declare registers an extension point with its base implementation.
func Declare[A, R any](target *Target, name string, base Op[A, R]) (*Point[A, R], error) {
	if base == nil {
		return nil, fmt.Errorf("advice: nil base implementation for %q on %q", name, target.owner)
	}

	target.mu.Lock()
	defer target.mu.Unlock()

	if _, exists := target.points[name]; exists {
		return nil, fmt.Errorf("%w: %q on %q", statetable.ErrOperationAlreadyDeclared, name, target.owner)
	}

	p := &Point[A, R]{target: target, name: name, base: base, current: base}
	target.points[name] = p
	target.order = append(target.order, name)

	return p, nil
}

// Wrap adds fn to the chain of the named operation. It fails if the operation was never
// declared or if fn does not match its signature.
func Wrap[A, R any](target *Target, name string, fn Around[A, R]) error {
	if fn == nil {
		return fmt.Errorf("advice: nil around for %q on %q", name, target.owner)
	}

	target.mu.Lock()
	defer target.mu.Unlock()

	p, err := lookup[A, R](target, name)
	if err != nil {
		return err
	}

	p.chain = append(p.chain, fn)
	p.current = bindAround(fn, p.current)

	return nil
}

// Invoke calls the named operation through its chain.
func Invoke[A, R any](target *Target, name string, arg A) (R, error) {
	target.mu.RLock()
	p, err := lookup[A, R](target, name)
	if err != nil {
		target.mu.RUnlock()
		var zero R
		return zero, err
	}
	current := p.current
	target.mu.RUnlock()

	return current(arg), nil
}

// Lookup returns the typed extension point.
func Lookup[A, R any](target *Target, name string) (*Point[A, R], error) {
	target.mu.RLock()
	defer target.mu.RUnlock()

	return lookup[A, R](target, name)
}

func lookup[A, R any](target *Target, name string) (*Point[A, R], error) {
	untyped, exists := target.points[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q on %q", statetable.ErrUnknownOperation, name, target.owner)
	}

	p, ok := untyped.(*Point[A, R])
	if !ok {
		return nil, fmt.Errorf("%w: %q on %q", statetable.ErrOperationSignatureMismatch, name, target.owner)
	}

	return p, nil
}

// Call invokes the operation through its current chain.
func (p *Point[A, R]) Call(arg A) R {
	p.target.mu.RLock()
	current := p.current
	p.target.mu.RUnlock()

	return current(arg)
}

// Base invokes the undecorated implementation.
func (p *Point[A, R]) Base(arg A) R {
	return p.base(arg)
}

// Name returns the operation name.
func (p *Point[A, R]) Name() string {
	return p.name
}

func (p *Point[A, R]) reset() {
	p.chain = nil
	p.current = p.base
}

func (p *Point[A, R]) depth() int {
	return len(p.chain)
}

// Reset restores every operation to its base implementation.
func (t *Target) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.points {
		p.reset()
	}
}

// Depth returns the number of wrappers installed on the named operation, or -1 if it
// was never declared.
func (t *Target) Depth(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, exists := t.points[name]
	if !exists {
		return -1
	}

	return p.depth()
}

// Has reports whether the named operation was declared.
func (t *Target) Has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, exists := t.points[name]
	return exists
}

// Operations returns the declared operation names in declaration order.
func (t *Target) Operations() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]string(nil), t.order...)
}

// InstallAll installs a table of around functions, in operation name order. Every entry is
// checked first; if any cannot be installed, none is and every failure is reported.
func InstallAll(target *Target, arounds map[string]Advice) error {
	names := make([]string, 0, len(arounds))
	for name, around := range arounds {
		if around != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := arounds[name].Check(target, name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, name := range names {
		if err := arounds[name].Install(target, name); err != nil {
			return err
		}
	}

	return nil
}
