package trait_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/trait"
)

type widget struct {
	target *advice.Target
	label  *advice.Point[string, string]
	prefix string
	inits  []string
}

func (w *widget) Advice() *advice.Target {
	return w.target
}

func newWidget(t *testing.T) *widget {
	t.Helper()

	w := &widget{target: advice.NewTarget("widget")}
	label, err := advice.Declare(w.target, "label", func(arg string) string { return arg })
	require.NoError(t, err)
	w.label = label

	return w
}

func wrapping(tag string) trait.Trait[*widget] {
	return trait.Trait[*widget]{
		Initialise: func(host *widget, args trait.Args) error {
			host.inits = append(host.inits, tag)
			if prefix, ok := args["prefix"].(string); ok {
				host.prefix = prefix
			}
			return nil
		},
		Around: map[string]trait.Binder[*widget]{
			"label": trait.Bind(func(host *widget, original advice.Op[string, string], arg string) string {
				return host.prefix + tag + "(" + original(arg) + ")"
			}),
		},
	}
}

func Test_Apply_InitialisesAndWrapsInCallerOrder(t *testing.T) {
	registry := trait.NewRegistry[*widget]("role")
	require.NoError(t, registry.Register("a", wrapping("a")))
	require.NoError(t, registry.Register("b", wrapping("b")))
	w := newWidget(t)

	err := trait.Apply(w, registry, []string{"b", "a"}, trait.Args{})

	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, w.inits)
	assert.Equal(t, "a(b(x))", w.label.Call("x"))
}

func Test_Apply_BindsHostState(t *testing.T) {
	registry := trait.NewRegistry[*widget]("role")
	require.NoError(t, registry.Register("a", wrapping("a")))
	w := newWidget(t)

	require.NoError(t, trait.Apply(w, registry, []string{"a"}, trait.Args{"prefix": "!"}))

	assert.Equal(t, "!a(x)", w.label.Call("x"))
}

func Test_Apply_FailsFastForUnknownCapability(t *testing.T) {
	registry := trait.NewRegistry[*widget]("cell trait")
	w := newWidget(t)

	err := trait.Apply(w, registry, []string{"sparkle"}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, statetable.ErrUnknownCapability)

	var unknown *statetable.UnknownCapabilityError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "cell trait", unknown.Kind)
	assert.Equal(t, "sparkle", unknown.Name)
}

func Test_Apply_FailsForUndeclaredOperation(t *testing.T) {
	registry := trait.NewRegistry[*widget]("role")
	require.NoError(t, registry.Register("broken", trait.Trait[*widget]{
		Around: map[string]trait.Binder[*widget]{
			"render": trait.Bind(func(_ *widget, original advice.Op[string, string], arg string) string {
				return original(arg)
			}),
		},
	}))
	w := newWidget(t)

	err := trait.Apply(w, registry, []string{"broken"}, nil)

	assert.ErrorIs(t, err, statetable.ErrUnknownOperation)
}

func Test_Apply_FailedInstallLeavesNoPartialAdvice(t *testing.T) {
	registry := trait.NewRegistry[*widget]("role")
	require.NoError(t, registry.Register("half", trait.Trait[*widget]{
		Around: map[string]trait.Binder[*widget]{
			"label": trait.Bind(func(_ *widget, original advice.Op[string, string], arg string) string {
				return "half(" + original(arg) + ")"
			}),
			"render": trait.Bind(func(_ *widget, original advice.Op[string, string], arg string) string {
				return original(arg)
			}),
		},
	}))
	w := newWidget(t)

	err := trait.Apply(w, registry, []string{"half"}, nil)

	assert.ErrorIs(t, err, statetable.ErrUnknownOperation)
	assert.Equal(t, 0, w.target.Depth("label"))
	assert.Equal(t, "x", w.label.Call("x"))
}

func Test_Apply_PropagatesInitialiseError(t *testing.T) {
	failure := errors.New("boom")
	registry := trait.NewRegistry[*widget]("role")
	require.NoError(t, registry.Register("failing", trait.Trait[*widget]{
		Initialise: func(*widget, trait.Args) error { return failure },
	}))
	w := newWidget(t)

	err := trait.Apply(w, registry, []string{"failing"}, nil)

	assert.ErrorIs(t, err, failure)
}

func Test_Reapply_IsIdempotent(t *testing.T) {
	registry := trait.NewRegistry[*widget]("role")
	require.NoError(t, registry.Register("a", wrapping("a")))
	require.NoError(t, registry.Register("b", wrapping("b")))
	w := newWidget(t)

	for range 3 {
		require.NoError(t, trait.Reapply(w, registry, []string{"a", "b"}, nil))
	}

	assert.Equal(t, 2, w.target.Depth("label"))
	assert.Equal(t, "b(a(x))", w.label.Call("x"))
}

func Test_Registry_RejectsDuplicates(t *testing.T) {
	registry := trait.NewRegistry[*widget]("role")
	require.NoError(t, registry.Register("a", wrapping("a")))

	err := registry.Register("a", wrapping("a"))

	assert.ErrorIs(t, err, statetable.ErrCapabilityAlreadyDefined)
	assert.Panics(t, func() { registry.MustRegister("a", wrapping("a")) })
}

func Test_Registry_CloneIsIndependent(t *testing.T) {
	registry := trait.NewRegistry[*widget]("role")
	require.NoError(t, registry.Register("a", wrapping("a")))

	clone := registry.Clone()
	require.NoError(t, clone.Register("b", wrapping("b")))

	assert.Equal(t, []string{"a"}, registry.Names())
	assert.Equal(t, []string{"a", "b"}, clone.Names())
	assert.True(t, clone.Has("a"))
	assert.False(t, registry.Has("b"))
	assert.Equal(t, "role", clone.Kind())
}
