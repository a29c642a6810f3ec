package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type foo struct{ n int }

type bar struct{}

func TestFactory_RegisterCreateHas(t *testing.T) {
	f := New()
	require.True(t, f.Register("Foo", func() any { return &foo{} }))

	got := f.Create("Foo")
	_, ok := got.(*foo)
	assert.True(t, ok, "Create(Foo) = %T, want *foo", got)
	assert.True(t, f.Has("Foo"))
	assert.Nil(t, f.Create("Bar"))
	assert.False(t, f.Has("Bar"))
}

func TestFactory_CustomShadowsFixed(t *testing.T) {
	fixed := NewFixed("fixed", map[string]Constructor{
		"Foo": func() any { return &foo{n: 1} },
	})
	f := New(fixed)

	assert.Equal(t, 1, f.Create("Foo").(*foo).n)

	f.Register("Foo", func() any { return &foo{n: 2} })
	assert.Equal(t, 2, f.Create("Foo").(*foo).n)
}

func TestFactory_LookupOrder(t *testing.T) {
	first := NewFixed("first", map[string]Constructor{"X": func() any { return &foo{} }})
	second := NewFixed("second", map[string]Constructor{"X": func() any { return &bar{} }})
	f := New(first, second)

	_, ok := f.Create("X").(*foo)
	assert.True(t, ok, "first fixed registry should win")

	regs := f.Registries()
	require.Len(t, regs, 3)
	assert.Equal(t, "custom", regs[0].Name())
	assert.Equal(t, "first", regs[1].Name())
}

func TestRegistry_FixedRejectsRegister(t *testing.T) {
	r := NewFixed("fixed", nil)
	assert.False(t, r.Register("Foo", func() any { return nil }))
	assert.False(t, r.Has("Foo"))
}

func TestRegistry_RejectsNilConstructor(t *testing.T) {
	r := NewRegistry("r")
	assert.False(t, r.Register("Foo", nil))
	assert.False(t, r.Register("", func() any { return nil }))
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry("r")
	r.Register("b", func() any { return nil })
	r.Register("a", func() any { return nil })
	assert.Equal(t, []string{"a", "b"}, r.Names())
}
