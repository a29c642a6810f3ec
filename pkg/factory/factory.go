// Package factory turns registered type names back into live instances.
// Serialized payloads (const snapshots, persisted constraints and expressions,
// command wire objects) carry a type name; the Factory maps it to a
// zero-argument constructor.
//
// A Factory is an explicit value. It is constructed once at process start
// (see package registry) and passed to every call site that needs
// polymorphic construction.
package factory

import "sort"

// Constructor creates a fresh zero-configured instance.
type Constructor func() any

// Registry is a name-keyed set of constructors. A Registry built with
// NewFixed rejects Register calls after construction.
type Registry struct {
	name  string
	fixed bool
	ctors map[string]Constructor
}

// NewRegistry returns an empty mutable registry.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, ctors: make(map[string]Constructor)}
}

// NewFixed returns a registry pre-populated with entries that cannot be
// extended afterwards.
func NewFixed(name string, entries map[string]Constructor) *Registry {
	r := NewRegistry(name)
	for k, c := range entries {
		r.ctors[k] = c
	}
	r.fixed = true
	return r
}

// Name returns the registry name (e.g. "expressions").
func (r *Registry) Name() string { return r.name }

// Register adds or replaces a constructor. Returns false for fixed
// registries and for nil constructors.
func (r *Registry) Register(name string, ctor Constructor) bool {
	if r.fixed || ctor == nil || name == "" {
		return false
	}
	r.ctors[name] = ctor
	return true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.ctors[name]
	return ok
}

// Create returns a new instance for name, or nil if name is unknown.
func (r *Registry) Create(name string) any {
	ctor, ok := r.ctors[name]
	if !ok {
		return nil
	}
	return ctor()
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Factory looks names up through an ordered list of registries. The custom
// registry is always consulted first, then the fixed registries in the
// order they were given to New.
type Factory struct {
	custom     *Registry
	registries []*Registry
}

// New returns a Factory whose custom registry is checked before fixed.
func New(fixed ...*Registry) *Factory {
	custom := NewRegistry("custom")
	regs := make([]*Registry, 0, len(fixed)+1)
	regs = append(regs, custom)
	for _, r := range fixed {
		if r != nil {
			regs = append(regs, r)
		}
	}
	return &Factory{custom: custom, registries: regs}
}

// Register adds a constructor to the custom registry, shadowing any fixed
// entry with the same name.
func (f *Factory) Register(name string, ctor Constructor) bool {
	return f.custom.Register(name, ctor)
}

// Create returns a new instance from the first registry that knows name.
// Unknown names yield nil, never an error.
func (f *Factory) Create(name string) any {
	for _, r := range f.registries {
		if r.Has(name) {
			return r.Create(name)
		}
	}
	return nil
}

// Has reports whether any registry knows name.
func (f *Factory) Has(name string) bool {
	for _, r := range f.registries {
		if r.Has(name) {
			return true
		}
	}
	return false
}

// Registries returns the lookup order, custom registry first.
func (f *Factory) Registries() []*Registry {
	out := make([]*Registry, len(f.registries))
	copy(out, f.registries)
	return out
}
