package attr

import (
	"github.com/mesh-intelligence/docmodel/pkg/expr"
)

// List is an ordered dictionary of attributes keyed by upper-cased name,
// with an optional parent used as fallback for names not found locally.
type List struct {
	arena    *Arena
	handle   Handle
	typeName string
	parent   Handle
	keys     []string
	attrs    map[string]*Attribute
}

func newList(typeName string) *List {
	return &List{typeName: typeName, attrs: make(map[string]*Attribute)}
}

func (l *List) Handle() Handle   { return l.handle }
func (l *List) TypeName() string { return l.typeName }
func (l *List) Parent() Handle   { return l.parent }
func (l *List) Len() int         { return len(l.keys) }

// Arena returns the arena that owns the list, or nil.
func (l *List) Arena() *Arena { return l.arena }

// SetParent sets the fallback node. It fails when p is not in the same
// arena or would create a cycle. NoHandle clears the parent.
func (l *List) SetParent(p Handle) bool {
	if l.arena == nil {
		return p == NoHandle && l.clearParent()
	}
	if p == l.handle || !l.arena.validParent(l.handle, p) {
		return false
	}
	l.parent = p
	return true
}

func (l *List) clearParent() bool {
	l.parent = NoHandle
	return true
}

// Add inserts at, replacing any attribute with the same name. The
// attribute is detached from a previous owner first.
func (l *List) Add(at *Attribute) bool {
	if at == nil || at.name == "" {
		return false
	}
	if prev := at.ownerList(); prev != nil && prev != l {
		prev.Remove(at.name)
	}
	key := Key(at.name)
	if old, ok := l.attrs[key]; ok {
		old.arena, old.owner = nil, NoHandle
	} else {
		l.keys = append(l.keys, key)
	}
	l.attrs[key] = at
	at.arena, at.owner = l.arena, l.handle
	return true
}

// Remove deletes the local attribute called name.
func (l *List) Remove(name string) bool {
	key := Key(name)
	at, ok := l.attrs[key]
	if !ok {
		return false
	}
	delete(l.attrs, key)
	for i, k := range l.keys {
		if k == key {
			l.keys = append(l.keys[:i], l.keys[i+1:]...)
			break
		}
	}
	at.arena, at.owner = nil, NoHandle
	return true
}

// Attribute returns the local mutable attribute called name.
func (l *List) Attribute(name string) (*Attribute, bool) {
	at, ok := l.attrs[Key(name)]
	return at, ok
}

// Lookup finds name locally.
func (l *List) Lookup(name string) (Reader, bool) {
	if at, ok := l.attrs[Key(name)]; ok {
		return at, true
	}
	return nil, false
}

// Get finds name locally, then through the parent chain. Lookups never
// create entries.
func (l *List) Get(name string) (Reader, bool) {
	if r, ok := l.Lookup(name); ok {
		return r, true
	}
	if l.arena == nil {
		return nil, false
	}
	return l.arena.Resolve(l.parent, name)
}

// Value returns the value of the attribute resolved for name, or nil.
func (l *List) Value(name string) any {
	r, ok := l.Get(name)
	if !ok {
		return nil
	}
	return r.Value()
}

// Names returns local attribute names in insertion order.
func (l *List) Names() []string {
	out := make([]string, 0, len(l.keys))
	for _, k := range l.keys {
		out = append(out, l.attrs[k].name)
	}
	return out
}

// VisibleNames returns local names followed by the names inherited
// through the parent chain, each key once.
func (l *List) VisibleNames() []string {
	out := l.Names()
	seen := make(map[string]bool, len(out))
	for _, n := range out {
		seen[Key(n)] = true
	}
	if l.arena == nil {
		return out
	}
	h := l.parent
	for steps := 0; h != NoHandle && steps <= len(l.arena.nodes); steps++ {
		v, ok := l.arena.nodes[h]
		if !ok {
			break
		}
		for _, n := range v.Names() {
			if !seen[Key(n)] {
				seen[Key(n)] = true
				out = append(out, n)
			}
		}
		h = v.Parent()
	}
	return out
}

// Attributes returns the local attributes in insertion order.
func (l *List) Attributes() []*Attribute {
	out := make([]*Attribute, 0, len(l.keys))
	for _, k := range l.keys {
		out = append(out, l.attrs[k])
	}
	return out
}

// SetAttributeValue applies v to the attribute called name. A name found
// only in the parent chain is materialized as a local mutable override
// first. Reports false when name does not resolve or the write is rejected.
func (l *List) SetAttributeValue(name string, v any) bool {
	if at, ok := l.attrs[Key(name)]; ok {
		return at.apply(v)
	}
	r, ok := l.Get(name)
	if !ok {
		return false
	}
	at := l.materialize(r)
	if at == nil || !at.apply(v) {
		return false
	}
	return l.Add(at)
}

func (l *List) materialize(r Reader) *Attribute {
	switch src := r.(type) {
	case *Attribute:
		return src.Clone()
	case *ConstAttribute:
		if l.arena == nil {
			return nil
		}
		return src.ToAttribute(l.arena.factory)
	}
	return nil
}

// Evaluate evaluates every local attribute against scope. Reports whether
// any term changed.
func (l *List) Evaluate(ev *expr.Evaluator, scope expr.Scope) bool {
	changed := false
	for _, k := range l.keys {
		if l.attrs[k].expression.Evaluate(ev, scope) {
			changed = true
		}
	}
	return changed
}

// ResolveParentReference rewrites the Parent token in every local formula.
func (l *List) ResolveParentReference(itemID string, remove bool) bool {
	changed := false
	for _, k := range l.keys {
		if l.attrs[k].expression.ResolveParentReference(itemID, remove) {
			changed = true
		}
	}
	return changed
}

// Copy returns a new list in the same arena with the same type, parent and
// cloned attributes.
func (l *List) Copy() *List {
	cp := newList(l.typeName)
	cp.parent = l.parent
	if l.arena != nil {
		l.arena.Adopt(cp)
	}
	for _, k := range l.keys {
		cp.Add(l.attrs[k].Clone())
	}
	return cp
}
