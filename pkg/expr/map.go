package expr

import (
	"github.com/mitchellh/copystructure"

	"github.com/mesh-intelligence/docmodel/pkg/constraint"
)

// Map is an expression whose value is an ordered dictionary of id→element.
// SetValue, SetFormula and SetTerm are disabled; only the element API
// changes its contents.
type Map struct {
	keys       []string
	elements   map[string]any
	constraint *constraint.Object
	locked     bool
}

// NewMap returns an empty map expression.
func NewMap() *Map {
	return &Map{
		elements:   make(map[string]any),
		constraint: constraint.NewObject(nil),
	}
}

func (m *Map) TypeName() string                   { return TypeMap }
func (m *Map) Formula() string                    { return "" }
func (m *Map) Term() Term                         { return nil }
func (m *Map) Constraint() constraint.Constraint  { return m.constraint }
func (m *Map) IsLocked() bool                     { return m.locked }
func (m *Map) IsDirty() bool                      { return false }
func (m *Map) SetLocked(locked bool)              { m.locked = locked }
func (m *Map) SetValue(any) bool                  { return false }
func (m *Map) SetFormula(string) bool             { return false }
func (m *Map) SetTerm(Term) bool                  { return false }
func (m *Map) SetConstraint(constraint.Constraint) {}

// Len returns the number of elements.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the element ids in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// PutElement adds or replaces the element under id. Returns false when the
// map is locked or id is empty.
func (m *Map) PutElement(id string, el any) bool {
	if m.locked || id == "" {
		return false
	}
	if _, ok := m.elements[id]; !ok {
		m.keys = append(m.keys, id)
	}
	m.elements[id] = el
	return true
}

// Element returns the element stored under id.
func (m *Map) Element(id string) (any, bool) {
	el, ok := m.elements[id]
	return el, ok
}

// RemoveElement deletes the element under id.
func (m *Map) RemoveElement(id string) bool {
	if m.locked {
		return false
	}
	if _, ok := m.elements[id]; !ok {
		return false
	}
	delete(m.elements, id)
	for i, k := range m.keys {
		if k == id {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Range calls fn for each element in insertion order until fn returns
// false.
func (m *Map) Range(fn func(id string, el any) bool) {
	for _, k := range m.keys {
		if !fn(k, m.elements[k]) {
			return
		}
	}
}

// Value returns a dictionary of element values. Expression elements are
// replaced by their current value.
func (m *Map) Value() any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		el := m.elements[k]
		if r, ok := el.(Reader); ok {
			out[k] = r.Value()
			continue
		}
		out[k] = el
	}
	return out
}

func (m *Map) RawValue() any { return m.Value() }

// SetTo replaces the elements with those of other. A *Map source, or a
// Const snapshot of one, is deep copied in order; any other source must
// carry a map value.
func (m *Map) SetTo(other Reader) bool {
	switch src := other.(type) {
	case nil:
		return false
	case *Map:
		cp := src.Copy()
		m.keys, m.elements = cp.keys, cp.elements
		m.locked = src.locked
		return true
	case *Const:
		if src.elements != nil {
			cp := src.elements.Copy()
			m.keys, m.elements = cp.keys, cp.elements
			m.locked = src.locked
			return true
		}
	}
	values, ok := other.RawValue().(map[string]any)
	if !ok {
		return false
	}
	m.keys = m.keys[:0]
	m.elements = make(map[string]any, len(values))
	for _, k := range sortedMapKeys(values) {
		m.keys = append(m.keys, k)
		m.elements[k] = copyElement(values[k])
	}
	m.locked = other.IsLocked()
	return true
}

// Evaluate evaluates every expression element against scope.
func (m *Map) Evaluate(ev *Evaluator, scope Scope) bool {
	changed := false
	for _, k := range m.keys {
		if el, ok := m.elements[k].(Mutable); ok {
			if el.Evaluate(ev, scope) {
				changed = true
			}
		}
	}
	return changed
}

func (m *Map) IsEqualTo(other Reader, accuracy float64) bool {
	return Equal(m, other, accuracy)
}

// ResolveParentReference applies the substitution to every expression
// element.
func (m *Map) ResolveParentReference(itemID string, remove bool) bool {
	changed := false
	for _, k := range m.keys {
		if el, ok := m.elements[k].(Mutable); ok {
			if el.ResolveParentReference(itemID, remove) {
				changed = true
			}
		}
	}
	return changed
}

// Copy deep-copies every element that supports copying.
func (m *Map) Copy() *Map {
	cp := NewMap()
	for _, k := range m.keys {
		cp.keys = append(cp.keys, k)
		cp.elements[k] = copyElement(m.elements[k])
	}
	return cp
}

func (m *Map) Clone() Mutable { return m.Copy() }

func copyElement(el any) any {
	switch x := el.(type) {
	case nil:
		return nil
	case Mutable:
		return x.Clone()
	case *Const:
		return x
	}
	cp, err := copystructure.Copy(el)
	if err != nil {
		return el
	}
	return cp
}
