package expr

import (
	"github.com/mesh-intelligence/docmodel/pkg/constraint"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
)

// Const is an immutable snapshot of an expression. It copies the term,
// value and constraint at construction time and never re-evaluates. The
// origin type name is kept so a mutable counterpart can be rebuilt. A Map
// snapshot also keeps its ordered elements.
type Const struct {
	origin     string
	value      any
	formula    string
	term       Term
	constraint constraint.Constraint
	locked     bool
	elements   *Map
}

// ConstFrom snapshots r. Snapshotting a Const returns it unchanged.
func ConstFrom(r Reader) *Const {
	if c, ok := r.(*Const); ok {
		return c
	}
	c := &Const{
		origin:  r.TypeName(),
		value:   r.RawValue(),
		formula: r.Formula(),
		term:    r.Term(),
		locked:  r.IsLocked(),
	}
	if m, ok := r.(*Map); ok {
		c.elements = m.Copy()
		c.value = c.elements.Value()
	}
	if rc := r.Constraint(); rc != nil {
		c.constraint = rc.Copy()
	} else {
		c.constraint = constraint.NewObject(nil)
	}
	return c
}

// TypeName returns the type name of the expression the snapshot was taken
// from.
func (c *Const) TypeName() string                   { return c.origin }
func (c *Const) Formula() string                    { return c.formula }
func (c *Const) Term() Term                         { return c.term }
func (c *Const) Constraint() constraint.Constraint  { return c.constraint }
func (c *Const) IsLocked() bool                     { return c.locked }

// RawValue reads the snapshot term when it still yields a value, else the
// snapshot value. The term is never recompiled.
func (c *Const) RawValue() any {
	if c.term != nil {
		if v := c.term.Value(); v != nil {
			return v
		}
	}
	return c.value
}

func (c *Const) Value() any { return c.constraint.Value(c.RawValue()) }

// IsEqualTo compares formula and value.
func (c *Const) IsEqualTo(other Reader, accuracy float64) bool {
	return Equal(c, other, accuracy)
}

// ToExpression rebuilds a mutable expression of the origin type through f.
// Returns nil when the origin type is not registered.
func (c *Const) ToExpression(f *factory.Factory) Mutable {
	m, ok := f.Create(c.origin).(Mutable)
	if !ok {
		return nil
	}
	m.SetTo(c)
	return m
}
