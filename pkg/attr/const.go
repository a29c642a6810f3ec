package attr

import (
	"github.com/mesh-intelligence/docmodel/pkg/expr"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
)

// ConstAttribute is an immutable snapshot of an attribute. It keeps the
// origin type name so a mutable attribute can be rebuilt.
type ConstAttribute struct {
	name        string
	displayName string
	origin      string
	expression  *expr.Const
	transient   bool
}

// ConstAttributeFrom snapshots r. A non-empty name renames the snapshot.
func ConstAttributeFrom(r Reader, name string) *ConstAttribute {
	if c, ok := r.(*ConstAttribute); ok && (name == "" || name == c.name) {
		return c
	}
	if name == "" {
		name = r.Name()
	}
	c := &ConstAttribute{
		name:       name,
		origin:     r.TypeName(),
		expression: expr.ConstFrom(r.Expression()),
		transient:  r.IsTransient(),
	}
	if dn := r.DisplayName(); dn != r.Name() {
		c.displayName = dn
	}
	return c
}

func (c *ConstAttribute) Name() string { return c.name }

func (c *ConstAttribute) DisplayName() string {
	if c.displayName == "" {
		return c.name
	}
	return c.displayName
}

func (c *ConstAttribute) TypeName() string        { return c.origin }
func (c *ConstAttribute) Expression() expr.Reader { return c.expression }
func (c *ConstAttribute) Value() any              { return c.expression.Value() }
func (c *ConstAttribute) IsTransient() bool       { return c.transient }

// IsEqualTo compares names, types and expressions.
func (c *ConstAttribute) IsEqualTo(other Reader, accuracy float64) bool {
	return equalReaders(c, other, accuracy)
}

// ToAttribute rebuilds a mutable attribute of the origin type through f,
// re-applying the constraint and the snapshot expression. Returns nil when
// the origin type is not registered.
func (c *ConstAttribute) ToAttribute(f *factory.Factory) *Attribute {
	a, ok := f.Create(c.origin).(*Attribute)
	if !ok {
		return nil
	}
	a.name = c.name
	a.displayName = c.displayName
	a.transient = c.transient
	if m := c.expression.ToExpression(f); m != nil {
		a.expression = m
	} else {
		a.expression.SetTo(c.expression)
	}
	if cs := c.expression.Constraint(); cs != nil {
		a.expression.SetConstraint(cs.Copy())
	}
	return a
}

// ConstList is an immutable snapshot of a list stored in an arena. It keeps
// the origin list type and parent.
type ConstList struct {
	arena  *Arena
	handle Handle
	name   string
	origin string
	parent Handle
	keys   []string
	attrs  map[string]*ConstAttribute
}

// ConstListFrom snapshots every local attribute of v into a new const list
// in the arena. name labels the snapshot. The node stays in the arena until
// Release is called.
func (a *Arena) ConstListFrom(v View, name string) *ConstList {
	c := a.newConstList(name, v.TypeName())
	c.parent = v.Parent()
	for _, n := range v.Names() {
		if r, ok := v.Lookup(n); ok {
			c.put(ConstAttributeFrom(r, ""))
		}
	}
	c.handle = a.add(c)
	return c
}

func (a *Arena) newConstList(name, origin string) *ConstList {
	return &ConstList{
		arena:  a,
		name:   name,
		origin: origin,
		attrs:  make(map[string]*ConstAttribute),
	}
}

func (c *ConstList) Handle() Handle { return c.handle }

// Release removes the snapshot's node from its arena. Lists parented on it
// stop falling back to it.
func (c *ConstList) Release() bool { return c.arena.Release(c.handle) }

// TypeName is the origin list type.
func (c *ConstList) TypeName() string { return c.origin }
func (c *ConstList) Name() string     { return c.name }
func (c *ConstList) Parent() Handle   { return c.parent }
func (c *ConstList) Len() int         { return len(c.keys) }

func (c *ConstList) Lookup(name string) (Reader, bool) {
	if at, ok := c.attrs[Key(name)]; ok {
		return at, true
	}
	return nil, false
}

// Get finds name locally, then through the parent chain.
func (c *ConstList) Get(name string) (Reader, bool) {
	if r, ok := c.Lookup(name); ok {
		return r, true
	}
	return c.arena.Resolve(c.parent, name)
}

func (c *ConstList) Names() []string {
	out := make([]string, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.attrs[k].name)
	}
	return out
}

// ToList rebuilds a mutable list of the origin type with the same parent.
// An unregistered origin type falls back to TypeList.
func (c *ConstList) ToList() *List {
	l, ok := c.arena.factory.Create(c.origin).(*List)
	if !ok {
		l = newList(TypeList)
	}
	c.arena.Adopt(l)
	l.SetParent(c.parent)
	for _, k := range c.keys {
		if at := c.attrs[k].ToAttribute(c.arena.factory); at != nil {
			l.Add(at)
		}
	}
	return l
}

// put replaces or inserts at. Reports whether the stored snapshot changed.
func (c *ConstList) put(at *ConstAttribute) bool {
	key := Key(at.name)
	old, ok := c.attrs[key]
	if !ok {
		c.keys = append(c.keys, key)
	} else if old.IsEqualTo(at, 0) && old.displayName == at.displayName {
		return false
	}
	c.attrs[key] = at
	return true
}

func (c *ConstList) remove(name string) bool {
	key := Key(name)
	if _, ok := c.attrs[key]; !ok {
		return false
	}
	delete(c.attrs, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
	return true
}
