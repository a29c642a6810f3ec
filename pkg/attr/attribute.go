package attr

import (
	"github.com/mesh-intelligence/docmodel/pkg/expr"
)

// Attribute is a named mutable expression. Once added to a List it routes
// SetExpressionOrValue through the list so parent overrides are
// materialized by the list.
type Attribute struct {
	name        string
	displayName string
	typeName    string
	expression  expr.Mutable
	transient   bool

	arena *Arena
	owner Handle
}

// New returns an attribute of the given registered type holding e.
func New(name, typeName string, e expr.Mutable) *Attribute {
	return &Attribute{name: name, typeName: typeName, expression: e}
}

// NewBoolean returns a boolean attribute.
func NewBoolean(name string, v bool) *Attribute {
	return New(name, TypeBoolean, expr.NewBoolean(v))
}

// NewNumber returns a number attribute.
func NewNumber(name string, v float64) *Attribute {
	return New(name, TypeNumber, expr.NewNumber(v))
}

// NewString returns a string attribute.
func NewString(name, v string) *Attribute {
	return New(name, TypeString, expr.NewString(v))
}

// NewObject returns an attribute accepting any value.
func NewObject(name string, v any) *Attribute {
	return New(name, TypeObject, expr.NewObject(v))
}

// NewMap returns an attribute holding an empty map expression.
func NewMap(name string) *Attribute {
	return New(name, TypeMap, expr.NewMap())
}

// NewReference returns an attribute whose formula refers to another
// attribute.
func NewReference(name string) *Attribute {
	return New(name, TypeReference, expr.NewAttribute())
}

func (a *Attribute) Name() string { return a.name }

func (a *Attribute) DisplayName() string {
	if a.displayName == "" {
		return a.name
	}
	return a.displayName
}

// SetDisplayName sets the display name. An empty name falls back to Name.
func (a *Attribute) SetDisplayName(name string) { a.displayName = name }

func (a *Attribute) TypeName() string        { return a.typeName }
func (a *Attribute) Expression() expr.Reader { return a.expression }
func (a *Attribute) IsTransient() bool       { return a.transient }
func (a *Attribute) SetTransient(on bool)    { a.transient = on }

// Mutable returns the owned expression for evaluation and direct edits.
func (a *Attribute) Mutable() expr.Mutable { return a.expression }

// Value is the current value of the expression.
func (a *Attribute) Value() any { return a.expression.Value() }

// Owner returns the handle of the owning list, or NoHandle.
func (a *Attribute) Owner() Handle { return a.owner }

// SetExpression replaces the held expression. A nil expression is ignored.
func (a *Attribute) SetExpression(e expr.Mutable) {
	if e != nil {
		a.expression = e
	}
}

// SetExpressionOrValue applies v through the owning list when there is one.
// v is either an expr.Reader, whose state is copied, or a plain value.
func (a *Attribute) SetExpressionOrValue(v any) bool {
	if l := a.ownerList(); l != nil {
		return l.SetAttributeValue(a.name, v)
	}
	return a.apply(v)
}

// Clone copies the attribute without its owner.
func (a *Attribute) Clone() *Attribute {
	return &Attribute{
		name:        a.name,
		displayName: a.displayName,
		typeName:    a.typeName,
		expression:  a.expression.Clone(),
		transient:   a.transient,
	}
}

// IsEqualTo compares names, types and expressions.
func (a *Attribute) IsEqualTo(other Reader, accuracy float64) bool {
	return equalReaders(a, other, accuracy)
}

func (a *Attribute) apply(v any) bool {
	if r, ok := v.(expr.Reader); ok {
		return a.expression.SetTo(r)
	}
	return a.expression.SetValue(v)
}

// replace writes v over the expression even when it is locked. The lock
// flag survives a plain value.
func (a *Attribute) replace(v any) bool {
	if r, ok := v.(expr.Reader); ok {
		return a.expression.SetTo(r)
	}
	locked := a.expression.IsLocked()
	a.expression.SetLocked(false)
	ok := a.expression.SetValue(v)
	a.expression.SetLocked(locked)
	return ok
}

func (a *Attribute) ownerList() *List {
	if a.arena == nil || a.owner == NoHandle {
		return nil
	}
	v, ok := a.arena.View(a.owner)
	if !ok {
		return nil
	}
	l, _ := v.(*List)
	return l
}

func equalReaders(a, b Reader, accuracy float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Key(a.Name()) == Key(b.Name()) &&
		a.TypeName() == b.TypeName() &&
		a.IsTransient() == b.IsTransient() &&
		expr.Equal(a.Expression(), b.Expression(), accuracy)
}
