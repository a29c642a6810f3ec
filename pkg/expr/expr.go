// Package expr implements value holders that are either fixed values or
// formulas compiled into live terms.
//
// An Expression keeps the last known value, the formula source, the compiled
// term and an owned constraint. Formulas are compiled lazily by an external
// Parser through an Evaluator; compilation is memoized on the structural
// identity of the scope it was compiled against.
//
// Mutable holders (*Expression, *Map) and immutable snapshots (*Const) share
// the read-only Reader view. Only Mutable exposes write operations.
package expr

import (
	"errors"

	"github.com/mesh-intelligence/docmodel/pkg/constraint"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
)

// Kind selects the fixed constraint and persistence type of an Expression.
type Kind int

const (
	KindObject Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindAttribute
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindAttribute:
		return "attribute"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Registered expression type names.
const (
	TypeObject    = "ObjectExpression"
	TypeBoolean   = "BooleanExpression"
	TypeNumber    = "NumberExpression"
	TypeString    = "StringExpression"
	TypeAttribute = "AttributeExpression"
	TypeMap       = "MapExpression"
)

const legacyPrefix = "docmodel.expr."

// Formula tokens understood by ResolveParentReference.
const (
	ParentToken = "Parent"
	ItemsToken  = "items"
)

// Errors reported by expression persistence and evaluation.
var (
	ErrNoParser    = errors.New("no formula parser configured")
	ErrUnknownType = errors.New("unknown expression type")
)

// Term is a compiled formula. Value yields the current computed value (nil
// when undefined); String yields a canonical rendering of the formula.
type Term interface {
	Value() any
	String() string
}

// ScopeKey is the structural identity of an evaluation scope. Two scopes
// with equal keys resolve references identically.
type ScopeKey struct {
	Node     string
	Revision uint64
}

// Scope is the item context a formula is compiled against. Parsers
// type-assert it to whatever lookup capability they need.
type Scope interface {
	ScopeKey() ScopeKey
}

// Parser compiles a formula against a scope.
type Parser interface {
	Parse(formula string, scope Scope) (Term, error)
}

// Reader is the read-only view shared by mutable expressions and const
// snapshots.
type Reader interface {
	// TypeName is the registered type used to rebuild a mutable instance.
	TypeName() string
	// Value is the constraint-coerced current value.
	Value() any
	// RawValue is the current value before coercion.
	RawValue() any
	Formula() string
	Term() Term
	Constraint() constraint.Constraint
	IsLocked() bool
}

// Mutable is a Reader with write operations.
type Mutable interface {
	Reader
	SetValue(v any) bool
	SetFormula(formula string) bool
	SetTerm(t Term) bool
	// SetTo copies the full state of other, ignoring the lock.
	SetTo(other Reader) bool
	SetLocked(locked bool)
	SetConstraint(c constraint.Constraint)
	IsDirty() bool
	Evaluate(ev *Evaluator, scope Scope) bool
	IsEqualTo(other Reader, accuracy float64) bool
	ResolveParentReference(itemID string, remove bool) bool
	// Clone copies value and formula but not the term.
	Clone() Mutable
}

// Registry returns the fixed expression registry, legacy aliases included.
func Registry() *factory.Registry {
	base := map[string]factory.Constructor{
		TypeObject:    func() any { return NewObject(nil) },
		TypeBoolean:   func() any { return NewBoolean(false) },
		TypeNumber:    func() any { return NewNumber(0) },
		TypeString:    func() any { return NewString("") },
		TypeAttribute: func() any { return NewAttribute() },
		TypeMap:       func() any { return NewMap() },
	}
	entries := make(map[string]factory.Constructor, 2*len(base))
	for name, ctor := range base {
		entries[name] = ctor
		entries[legacyPrefix+name] = ctor
	}
	return factory.NewFixed("expressions", entries)
}

// ItemReference renders a formula reference to the item with the given id.
func ItemReference(id string) string {
	return ItemsToken + `["` + id + `"]`
}

// Equal reports whether a and b have equal formulas and values. Numeric
// values compare within accuracy.
func Equal(a, b Reader, accuracy float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Formula() == b.Formula() && ValuesEqual(a.Value(), b.Value(), accuracy)
}
