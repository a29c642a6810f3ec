package expr

import (
	"regexp"

	"github.com/mesh-intelligence/docmodel/pkg/constraint"
)

var parentPattern = regexp.MustCompile(`\b` + ParentToken + `\b`)

// Expression holds a value, an optional formula and the term compiled from
// it. When a term exists it is authoritative; the cached value is used once
// the term yields undefined.
type Expression struct {
	kind       Kind
	value      any
	formula    string
	term       Term
	constraint constraint.Constraint
	locked     bool
	dirty      bool
	scopeKey   ScopeKey
	hasScope   bool
}

func newExpression(kind Kind, value any, c constraint.Constraint) *Expression {
	return &Expression{kind: kind, value: value, constraint: c}
}

// NewBoolean returns a boolean expression.
func NewBoolean(v bool) *Expression {
	return newExpression(KindBoolean, v, constraint.NewBoolean(false))
}

// NewNumber returns a number expression.
func NewNumber(v float64) *Expression {
	return newExpression(KindNumber, v, constraint.NewNumber(0))
}

// NewString returns a string expression.
func NewString(v string) *Expression {
	return newExpression(KindString, v, constraint.NewString(""))
}

// NewObject returns an expression accepting any value.
func NewObject(v any) *Expression {
	return newExpression(KindObject, v, constraint.NewObject(nil))
}

// NewAttribute returns an expression that refers to another attribute. Its
// term survives transient undefined values because the referenced
// attribute may be absent for a while.
func NewAttribute() *Expression {
	return newExpression(KindAttribute, nil, constraint.NewObject(nil))
}

// Kind returns the expression kind.
func (e *Expression) Kind() Kind { return e.kind }

func (e *Expression) TypeName() string {
	switch e.kind {
	case KindBoolean:
		return TypeBoolean
	case KindNumber:
		return TypeNumber
	case KindString:
		return TypeString
	case KindAttribute:
		return TypeAttribute
	default:
		return TypeObject
	}
}

func (e *Expression) Formula() string                   { return e.formula }
func (e *Expression) Term() Term                        { return e.term }
func (e *Expression) Constraint() constraint.Constraint { return e.constraint }
func (e *Expression) IsLocked() bool                    { return e.locked }
func (e *Expression) IsDirty() bool                     { return e.dirty }
func (e *Expression) SetLocked(locked bool)             { e.locked = locked }

// Value returns the current value routed through the constraint.
func (e *Expression) Value() any {
	return e.constraint.Value(e.RawValue())
}

// RawValue pulls the term value when a term exists and caches it. An
// undefined term value drops the term (except for attribute references)
// and the cached value is returned instead.
func (e *Expression) RawValue() any {
	if e.term != nil {
		if v := e.term.Value(); v != nil {
			e.value = v
			return v
		}
		if e.kind != KindAttribute {
			e.term = nil
		}
	}
	return e.value
}

// SetConstraint replaces the owned constraint. A nil constraint is ignored.
func (e *Expression) SetConstraint(c constraint.Constraint) {
	if c != nil {
		e.constraint = c
	}
}

// SetValue makes v the authoritative value, dropping formula and term.
func (e *Expression) SetValue(v any) bool {
	if e.locked {
		return false
	}
	if e.constraint.AlwaysCheckValue() {
		v = e.constraint.Value(v)
	}
	e.value = v
	e.formula = ""
	e.term = nil
	e.dirty = false
	e.hasScope = false
	return true
}

// SetFormula replaces the formula and marks the expression dirty. An empty
// formula drops the term and keeps its last value.
func (e *Expression) SetFormula(formula string) bool {
	if e.locked {
		return false
	}
	if formula == e.formula {
		return true
	}
	if formula == "" {
		e.RawValue()
		e.formula = ""
		e.term = nil
		e.dirty = false
		e.hasScope = false
		return true
	}
	e.formula = formula
	e.dirty = true
	return true
}

// SetTerm installs a compiled term. The formula follows the term's
// canonical rendering.
func (e *Expression) SetTerm(t Term) bool {
	if e.locked {
		return false
	}
	e.term = t
	if t != nil {
		e.formula = t.String()
		e.dirty = false
	} else {
		e.dirty = e.formula != ""
	}
	e.hasScope = false
	return true
}

// SetTo copies the full state of other. It succeeds even when locked.
func (e *Expression) SetTo(other Reader) bool {
	if other == nil {
		return false
	}
	e.value = other.RawValue()
	e.formula = other.Formula()
	e.term = other.Term()
	if c := other.Constraint(); c != nil {
		e.constraint = c.Copy()
	}
	e.locked = other.IsLocked()
	if src, ok := other.(*Expression); ok {
		e.dirty = src.dirty
		e.scopeKey = src.scopeKey
		e.hasScope = src.hasScope
	} else {
		e.dirty = e.term == nil && e.formula != ""
		e.hasScope = false
	}
	return true
}

// Evaluate compiles the formula against scope when it is dirty, has no term
// yet, or was compiled against a different scope. Returns true when a new
// term was installed.
func (e *Expression) Evaluate(ev *Evaluator, scope Scope) bool {
	if e.formula == "" {
		e.hasScope = false
		return false
	}
	key := keyOf(scope)
	if !e.dirty && e.term != nil && e.hasScope && e.scopeKey == key {
		return false
	}
	term, ok := ev.compile(e.formula, scope)
	if !ok {
		return false
	}
	e.term = term
	e.dirty = false
	e.scopeKey = key
	e.hasScope = true
	return true
}

// IsEqualTo compares formula and value; numeric values compare within
// accuracy.
func (e *Expression) IsEqualTo(other Reader, accuracy float64) bool {
	return Equal(e, other, accuracy)
}

// Copy returns an expression with the same value, formula and a copy of the
// constraint. The term is not copied; the copy must be re-evaluated.
func (e *Expression) Copy() *Expression {
	return &Expression{
		kind:       e.kind,
		value:      e.RawValue(),
		formula:    e.formula,
		constraint: e.constraint.Copy(),
		dirty:      e.formula != "",
	}
}

func (e *Expression) Clone() Mutable { return e.Copy() }

// ResolveParentReference replaces the Parent token in the formula with a
// reference to itemID, or clears the formula when remove is set. Reports
// whether the formula changed.
func (e *Expression) ResolveParentReference(itemID string, remove bool) bool {
	if e.formula == "" || !parentPattern.MatchString(e.formula) {
		return false
	}
	if remove {
		e.RawValue()
		e.formula = ""
		e.term = nil
		e.dirty = false
		e.hasScope = false
		return true
	}
	e.formula = parentPattern.ReplaceAllLiteralString(e.formula, ItemReference(itemID))
	e.dirty = true
	return true
}

func keyOf(scope Scope) ScopeKey {
	if scope == nil {
		return ScopeKey{}
	}
	return scope.ScopeKey()
}
