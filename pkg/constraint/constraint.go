// Package constraint validates and coerces raw values into typed domains.
// Every Expression owns one Constraint; reads are routed through Value so a
// bad raw value degrades to the constraint default instead of failing.
package constraint

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/docmodel/pkg/factory"
	"github.com/mesh-intelligence/docmodel/pkg/tree"
)

// Registered constraint type names.
const (
	TypeBoolean     = "BooleanConstraint"
	TypeNumber      = "NumberConstraint"
	TypeNumberRange = "NumberRangeConstraint"
	TypeString      = "StringConstraint"
	TypeObject      = "ObjectConstraint"
)

// legacyPrefix is the dotted namespace older payloads used for type names.
const legacyPrefix = "docmodel.constraint."

// Element tags written by Save.
const (
	tagBase  = "ec"
	tagRange = "nrc"
)

// Type markers carried by the base element.
const (
	markerBool   = "b"
	markerNumber = "n"
	markerString = "s"
)

// Errors returned while reading persisted constraints.
var (
	ErrUnknownType  = errors.New("unknown constraint type")
	ErrInvalidField = errors.New("invalid constraint field")
)

// Constraint validates and coerces values for an Expression.
type Constraint interface {
	// TypeName is the registered factory name.
	TypeName() string
	// IsValid reports whether v is already inside the domain.
	IsValid(v any) bool
	// Value coerces v into the domain, or returns Default.
	Value(v any) any
	Default() any
	// IsDefault reports whether the constraint is in its zero configuration.
	// Default constraints are not persisted.
	IsDefault() bool
	// AlwaysCheckValue requests coercion on write, not only on read.
	AlwaysCheckValue() bool
	Copy() Constraint
	// Save writes the constraint fields into n.
	Save(n *tree.Node)
	// Read restores the constraint fields from n.
	Read(n *tree.Node) error
}

// Registry returns the fixed constraint registry, legacy aliases included.
func Registry() *factory.Registry {
	base := map[string]factory.Constructor{
		TypeBoolean:     func() any { return NewBoolean(false) },
		TypeNumber:      func() any { return NewNumber(0) },
		TypeNumberRange: func() any { return NewNumberRange(-math.MaxFloat64, math.MaxFloat64) },
		TypeString:      func() any { return NewString("") },
		TypeObject:      func() any { return NewObject(nil) },
	}
	entries := make(map[string]factory.Constructor, 2*len(base))
	for name, ctor := range base {
		entries[name] = ctor
		entries[legacyPrefix+name] = ctor
	}
	return factory.NewFixed("constraints", entries)
}

// Save returns the "cstr" element for c, or nil when c is default and
// should not be written.
func Save(c Constraint) *tree.Node {
	if c == nil || c.IsDefault() {
		return nil
	}
	n := tree.NewNode()
	n.SetAttr("type", c.TypeName())
	c.Save(n)
	return n
}

// Load rebuilds a constraint from a "cstr" element through f.
func Load(n *tree.Node, f *factory.Factory) (Constraint, error) {
	name, ok := n.Attr("type")
	if !ok {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidField)
	}
	c, ok := f.Create(name).(Constraint)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	if err := c.Read(n); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return c, nil
}

// ToNumber reports the numeric value of v. Booleans and nil are not
// numeric; strings must parse as a float.
func ToNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		f, err := cast.ToFloat64E(v)
		return f, err == nil
	}
}

// writeBase writes the shared "ec" element. Falsy defaults cancel the write.
func writeBase(n *tree.Node, def string, falsy bool, marker string) {
	if falsy {
		return
	}
	ec := tree.NewNode()
	ec.SetText("def", def)
	if marker != "" {
		ec.SetAttr("t", marker)
	}
	n.SetObject(tagBase, ec)
}

// readBase returns the default text of the "ec" element, if present.
func readBase(n *tree.Node) (string, bool) {
	ec := n.Object(tagBase)
	if ec == nil {
		return "", false
	}
	return ec.Text("def")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseNumber(field, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidField, field, s)
	}
	return f, nil
}
