package constraint

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/docmodel/pkg/tree"
)

// Boolean accepts true/false and coerces numbers and strings.
type Boolean struct {
	def bool
}

// NewBoolean returns a Boolean constraint with the given default.
func NewBoolean(def bool) *Boolean { return &Boolean{def: def} }

func (c *Boolean) TypeName() string       { return TypeBoolean }
func (c *Boolean) Default() any           { return c.def }
func (c *Boolean) IsDefault() bool        { return !c.def }
func (c *Boolean) AlwaysCheckValue() bool { return false }
func (c *Boolean) Copy() Constraint       { return &Boolean{def: c.def} }

// SetDefault replaces the default value.
func (c *Boolean) SetDefault(def bool) { c.def = def }

func (c *Boolean) IsValid(v any) bool {
	_, ok := v.(bool)
	return ok
}

// Value coerces numbers via != 0 and strings via s != "" && s != "false"
// (case-insensitive).
func (c *Boolean) Value(v any) any {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != "" && strings.ToLower(x) != "false"
	}
	if f, ok := ToNumber(v); ok {
		return f != 0
	}
	return c.def
}

func (c *Boolean) Save(n *tree.Node) {
	writeBase(n, strconv.FormatBool(c.def), !c.def, markerBool)
}

func (c *Boolean) Read(n *tree.Node) error {
	def, ok := readBase(n)
	if !ok {
		c.def = false
		return nil
	}
	b, err := strconv.ParseBool(def)
	if err != nil {
		return fmt.Errorf("%w: def=%q", ErrInvalidField, def)
	}
	c.def = b
	return nil
}

// Number accepts numeric and numeric-like values.
type Number struct {
	def float64
}

// NewNumber returns a Number constraint with the given default.
func NewNumber(def float64) *Number { return &Number{def: def} }

func (c *Number) TypeName() string       { return TypeNumber }
func (c *Number) Default() any           { return c.def }
func (c *Number) IsDefault() bool        { return c.def == 0 }
func (c *Number) AlwaysCheckValue() bool { return false }
func (c *Number) Copy() Constraint       { return &Number{def: c.def} }

// SetDefault replaces the default value.
func (c *Number) SetDefault(def float64) { c.def = def }

func (c *Number) IsValid(v any) bool {
	_, ok := ToNumber(v)
	return ok
}

// Value maps false to 0 and true to 1; other non-numeric values yield the
// default.
func (c *Number) Value(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1.0
		}
		return 0.0
	}
	if f, ok := ToNumber(v); ok {
		return f
	}
	return c.def
}

func (c *Number) Save(n *tree.Node) {
	writeBase(n, formatNumber(c.def), c.def == 0, markerNumber)
}

func (c *Number) Read(n *tree.Node) error {
	def, ok := readBase(n)
	if !ok {
		c.def = 0
		return nil
	}
	f, err := parseNumber("def", def)
	if err != nil {
		return err
	}
	c.def = f
	return nil
}

// NumberRange accepts numbers within [min, max] and clamps everything else.
type NumberRange struct {
	def      float64
	min, max float64
}

// NewNumberRange returns a range constraint. Swapped bounds are reordered.
func NewNumberRange(min, max float64) *NumberRange {
	if min > max {
		min, max = max, min
	}
	return &NumberRange{min: min, max: max, def: clamp(0, min, max)}
}

func (c *NumberRange) TypeName() string       { return TypeNumberRange }
func (c *NumberRange) Default() any           { return c.def }
func (c *NumberRange) IsDefault() bool        { return false }
func (c *NumberRange) AlwaysCheckValue() bool { return true }
func (c *NumberRange) Min() float64           { return c.min }
func (c *NumberRange) Max() float64           { return c.max }

func (c *NumberRange) Copy() Constraint {
	cp := *c
	return &cp
}

// SetDefault replaces the default value, clamped into range.
func (c *NumberRange) SetDefault(def float64) { c.def = clamp(def, c.min, c.max) }

func (c *NumberRange) IsValid(v any) bool {
	f, ok := ToNumber(v)
	return ok && f >= c.min && f <= c.max
}

func (c *NumberRange) Value(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return clamp(1, c.min, c.max)
		}
		return clamp(0, c.min, c.max)
	}
	if f, ok := ToNumber(v); ok {
		return clamp(f, c.min, c.max)
	}
	return c.def
}

// Save always writes the bounds; def is omitted when zero.
func (c *NumberRange) Save(n *tree.Node) {
	nrc := tree.NewNode()
	if c.def != 0 {
		nrc.SetAttr("def", formatNumber(c.def))
		nrc.SetAttr("t", markerNumber)
	}
	nrc.SetAttr("min", formatNumber(c.min))
	nrc.SetAttr("max", formatNumber(c.max))
	n.SetObject(tagRange, nrc)
}

func (c *NumberRange) Read(n *tree.Node) error {
	nrc := n.Object(tagRange)
	if nrc == nil {
		return nil
	}
	if s, ok := nrc.Attr("min"); ok {
		f, err := parseNumber("min", s)
		if err != nil {
			return err
		}
		c.min = f
	}
	if s, ok := nrc.Attr("max"); ok {
		f, err := parseNumber("max", s)
		if err != nil {
			return err
		}
		c.max = f
	}
	c.def = 0
	if s, ok := nrc.Attr("def"); ok {
		f, err := parseNumber("def", s)
		if err != nil {
			return err
		}
		c.def = f
	}
	c.def = clamp(c.def, c.min, c.max)
	return nil
}

func clamp(f, min, max float64) float64 {
	return math.Min(math.Max(f, min), max)
}

// String accepts strings and stringifies everything else it can.
type String struct {
	def string
}

// NewString returns a String constraint with the given default.
func NewString(def string) *String { return &String{def: def} }

func (c *String) TypeName() string       { return TypeString }
func (c *String) Default() any           { return c.def }
func (c *String) IsDefault() bool        { return c.def == "" }
func (c *String) AlwaysCheckValue() bool { return false }
func (c *String) Copy() Constraint       { return &String{def: c.def} }

// SetDefault replaces the default value.
func (c *String) SetDefault(def string) { c.def = def }

func (c *String) IsValid(v any) bool {
	_, ok := v.(string)
	return ok
}

// Value calls the value's own stringification, or returns the default.
func (c *String) Value(v any) any {
	if v == nil {
		return c.def
	}
	if f, ok := v.(float64); ok {
		return formatNumber(f)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return c.def
	}
	return s
}

func (c *String) Save(n *tree.Node) {
	writeBase(n, c.def, c.def == "", markerString)
}

func (c *String) Read(n *tree.Node) error {
	def, _ := readBase(n)
	c.def = def
	return nil
}

// Object accepts any value and never transforms it.
type Object struct {
	def any
}

// NewObject returns an Object constraint with the given default.
func NewObject(def any) *Object { return &Object{def: def} }

func (c *Object) TypeName() string       { return TypeObject }
func (c *Object) Default() any           { return c.def }
func (c *Object) IsDefault() bool        { return isFalsy(c.def) }
func (c *Object) AlwaysCheckValue() bool { return false }
func (c *Object) Copy() Constraint       { return &Object{def: c.def} }
func (c *Object) IsValid(any) bool       { return true }

// SetDefault replaces the default value.
func (c *Object) SetDefault(def any) { c.def = def }

func (c *Object) Value(v any) any {
	if v == nil {
		return c.def
	}
	return v
}

// Save persists scalar defaults only.
func (c *Object) Save(n *tree.Node) {
	switch d := c.def.(type) {
	case bool:
		writeBase(n, strconv.FormatBool(d), !d, markerBool)
	case string:
		writeBase(n, d, d == "", markerString)
	default:
		if f, ok := ToNumber(d); ok {
			writeBase(n, formatNumber(f), f == 0, markerNumber)
		}
	}
}

func (c *Object) Read(n *tree.Node) error {
	ec := n.Object(tagBase)
	if ec == nil {
		c.def = nil
		return nil
	}
	def, _ := ec.Text("def")
	marker, _ := ec.Attr("t")
	switch marker {
	case markerBool:
		b, err := strconv.ParseBool(def)
		if err != nil {
			return fmt.Errorf("%w: def=%q", ErrInvalidField, def)
		}
		c.def = b
	case markerNumber:
		f, err := parseNumber("def", def)
		if err != nil {
			return err
		}
		c.def = f
	default:
		c.def = def
	}
	return nil
}

func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	}
	if f, ok := ToNumber(v); ok {
		return f == 0
	}
	return false
}
