package constraint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docmodel/pkg/factory"
	"github.com/mesh-intelligence/docmodel/pkg/tree"
)

type stringer struct{}

func (stringer) String() string { return "stringer" }

func TestBoolean_Value(t *testing.T) {
	c := NewBoolean(false)
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"true", true, true},
		{"false", false, false},
		{"nonzero number", 2.5, true},
		{"zero number", 0.0, false},
		{"int", 1, true},
		{"string", "yes", true},
		{"empty string", "", false},
		{"FALSE string", "FALSE", false},
		{"zero string", "0", true},
		{"nil", nil, false},
		{"map", map[string]any{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Value(tt.in))
		})
	}
	assert.True(t, c.IsValid(true))
	assert.False(t, c.IsValid("true"))
}

func TestNumber_Value(t *testing.T) {
	c := NewNumber(7)
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"float", 1.5, 1.5},
		{"int", 3, 3.0},
		{"numeric string", " 42 ", 42.0},
		{"true", true, 1.0},
		{"false", false, 0.0},
		{"garbage", "abc", 7.0},
		{"nil", nil, 7.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Value(tt.in))
		})
	}
	assert.True(t, c.IsValid("12"))
	assert.False(t, c.IsValid(true))
	assert.False(t, c.IsValid("x"))
}

func TestNumberRange(t *testing.T) {
	c := NewNumberRange(0, 10)

	assert.True(t, c.IsValid(5))
	assert.False(t, c.IsValid(11))
	assert.False(t, c.IsValid("x"))
	assert.Equal(t, 10.0, c.Value(50))
	assert.Equal(t, 0.0, c.Value(-3))
	assert.Equal(t, 4.0, c.Value("4"))
	assert.True(t, c.AlwaysCheckValue())
	assert.False(t, c.IsDefault())

	swapped := NewNumberRange(10, 0)
	assert.Equal(t, 0.0, swapped.Min())
	assert.Equal(t, 10.0, swapped.Max())
}

func TestString_Value(t *testing.T) {
	c := NewString("dflt")
	assert.Equal(t, "abc", c.Value("abc"))
	assert.Equal(t, "100", c.Value(100.0))
	assert.Equal(t, "0.5", c.Value(0.5))
	assert.Equal(t, "true", c.Value(true))
	assert.Equal(t, "stringer", c.Value(stringer{}))
	assert.Equal(t, "dflt", c.Value(nil))
	assert.Equal(t, "dflt", c.Value(map[string]any{"a": 1}))
	assert.True(t, c.IsValid(""))
	assert.False(t, c.IsValid(1))
}

func TestObject_Value(t *testing.T) {
	c := NewObject(nil)
	m := map[string]any{"a": 1.0}
	assert.Equal(t, m, c.Value(m))
	assert.Nil(t, c.Value(nil))
	assert.True(t, c.IsValid(struct{}{}))
}

func TestSave_DefaultIsNotWritten(t *testing.T) {
	for _, c := range []Constraint{NewBoolean(false), NewNumber(0), NewString(""), NewObject(nil)} {
		assert.Nil(t, Save(c), "%s should not be written", c.TypeName())
	}
}

func TestSave_BaseElement(t *testing.T) {
	n := Save(NewNumber(3))
	require.NotNil(t, n)
	typ, _ := n.Attr("type")
	assert.Equal(t, TypeNumber, typ)

	ec := n.Object("ec")
	require.NotNil(t, ec)
	def, _ := ec.Attr("def")
	marker, _ := ec.Attr("t")
	assert.Equal(t, "3", def)
	assert.Equal(t, "n", marker)
}

func TestSave_RangeWritesBounds(t *testing.T) {
	n := Save(NewNumberRange(1, 5))
	require.NotNil(t, n)
	nrc := n.Object("nrc")
	require.NotNil(t, nrc)
	min, _ := nrc.Attr("min")
	max, _ := nrc.Attr("max")
	assert.Equal(t, "1", min)
	assert.Equal(t, "5", max)
	// def clamps to 1, which is non-zero and therefore written.
	def, ok := nrc.Attr("def")
	assert.True(t, ok)
	assert.Equal(t, "1", def)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	f := factory.New(Registry())

	str := NewString("hello & <bye>")
	obj := NewObject(2.5)
	rng := NewNumberRange(-2, 8)
	rng.SetDefault(3)

	for _, c := range []Constraint{NewBoolean(true), NewNumber(-4.25), str, obj, rng} {
		t.Run(c.TypeName(), func(t *testing.T) {
			n := Save(c)
			require.NotNil(t, n)

			data, err := tree.Marshal(n)
			require.NoError(t, err)
			back, err := tree.Unmarshal(data)
			require.NoError(t, err)

			got, err := Load(back, f)
			require.NoError(t, err)
			assert.Equal(t, c, got)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	f := factory.New(Registry())

	_, err := Load(tree.NewNode(), f)
	assert.True(t, errors.Is(err, ErrInvalidField))

	n := tree.NewNode()
	n.SetAttr("type", "NoSuchConstraint")
	_, err = Load(n, f)
	assert.True(t, errors.Is(err, ErrUnknownType))

	n = tree.NewNode()
	n.SetAttr("type", TypeNumber)
	ec := tree.NewNode()
	ec.SetAttr("def", "not-a-number")
	n.SetObject("ec", ec)
	_, err = Load(n, f)
	assert.True(t, errors.Is(err, ErrInvalidField))
}

func TestRegistry_LegacyAliases(t *testing.T) {
	f := factory.New(Registry())
	_, ok := f.Create("docmodel.constraint.NumberRangeConstraint").(*NumberRange)
	assert.True(t, ok)
	assert.True(t, f.Has(TypeObject))
}

func TestCopy_IsIndependent(t *testing.T) {
	c := NewNumber(1)
	cp := c.Copy().(*Number)
	cp.SetDefault(9)
	assert.Equal(t, 1.0, c.Default())
}
