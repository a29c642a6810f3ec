package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docmodel/pkg/constraint"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
	"github.com/mesh-intelligence/docmodel/pkg/tree"
)

func testFactory() *factory.Factory {
	return factory.New(Registry(), constraint.Registry())
}

func marshal(t *testing.T, n *tree.Node) string {
	t.Helper()
	data, err := tree.Marshal(n)
	require.NoError(t, err)
	return string(data)
}

func TestSave_Format(t *testing.T) {
	num := NewNumber(100)
	num.SetFormula(`WIDTH*0.5`)

	str := NewString(`a "quoted" <value>`)

	b := NewBoolean(true)
	b.SetLocked(true)

	rng := NewNumber(3)
	rng.SetConstraint(constraint.NewNumberRange(0, 10))

	tests := []struct {
		name string
		r    Reader
		want string
	}{
		{"number with formula", num, `{"f":"WIDTH*0.5","v":"100"}`},
		{"string is escaped", str, `{"t":"s","v":"a ~22quoted~22 ~3Cvalue~3E"}`},
		{"locked boolean", b, `{"locked":"1","t":"b","v":"true"}`},
		{"non-default constraint", rng, `{"o-cstr":{"o-nrc":{"max":"10","min":"0"},"type":"NumberRangeConstraint"},"v":"3"}`},
		{"undefined value", NewObject(nil), `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, marshal(t, Save(tt.r)))
		})
	}
}

func TestSave_TermDerivedFormula(t *testing.T) {
	e := NewNumber(0)
	e.SetTerm(&fakeTerm{src: "W * 2", fn: func() any { return 6.0 }})
	e.formula = ""
	n := Save(e)
	f, ok := n.Text("f")
	require.True(t, ok)
	assert.Equal(t, "W * 2", f)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	f := testFactory()

	withRange := NewNumber(4)
	withRange.SetConstraint(constraint.NewNumberRange(1, 9))
	withRange.SetFormula("Parent.W")
	withRange.SetLocked(true)

	m := NewMap()
	m.PutElement("one", NewString("1"))
	m.PutElement("two", 2.0)
	m.PutElement("flag", false)

	tests := []struct {
		name string
		r    Mutable
	}{
		{"number", withRange},
		{"string", NewString("it's 100% <ok>\nnext")},
		{"boolean", NewBoolean(true)},
		{"attribute", NewAttribute()},
		{"map", m},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tree.Marshal(Encode(tt.r))
			require.NoError(t, err)
			n, err := tree.Unmarshal(data)
			require.NoError(t, err)

			back, err := Decode(n, f)
			require.NoError(t, err)
			assert.Equal(t, tt.r.TypeName(), back.TypeName())
			assert.True(t, back.IsEqualTo(tt.r, 0), "decoded %s differs", tt.name)
			assert.Equal(t, tt.r.IsLocked(), back.IsLocked())
			assert.Equal(t, tt.r.Constraint(), back.Constraint())
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	f := testFactory()

	_, err := Decode(tree.NewNode(), f)
	var pe *tree.ParseError
	assert.ErrorAs(t, err, &pe)

	n := tree.NewNode()
	n.SetAttr("type", "Unknown")
	_, err = Decode(n, f)
	assert.True(t, errors.Is(err, ErrUnknownType))

	n = tree.NewNode()
	n.SetAttr("type", TypeNumber)
	n.SetAttr("v", "abc")
	_, err = Decode(n, f)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "v", pe.Path)

	n = tree.NewNode()
	n.SetAttr("type", TypeNumber)
	cstr := tree.NewNode()
	cstr.SetAttr("type", "NoSuchConstraint")
	n.SetObject("cstr", cstr)
	_, err = Decode(n, f)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "cstr", pe.Path)

	n = tree.NewNode()
	n.SetAttr("type", TypeMap)
	n.Append("el", tree.NewNode())
	_, err = Decode(n, f)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "a-el[0]", pe.Path)
}

func TestRead_DecodedFormulaIsDirty(t *testing.T) {
	n := tree.NewNode()
	n.SetText("f", "W*0.5")
	n.SetAttr("v", "1")

	e := NewNumber(0)
	require.NoError(t, Read(n, e, testFactory()))
	assert.True(t, e.IsDirty())
	assert.Equal(t, 1.0, e.Value())
}

func TestRegistry_Aliases(t *testing.T) {
	f := testFactory()
	for _, name := range []string{TypeNumber, "docmodel.expr.NumberExpression", TypeMap} {
		assert.True(t, f.Has(name), name)
	}
	_, ok := f.Create("docmodel.expr.MapExpression").(*Map)
	assert.True(t, ok)
}
