package attr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docmodel/pkg/constraint"
	"github.com/mesh-intelligence/docmodel/pkg/expr"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
	"github.com/mesh-intelligence/docmodel/pkg/tree"
)

func testArena() *Arena {
	return NewArena(factory.New(Registry(), expr.Registry(), constraint.Registry()))
}

func TestList_CaseInsensitiveLookup(t *testing.T) {
	a := testArena()
	l := a.NewList("")
	require.True(t, l.Add(NewNumber("Width", 10)))

	for _, name := range []string{"Width", "WIDTH", "width"} {
		r, ok := l.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, 10.0, r.Value())
	}
	assert.Equal(t, []string{"Width"}, l.Names())

	require.True(t, l.Add(NewNumber("WIDTH", 20)))
	assert.Equal(t, 1, l.Len(), "same key replaces")
	assert.Equal(t, 20.0, l.Value("width"))

	assert.False(t, l.Add(NewNumber("", 1)))
	assert.False(t, l.Add(nil))
}

func TestList_ParentFallback(t *testing.T) {
	a := testArena()
	p := a.NewList("")
	l := a.NewList("")
	require.True(t, l.SetParent(p.Handle()))
	p.Add(NewString("X", "from parent"))

	r, ok := l.Get("X")
	require.True(t, ok)
	assert.Equal(t, "from parent", r.Value())
	_, local := l.Attribute("X")
	assert.False(t, local, "lookups never create entries")

	require.True(t, p.Remove("x"))
	_, ok = l.Get("X")
	assert.False(t, ok)
}

func TestList_SetParentRejectsCycles(t *testing.T) {
	a := testArena()
	l1 := a.NewList("")
	l2 := a.NewList("")
	l3 := a.NewList("")
	require.True(t, l2.SetParent(l1.Handle()))
	require.True(t, l3.SetParent(l2.Handle()))

	assert.False(t, l1.SetParent(l3.Handle()))
	assert.False(t, l1.SetParent(l1.Handle()))
	assert.False(t, l1.SetParent(Handle(999)))
	assert.True(t, l3.SetParent(NoHandle))

	other := testArena().NewList("")
	assert.False(t, l1.SetParent(other.Handle()+100))
}

func TestArena_ReleaseStopsResolution(t *testing.T) {
	a := testArena()
	p := a.NewList("")
	p.Add(NewNumber("X", 1))
	l := a.NewList("")
	l.SetParent(p.Handle())

	require.True(t, a.Release(p.Handle()))
	assert.False(t, a.Release(p.Handle()))
	_, ok := l.Get("X")
	assert.False(t, ok)
	assert.Equal(t, 1, a.Len())
}

func TestSetAttributeValue_MaterializesOverride(t *testing.T) {
	a := testArena()
	p := a.NewList("")
	p.Add(NewNumber("X", 1))
	l := a.NewList("")
	l.SetParent(p.Handle())

	require.True(t, l.SetAttributeValue("x", 5.0))
	at, ok := l.Attribute("X")
	require.True(t, ok)
	assert.Equal(t, 5.0, at.Value())
	assert.Equal(t, l.Handle(), at.Owner())
	assert.Equal(t, 1.0, p.Value("X"), "parent is not edited")

	assert.False(t, l.SetAttributeValue("MISSING", 1.0))
}

func TestSetExpressionOrValue_DelegatesToOwner(t *testing.T) {
	a := testArena()
	l := a.NewList("")
	at := NewNumber("W", 1)
	l.Add(at)

	f := expr.NewNumber(0)
	f.SetFormula("H*2")
	require.True(t, at.SetExpressionOrValue(f))
	assert.Equal(t, "H*2", at.Expression().Formula())

	require.True(t, at.SetExpressionOrValue(3.0))
	assert.Equal(t, 3.0, at.Value())
	assert.Empty(t, at.Expression().Formula())

	l.Remove("W")
	assert.Equal(t, NoHandle, at.Owner())
	require.True(t, at.SetExpressionOrValue(4.0), "standalone attributes apply directly")
	assert.Equal(t, 4.0, at.Value())
}

func TestAdd_DetachesFromPreviousOwner(t *testing.T) {
	a := testArena()
	l1 := a.NewList("")
	l2 := a.NewList("")
	at := NewBoolean("B", true)
	l1.Add(at)
	l2.Add(at)

	_, ok := l1.Attribute("B")
	assert.False(t, ok)
	assert.Equal(t, l2.Handle(), at.Owner())
}

func TestConstList_RoundTrip(t *testing.T) {
	a := testArena()
	l := a.NewList("")
	l.Add(NewNumber("A", 1))
	l.Add(NewString("B", "s"))

	c := a.ConstListFrom(l, "snapshot")
	assert.Equal(t, "snapshot", c.Name())
	assert.Equal(t, TypeList, c.TypeName())

	l.SetAttributeValue("A", 9.0)
	r, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, 1.0, r.Value(), "snapshot is unaffected by later edits")

	back := c.ToList()
	require.NotNil(t, back)
	assert.NotEqual(t, l.Handle(), back.Handle())
	assert.Equal(t, 1.0, back.Value("A"))
	assert.Equal(t, "s", back.Value("B"))
	assert.Equal(t, []string{"A", "B"}, back.Names())

	at, ok := back.Attribute("A")
	require.True(t, ok)
	assert.True(t, at.SetExpressionOrValue(2.0), "rebuilt attributes are mutable")
}

func TestConstList_PreservesParent(t *testing.T) {
	a := testArena()
	p := a.NewList("")
	p.Add(NewNumber("P", 7))
	l := a.NewList("")
	l.SetParent(p.Handle())

	c := a.ConstListFrom(l, "")
	assert.Equal(t, p.Handle(), c.Parent())
	assert.Equal(t, 7.0, c.ToList().Value("P"))
}

func TestConstAttribute(t *testing.T) {
	f := testArena().Factory()

	src := NewNumber("Width", 3)
	src.SetDisplayName("Shape width")
	src.SetTransient(true)
	src.Mutable().SetConstraint(constraint.NewNumberRange(0, 5))

	c := ConstAttributeFrom(src, "")
	assert.Equal(t, "Width", c.Name())
	assert.Equal(t, "Shape width", c.DisplayName())
	assert.Equal(t, TypeNumber, c.TypeName())
	assert.True(t, c.IsTransient())
	assert.Same(t, c, ConstAttributeFrom(c, ""))
	assert.Equal(t, "Other", ConstAttributeFrom(c, "Other").Name())

	var r Reader = c
	_, mutable := r.(interface{ SetExpressionOrValue(any) bool })
	assert.False(t, mutable)

	back := c.ToAttribute(f)
	require.NotNil(t, back)
	assert.True(t, back.IsEqualTo(src, 0))
	assert.Equal(t, "Shape width", back.DisplayName())
	assert.IsType(t, &constraint.NumberRange{}, back.Expression().Constraint())
	back.SetExpressionOrValue(50.0)
	assert.Equal(t, 5.0, back.Value(), "range constraint is re-applied")

	unknown := &ConstAttribute{name: "U", origin: "NoSuchAttribute", expression: expr.ConstFrom(expr.NewNumber(1))}
	assert.Nil(t, unknown.ToAttribute(f))
}

func TestTemplate_Broadcast(t *testing.T) {
	a := testArena()
	store := NewTemplateStore(a)
	tpl, err := store.Define("box")
	require.NoError(t, err)
	require.True(t, tpl.Update(NewNumber("WIDTH", 200), NewString("LABEL", "box")))
	assert.False(t, tpl.Update(NewNumber("WIDTH", 200)), "identical snapshot is not a change")

	l1 := a.NewList("")
	l2 := a.NewList("")
	require.NoError(t, store.Apply(l1, "box"))
	require.NoError(t, store.Apply(l2, "box"))
	assert.ErrorIs(t, store.Apply(l1, "nope"), ErrUnknownTemplate)

	require.True(t, tpl.UpdateAttribute("width", 300.0))
	assert.Equal(t, 300.0, l1.Value("WIDTH"))
	assert.Equal(t, 300.0, l2.Value("WIDTH"))

	l1.SetAttributeValue("WIDTH", 10.0)
	assert.Equal(t, 10.0, l1.Value("WIDTH"))
	assert.Equal(t, 300.0, l2.Value("WIDTH"))

	r, _ := tpl.Get("WIDTH")
	_, isConst := r.(*ConstAttribute)
	assert.True(t, isConst, "templates hold const snapshots")

	assert.False(t, tpl.UpdateAttribute("MISSING", 1.0))
}

func TestTemplate_UpdateAttributeWalksChain(t *testing.T) {
	a := testArena()
	store := NewTemplateStore(a)
	base, _ := store.Define("base")
	base.Update(NewNumber("HEIGHT", 1))
	derived, _ := store.Define("derived")
	require.True(t, derived.SetParent(base.Handle()))
	assert.False(t, base.SetParent(derived.Handle()))

	require.True(t, derived.UpdateAttribute("HEIGHT", 5.0))
	v, _ := derived.Lookup("HEIGHT")
	assert.Equal(t, 5.0, v.Value())
	b, _ := base.Lookup("HEIGHT")
	assert.Equal(t, 1.0, b.Value())
}

func TestTemplate_UpdateAttributeReplacesLocked(t *testing.T) {
	a := testArena()
	store := NewTemplateStore(a)
	tpl, _ := store.Define("box")
	width := NewNumber("WIDTH", 200)
	width.Mutable().SetLocked(true)
	tpl.Update(width)

	require.True(t, tpl.UpdateAttribute("WIDTH", 300.0))
	r, _ := tpl.Lookup("WIDTH")
	assert.Equal(t, 300.0, r.Value())
	assert.True(t, r.Expression().IsLocked(), "the preset stays locked")

	l := a.NewList("")
	require.NoError(t, store.Apply(l, "box"))
	assert.Equal(t, 300.0, l.Value("WIDTH"))
}

func TestConstList_Release(t *testing.T) {
	a := testArena()
	l := a.NewList("")
	l.Add(NewNumber("A", 1))
	before := a.Len()

	c := a.ConstListFrom(l, "snapshot")
	assert.Equal(t, before+1, a.Len())

	child := a.NewList("")
	require.True(t, child.SetParent(c.Handle()))
	assert.Equal(t, 1.0, child.Value("A"))

	assert.True(t, c.Release())
	assert.False(t, c.Release())
	assert.Equal(t, before+1, a.Len(), "only the child remains added")
	assert.Nil(t, child.Value("A"), "a released snapshot stops resolving")
}

func TestTemplateStore(t *testing.T) {
	a := testArena()
	store := NewTemplateStore(a)
	_, err := store.Define("")
	assert.ErrorIs(t, err, ErrInvalidName)

	tpl, err := store.Define("t1")
	require.NoError(t, err)
	_, err = store.Define("t1")
	assert.ErrorIs(t, err, ErrTemplateExists)

	l := a.NewList("")
	l.Add(NewBoolean("FLAG", true))
	reg, err := store.Register("t2", l)
	require.NoError(t, err)
	r, ok := reg.Get("flag")
	require.True(t, ok)
	assert.Equal(t, true, r.Value())

	name, ok := store.NameOf(tpl.Handle())
	require.True(t, ok)
	assert.Equal(t, "t1", name)
	_, ok = store.NameOf(l.Handle())
	assert.False(t, ok)

	assert.Equal(t, []string{"t1", "t2"}, store.Names())
	assert.True(t, store.Remove("t1"))
	assert.False(t, store.Remove("t1"))
	_, ok = a.View(tpl.Handle())
	assert.False(t, ok)
}

func TestList_EvaluateAndCopy(t *testing.T) {
	a := testArena()
	l := a.NewList("")
	w := NewNumber("W", 0)
	w.Mutable().SetFormula("X")
	l.Add(w)
	l.Add(NewString("S", "plain"))

	ev := expr.NewEvaluator(constParser{v: 42.0}, nil)
	assert.True(t, l.Evaluate(ev, nil))
	assert.Equal(t, 42.0, l.Value("W"))

	cp := l.Copy()
	assert.Equal(t, l.Names(), cp.Names())
	cw, _ := cp.Attribute("W")
	assert.Equal(t, "X", cw.Expression().Formula())
	assert.True(t, cw.Mutable().IsDirty(), "copies must be re-evaluated")

	p := NewNumber("P", 0)
	p.Mutable().SetFormula("Parent.W")
	l.Add(p)
	assert.True(t, l.ResolveParentReference("item-1", false))
	assert.Equal(t, `items["item-1"].W`, p.Expression().Formula())
}

type constParser struct{ v any }

func (p constParser) Parse(formula string, _ expr.Scope) (expr.Term, error) {
	return constTerm{src: formula, v: p.v}, nil
}

type constTerm struct {
	src string
	v   any
}

func (t constTerm) Value() any     { return t.v }
func (t constTerm) String() string { return t.src }

func TestPersist_List(t *testing.T) {
	a := testArena()
	store := NewTemplateStore(a)
	tpl, _ := store.Define("box")
	tpl.Update(NewNumber("DEPTH", 4))

	l := a.NewList("")
	require.NoError(t, store.Apply(l, "box"))
	l.Add(NewNumber("WIDTH", 10))
	tr := NewString("SEL", "x")
	tr.SetTransient(true)
	l.Add(tr)

	data, err := tree.Marshal(l.Save())
	require.NoError(t, err)
	assert.Equal(t,
		`{"a-attrs":[{"n":"WIDTH","o-expr":{"type":"NumberExpression","v":"10"},"type":"NumberAttribute"}],"tpl":"box","type":"AttributeList"}`,
		string(data))

	n, err := tree.Unmarshal(data)
	require.NoError(t, err)
	back, err := a.LoadList(n, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"WIDTH"}, back.Names())
	assert.Equal(t, 10.0, back.Value("WIDTH"))
	assert.Equal(t, 4.0, back.Value("DEPTH"), "template parent is restored")

	_, err = a.LoadList(n, NewTemplateStore(a))
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestPersist_Attribute(t *testing.T) {
	f := testArena().Factory()

	at := NewString("Label", `say "hi"`)
	at.SetDisplayName("Label text")
	back, err := Load(Save(at), f)
	require.NoError(t, err)
	assert.True(t, back.IsEqualTo(at, 0))
	assert.Equal(t, "Label text", back.DisplayName())

	c := ConstAttributeFrom(NewNumber("N", 2), "")
	back, err = Load(Save(c), f)
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, back.TypeName())
	assert.Equal(t, 2.0, back.Value())

	_, err = Load(tree.NewNode(), f)
	var pe *tree.ParseError
	assert.ErrorAs(t, err, &pe)

	n := Save(at)
	n.SetAttr("type", "NoSuchAttribute")
	_, err = Load(n, f)
	assert.ErrorIs(t, err, ErrUnknownType)
}

const presetsYAML = `
templates:
  - name: base
    attributes:
      - name: WIDTH
        type: number
        value: 200
        min: 0
        max: 500
  - name: box
    parent: base
    attributes:
      - name: HEIGHT
        type: number
        formula: WIDTH*0.5
      - name: LABEL
        display_name: Label
        type: string
        value: hello
        locked: true
`

func TestLoadPresets(t *testing.T) {
	a := testArena()
	store := NewTemplateStore(a)
	names, err := store.LoadPresets(strings.NewReader(presetsYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "box"}, names)

	box, ok := store.Lookup("box")
	require.True(t, ok)
	w, ok := box.Get("width")
	require.True(t, ok, "resolved through the parent template")
	assert.Equal(t, 200.0, w.Value())
	assert.IsType(t, &constraint.NumberRange{}, w.Expression().Constraint())

	h, _ := box.Lookup("HEIGHT")
	assert.Equal(t, "WIDTH*0.5", h.Expression().Formula())
	lbl, _ := box.Lookup("LABEL")
	assert.True(t, lbl.Expression().IsLocked())
	assert.Equal(t, "Label", lbl.DisplayName())
}

func TestLoadPresets_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown parent", "templates:\n  - name: a\n    parent: zzz\n", ErrUnknownTemplate},
		{"duplicate", "templates:\n  - name: a\n  - name: a\n", ErrTemplateExists},
		{"missing name", "templates:\n  - attributes: []\n", ErrInvalidPreset},
		{"unknown type", "templates:\n  - name: a\n    attributes:\n      - name: X\n        type: blob\n", ErrUnknownType},
		{"range on string", "templates:\n  - name: a\n    attributes:\n      - name: X\n        type: string\n        min: 1\n", ErrInvalidPreset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewTemplateStore(testArena())
			_, err := store.LoadPresets(strings.NewReader(tt.yaml))
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, store.Names(), "nothing is defined on failure")
		})
	}
}

func TestRegistry_Aliases(t *testing.T) {
	f := testArena().Factory()
	for _, name := range []string{TypeNumber, "docmodel.attr.NumberAttribute", TypeList} {
		assert.True(t, f.Has(name), name)
	}
	_, ok := f.Create("docmodel.attr.AttributeList").(*List)
	assert.True(t, ok)
}

func TestList_VisibleNames(t *testing.T) {
	a := testArena()
	store := NewTemplateStore(a)
	base, err := store.Define("base")
	require.NoError(t, err)
	base.Update(NewNumber("WIDTH", 1), NewNumber("HEIGHT", 2))
	box, err := store.Define("box")
	require.NoError(t, err)
	box.Update(NewString("LABEL", "x"), NewNumber("width", 3))
	require.True(t, box.SetParent(base.Handle()))

	l := a.NewList("")
	l.Add(NewNumber("DEPTH", 4))
	require.NoError(t, store.Apply(l, "box"))
	assert.Equal(t, []string{"DEPTH", "LABEL", "width", "HEIGHT"}, l.VisibleNames())
}
