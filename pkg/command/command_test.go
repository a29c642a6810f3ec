package command

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docmodel/pkg/attr"
	"github.com/mesh-intelligence/docmodel/pkg/constraint"
	"github.com/mesh-intelligence/docmodel/pkg/expr"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
)

func testFactory() *factory.Factory {
	return factory.New(attr.Registry(), expr.Registry(), constraint.Registry())
}

type testItem struct {
	id    string
	attrs *attr.List
}

func (i *testItem) ID() string              { return i.id }
func (i *testItem) Attributes() *attr.List { return i.attrs }

type testGraph map[string]*testItem

func (g testGraph) FindItem(id string) (Item, bool) {
	it, ok := g[id]
	if !ok {
		return nil, false
	}
	return it, true
}

func newItem(a *attr.Arena, id string, attrs ...*attr.Attribute) *testItem {
	l := a.NewList("")
	for _, at := range attrs {
		l.Add(at)
	}
	return &testItem{id: id, attrs: l}
}

type testSelection struct{ ids []string }

func (s *testSelection) Selected() []string  { return s.ids }
func (s *testSelection) Select(ids []string) { s.ids = ids }

// recorder is a command that appends its name and operation to a log.
type recorder struct {
	name     string
	log      *[]string
	volatile bool
	noop     bool
	fail     error
}

func (r *recorder) Execute() error   { return r.record("execute") }
func (r *recorder) Undo() error      { return r.record("undo") }
func (r *recorder) Redo() error      { return r.record("redo") }
func (r *recorder) IsVolatile() bool { return r.volatile }
func (r *recorder) IsNoOp() bool     { return r.noop }
func (r *recorder) TypeName() string { return "Recorder" }

func (r *recorder) ToObject() map[string]any {
	return map[string]any{KeyType: "Recorder", "name": r.name}
}

func (r *recorder) record(op string) error {
	if r.fail != nil {
		return r.fail
	}
	*r.log = append(*r.log, r.name+":"+op)
	return nil
}

// wireRoundTrip passes obj through JSON as it would cross a process
// boundary.
func wireRoundTrip(t *testing.T, obj map[string]any) map[string]any {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestStack_History(t *testing.T) {
	var log []string
	s := NewStack()
	c1 := &recorder{name: "c1", log: &log}
	c2 := &recorder{name: "c2", log: &log}
	c3 := &recorder{name: "c3", log: &log}

	assert.False(t, s.CanUndo())
	require.NoError(t, s.Execute(c1))
	require.NoError(t, s.Execute(c2))
	assert.True(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	cmd, err := s.Undo()
	require.NoError(t, err)
	assert.Same(t, c2, cmd)
	assert.True(t, s.CanRedo())

	require.NoError(t, s.Execute(c3))
	assert.False(t, s.CanRedo(), "execute clears the redo history")

	cmd, _ = s.Undo()
	assert.Same(t, c3, cmd)
	cmd, _ = s.Redo()
	assert.Same(t, c3, cmd)

	assert.Equal(t, []string{"c1:execute", "c2:execute", "c2:undo", "c3:execute", "c3:undo", "c3:redo"}, log)

	s.Clear()
	cmd, err = s.Undo()
	assert.Nil(t, cmd)
	assert.NoError(t, err)
	cmd, _ = s.Redo()
	assert.Nil(t, cmd)
}

func TestStack_VolatileAndNoOp(t *testing.T) {
	var log []string
	s := NewStack()

	require.NoError(t, s.Execute(&recorder{name: "v", log: &log, volatile: true}))
	assert.False(t, s.CanUndo(), "volatile commands are not kept")

	require.NoError(t, s.Execute(&recorder{name: "n", log: &log, noop: true}))
	require.NoError(t, s.Execute(nil))
	assert.Equal(t, []string{"v:execute"}, log)
}

func TestStack_FailureLeavesHistory(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	s := NewStack()
	ok := &recorder{name: "ok", log: &log}
	require.NoError(t, s.Execute(ok))

	bad := &recorder{name: "bad", log: &log, fail: boom}
	assert.ErrorIs(t, s.Execute(bad), boom)
	undo, redo := s.Len()
	assert.Equal(t, 1, undo)
	assert.Equal(t, 0, redo)

	ok.fail = boom
	cmd, err := s.Undo()
	assert.ErrorIs(t, err, boom)
	assert.Same(t, ok, cmd)
	assert.True(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestStack_Observers(t *testing.T) {
	var seen []Op
	s := NewStack(ObserverFunc(func(op Op, _ Command) { seen = append(seen, op) }))
	var log []string
	c := &recorder{name: "c", log: &log}

	require.NoError(t, s.Apply(OpExecute, c))
	require.NoError(t, s.Apply(OpUndo, nil))
	require.NoError(t, s.Apply(OpRedo, nil))
	assert.Equal(t, []Op{OpExecute, OpUndo, OpRedo}, seen)
}

func TestCompound_Order(t *testing.T) {
	var log []string
	c := NewCompound(
		&recorder{name: "c1", log: &log},
		&recorder{name: "c2", log: &log},
		nil,
		&recorder{name: "c3", log: &log},
	)
	assert.Len(t, c.Commands(), 3)

	require.NoError(t, c.Execute())
	require.NoError(t, c.Undo())
	require.NoError(t, c.Redo())
	assert.Equal(t, []string{
		"c1:execute", "c2:execute", "c3:execute",
		"c3:undo", "c2:undo", "c1:undo",
		"c1:redo", "c2:redo", "c3:redo",
	}, log)
}

func TestCompound_RollsBackOnFailure(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	c := NewCompound(
		&recorder{name: "c1", log: &log},
		&recorder{name: "c2", log: &log},
		&recorder{name: "c3", log: &log, fail: boom},
	)
	err := c.Execute()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"c1:execute", "c2:execute", "c2:undo", "c1:undo"}, log)
}

func TestCompound_Flags(t *testing.T) {
	var log []string
	assert.True(t, NewCompound().IsNoOp())
	assert.False(t, NewCompound().IsVolatile())

	v := NewCompound(&recorder{name: "a", log: &log, volatile: true})
	assert.True(t, v.IsVolatile())
	mixed := NewCompound(&recorder{name: "a", log: &log, volatile: true}, &recorder{name: "b", log: &log})
	assert.False(t, mixed.IsVolatile())
	assert.False(t, mixed.IsNoOp())
}

func TestSetAttributeAtPath_WireScenario(t *testing.T) {
	f := testFactory()
	local := newItem(attr.NewArena(f), "item-1", attr.NewNumber("WIDTH", 10))

	oldExpr := expr.NewNumber(10)
	newExpr := expr.NewNumber(0)
	newExpr.SetFormula("HEIGHT*2")
	cmd := NewSetAttributeAtPath(local, "WIDTH", oldExpr, newExpr)
	assert.False(t, cmd.IsNoOp())

	obj := cmd.ToObject()
	assert.Equal(t, "item-1", obj[KeyItemID])
	assert.Equal(t, "WIDTH", obj[keyPath])
	assert.Equal(t, map[string]any{"f": "HEIGHT*2", "type": expr.TypeNumber, "v": "0"}, obj[keyExpr])
	assert.Equal(t, map[string]any{keyExpr: map[string]any{"type": expr.TypeNumber, "v": "10"}}, obj[KeyUndo])

	remote := newItem(attr.NewArena(f), "item-1", attr.NewNumber("WIDTH", 10))
	ctx := Context{Items: testGraph{"item-1": remote}, Factory: f}
	decoded, ok := DefaultRegistry().Decode(wireRoundTrip(t, obj), ctx)
	require.True(t, ok)
	require.IsType(t, &SetAttributeAtPath{}, decoded)

	require.NoError(t, decoded.Redo())
	at, _ := remote.attrs.Attribute("WIDTH")
	assert.Equal(t, "HEIGHT*2", at.Expression().Formula())

	require.NoError(t, decoded.Undo())
	assert.Empty(t, at.Expression().Formula())
	assert.Equal(t, 10.0, at.Value())
}

func TestDecode_Misses(t *testing.T) {
	f := testFactory()
	item := newItem(attr.NewArena(f), "a", attr.NewNumber("X", 1))
	obj := NewSetAttributeAtPath(item, "X", nil, expr.NewNumber(2)).ToObject()
	r := DefaultRegistry()

	_, ok := r.Decode(obj, Context{Items: testGraph{}, Factory: f})
	assert.False(t, ok, "missing target is a silent skip")

	_, ok = r.Decode(map[string]any{KeyType: "NoSuchCommand"}, Context{Factory: f})
	assert.False(t, ok)

	_, ok = r.Decode(map[string]any{}, Context{Factory: f})
	assert.False(t, ok)

	bad := NewSetAttributeAtPath(item, "X", nil, expr.NewNumber(2)).ToObject()
	bad[keyExpr] = map[string]any{"type": "NoSuchExpression"}
	_, ok = r.Decode(bad, Context{Items: testGraph{"a": item}, Factory: f})
	assert.False(t, ok)
}

func TestCaptureSetAttributeAtPath_InheritedOverride(t *testing.T) {
	f := testFactory()
	a := attr.NewArena(f)
	parent := a.NewList("")
	parent.Add(attr.NewNumber("X", 1))
	item := newItem(a, "i")
	item.attrs.SetParent(parent.Handle())

	s := NewStack()
	require.NoError(t, s.Execute(CaptureSetAttributeAtPath(item, "X", expr.NewNumber(5))))
	assert.Equal(t, 5.0, item.attrs.Value("X"))
	_, local := item.attrs.Attribute("X")
	assert.True(t, local)

	_, err := s.Undo()
	require.NoError(t, err)
	_, local = item.attrs.Attribute("X")
	assert.False(t, local, "undo removes the override")
	assert.Equal(t, 1.0, item.attrs.Value("X"))

	same := CaptureSetAttributeAtPath(item, "X", expr.NewNumber(1))
	assert.False(t, same.IsNoOp(), "inherited values are not local")
	parent.Add(attr.NewNumber("Y", 1))
	item.attrs.Add(attr.NewNumber("Y", 3))
	assert.True(t, CaptureSetAttributeAtPath(item, "Y", expr.NewNumber(3)).IsNoOp())
}

func TestSetAttributeAtPath_MapElement(t *testing.T) {
	f := testFactory()
	item := newItem(attr.NewArena(f), "i", attr.NewMap("CELLS"))

	cmd := CaptureSetAttributeAtPath(item, "CELLS/c1", expr.NewString("hello"))
	assert.Nil(t, cmd.OldExpression())
	require.NoError(t, cmd.Execute())

	at, _ := item.attrs.Attribute("CELLS")
	m := at.Mutable().(*expr.Map)
	assert.Equal(t, map[string]any{"c1": "hello"}, m.Value())

	next := CaptureSetAttributeAtPath(item, "CELLS/c1", expr.NewString("bye"))
	require.NoError(t, next.Execute())
	assert.Equal(t, map[string]any{"c1": "bye"}, m.Value())
	require.NoError(t, next.Undo())
	assert.Equal(t, map[string]any{"c1": "hello"}, m.Value())
	require.NoError(t, cmd.Undo())
	assert.Equal(t, 0, m.Len())

	scalar := newItem(attr.NewArena(f), "j", attr.NewNumber("N", 1))
	err := CaptureSetAttributeAtPath(scalar, "N/x", expr.NewNumber(2)).Execute()
	assert.ErrorIs(t, err, ErrNotMap)
	err = CaptureSetAttributeAtPath(scalar, "MISSING", expr.NewNumber(2)).Execute()
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestAddRemoveAttribute_Wire(t *testing.T) {
	f := testFactory()
	local := newItem(attr.NewArena(f), "i", attr.NewString("LABEL", "old"))
	remote := newItem(attr.NewArena(f), "i", attr.NewString("LABEL", "old"))
	ctx := Context{Items: testGraph{"i": remote}, Factory: f}
	r := DefaultRegistry()

	add := NewAddAttribute(local, attr.NewString("LABEL", "new"))
	decoded, ok := r.Decode(wireRoundTrip(t, add.ToObject()), ctx)
	require.True(t, ok)
	require.NoError(t, decoded.Execute())
	assert.Equal(t, "new", remote.attrs.Value("LABEL"))
	require.NoError(t, decoded.Undo())
	assert.Equal(t, "old", remote.attrs.Value("LABEL"), "replaced attribute is restored")

	rm := NewRemoveAttribute(local, "label")
	assert.False(t, rm.IsNoOp())
	decoded, ok = r.Decode(wireRoundTrip(t, rm.ToObject()), ctx)
	require.True(t, ok)
	require.NoError(t, decoded.Execute())
	_, ok = remote.attrs.Get("LABEL")
	assert.False(t, ok)
	require.NoError(t, decoded.Undo())
	assert.Equal(t, "old", remote.attrs.Value("LABEL"))

	assert.True(t, NewRemoveAttribute(local, "NOPE").IsNoOp())
}

func TestSetTemplate(t *testing.T) {
	f := testFactory()
	a := attr.NewArena(f)
	store := attr.NewTemplateStore(a)
	box, _ := store.Define("box")
	box.Update(attr.NewNumber("W", 1))
	wide, _ := store.Define("wide")
	wide.Update(attr.NewNumber("W", 9))

	item := newItem(a, "i")
	require.NoError(t, store.Apply(item.attrs, "box"))

	s := NewStack()
	cmd := NewSetTemplate(item, store, "wide")
	require.NoError(t, s.Execute(cmd))
	assert.Equal(t, 9.0, item.attrs.Value("W"))

	obj := wireRoundTrip(t, cmd.ToObject())
	assert.Equal(t, "wide", obj[keyTemplate])
	assert.Equal(t, map[string]any{keyTemplate: "box"}, obj[KeyUndo])

	_, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, 1.0, item.attrs.Value("W"))

	decoded, ok := DefaultRegistry().Decode(obj, Context{Items: testGraph{"i": item}, Factory: f, Templates: store})
	require.True(t, ok)
	require.NoError(t, decoded.Redo())
	assert.Equal(t, 9.0, item.attrs.Value("W"))
	require.NoError(t, decoded.Undo())
	assert.Equal(t, 1.0, item.attrs.Value("W"))

	_, ok = DefaultRegistry().Decode(obj, Context{Items: testGraph{"i": item}, Factory: f})
	assert.False(t, ok, "template commands need a store")

	assert.True(t, NewSetTemplate(item, store, "box").IsNoOp())
	assert.Error(t, NewSetTemplate(item, store, "missing").Execute())
}

func TestSetSelection(t *testing.T) {
	sel := &testSelection{ids: []string{"a"}}
	s := NewStack()
	cmd := NewSetSelection(sel, []string{"b", "c"})
	assert.True(t, cmd.IsVolatile())
	require.NoError(t, s.Execute(cmd))
	assert.Equal(t, []string{"b", "c"}, sel.ids)
	assert.False(t, s.CanUndo())

	remote := &testSelection{}
	decoded, ok := DefaultRegistry().Decode(wireRoundTrip(t, cmd.ToObject()), Context{Selection: remote})
	require.True(t, ok)
	require.NoError(t, decoded.Execute())
	assert.Equal(t, []string{"b", "c"}, remote.ids)
	require.NoError(t, decoded.Undo())
	assert.Equal(t, []string{"a"}, remote.ids)

	assert.True(t, NewSetSelection(sel, []string{"b", "c"}).IsNoOp())
}

func TestCompound_Wire(t *testing.T) {
	f := testFactory()
	local := newItem(attr.NewArena(f), "i", attr.NewNumber("A", 1), attr.NewNumber("B", 2))
	remote := newItem(attr.NewArena(f), "i", attr.NewNumber("A", 1), attr.NewNumber("B", 2))

	c := NewCompound(
		CaptureSetAttributeAtPath(local, "A", expr.NewNumber(10)),
		CaptureSetAttributeAtPath(local, "B", expr.NewNumber(20)),
	)
	r := DefaultRegistry()
	decoded, ok := r.Decode(wireRoundTrip(t, c.ToObject()), Context{Items: testGraph{"i": remote}, Factory: f})
	require.True(t, ok)
	require.NoError(t, decoded.Execute())
	assert.Equal(t, 10.0, remote.attrs.Value("A"))
	assert.Equal(t, 20.0, remote.attrs.Value("B"))
	require.NoError(t, decoded.Undo())
	assert.Equal(t, 1.0, remote.attrs.Value("A"))

	_, ok = r.Decode(wireRoundTrip(t, c.ToObject()), Context{Items: testGraph{}, Factory: f})
	assert.False(t, ok, "a child that cannot resolve fails the compound")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Register("", nil))
	assert.True(t, r.Register("Recorder", func(data map[string]any, _ Context) (Command, bool) {
		var log []string
		name, _ := data["name"].(string)
		return &recorder{name: name, log: &log}, true
	}))
	assert.True(t, r.Has("Recorder"))
	var log []string
	cmd, ok := r.Decode((&recorder{name: "x", log: &log}).ToObject(), Context{})
	require.True(t, ok)
	assert.Equal(t, "x", cmd.(*recorder).name)

	assert.Equal(t, []string{
		TypeAddAttribute, TypeCompound, TypeRemoveAttribute,
		TypeSetAttributeAtPath, TypeSetSelection, TypeSetTemplate,
	}, DefaultRegistry().Names())
}
