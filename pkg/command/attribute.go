package command

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/docmodel/pkg/attr"
	"github.com/mesh-intelligence/docmodel/pkg/expr"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
)

// PathSeparator splits an attribute name from a map element id in a path.
const PathSeparator = "/"

const (
	keyPath = "path"
	keyExpr = "expr"
	keyAttr = "attr"
	keyName = "name"
)

// SplitPath splits "NAME" or "NAME/ELEMENT" into its parts.
func SplitPath(path string) (name, element string) {
	name, element, _ = strings.Cut(path, PathSeparator)
	return name, element
}

// SetAttributeAtPath replaces the expression of an attribute, or of one
// element of a map attribute, on an item. A nil old expression means the
// path had no local value; undo then removes the local override.
type SetAttributeAtPath struct {
	item    Item
	path    string
	newExpr expr.Reader
	oldExpr expr.Reader
}

// NewSetAttributeAtPath builds the command with explicit old and new
// expressions. Both are snapshotted.
func NewSetAttributeAtPath(item Item, path string, oldExpr, newExpr expr.Reader) *SetAttributeAtPath {
	c := &SetAttributeAtPath{item: item, path: path}
	if newExpr != nil {
		c.newExpr = expr.ConstFrom(newExpr)
	}
	if oldExpr != nil {
		c.oldExpr = expr.ConstFrom(oldExpr)
	}
	return c
}

// CaptureSetAttributeAtPath builds the command reading the old expression
// from the item's current local state.
func CaptureSetAttributeAtPath(item Item, path string, newExpr expr.Reader) *SetAttributeAtPath {
	return NewSetAttributeAtPath(item, path, currentAt(item.Attributes(), path), newExpr)
}

func currentAt(l *attr.List, path string) expr.Reader {
	name, element := SplitPath(path)
	at, ok := l.Attribute(name)
	if !ok {
		return nil
	}
	if element == "" {
		return at.Expression()
	}
	m, ok := at.Mutable().(*expr.Map)
	if !ok {
		return nil
	}
	el, ok := m.Element(element)
	if !ok {
		return nil
	}
	if r, ok := el.(expr.Reader); ok {
		return r
	}
	return expr.NewObject(el)
}

func (c *SetAttributeAtPath) TypeName() string { return TypeSetAttributeAtPath }
func (c *SetAttributeAtPath) IsVolatile() bool { return false }

// Item returns the target item.
func (c *SetAttributeAtPath) Item() Item { return c.item }

// Path returns the attribute path.
func (c *SetAttributeAtPath) Path() string { return c.path }

// NewExpression returns the snapshot applied by Execute and Redo.
func (c *SetAttributeAtPath) NewExpression() expr.Reader { return c.newExpr }

// OldExpression returns the snapshot restored by Undo, or nil.
func (c *SetAttributeAtPath) OldExpression() expr.Reader { return c.oldExpr }

// IsNoOp reports a missing new expression or one equal to the old.
func (c *SetAttributeAtPath) IsNoOp() bool {
	if c.item == nil || c.newExpr == nil {
		return true
	}
	return c.oldExpr != nil && expr.Equal(c.oldExpr, c.newExpr, 0)
}

func (c *SetAttributeAtPath) Execute() error { return c.apply(c.newExpr) }
func (c *SetAttributeAtPath) Redo() error    { return c.apply(c.newExpr) }
func (c *SetAttributeAtPath) Undo() error    { return c.apply(c.oldExpr) }

func (c *SetAttributeAtPath) apply(r expr.Reader) error {
	l := c.item.Attributes()
	name, element := SplitPath(c.path)
	if element == "" {
		if r == nil {
			l.Remove(name)
			return nil
		}
		if !l.SetAttributeValue(name, r) {
			return fmt.Errorf("%w: %s on %s", ErrPathNotFound, c.path, c.item.ID())
		}
		return nil
	}

	m, err := localMap(l, name)
	if err != nil {
		return fmt.Errorf("%s on %s: %w", c.path, c.item.ID(), err)
	}
	if r == nil {
		m.RemoveElement(element)
		return nil
	}
	if !m.PutElement(element, toMutable(r, arenaFactory(l))) {
		return fmt.Errorf("%w: %s on %s", ErrRejected, c.path, c.item.ID())
	}
	return nil
}

func (c *SetAttributeAtPath) ToObject() map[string]any {
	undo := map[string]any{}
	if c.oldExpr != nil {
		undo[keyExpr] = encodeExpr(c.oldExpr)
	}
	return map[string]any{
		KeyType:   TypeSetAttributeAtPath,
		KeyItemID: itemID(c.item),
		keyPath:   c.path,
		keyExpr:   encodeExpr(c.newExpr),
		KeyUndo:   undo,
	}
}

type setAttributeWire struct {
	ItemID string         `mapstructure:"itemId"`
	Path   string         `mapstructure:"path"`
	Expr   map[string]any `mapstructure:"expr"`
	Undo   struct {
		Expr map[string]any `mapstructure:"expr"`
	} `mapstructure:"undo"`
}

func decodeSetAttributeAtPath(data map[string]any, ctx Context) (Command, bool) {
	var w setAttributeWire
	if err := decodeWire(data, &w); err != nil {
		return decodeFailed(ctx, TypeSetAttributeAtPath, err)
	}
	item, ok := resolveTarget(ctx, TypeSetAttributeAtPath, w.ItemID)
	if !ok {
		return nil, false
	}
	newExpr, err := decodeExpr(w.Expr, ctx.Factory)
	if err != nil {
		return decodeFailed(ctx, TypeSetAttributeAtPath, err)
	}
	oldExpr, err := decodeExpr(w.Undo.Expr, ctx.Factory)
	if err != nil {
		return decodeFailed(ctx, TypeSetAttributeAtPath, err)
	}
	c := &SetAttributeAtPath{item: item, path: w.Path}
	if newExpr != nil {
		c.newExpr = expr.ConstFrom(newExpr)
	}
	if oldExpr != nil {
		c.oldExpr = expr.ConstFrom(oldExpr)
	}
	return c, true
}

// localMap returns the local map expression called name, materializing an
// inherited attribute first.
func localMap(l *attr.List, name string) (*expr.Map, error) {
	at, ok := l.Attribute(name)
	if !ok {
		r, found := l.Get(name)
		if !found || !l.SetAttributeValue(name, r.Expression()) {
			return nil, ErrPathNotFound
		}
		at, _ = l.Attribute(name)
	}
	m, ok := at.Mutable().(*expr.Map)
	if !ok {
		return nil, ErrNotMap
	}
	return m, nil
}

func toMutable(r expr.Reader, f *factory.Factory) expr.Mutable {
	switch x := r.(type) {
	case expr.Mutable:
		return x.Clone()
	case *expr.Const:
		if f != nil {
			if m := x.ToExpression(f); m != nil {
				return m
			}
		}
	}
	e := expr.NewObject(nil)
	e.SetTo(r)
	return e
}

func arenaFactory(l *attr.List) *factory.Factory {
	if a := l.Arena(); a != nil {
		return a.Factory()
	}
	return nil
}

func itemID(item Item) string {
	if item == nil {
		return ""
	}
	return item.ID()
}

// AddAttribute adds an attribute to an item, replacing a local attribute
// with the same name. Undo removes it and restores the replaced one.
type AddAttribute struct {
	item      Item
	attribute *attr.Attribute
	previous  *attr.Attribute
}

// NewAddAttribute builds the command. at is cloned; the replaced local
// attribute, if any, is captured now.
func NewAddAttribute(item Item, at *attr.Attribute) *AddAttribute {
	c := &AddAttribute{item: item}
	if at != nil {
		c.attribute = at.Clone()
		if prev, ok := item.Attributes().Attribute(at.Name()); ok {
			c.previous = prev.Clone()
		}
	}
	return c
}

func (c *AddAttribute) TypeName() string { return TypeAddAttribute }
func (c *AddAttribute) IsVolatile() bool { return false }
func (c *AddAttribute) IsNoOp() bool     { return c.item == nil || c.attribute == nil }

func (c *AddAttribute) Execute() error { return c.add() }
func (c *AddAttribute) Redo() error    { return c.add() }

func (c *AddAttribute) add() error {
	if !c.item.Attributes().Add(c.attribute.Clone()) {
		return fmt.Errorf("%w: add %s to %s", ErrRejected, c.attribute.Name(), c.item.ID())
	}
	return nil
}

func (c *AddAttribute) Undo() error {
	l := c.item.Attributes()
	l.Remove(c.attribute.Name())
	if c.previous != nil {
		l.Add(c.previous.Clone())
	}
	return nil
}

func (c *AddAttribute) ToObject() map[string]any {
	undo := map[string]any{}
	if c.previous != nil {
		undo[keyAttr] = encodeAttr(c.previous)
	}
	return map[string]any{
		KeyType:   TypeAddAttribute,
		KeyItemID: itemID(c.item),
		keyAttr:   encodeAttr(c.attribute),
		KeyUndo:   undo,
	}
}

type addAttributeWire struct {
	ItemID string         `mapstructure:"itemId"`
	Attr   map[string]any `mapstructure:"attr"`
	Undo   struct {
		Attr map[string]any `mapstructure:"attr"`
	} `mapstructure:"undo"`
}

func decodeAddAttribute(data map[string]any, ctx Context) (Command, bool) {
	var w addAttributeWire
	if err := decodeWire(data, &w); err != nil {
		return decodeFailed(ctx, TypeAddAttribute, err)
	}
	item, ok := resolveTarget(ctx, TypeAddAttribute, w.ItemID)
	if !ok {
		return nil, false
	}
	at, err := decodeAttr(w.Attr, ctx.Factory)
	if err != nil || at == nil {
		return decodeFailed(ctx, TypeAddAttribute, err)
	}
	prev, err := decodeAttr(w.Undo.Attr, ctx.Factory)
	if err != nil {
		return decodeFailed(ctx, TypeAddAttribute, err)
	}
	return &AddAttribute{item: item, attribute: at, previous: prev}, true
}

// RemoveAttribute removes a local attribute from an item. Undo adds the
// captured attribute back.
type RemoveAttribute struct {
	item    Item
	name    string
	removed *attr.Attribute
}

// NewRemoveAttribute builds the command, capturing the local attribute.
func NewRemoveAttribute(item Item, name string) *RemoveAttribute {
	c := &RemoveAttribute{item: item, name: name}
	if at, ok := item.Attributes().Attribute(name); ok {
		c.removed = at.Clone()
	}
	return c
}

func (c *RemoveAttribute) TypeName() string { return TypeRemoveAttribute }
func (c *RemoveAttribute) IsVolatile() bool { return false }

// IsNoOp reports that there was no local attribute to remove.
func (c *RemoveAttribute) IsNoOp() bool { return c.item == nil || c.removed == nil }

func (c *RemoveAttribute) Execute() error { return c.remove() }
func (c *RemoveAttribute) Redo() error    { return c.remove() }

func (c *RemoveAttribute) remove() error {
	if !c.item.Attributes().Remove(c.name) {
		return fmt.Errorf("%w: %s on %s", ErrPathNotFound, c.name, c.item.ID())
	}
	return nil
}

func (c *RemoveAttribute) Undo() error {
	c.item.Attributes().Add(c.removed.Clone())
	return nil
}

func (c *RemoveAttribute) ToObject() map[string]any {
	undo := map[string]any{}
	if c.removed != nil {
		undo[keyAttr] = encodeAttr(c.removed)
	}
	return map[string]any{
		KeyType:   TypeRemoveAttribute,
		KeyItemID: itemID(c.item),
		keyName:   c.name,
		KeyUndo:   undo,
	}
}

type removeAttributeWire struct {
	ItemID string `mapstructure:"itemId"`
	Name   string `mapstructure:"name"`
	Undo   struct {
		Attr map[string]any `mapstructure:"attr"`
	} `mapstructure:"undo"`
}

func decodeRemoveAttribute(data map[string]any, ctx Context) (Command, bool) {
	var w removeAttributeWire
	if err := decodeWire(data, &w); err != nil {
		return decodeFailed(ctx, TypeRemoveAttribute, err)
	}
	item, ok := resolveTarget(ctx, TypeRemoveAttribute, w.ItemID)
	if !ok {
		return nil, false
	}
	removed, err := decodeAttr(w.Undo.Attr, ctx.Factory)
	if err != nil {
		return decodeFailed(ctx, TypeRemoveAttribute, err)
	}
	return &RemoveAttribute{item: item, name: w.Name, removed: removed}, true
}
