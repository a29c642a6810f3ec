package attr

import (
	"fmt"

	"github.com/mesh-intelligence/docmodel/pkg/expr"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
	"github.com/mesh-intelligence/docmodel/pkg/tree"
)

// Node keys.
const (
	keyName        = "n"
	keyDisplayName = "dn"
	keyType        = "type"
	keyExpression  = "expr"
	keyTemplate    = "tpl"
	keyAttributes  = "attrs"
)

// Save writes an attribute node: name, display name when it differs, type
// and the embedded expression.
func Save(r Reader) *tree.Node {
	n := tree.NewNode()
	n.SetText(keyName, r.Name())
	if dn := r.DisplayName(); dn != r.Name() {
		n.SetText(keyDisplayName, dn)
	}
	n.SetAttr(keyType, r.TypeName())
	if e := r.Expression(); e != nil {
		n.SetObject(keyExpression, expr.Encode(e))
	}
	return n
}

// Load rebuilds a mutable attribute from a Save node through f.
func Load(n *tree.Node, f *factory.Factory) (*Attribute, error) {
	name, ok := n.Text(keyName)
	if !ok || name == "" {
		return nil, &tree.ParseError{Path: keyName, Offset: -1, Msg: "missing attribute name"}
	}
	typeName, ok := n.Attr(keyType)
	if !ok {
		return nil, &tree.ParseError{Path: keyType, Offset: -1, Msg: "missing attribute type"}
	}
	at, ok := f.Create(typeName).(*Attribute)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	at.name = name
	at.displayName, _ = n.Text(keyDisplayName)
	if xn := n.Object(keyExpression); xn != nil {
		e, err := expr.Decode(xn, f)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		at.expression = e
	}
	return at, nil
}

// Save writes the list node: type, parent template name when the parent is
// a template, and every non-transient attribute.
func (l *List) Save() *tree.Node {
	n := tree.NewNode()
	n.SetAlwaysWrite(true)
	n.SetAttr(keyType, l.typeName)
	if l.arena != nil {
		if v, ok := l.arena.View(l.parent); ok {
			if t, ok := v.(*Template); ok {
				n.SetText(keyTemplate, t.name)
			}
		}
	}
	for _, at := range l.Attributes() {
		if at.transient {
			continue
		}
		n.Append(keyAttributes, Save(at))
	}
	return n
}

// LoadList rebuilds a list in the arena. The parent template, when named,
// is looked up in store.
func (a *Arena) LoadList(n *tree.Node, store *TemplateStore) (*List, error) {
	typeName, ok := n.Attr(keyType)
	if !ok {
		typeName = TypeList
	}
	l, ok := a.factory.Create(typeName).(*List)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	var parent Handle
	if name, ok := n.Text(keyTemplate); ok && name != "" {
		if store == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
		}
		t, ok := store.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
		}
		parent = t.handle
	}
	for i, an := range n.Array(keyAttributes) {
		at, err := Load(an, a.factory)
		if err != nil {
			return nil, fmt.Errorf("a-%s[%d]: %w", keyAttributes, i, err)
		}
		l.Add(at)
	}
	a.Adopt(l)
	if !l.SetParent(parent) {
		return nil, fmt.Errorf("%w: template node %d", ErrParentNotInArena, parent)
	}
	return l, nil
}
