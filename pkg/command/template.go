package command

import (
	"fmt"

	"github.com/mesh-intelligence/docmodel/pkg/attr"
)

const keyTemplate = "template"

// SetTemplate makes a named template the parent of an item's attribute
// list. An empty name detaches the list from its parent. Undo restores the
// previous parent.
type SetTemplate struct {
	item      Item
	store     *attr.TemplateStore
	name      string
	oldName   string
	oldParent attr.Handle
}

// NewSetTemplate builds the command, capturing the current parent.
func NewSetTemplate(item Item, store *attr.TemplateStore, name string) *SetTemplate {
	c := &SetTemplate{item: item, store: store, name: name}
	if item != nil {
		c.oldParent = item.Attributes().Parent()
		if store != nil {
			c.oldName, _ = store.NameOf(c.oldParent)
		}
	}
	return c
}

func (c *SetTemplate) TypeName() string { return TypeSetTemplate }
func (c *SetTemplate) IsVolatile() bool { return false }

// Template returns the template name applied by Execute.
func (c *SetTemplate) Template() string { return c.name }

// IsNoOp reports that the named template is already the parent.
func (c *SetTemplate) IsNoOp() bool {
	if c.item == nil || c.store == nil {
		return true
	}
	if c.name == "" {
		return c.oldParent == attr.NoHandle
	}
	return c.name == c.oldName
}

func (c *SetTemplate) Execute() error { return c.set() }
func (c *SetTemplate) Redo() error    { return c.set() }

func (c *SetTemplate) set() error {
	l := c.item.Attributes()
	if c.name == "" {
		l.SetParent(attr.NoHandle)
		return nil
	}
	if err := c.store.Apply(l, c.name); err != nil {
		return fmt.Errorf("set template on %s: %w", c.item.ID(), err)
	}
	return nil
}

// Undo restores the previous parent node when it still exists, else the
// previous template by name.
func (c *SetTemplate) Undo() error {
	l := c.item.Attributes()
	if _, ok := c.store.Arena().View(c.oldParent); ok && l.SetParent(c.oldParent) {
		return nil
	}
	if c.oldName != "" {
		if err := c.store.Apply(l, c.oldName); err != nil {
			return fmt.Errorf("restore template on %s: %w", c.item.ID(), err)
		}
		return nil
	}
	l.SetParent(attr.NoHandle)
	return nil
}

func (c *SetTemplate) ToObject() map[string]any {
	return map[string]any{
		KeyType:     TypeSetTemplate,
		KeyItemID:   itemID(c.item),
		keyTemplate: c.name,
		KeyUndo:     map[string]any{keyTemplate: c.oldName},
	}
}

type setTemplateWire struct {
	ItemID   string `mapstructure:"itemId"`
	Template string `mapstructure:"template"`
	Undo     struct {
		Template string `mapstructure:"template"`
	} `mapstructure:"undo"`
}

func decodeSetTemplate(data map[string]any, ctx Context) (Command, bool) {
	if ctx.Templates == nil {
		return decodeFailed(ctx, TypeSetTemplate, ErrNoTemplates)
	}
	var w setTemplateWire
	if err := decodeWire(data, &w); err != nil {
		return decodeFailed(ctx, TypeSetTemplate, err)
	}
	item, ok := resolveTarget(ctx, TypeSetTemplate, w.ItemID)
	if !ok {
		return nil, false
	}
	c := &SetTemplate{item: item, store: ctx.Templates, name: w.Template, oldName: w.Undo.Template}
	if t, ok := ctx.Templates.Lookup(w.Undo.Template); ok {
		c.oldParent = t.Handle()
	}
	return c, true
}
