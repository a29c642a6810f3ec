package command

import (
	"slices"
)

const keyIDs = "ids"

// SetSelection replaces the selected item ids. It is volatile: it runs but
// is never kept in history.
type SetSelection struct {
	sel      Selection
	ids      []string
	previous []string
}

// NewSetSelection builds the command, capturing the current selection.
func NewSetSelection(sel Selection, ids []string) *SetSelection {
	c := &SetSelection{sel: sel, ids: slices.Clone(ids)}
	if sel != nil {
		c.previous = slices.Clone(sel.Selected())
	}
	return c
}

func (c *SetSelection) TypeName() string { return TypeSetSelection }
func (c *SetSelection) IsVolatile() bool { return true }

func (c *SetSelection) IsNoOp() bool {
	return c.sel == nil || slices.Equal(c.ids, c.previous)
}

func (c *SetSelection) Execute() error { c.sel.Select(slices.Clone(c.ids)); return nil }
func (c *SetSelection) Redo() error    { c.sel.Select(slices.Clone(c.ids)); return nil }
func (c *SetSelection) Undo() error    { c.sel.Select(slices.Clone(c.previous)); return nil }

func (c *SetSelection) ToObject() map[string]any {
	return map[string]any{
		KeyType: TypeSetSelection,
		keyIDs:  toAnySlice(c.ids),
		KeyUndo: map[string]any{keyIDs: toAnySlice(c.previous)},
	}
}

type setSelectionWire struct {
	IDs  []string `mapstructure:"ids"`
	Undo struct {
		IDs []string `mapstructure:"ids"`
	} `mapstructure:"undo"`
}

func decodeSetSelection(data map[string]any, ctx Context) (Command, bool) {
	if ctx.Selection == nil {
		return decodeFailed(ctx, TypeSetSelection, ErrNoSelection)
	}
	var w setSelectionWire
	if err := decodeWire(data, &w); err != nil {
		return decodeFailed(ctx, TypeSetSelection, err)
	}
	return &SetSelection{sel: ctx.Selection, ids: w.IDs, previous: w.Undo.IDs}, true
}

func toAnySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
