// Package command implements undoable document edits, their serialized
// wire form, and the per-document undo/redo stack.
//
// A Command serializes itself with ToObject into a plain keyed object that
// names its target by id. A Registry turns such objects back into commands
// against a Context whose ItemResolver finds the target; a target that
// cannot be resolved yields no command, so replay against a missing item is
// a silent skip.
package command

import (
	"errors"
	"log/slog"

	"github.com/mesh-intelligence/docmodel/pkg/attr"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
)

// Registered command type names.
const (
	TypeCompound           = "CompoundCommand"
	TypeSetAttributeAtPath = "SetAttributeAtPathCommand"
	TypeAddAttribute       = "AddAttributeCommand"
	TypeRemoveAttribute    = "RemoveAttributeCommand"
	TypeSetTemplate        = "SetTemplateCommand"
	TypeSetSelection       = "SetSelectionCommand"
)

// Wire object keys shared by the concrete commands.
const (
	KeyType   = "type"
	KeyItemID = "itemId"
	KeyUndo   = "undo"
)

// Command errors.
var (
	ErrPathNotFound = errors.New("attribute path not found")
	ErrNotMap       = errors.New("attribute is not a map")
	ErrRejected     = errors.New("write rejected")
	ErrNoTemplates  = errors.New("no template store")
	ErrNoSelection  = errors.New("no selection holder")
)

// Command is one undoable edit. Execute runs it the first time; Undo and
// Redo move it between the stack's histories.
type Command interface {
	Execute() error
	Undo() error
	Redo() error
	// IsVolatile commands run but are never kept in history.
	IsVolatile() bool
	// IsNoOp commands are not run at all.
	IsNoOp() bool
	TypeName() string
	// ToObject returns the wire form: the target item id, command fields
	// and an "undo" object with what is needed to reverse the edit.
	ToObject() map[string]any
}

// Item is an addressable document element owning an attribute list.
type Item interface {
	ID() string
	Attributes() *attr.List
}

// ItemResolver finds items by id in a document graph.
type ItemResolver interface {
	FindItem(id string) (Item, bool)
}

// Selection holds the ids of the currently selected items.
type Selection interface {
	Selected() []string
	Select(ids []string)
}

// Context carries what decoding needs: the item graph, the factory for
// embedded values, and optional template store and selection holder.
type Context struct {
	Items     ItemResolver
	Factory   *factory.Factory
	Templates *attr.TemplateStore
	Selection Selection
	Logger    *slog.Logger
}

func (c Context) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c Context) findItem(id string) (Item, bool) {
	if c.Items == nil || id == "" {
		return nil, false
	}
	return c.Items.FindItem(id)
}
