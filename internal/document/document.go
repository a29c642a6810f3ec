// Package document implements an in-memory document: an id-addressable
// tree of items, each owning an attribute list, with the formula scopes,
// item resolution and selection the command layer needs.
package document

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/docmodel/internal/formula"
	"github.com/mesh-intelligence/docmodel/pkg/attr"
	"github.com/mesh-intelligence/docmodel/pkg/command"
	"github.com/mesh-intelligence/docmodel/pkg/expr"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
	"github.com/mesh-intelligence/docmodel/pkg/registry"
)

// Document errors.
var (
	ErrItemNotFound  = errors.New("item not found")
	ErrDuplicateItem = errors.New("item already exists")
	ErrCycle         = errors.New("item cannot be its own ancestor")
)

// Config configures a Document. Zero fields take defaults.
type Config struct {
	// ID is the document id; empty generates a UUID v7.
	ID string
	// Factory defaults to registry.Default().
	Factory *factory.Factory
	// Parser defaults to the HCL formula parser.
	Parser expr.Parser
	// Templates is shared between documents; its arena holds the item
	// lists. Defaults to a private store.
	Templates *attr.TemplateStore
	// CreateMissing makes FindItem create unknown ids as root items, for
	// documents rebuilt from a command stream.
	CreateMissing bool
	Logger        *slog.Logger
}

// Document is a tree of items. It is not safe for concurrent use.
type Document struct {
	id        string
	factory   *factory.Factory
	arena     *attr.Arena
	templates *attr.TemplateStore
	evaluator *expr.Evaluator
	logger    *slog.Logger
	stack     *command.Stack
	create    bool

	items     map[string]*Item
	order     []string
	revision  uint64
	selection []string
	resolving map[string]bool
}

// New returns an empty document.
func New(cfg Config) (*Document, error) {
	if cfg.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate document id: %w", err)
		}
		cfg.ID = id.String()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Factory == nil {
		cfg.Factory = registry.Default()
	}
	if cfg.Parser == nil {
		cfg.Parser = formula.NewParser()
	}
	if cfg.Templates == nil {
		cfg.Templates = attr.NewTemplateStore(attr.NewArena(cfg.Factory))
	}
	d := &Document{
		id:        cfg.ID,
		factory:   cfg.Factory,
		arena:     cfg.Templates.Arena(),
		templates: cfg.Templates,
		evaluator: expr.NewEvaluator(cfg.Parser, cfg.Logger),
		logger:    cfg.Logger.With(slog.String("document", cfg.ID)),
		stack:     command.NewStack(),
		create:    cfg.CreateMissing,
		items:     make(map[string]*Item),
		resolving: make(map[string]bool),
	}
	return d, nil
}

func (d *Document) ID() string                     { return d.id }
func (d *Document) Factory() *factory.Factory      { return d.factory }
func (d *Document) Templates() *attr.TemplateStore { return d.templates }
func (d *Document) Evaluator() *expr.Evaluator     { return d.evaluator }

// Stack returns the document's undo/redo history.
func (d *Document) Stack() *command.Stack { return d.stack }

// Revision increases on every structural change: reparenting and removal.
func (d *Document) Revision() uint64 { return d.revision }

// Context returns the command decoding context for this document.
func (d *Document) Context() command.Context {
	return command.Context{
		Items:     d,
		Factory:   d.factory,
		Templates: d.templates,
		Selection: d,
		Logger:    d.logger,
	}
}

// NewItem creates an item with a generated id under parentID. An empty
// parentID creates a root item.
func (d *Document) NewItem(parentID string) (*Item, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate item id: %w", err)
	}
	return d.AddItem(id.String(), parentID)
}

// AddItem creates an item with the given id under parentID.
func (d *Document) AddItem(id, parentID string) (*Item, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrItemNotFound)
	}
	if _, ok := d.items[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, id)
	}
	var parent *Item
	if parentID != "" {
		p, ok := d.items[parentID]
		if !ok {
			return nil, fmt.Errorf("%w: parent %s", ErrItemNotFound, parentID)
		}
		parent = p
	}
	it := &Item{doc: d, id: id, attrs: d.arena.NewList("")}
	d.items[id] = it
	d.order = append(d.order, id)
	if parent != nil {
		it.parent = parent.id
		parent.children = append(parent.children, id)
	}
	return it, nil
}

// Item returns the item with the given id.
func (d *Document) Item(id string) (*Item, bool) {
	it, ok := d.items[id]
	return it, ok
}

// FindItem implements command.ItemResolver.
func (d *Document) FindItem(id string) (command.Item, bool) {
	it, ok := d.items[id]
	if !ok && d.create && id != "" {
		created, err := d.AddItem(id, "")
		if err != nil {
			return nil, false
		}
		d.logger.Debug("created item on demand", slog.String("item", id))
		it, ok = created, true
	}
	if !ok {
		return nil, false
	}
	return it, true
}

// Items returns item ids in creation order.
func (d *Document) Items() []string { return slices.Clone(d.order) }

// Len returns the number of items.
func (d *Document) Len() int { return len(d.items) }

// Reparent moves the item under newParentID. An empty id makes it a root.
// Formulas that referred to the old parent are rewritten to address it by
// id.
func (d *Document) Reparent(id, newParentID string) error {
	it, ok := d.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	var np *Item
	if newParentID != "" {
		np, ok = d.items[newParentID]
		if !ok {
			return fmt.Errorf("%w: parent %s", ErrItemNotFound, newParentID)
		}
		for p := np; p != nil; p = d.items[p.parent] {
			if p.id == id {
				return fmt.Errorf("%w: %s under %s", ErrCycle, id, newParentID)
			}
		}
	}
	if it.parent == newParentID {
		return nil
	}
	if it.parent != "" {
		it.attrs.ResolveParentReference(it.parent, false)
		if op, ok := d.items[it.parent]; ok {
			op.children = slices.DeleteFunc(op.children, func(c string) bool { return c == id })
		}
	}
	it.parent = newParentID
	if np != nil {
		np.children = append(np.children, id)
	}
	d.revision++
	return nil
}

// Detach makes the item a root.
func (d *Document) Detach(id string) error { return d.Reparent(id, "") }

// Remove deletes the item and its descendants and releases their lists.
// Formulas on other items that referred to them become undefined.
func (d *Document) Remove(id string) error {
	it, ok := d.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if p, ok := d.items[it.parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(c string) bool { return c == id })
	}
	d.removeSubtree(it)
	d.order = slices.DeleteFunc(d.order, func(c string) bool {
		_, ok := d.items[c]
		return !ok
	})
	d.selection = slices.DeleteFunc(d.selection, func(c string) bool {
		_, ok := d.items[c]
		return !ok
	})
	d.revision++
	return nil
}

func (d *Document) removeSubtree(it *Item) {
	for _, c := range it.children {
		if child, ok := d.items[c]; ok {
			d.removeSubtree(child)
		}
	}
	d.arena.Release(it.attrs.Handle())
	delete(d.items, it.id)
}

// Evaluate compiles every item's formulas against its scope. Returns the
// number of items whose terms changed.
func (d *Document) Evaluate() int {
	changed := 0
	for _, id := range d.order {
		it := d.items[id]
		if it.attrs.Evaluate(d.evaluator, it) {
			changed++
		}
	}
	return changed
}

// Selected implements command.Selection.
func (d *Document) Selected() []string { return slices.Clone(d.selection) }

// Select replaces the selection. Unknown ids are dropped.
func (d *Document) Select(ids []string) {
	d.selection = d.selection[:0]
	for _, id := range ids {
		if _, ok := d.items[id]; ok {
			d.selection = append(d.selection, id)
		}
	}
}

// lookup resolves name on it, returning undefined for reference cycles.
func (d *Document) lookup(it *Item, name string) (any, bool) {
	key := it.id + "/" + attr.Key(name)
	if d.resolving[key] {
		d.logger.Debug("formula reference cycle",
			slog.String("item", it.id),
			slog.String("attribute", name))
		return nil, false
	}
	r, ok := it.attrs.Get(name)
	if !ok {
		return nil, false
	}
	d.resolving[key] = true
	defer delete(d.resolving, key)
	return r.Value(), true
}
