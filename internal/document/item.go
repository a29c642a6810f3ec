package document

import (
	"slices"

	"github.com/mesh-intelligence/docmodel/internal/formula"
	"github.com/mesh-intelligence/docmodel/pkg/attr"
	"github.com/mesh-intelligence/docmodel/pkg/expr"
)

// Item is a document element owning an attribute list. It is also the
// scope its formulas compile against.
type Item struct {
	doc      *Document
	id       string
	parent   string
	children []string
	attrs    *attr.List
}

func (it *Item) ID() string             { return it.id }
func (it *Item) Attributes() *attr.List { return it.attrs }

// Parent returns the parent id, or "" for a root.
func (it *Item) Parent() string { return it.parent }

// Children returns child ids in insertion order.
func (it *Item) Children() []string { return slices.Clone(it.children) }

// ScopeKey is the item id plus the document's structural revision, so a
// reparent anywhere forces recompilation.
func (it *Item) ScopeKey() expr.ScopeKey {
	return expr.ScopeKey{Node: it.id, Revision: it.doc.revision}
}

// Lookup resolves an attribute name through the item's list and its
// parent chain.
func (it *Item) Lookup(name string) (any, bool) {
	return it.doc.lookup(it, name)
}

// LookupItem resolves items["id"] references.
func (it *Item) LookupItem(id string) (formula.Resolver, bool) {
	other, ok := it.doc.items[id]
	if !ok {
		return nil, false
	}
	return other, true
}

// ParentScope resolves Parent references.
func (it *Item) ParentScope() (formula.Resolver, bool) {
	p, ok := it.doc.items[it.parent]
	if !ok {
		return nil, false
	}
	return p, true
}

var (
	_ formula.Resolver       = (*Item)(nil)
	_ formula.ItemResolver   = (*Item)(nil)
	_ formula.ParentResolver = (*Item)(nil)
	_ expr.Scope             = (*Item)(nil)
)
