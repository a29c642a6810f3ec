package attr

import (
	"fmt"
	"sort"
)

// Template is a named const list shared as parent by many lists. Templates
// change only by replacing snapshots; every child list sees the change.
type Template struct {
	ConstList
}

// SetParent chains the template to another node in the same arena.
func (t *Template) SetParent(p Handle) bool {
	if p == t.handle || !t.arena.validParent(t.handle, p) {
		return false
	}
	t.parent = p
	return true
}

// Update const-ifies every attribute in attrs and replaces or inserts it
// under the same name. Reports whether anything changed.
func (t *Template) Update(attrs ...Reader) bool {
	changed := false
	for _, r := range attrs {
		if r == nil || r.Name() == "" {
			continue
		}
		if t.put(ConstAttributeFrom(r, "")) {
			changed = true
		}
	}
	return changed
}

// UpdateFrom applies Update with every local attribute of v.
func (t *Template) UpdateFrom(v View) bool {
	var attrs []Reader
	for _, n := range v.Names() {
		if r, ok := v.Lookup(n); ok {
			attrs = append(attrs, r)
		}
	}
	return t.Update(attrs...)
}

// UpdateAttribute finds name through the chain, replaces its expression
// on a mutable copy with v and writes the re-const-ified result into this
// template. v is an expr.Reader or a plain value; locked presets update
// too.
func (t *Template) UpdateAttribute(name string, v any) bool {
	r, ok := t.Get(name)
	if !ok {
		return false
	}
	var at *Attribute
	switch src := r.(type) {
	case *ConstAttribute:
		at = src.ToAttribute(t.arena.factory)
	case *Attribute:
		at = src.Clone()
	}
	if at == nil || !at.replace(v) {
		return false
	}
	t.put(ConstAttributeFrom(at, ""))
	return true
}

// Remove deletes the named snapshot from this template.
func (t *Template) Remove(name string) bool { return t.remove(name) }

// TemplateStore is the name→Template registry of a process. It is an
// explicit value; callers share it instead of relying on package state.
type TemplateStore struct {
	arena  *Arena
	byName map[string]*Template
}

// NewTemplateStore returns a store whose templates live in a.
func NewTemplateStore(a *Arena) *TemplateStore {
	return &TemplateStore{arena: a, byName: make(map[string]*Template)}
}

// Arena returns the arena holding the templates.
func (s *TemplateStore) Arena() *Arena { return s.arena }

// Define creates an empty template called name.
func (s *TemplateStore) Define(name string) (*Template, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty template name", ErrInvalidName)
	}
	if _, ok := s.byName[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateExists, name)
	}
	t := &Template{ConstList: *s.arena.newConstList(name, TypeList)}
	t.handle = s.arena.add(t)
	s.byName[name] = t
	return t, nil
}

// Register snapshots v as a new template called name. The template keeps
// v's parent.
func (s *TemplateStore) Register(name string, v View) (*Template, error) {
	t, err := s.Define(name)
	if err != nil {
		return nil, err
	}
	t.origin = v.TypeName()
	if !t.SetParent(v.Parent()) {
		t.parent = NoHandle
	}
	t.UpdateFrom(v)
	return t, nil
}

// Lookup returns the template called name.
func (s *TemplateStore) Lookup(name string) (*Template, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// NameOf returns the template name at h, if h addresses a template.
func (s *TemplateStore) NameOf(h Handle) (string, bool) {
	v, ok := s.arena.View(h)
	if !ok {
		return "", false
	}
	t, ok := v.(*Template)
	if !ok {
		return "", false
	}
	return t.name, true
}

// Remove drops the template and releases its arena node.
func (s *TemplateStore) Remove(name string) bool {
	t, ok := s.byName[name]
	if !ok {
		return false
	}
	delete(s.byName, name)
	s.arena.Release(t.handle)
	return true
}

// Names returns the defined template names, sorted.
func (s *TemplateStore) Names() []string {
	out := make([]string, 0, len(s.byName))
	for n := range s.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Apply makes the named template the parent of l.
func (s *TemplateStore) Apply(l *List, name string) error {
	t, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	if !l.SetParent(t.handle) {
		return fmt.Errorf("%w: %s", ErrParentNotInArena, name)
	}
	return nil
}

var (
	_ View   = (*Template)(nil)
	_ View   = (*List)(nil)
	_ Reader = (*ConstAttribute)(nil)
	_ Reader = (*Attribute)(nil)
)
