package attr

import (
	"github.com/mesh-intelligence/docmodel/pkg/factory"
)

// Handle addresses a list node in an Arena. Handles are never reused.
type Handle uint64

// NoHandle is the zero handle; it never addresses a node.
const NoHandle Handle = 0

// View is the read-only view of an arena node.
type View interface {
	Handle() Handle
	TypeName() string
	// Parent is the fallback node for names not found locally.
	Parent() Handle
	// Lookup finds name in this node only.
	Lookup(name string) (Reader, bool)
	// Names returns local attribute names in insertion order.
	Names() []string
}

// Arena owns list nodes and the factory used to rebuild mutable instances
// from const snapshots. Released nodes stop resolving; lists that still
// name them as parent simply stop falling back.
type Arena struct {
	factory *factory.Factory
	next    Handle
	nodes   map[Handle]View
}

// NewArena returns an empty arena using f for reconstruction.
func NewArena(f *factory.Factory) *Arena {
	return &Arena{factory: f, nodes: make(map[Handle]View)}
}

// Factory returns the arena's factory.
func (a *Arena) Factory() *factory.Factory { return a.factory }

// Len returns the number of live nodes.
func (a *Arena) Len() int { return len(a.nodes) }

// View returns the node at h.
func (a *Arena) View(h Handle) (View, bool) {
	v, ok := a.nodes[h]
	return v, ok
}

// Release removes the node at h. Reports whether it was present.
func (a *Arena) Release(h Handle) bool {
	if _, ok := a.nodes[h]; !ok {
		return false
	}
	delete(a.nodes, h)
	return true
}

// Resolve looks name up starting at h and walking parents until a match is
// found or the chain ends. Cycles end the walk.
func (a *Arena) Resolve(h Handle, name string) (Reader, bool) {
	for steps := 0; h != NoHandle && steps <= len(a.nodes); steps++ {
		v, ok := a.nodes[h]
		if !ok {
			return nil, false
		}
		if r, ok := v.Lookup(name); ok {
			return r, true
		}
		h = v.Parent()
	}
	return nil, false
}

// NewList creates an empty list in the arena. An empty type name uses
// TypeList.
func (a *Arena) NewList(typeName string) *List {
	if typeName == "" {
		typeName = TypeList
	}
	l := newList(typeName)
	a.Adopt(l)
	return l
}

// Adopt moves a list built outside the arena, such as one created by the
// factory, into it. A list that already belongs to an arena is left alone.
func (a *Arena) Adopt(l *List) Handle {
	if l.arena != nil {
		return l.handle
	}
	l.arena = a
	l.handle = a.add(l)
	for _, at := range l.attrs {
		at.arena, at.owner = a, l.handle
	}
	return l.handle
}

func (a *Arena) add(v View) Handle {
	a.next++
	a.nodes[a.next] = v
	return a.next
}

// reaches reports whether walking parents from start arrives at target.
func (a *Arena) reaches(start, target Handle) bool {
	for steps := 0; start != NoHandle && steps <= len(a.nodes); steps++ {
		if start == target {
			return true
		}
		v, ok := a.nodes[start]
		if !ok {
			return false
		}
		start = v.Parent()
	}
	return false
}

// validParent reports whether p can become the parent of node h.
func (a *Arena) validParent(h, p Handle) bool {
	if p == NoHandle {
		return true
	}
	if _, ok := a.nodes[p]; !ok {
		return false
	}
	return !a.reaches(p, h)
}
