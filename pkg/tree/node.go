// Package tree implements the generic persistence tree shared by constraints,
// expressions, attributes and command payloads.
//
// A tree is a set of plain keyed records. In the record form, child object
// keys carry the "o-" prefix, child array keys the "a-" prefix, and every
// other key is a plain string attribute. Text payloads are escaped with
// Encode before they reach the generic JSON escaping.
package tree

import "sort"

// Key prefixes for child elements in the record form.
const (
	ObjectPrefix = "o-"
	ArrayPrefix  = "a-"
)

// Node is one element of a persistence tree.
type Node struct {
	attrs       map[string]string
	objects     map[string]*Node
	arrays      map[string][]*Node
	alwaysWrite bool
}

// NewNode returns an empty node.
func NewNode() *Node {
	return &Node{
		attrs:   make(map[string]string),
		objects: make(map[string]*Node),
		arrays:  make(map[string][]*Node),
	}
}

// SetAlwaysWrite marks the node to be written even when it is empty.
func (n *Node) SetAlwaysWrite(on bool) { n.alwaysWrite = on }

// AlwaysWrite reports whether the node is written even when empty.
func (n *Node) AlwaysWrite() bool { return n.alwaysWrite }

// SetAttr stores a raw attribute value.
func (n *Node) SetAttr(key, value string) { n.attrs[key] = value }

// Attr returns a raw attribute value.
func (n *Node) Attr(key string) (string, bool) {
	v, ok := n.attrs[key]
	return v, ok
}

// SetText stores a text payload, escaping it with Encode.
func (n *Node) SetText(key, text string) { n.attrs[key] = Encode(text) }

// Text returns a text payload decoded with Decode.
func (n *Node) Text(key string) (string, bool) {
	v, ok := n.attrs[key]
	if !ok {
		return "", false
	}
	return Decode(v), true
}

// DeleteAttr removes an attribute.
func (n *Node) DeleteAttr(key string) { delete(n.attrs, key) }

// AttrKeys returns the attribute keys in sorted order.
func (n *Node) AttrKeys() []string {
	return sortedKeys(n.attrs)
}

// SetObject stores a child object. A nil child removes the entry.
func (n *Node) SetObject(name string, child *Node) {
	if child == nil {
		delete(n.objects, name)
		return
	}
	n.objects[name] = child
}

// Object returns the named child object or nil.
func (n *Node) Object(name string) *Node { return n.objects[name] }

// ObjectNames returns the child object names in sorted order.
func (n *Node) ObjectNames() []string {
	return sortedKeys(n.objects)
}

// Append adds a child to the named array.
func (n *Node) Append(name string, child *Node) {
	if child == nil {
		return
	}
	n.arrays[name] = append(n.arrays[name], child)
}

// Array returns the named child array.
func (n *Node) Array(name string) []*Node { return n.arrays[name] }

// ArrayNames returns the child array names in sorted order.
func (n *Node) ArrayNames() []string {
	return sortedKeys(n.arrays)
}

// IsEmpty reports whether the node has neither attributes nor children
// that would be written.
func (n *Node) IsEmpty() bool {
	if len(n.attrs) > 0 {
		return false
	}
	for _, c := range n.objects {
		if c.written() {
			return false
		}
	}
	for _, arr := range n.arrays {
		for _, c := range arr {
			if c.written() {
				return false
			}
		}
	}
	return true
}

func (n *Node) written() bool {
	return n.alwaysWrite || !n.IsEmpty()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
