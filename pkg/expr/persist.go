package expr

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/mesh-intelligence/docmodel/pkg/constraint"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
	"github.com/mesh-intelligence/docmodel/pkg/tree"
)

// Node keys.
const (
	keyFormula    = "f"
	keyValue      = "v"
	keyValueType  = "t"
	keyLocked     = "locked"
	keyType       = "type"
	keyID         = "id"
	keyConstraint = "cstr"
	keyElements   = "el"
	keyElementExp = "expr"
)

// Value type tags. Numbers carry no tag.
const (
	tagString = "s"
	tagBool   = "b"
	tagNumber = "n"
)

// Save writes r into a new node: formula (or the term rendering), value,
// value type tag, lock flag and a non-default constraint. Map values are
// written as an "el" array.
func Save(r Reader) *tree.Node {
	n := tree.NewNode()
	if f := r.Formula(); f != "" {
		n.SetText(keyFormula, f)
	} else if t := r.Term(); t != nil {
		n.SetText(keyFormula, t.String())
	}
	switch src := r.(type) {
	case *Map:
		src.Range(func(id string, el any) bool {
			n.Append(keyElements, saveElement(id, el))
			return true
		})
	default:
		raw := r.RawValue()
		if m, ok := raw.(map[string]any); ok {
			for _, k := range sortedMapKeys(m) {
				n.Append(keyElements, saveElement(k, m[k]))
			}
		} else {
			writeValue(n, raw)
		}
	}
	if r.IsLocked() {
		n.SetAttr(keyLocked, "1")
	}
	if c := constraint.Save(r.Constraint()); c != nil {
		n.SetObject(keyConstraint, c)
	}
	return n
}

// Encode is Save plus the registered type name, used wherever an
// expression is embedded in a larger payload.
func Encode(r Reader) *tree.Node {
	n := Save(r)
	n.SetAttr(keyType, r.TypeName())
	n.SetAlwaysWrite(true)
	return n
}

// Decode rebuilds a mutable expression from an Encode node.
func Decode(n *tree.Node, f *factory.Factory) (Mutable, error) {
	name, ok := n.Attr(keyType)
	if !ok {
		return nil, &tree.ParseError{Path: keyType, Offset: -1, Msg: "missing expression type"}
	}
	m, ok := f.Create(name).(Mutable)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	if err := Read(n, m, f); err != nil {
		return nil, err
	}
	return m, nil
}

// Read restores the state written by Save into m. The lock flag is applied
// last.
func Read(n *tree.Node, m Mutable, f *factory.Factory) error {
	switch dst := m.(type) {
	case *Expression:
		return readExpression(n, dst, f)
	case *Map:
		return readMap(n, dst, f)
	}
	v, _, err := readValue(n, "")
	if err != nil {
		return err
	}
	m.SetLocked(false)
	m.SetValue(v)
	if formula, ok := n.Text(keyFormula); ok {
		m.SetFormula(formula)
	}
	m.SetLocked(isLocked(n))
	return nil
}

func readExpression(n *tree.Node, e *Expression, f *factory.Factory) error {
	if cn := n.Object(keyConstraint); cn != nil {
		c, err := constraint.Load(cn, f)
		if err != nil {
			return &tree.ParseError{Path: keyConstraint, Offset: -1, Msg: err.Error(), Err: err}
		}
		e.constraint = c
	}
	v, ok, err := readValue(n, "")
	if err != nil {
		return err
	}
	if ok {
		e.value = v
	}
	e.formula, _ = n.Text(keyFormula)
	e.term = nil
	e.dirty = e.formula != ""
	e.hasScope = false
	e.locked = isLocked(n)
	return nil
}

func readMap(n *tree.Node, m *Map, f *factory.Factory) error {
	m.keys = nil
	m.elements = make(map[string]any)
	for i, en := range n.Array(keyElements) {
		path := fmt.Sprintf("a-%s[%d]", keyElements, i)
		id, ok := en.Attr(keyID)
		if !ok || id == "" {
			return &tree.ParseError{Path: path, Offset: -1, Msg: "element without id"}
		}
		var el any
		if xn := en.Object(keyElementExp); xn != nil {
			x, err := Decode(xn, f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			el = x
		} else {
			v, _, err := readValue(en, path)
			if err != nil {
				return err
			}
			el = v
		}
		m.keys = append(m.keys, id)
		m.elements[id] = el
	}
	m.locked = isLocked(n)
	return nil
}

func saveElement(id string, el any) *tree.Node {
	en := tree.NewNode()
	en.SetAttr(keyID, id)
	if r, ok := el.(Reader); ok {
		en.SetObject(keyElementExp, Encode(r))
		return en
	}
	writeValue(en, el)
	return en
}

func writeValue(n *tree.Node, raw any) {
	switch v := raw.(type) {
	case nil:
	case bool:
		n.SetAttr(keyValue, strconv.FormatBool(v))
		n.SetAttr(keyValueType, tagBool)
	case string:
		n.SetText(keyValue, v)
		n.SetAttr(keyValueType, tagString)
	default:
		if f, ok := constraint.ToNumber(v); ok {
			n.SetAttr(keyValue, strconv.FormatFloat(f, 'g', -1, 64))
		}
	}
}

// readValue decodes the v/t pair. The second result reports whether a
// value was present.
func readValue(n *tree.Node, path string) (any, bool, error) {
	raw, ok := n.Attr(keyValue)
	if !ok {
		return nil, false, nil
	}
	tag, _ := n.Attr(keyValueType)
	bad := func(msg string) error {
		p := keyValue
		if path != "" {
			p = path + "/" + keyValue
		}
		return &tree.ParseError{Path: p, Offset: -1, Msg: msg}
	}
	switch tag {
	case tagString:
		return tree.Decode(raw), true, nil
	case tagBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, false, bad(fmt.Sprintf("invalid boolean %q", raw))
		}
		return b, true, nil
	case "", tagNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false, bad(fmt.Sprintf("invalid number %q", raw))
		}
		return f, true, nil
	default:
		return nil, false, bad(fmt.Sprintf("unknown value type %q", tag))
	}
}

func isLocked(n *tree.Node) bool {
	v, ok := n.Attr(keyLocked)
	return ok && (v == "1" || v == "true")
}

func sortedMapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
