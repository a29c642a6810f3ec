package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotRecord is wrapped by ParseError when a payload element is not a
// keyed record.
var ErrNotRecord = errors.New("element is not a record")

// ParseError reports structurally invalid persisted input. Path locates the
// offending element ("o-expr/a-el[2]"); Offset is the byte offset for JSON
// syntax errors and -1 otherwise.
type ParseError struct {
	Path   string
	Offset int64
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("tree: parse error")
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " (offset %d)", e.Offset)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(path, msg string, err error) *ParseError {
	return &ParseError{Path: path, Offset: -1, Msg: msg, Err: err}
}

// Record converts the node to its plain keyed-record form. Empty children
// are omitted unless marked always-write; the node itself is always
// returned.
func (n *Node) Record() map[string]any {
	rec := make(map[string]any, len(n.attrs)+len(n.objects)+len(n.arrays))
	for k, v := range n.attrs {
		rec[k] = v
	}
	for name, child := range n.objects {
		if child.written() {
			rec[ObjectPrefix+name] = child.Record()
		}
	}
	for name, arr := range n.arrays {
		items := make([]any, 0, len(arr))
		for _, child := range arr {
			if child.written() {
				items = append(items, child.Record())
			}
		}
		if len(items) > 0 {
			rec[ArrayPrefix+name] = items
		}
	}
	return rec
}

// FromRecord rebuilds a node from its record form.
func FromRecord(rec map[string]any) (*Node, error) {
	return fromRecord(rec, "")
}

func fromRecord(rec map[string]any, path string) (*Node, error) {
	n := NewNode()
	for key, raw := range rec {
		switch {
		case strings.HasPrefix(key, ObjectPrefix):
			name := strings.TrimPrefix(key, ObjectPrefix)
			sub, ok := raw.(map[string]any)
			if !ok {
				return nil, newParseError(join(path, key), fmt.Sprintf("expected object, got %T", raw), ErrNotRecord)
			}
			child, err := fromRecord(sub, join(path, key))
			if err != nil {
				return nil, err
			}
			n.objects[name] = child
		case strings.HasPrefix(key, ArrayPrefix):
			name := strings.TrimPrefix(key, ArrayPrefix)
			items, ok := raw.([]any)
			if !ok {
				return nil, newParseError(join(path, key), fmt.Sprintf("expected array, got %T", raw), nil)
			}
			for i, item := range items {
				elemPath := fmt.Sprintf("%s[%d]", join(path, key), i)
				sub, ok := item.(map[string]any)
				if !ok {
					return nil, newParseError(elemPath, fmt.Sprintf("expected object, got %T", item), ErrNotRecord)
				}
				child, err := fromRecord(sub, elemPath)
				if err != nil {
					return nil, err
				}
				n.arrays[name] = append(n.arrays[name], child)
			}
		default:
			s, ok := raw.(string)
			if !ok {
				return nil, newParseError(join(path, key), fmt.Sprintf("attribute must be a string, got %T", raw), nil)
			}
			n.attrs[key] = s
		}
	}
	return n, nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "/" + key
}

// Marshal writes the node as compact JSON with sorted keys.
func Marshal(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(n.Record()); err != nil {
		return nil, fmt.Errorf("tree: marshal: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal parses a JSON payload into a node. Any structural problem is
// reported as a *ParseError at the point of first decode.
func Unmarshal(data []byte) (*Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			return nil, &ParseError{Offset: syn.Offset, Msg: syn.Error(), Err: err}
		}
		return nil, newParseError("", err.Error(), err)
	}
	rec, ok := raw.(map[string]any)
	if !ok {
		return nil, newParseError("", fmt.Sprintf("expected object at root, got %T", raw), ErrNotRecord)
	}
	return FromRecord(rec)
}
