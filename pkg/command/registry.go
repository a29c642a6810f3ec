package command

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-viper/mapstructure/v2"

	"github.com/mesh-intelligence/docmodel/pkg/attr"
	"github.com/mesh-intelligence/docmodel/pkg/expr"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
	"github.com/mesh-intelligence/docmodel/pkg/tree"
)

// Decoder rebuilds a command from its wire object. It reports false when
// the object cannot be turned into a command against ctx.
type Decoder func(data map[string]any, ctx Context) (Command, bool)

// Registry maps command type names to decoders.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// DefaultRegistry returns a registry with every built-in command.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeCompound, r.decodeCompound)
	r.Register(TypeSetAttributeAtPath, decodeSetAttributeAtPath)
	r.Register(TypeAddAttribute, decodeAddAttribute)
	r.Register(TypeRemoveAttribute, decodeRemoveAttribute)
	r.Register(TypeSetTemplate, decodeSetTemplate)
	r.Register(TypeSetSelection, decodeSetSelection)
	return r
}

// Register adds or replaces the decoder for typeName.
func (r *Registry) Register(typeName string, d Decoder) bool {
	if typeName == "" || d == nil {
		return false
	}
	r.decoders[typeName] = d
	return true
}

// Has reports whether typeName has a decoder.
func (r *Registry) Has(typeName string) bool {
	_, ok := r.decoders[typeName]
	return ok
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.decoders))
	for n := range r.decoders {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Decode rebuilds the command described by data. Unknown types and
// unresolvable targets yield false.
func (r *Registry) Decode(data map[string]any, ctx Context) (Command, bool) {
	name, _ := data[KeyType].(string)
	d, ok := r.decoders[name]
	if !ok {
		ctx.logger().Debug("unknown command type", slog.String("type", name))
		return nil, false
	}
	cmd, ok := d(data, ctx)
	if !ok {
		ctx.logger().Debug("command not decoded", slog.String("type", name))
		return nil, false
	}
	return cmd, true
}

// decodeWire decodes a wire object into a tagged struct.
func decodeWire(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

// encodeExpr returns the record form of an embedded expression.
func encodeExpr(r expr.Reader) map[string]any {
	if r == nil {
		return nil
	}
	return expr.Encode(r).Record()
}

// decodeExpr rebuilds an embedded expression record. A nil record yields a
// nil expression.
func decodeExpr(rec map[string]any, f *factory.Factory) (expr.Mutable, error) {
	if rec == nil {
		return nil, nil
	}
	n, err := tree.FromRecord(rec)
	if err != nil {
		return nil, err
	}
	return expr.Decode(n, f)
}

func encodeAttr(r attr.Reader) map[string]any {
	if r == nil {
		return nil
	}
	return attr.Save(r).Record()
}

func decodeAttr(rec map[string]any, f *factory.Factory) (*attr.Attribute, error) {
	if rec == nil {
		return nil, nil
	}
	n, err := tree.FromRecord(rec)
	if err != nil {
		return nil, err
	}
	return attr.Load(n, f)
}

// resolveTarget finds the item named by id and logs a miss.
func resolveTarget(ctx Context, typeName, id string) (Item, bool) {
	item, ok := ctx.findItem(id)
	if !ok {
		ctx.logger().Debug("command target not found",
			slog.String("type", typeName),
			slog.String("item", id))
		return nil, false
	}
	return item, true
}

func decodeFailed(ctx Context, typeName string, err error) (Command, bool) {
	ctx.logger().Warn("command decode failed",
		slog.String("type", typeName),
		slog.String("error", fmt.Sprint(err)))
	return nil, false
}
