package formula

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/zclconf/go-cty/cty"

	"github.com/mesh-intelligence/docmodel/pkg/expr"
)

// ToCty converts a document value to a cty value. Expression values are
// read through their constraint; nil becomes a dynamic null.
func ToCty(v any) cty.Value {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case cty.Value:
		return x
	case expr.Reader:
		return ToCty(x.Value())
	case bool:
		return cty.BoolVal(x)
	case string:
		return cty.StringVal(x)
	case float64:
		return cty.NumberFloatVal(x)
	case int:
		return cty.NumberIntVal(int64(x))
	case int64:
		return cty.NumberIntVal(x)
	case map[string]any:
		if len(x) == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, len(x))
		for k, el := range x {
			attrs[k] = ToCty(el)
		}
		return cty.ObjectVal(attrs)
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, len(x))
		for i, el := range x {
			elems[i] = ToCty(el)
		}
		return cty.TupleVal(elems)
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return cty.NumberFloatVal(f)
	}
	return cty.StringVal(fmt.Sprint(v))
}

// FromCty converts a cty value back to a document value. Null and unknown
// values yield nil.
func FromCty(v cty.Value) any {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	t := v.Type()
	switch {
	case t == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f
	case t == cty.String:
		return v.AsString()
	case t == cty.Bool:
		return v.True()
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, el := it.Element()
			out[k.AsString()] = FromCty(el)
		}
		return out
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, el := it.Element()
			out = append(out, FromCty(el))
		}
		return out
	}
	return nil
}

// MapScope is a flat name→value scope, used where no document graph
// exists.
type MapScope map[string]any

// ScopeKey identifies the map itself. A compiled term holds its scope, so
// a live key is never shared by two maps; edits to the same map are read
// live and need no recompile.
func (s MapScope) ScopeKey() expr.ScopeKey {
	return expr.ScopeKey{Node: fmt.Sprintf("map:%p", s)}
}

func (s MapScope) Lookup(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

// Eval compiles formula and evaluates it against vars.
func Eval(formula string, vars map[string]any) (any, error) {
	term, err := NewParser().Parse(formula, MapScope(vars))
	if err != nil {
		return nil, err
	}
	return term.(*Term).Eval()
}
