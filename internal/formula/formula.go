// Package formula compiles document formulas written in HCL expression
// syntax into live terms.
//
// A term resolves its references each time it is read, so it follows
// edits to the attributes it names. Bare names resolve through the scope's
// Lookup; Parent.NAME resolves through the parent scope and
// items["id"].NAME through the item graph. Evaluation errors yield an
// undefined (nil) value, never an error.
package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/mesh-intelligence/docmodel/pkg/expr"
)

// ErrSyntax is wrapped by Parse when the formula is not a valid
// expression.
var ErrSyntax = errors.New("formula syntax error")

// Resolver resolves bare attribute names.
type Resolver interface {
	Lookup(name string) (any, bool)
}

// ItemResolver resolves items["id"] references.
type ItemResolver interface {
	LookupItem(id string) (Resolver, bool)
}

// ParentResolver resolves Parent references.
type ParentResolver interface {
	ParentScope() (Resolver, bool)
}

// Parser implements expr.Parser on HCL expression syntax.
type Parser struct{}

// NewParser returns a Parser.
func NewParser() *Parser { return &Parser{} }

// Parse compiles formula against scope.
func (p *Parser) Parse(formula string, scope expr.Scope) (expr.Term, error) {
	x, diags := hclsyntax.ParseExpression([]byte(formula), "formula", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrSyntax, diags.Error())
	}
	return &Term{src: Canonical(formula), expr: x, scope: scope}, nil
}

// Canonical returns the formatted form of formula.
func Canonical(formula string) string {
	return strings.TrimSpace(string(hclwrite.Format([]byte(formula))))
}

// Term is a compiled formula bound to a scope.
type Term struct {
	src   string
	expr  hclsyntax.Expression
	scope expr.Scope
}

// String returns the canonical formula.
func (t *Term) String() string { return t.src }

// Value evaluates the formula now. Unresolvable references, type errors
// and unknown results yield nil.
func (t *Term) Value() any {
	v, err := t.Eval()
	if err != nil {
		return nil
	}
	return v
}

// Eval evaluates the formula and reports why it failed.
func (t *Term) Eval() (any, error) {
	ctx := &hcl.EvalContext{Variables: variables(t.expr.Variables(), t.scope)}
	v, diags := t.expr.Value(ctx)
	if diags.HasErrors() {
		return nil, errors.New(diags.Error())
	}
	return FromCty(v), nil
}

// variables builds the evaluation variables for the references in
// traversals.
func variables(traversals []hcl.Traversal, scope expr.Scope) map[string]cty.Value {
	vars := make(map[string]cty.Value)
	items := make(map[string]map[string]cty.Value)
	parent := make(map[string]cty.Value)

	for _, tr := range traversals {
		root := tr.RootName()
		switch root {
		case expr.ItemsToken:
			id, name, ok := itemReference(tr)
			if !ok {
				continue
			}
			ir, ok := scope.(ItemResolver)
			if !ok {
				continue
			}
			r, ok := ir.LookupItem(id)
			if !ok {
				continue
			}
			if _, seen := items[id]; !seen {
				items[id] = make(map[string]cty.Value)
			}
			if v, ok := r.Lookup(name); ok {
				items[id][name] = ToCty(v)
			}
		case expr.ParentToken:
			name, ok := attrAfterRoot(tr)
			if !ok {
				continue
			}
			pr, ok := scope.(ParentResolver)
			if !ok {
				continue
			}
			r, ok := pr.ParentScope()
			if !ok {
				continue
			}
			if v, ok := r.Lookup(name); ok {
				parent[name] = ToCty(v)
			}
		default:
			r, ok := scope.(Resolver)
			if !ok {
				continue
			}
			if v, ok := r.Lookup(root); ok {
				vars[root] = ToCty(v)
			}
		}
	}

	if len(items) > 0 {
		objs := make(map[string]cty.Value, len(items))
		for id, attrs := range items {
			objs[id] = cty.ObjectVal(attrs)
		}
		vars[expr.ItemsToken] = cty.ObjectVal(objs)
	}
	if len(parent) > 0 {
		vars[expr.ParentToken] = cty.ObjectVal(parent)
	}
	return vars
}

// itemReference extracts id and NAME from items["id"].NAME.
func itemReference(tr hcl.Traversal) (id, name string, ok bool) {
	if len(tr) < 3 {
		return "", "", false
	}
	idx, ok := tr[1].(hcl.TraverseIndex)
	if !ok || idx.Key.IsNull() || idx.Key.Type() != cty.String {
		return "", "", false
	}
	attr, ok := tr[2].(hcl.TraverseAttr)
	if !ok {
		return "", "", false
	}
	return idx.Key.AsString(), attr.Name, true
}

// attrAfterRoot extracts NAME from ROOT.NAME.
func attrAfterRoot(tr hcl.Traversal) (string, bool) {
	if len(tr) < 2 {
		return "", false
	}
	attr, ok := tr[1].(hcl.TraverseAttr)
	if !ok {
		return "", false
	}
	return attr.Name, true
}
