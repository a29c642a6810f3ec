// Package registry assembles the process factory from the fixed
// registries of the core packages.
package registry

import (
	"github.com/mesh-intelligence/docmodel/pkg/attr"
	"github.com/mesh-intelligence/docmodel/pkg/constraint"
	"github.com/mesh-intelligence/docmodel/pkg/expr"
	"github.com/mesh-intelligence/docmodel/pkg/factory"
)

// LayoutSettings is the name of the layout settings registry. The core
// registers no layout types; callers that own layout register into the
// custom registry.
const LayoutSettings = "layout"

// Default returns a factory whose lookup order is the custom registry,
// then attributes, expressions, constraints and layout settings.
func Default() *factory.Factory {
	return factory.New(
		attr.Registry(),
		expr.Registry(),
		constraint.Registry(),
		factory.NewFixed(LayoutSettings, nil),
	)
}
