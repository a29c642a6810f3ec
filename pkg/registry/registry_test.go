package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/docmodel/pkg/attr"
	"github.com/mesh-intelligence/docmodel/pkg/constraint"
	"github.com/mesh-intelligence/docmodel/pkg/expr"
)

func TestDefault(t *testing.T) {
	f := Default()

	tests := []struct {
		name string
		want any
	}{
		{attr.TypeNumber, &attr.Attribute{}},
		{attr.TypeList, &attr.List{}},
		{expr.TypeNumber, &expr.Expression{}},
		{"docmodel.expr.MapExpression", &expr.Map{}},
		{constraint.TypeNumberRange, &constraint.NumberRange{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, f.Has(tt.name))
			assert.IsType(t, tt.want, f.Create(tt.name))
		})
	}
	assert.Nil(t, f.Create("Bar"))

	var names []string
	for _, r := range f.Registries() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"custom", "attributes", "expressions", "constraints", LayoutSettings}, names)
}

func TestDefault_CustomFirst(t *testing.T) {
	f := Default()
	assert.True(t, f.Register(expr.TypeNumber, func() any { return "override" }))
	assert.Equal(t, "override", f.Create(expr.TypeNumber))
}
