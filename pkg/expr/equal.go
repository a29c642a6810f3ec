package expr

import (
	"math"
	"reflect"

	"github.com/mesh-intelligence/docmodel/pkg/constraint"
)

// ValuesEqual compares two values. Numbers compare within accuracy, maps
// compare element-wise, Reader elements compare through Equal.
func ValuesEqual(a, b any, accuracy float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ra, ok := a.(Reader); ok {
		rb, ok := b.(Reader)
		return ok && Equal(ra, rb, accuracy)
	}
	if isNumeric(a) && isNumeric(b) {
		fa, _ := constraint.ToNumber(a)
		fb, _ := constraint.ToNumber(b)
		return math.Abs(fa-fb) <= accuracy
	}
	if ma, ok := a.(map[string]any); ok {
		mb, ok := b.(map[string]any)
		if !ok || len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, ok := mb[k]
			if !ok || !ValuesEqual(va, vb, accuracy) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
