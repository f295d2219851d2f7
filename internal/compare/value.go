package compare

import (
	"github.com/roach88/skim/internal/ir"
)

// Rank of each property value variant. A nil Value means "absent".
const (
	rankAbsent = iota
	rankNull
	rankBool
	rankInt
	rankString
	rankArray
	rankObject
)

func valueRank(v ir.Value) int {
	switch v.(type) {
	case nil:
		return rankAbsent
	case ir.Null:
		return rankNull
	case ir.Bool:
		return rankBool
	case ir.Int:
		return rankInt
	case ir.String:
		return rankString
	case ir.Array:
		return rankArray
	case ir.Object:
		return rankObject
	}
	panic("compare: unknown ir.Value variant")
}

// IRValue is a total order over property values:
// absent < null < bool < int < string < array < object.
// Arrays compare as slices, objects as maps.
func IRValue(a, b ir.Value) int {
	ra, rb := valueRank(a), valueRank(b)
	if ra != rb {
		return Ordered(ra, rb)
	}
	switch av := a.(type) {
	case ir.Bool:
		return Bool(bool(av), bool(b.(ir.Bool)))
	case ir.Int:
		return Ordered(av, b.(ir.Int))
	case ir.String:
		return String(string(av), string(b.(ir.String)))
	case ir.Array:
		return Slice(IRValue)([]ir.Value(av), []ir.Value(b.(ir.Array)))
	case ir.Object:
		return Properties(av, b.(ir.Object))
	}
	return 0
}

// Properties compares property bags as maps of IRValue.
func Properties(a, b ir.PropertyBag) int {
	return Map[string](IRValue)(map[string]ir.Value(a), map[string]ir.Value(b))
}
