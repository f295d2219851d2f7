package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/skim/internal/ir"
)

func TestIRValueVariantOrder(t *testing.T) {
	ordered := []ir.Value{
		nil,
		ir.Null{},
		ir.Bool(false),
		ir.Bool(true),
		ir.Int(-5),
		ir.Int(7),
		ir.String(""),
		ir.String("a"),
		ir.Array{},
		ir.Array{ir.Int(1)},
		ir.Object{},
		ir.Object{"a": ir.Null{}},
	}
	for i := range ordered {
		for j := range ordered {
			got := sign(IRValue(ordered[i], ordered[j]))
			want := sign(i - j)
			assert.Equal(t, want, got, "IRValue(%#v, %#v)", ordered[i], ordered[j])
		}
	}
}

func TestIRValueNested(t *testing.T) {
	a := ir.Object{"k": ir.Array{ir.Int(1), ir.Object{"x": ir.String("a")}}}
	b := ir.Object{"k": ir.Array{ir.Int(1), ir.Object{"x": ir.String("b")}}}
	assert.Equal(t, -1, sign(IRValue(a, b)))
	assert.Equal(t, 0, IRValue(a, ir.Object{"k": ir.Array{ir.Int(1), ir.Object{"x": ir.String("a")}}}))
}

func TestPropertiesAbsentBeforeEmpty(t *testing.T) {
	assert.Equal(t, -1, sign(Properties(nil, ir.PropertyBag{})))
	assert.Equal(t, 0, Properties(nil, nil))
}
