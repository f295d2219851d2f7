package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	v, err := ParseValue([]byte(`{"a":[1,true,null,"s"],"b":{}}`))
	require.NoError(t, err)
	assert.Equal(t, Object{
		"a": Array{Int(1), Bool(true), Null{}, String("s")},
		"b": Object{},
	}, v)
}

func TestParseValueRejectsFloats(t *testing.T) {
	for _, in := range []string{`1.5`, `{"a":1e3}`, `[2E-1]`} {
		_, err := ParseValue([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestParseValueRejectsOverflow(t *testing.T) {
	_, err := ParseValue([]byte(`99999999999999999999`))
	assert.ErrorContains(t, err, "int64")
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{"n": 3, "l": []any{"x", int64(4)}}, false)
	require.NoError(t, err)
	assert.Equal(t, Object{"n": Int(3), "l": Array{String("x"), Int(4)}}, v)

	_, err = FromGo(nil, false)
	assert.Error(t, err)

	_, err = FromGo(2.5, true)
	assert.Error(t, err)

	_, err = FromGo(struct{}{}, true)
	assert.Error(t, err)
}

func TestPropertyBagJSONRoundTrip(t *testing.T) {
	type holder struct {
		Properties PropertyBag `json:"properties"`
	}
	in := holder{Properties: PropertyBag{"k": Array{Int(1), Object{"x": Null{}}}}}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"properties":{"k":[1,{"x":null}]}}`, string(data))

	var out holder
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestObjectUnmarshalRejectsNonObject(t *testing.T) {
	var obj Object
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &obj))
}

func TestSortedKeysUsesUTF16(t *testing.T) {
	obj := Object{"b": Null{}, "\uE000": Null{}, "\U00010000": Null{}, "a": Null{}}
	assert.Equal(t, []string{"a", "b", "\U00010000", "\uE000"}, obj.SortedKeys())
}
