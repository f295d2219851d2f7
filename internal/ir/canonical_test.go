package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalScalars(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"min int64", Int(-9223372036854775808), "-9223372036854775808"},
		{"bool", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"nil", nil, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array", Array{Int(1), String("a"), Null{}}, `[1,"a",null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonicalSortsNestedKeys(t *testing.T) {
	obj := Object{
		"z": Object{"b": Int(1), "a": Int(2)},
		"a": Int(3),
	}

	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(got))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+10000 encodes as a surrogate pair starting 0xD800, which sorts
	// before U+E000 in UTF-16 but after it in UTF-8.
	obj := Object{
		"\uE000":     Int(1),
		"\U00010000": Int(2),
	}

	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(got))
}

func TestMarshalCanonicalStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no html escaping", "<a&b>", `"<a&b>"`},
		{"quote and backslash", `a"b\c`, `"a\"b\\c"`},
		{"control char", "a\nb", `"a\nb"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"escaped backslash before u2028 text", `\u2028`, `"\\u2028"`},
		{"nfc normalisation", "e\u0301", "\"\u00e9\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(String(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestCanonicalizeStructIgnoresFieldOrder(t *testing.T) {
	type ab struct {
		B int    `json:"b"`
		A string `json:"a"`
	}

	got, err := Canonicalize(ab{B: 2, A: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":2}`, string(got))
}

func TestCanonicalizeResult(t *testing.T) {
	r := Result{
		RuleID:  "SKIM1001",
		Kind:    KindFail,
		Level:   LevelWarning,
		Message: NewMessage("line too long"),
		Locations: []Location{{
			PhysicalLocation: &PhysicalLocation{
				ArtifactLocation: &ArtifactLocation{URI: "a.txt"},
				Region:           &Region{StartLine: 3, StartColumn: 1},
			},
		}},
		Properties: PropertyBag{"width": Int(140)},
	}

	got, err := Canonicalize(r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"kind":"fail","level":"warning","locations":[{"physicalLocation":{"artifactLocation":{"uri":"a.txt"},"region":{"startColumn":1,"startLine":3}}}],"message":{"text":"line too long"},"properties":{"width":140},"ruleId":"SKIM1001"}`,
		string(got))
}

func TestCanonicalizeInvocationTimes(t *testing.T) {
	inv := Invocation{
		StartTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC),
	}

	got, err := Canonicalize(inv)
	require.NoError(t, err)
	assert.Equal(t,
		`{"endTimeUtc":"2024-01-02T03:04:06Z","executionSuccessful":false,"exitCode":0,"startTimeUtc":"2024-01-02T03:04:05Z"}`,
		string(got))
}
