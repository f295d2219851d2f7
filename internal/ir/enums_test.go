package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelText(t *testing.T) {
	for _, l := range AllLevels() {
		b, err := l.MarshalText()
		require.NoError(t, err)
		var back Level
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, l, back)
	}

	l, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, LevelWarning, l)

	_, err = ParseLevel("fatal")
	assert.Error(t, err)

	_, err = Level(9).MarshalText()
	assert.Error(t, err)
}

func TestLevelOrder(t *testing.T) {
	assert.Less(t, LevelNone, LevelNote)
	assert.Less(t, LevelNote, LevelWarning)
	assert.Less(t, LevelWarning, LevelError)
}

func TestResultKindJSON(t *testing.T) {
	data, err := json.Marshal([]ResultKind{KindFail, KindNotApplicable})
	require.NoError(t, err)
	assert.Equal(t, `["fail","notApplicable"]`, string(data))

	var kinds []ResultKind
	require.NoError(t, json.Unmarshal([]byte(`["pass","review"]`), &kinds))
	assert.Equal(t, []ResultKind{KindPass, KindReview}, kinds)
}

func TestParseOptionallyEmittedData(t *testing.T) {
	d, err := ParseOptionallyEmittedData("hashes", " TextFiles ", "")
	require.NoError(t, err)
	assert.True(t, d.Has(InsertHashes))
	assert.True(t, d.Has(InsertTextFiles))
	assert.False(t, d.Has(InsertRegionSnippets))
	assert.Equal(t, []string{"hashes", "textFiles"}, d.Names())

	_, err = ParseOptionallyEmittedData("everything")
	assert.Error(t, err)
}

func TestParseIncompatibleRuleHandling(t *testing.T) {
	tests := []struct {
		in   string
		want IncompatibleRuleHandling
	}{
		{"", IncompatibleIgnore},
		{"ignore", IncompatibleIgnore},
		{"disable", IncompatibleDisable},
		{"disable-and-continue", IncompatibleDisable},
		{"DisableAndContinueAnalysis", IncompatibleDisable},
		{"exit", IncompatibleExit},
		{"ExitAnalysis", IncompatibleExit},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIncompatibleRuleHandling(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseIncompatibleRuleHandling("panic")
	assert.Error(t, err)
}
