package rules

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skim/internal/artifact"
	"github.com/roach88/skim/internal/engine"
	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/testutil"
)

// analyze runs rules over in-memory files with every level kept.
func analyze(t *testing.T, files map[string]string, opts engine.Options, rules ...engine.Rule) *ir.Report {
	t.Helper()
	mem := artifact.NewMemory()
	for name, content := range files {
		mem.Add("mem:///"+name, []byte(content))
	}
	if opts.FailureLevels == nil {
		opts = engine.DefaultOptions()
		opts.FailureLevels = ir.AllLevels()
	}
	e := engine.New(mem, rules, opts,
		engine.WithClock(testutil.NewDeterministicClock(testutil.Epoch, time.Second)),
		engine.WithRunIDGenerator(testutil.NewFixedRunID("rules-test")),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	rep, err := e.Run(context.Background())
	require.NoError(t, err)
	return rep
}

type finding struct {
	Rule string
	URI  string
	Line int
	Col  int
}

func findings(rep *ir.Report) []finding {
	var out []finding
	for _, r := range rep.Results {
		f := finding{Rule: r.RuleID}
		if len(r.Locations) > 0 && r.Locations[0].PhysicalLocation != nil {
			pl := r.Locations[0].PhysicalLocation
			f.URI = pl.ArtifactLocation.URI
			f.Line = pl.Region.StartLine
			f.Col = pl.Region.StartColumn
		}
		out = append(out, f)
	}
	return out
}

func TestBuiltin_OrderedAndUnique(t *testing.T) {
	seen := map[string]bool{}
	prev := ""
	for _, r := range Builtin() {
		id := r.Descriptor().ID
		assert.False(t, seen[id], "duplicate rule %s", id)
		assert.Greater(t, id, prev)
		seen[id] = true
		prev = id
	}
	assert.Len(t, seen, 5)
}

func TestLongLine(t *testing.T) {
	files := map[string]string{
		"a.txt": "short\n" + strings.Repeat("x", 121) + "\n" + strings.Repeat("y", 120) + "\n",
	}
	rep := analyze(t, files, engine.Options{}, LongLine())
	assert.Equal(t, []finding{{LongLineID, "mem:///a.txt", 2, 121}}, findings(rep))
	assert.Equal(t, ir.LevelWarning, rep.Results[0].Level)
	assert.Equal(t, ir.Int(121), rep.Results[0].Properties["length"])
}

func TestLongLine_PolicyAndRunes(t *testing.T) {
	opts := engine.DefaultOptions()
	opts.Policy = ir.PropertyBag{"SKIM1001.maxLineLength": ir.Int(4)}
	files := map[string]string{
		// Four runes, more than four bytes.
		"u.txt": "éééé\nabcde\n",
	}
	rep := analyze(t, files, opts, LongLine())
	assert.Equal(t, []finding{{LongLineID, "mem:///u.txt", 2, 5}}, findings(rep))
}

func TestTrailingWhitespace(t *testing.T) {
	files := map[string]string{
		"a.txt": "clean\nspaces  \ntab\t\r\n   \n",
	}
	rep := analyze(t, files, engine.Options{}, TrailingWhitespace())
	assert.Equal(t, []finding{
		{TrailingWhitespaceID, "mem:///a.txt", 2, 7},
		{TrailingWhitespaceID, "mem:///a.txt", 3, 4},
		{TrailingWhitespaceID, "mem:///a.txt", 4, 1},
	}, findings(rep))
}

func TestTaskMarker(t *testing.T) {
	files := map[string]string{
		"a.txt": "// TODO: one\nplain\nx FIXME then TODO\n",
	}
	rep := analyze(t, files, engine.Options{}, TaskMarker())
	// Canonical order sorts by message text before location.
	require.Equal(t, []finding{
		{TaskMarkerID, "mem:///a.txt", 3, 3},
		{TaskMarkerID, "mem:///a.txt", 1, 4},
	}, findings(rep))
	assert.Equal(t, ir.String("FIXME"), rep.Results[0].Properties["marker"])
}

func TestTaskMarker_PolicyMarkers(t *testing.T) {
	opts := engine.DefaultOptions()
	opts.FailureLevels = ir.AllLevels()
	opts.Policy = ir.PropertyBag{"SKIM1003.markers": ir.Array{ir.String("HACK")}}
	files := map[string]string{"a.txt": "TODO\nHACK\n"}

	rep := analyze(t, files, opts, TaskMarker())
	assert.Equal(t, []finding{{TaskMarkerID, "mem:///a.txt", 2, 1}}, findings(rep))
}

func TestMixedIndentation(t *testing.T) {
	files := map[string]string{
		"a.go": "\tok\n    ok\n\t  mixed\n  \tmixed\nx \t y\n",
	}
	rep := analyze(t, files, engine.Options{}, MixedIndentation())
	assert.Equal(t, []finding{
		{MixedIndentationID, "mem:///a.go", 3, 1},
		{MixedIndentationID, "mem:///a.go", 4, 1},
	}, findings(rep))
}

func TestFinalNewline(t *testing.T) {
	files := map[string]string{
		"done.txt":  "a\nb\n",
		"empty.txt": "",
		"open.txt":  "a\nbc",
	}
	rep := analyze(t, files, engine.Options{}, FinalNewline())
	assert.Equal(t, []finding{{FinalNewlineID, "mem:///open.txt", 2, 3}}, findings(rep))
}

func TestBinaryArtifactsAreIncompatible(t *testing.T) {
	png := string([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d})
	files := map[string]string{
		"img.png":  png,
		"note.txt": "TODO\n",
	}

	opts := engine.DefaultOptions()
	opts.FailureLevels = ir.AllLevels()
	opts.IncompatibleRules = ir.IncompatibleDisable
	rep := analyze(t, files, opts, TaskMarker())

	require.Len(t, rep.Notifications, 1)
	n := rep.Notifications[0]
	assert.Equal(t, engine.NotifyIncompatibleRule, n.DescriptorID)
	assert.Equal(t, TaskMarkerID, n.AssociatedRuleID)
	assert.Empty(t, rep.Results, "rule is disabled from the incompatible artifact onward")
}

func TestBuiltin_Deterministic(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 20; i++ {
		files[strings.Repeat("f", i%3+1)+string(rune('a'+i))+".txt"] =
			"TODO x \n\t  y\n" + strings.Repeat("z", 130+i)
	}
	var first []finding
	for _, threads := range []int{1, 4, 8} {
		opts := engine.DefaultOptions()
		opts.FailureLevels = ir.AllLevels()
		opts.Threads = threads
		got := findings(analyze(t, files, opts, Builtin()...))
		if first == nil {
			first = got
			require.Len(t, first, 20*5)
			continue
		}
		assert.Equal(t, first, got, "threads=%d", threads)
	}
}
