package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skim/internal/ir"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func loc(uri string, line, col int, snippet string) ir.Location {
	pl := &ir.PhysicalLocation{ArtifactLocation: &ir.ArtifactLocation{URI: uri}}
	if line > 0 {
		pl.Region = &ir.Region{StartLine: line, StartColumn: col}
		if snippet != "" {
			pl.Region.Snippet = &ir.ArtifactContent{Text: snippet}
		}
	}
	return ir.Location{PhysicalLocation: pl}
}

func fixture() *ir.Report {
	return &ir.Report{
		SchemaVersion: ir.SchemaVersion,
		RunID:         "run-1",
		AutomationID:  "nightly",
		Tool: ir.Tool{
			Name:    ir.ToolName,
			Version: ir.ToolVersion,
			Rules: []ir.ReportingDescriptor{
				{ID: "SKIM1001", Name: "LongLine", DefaultLevel: ir.LevelWarning},
				{ID: "SKIM1003", Name: "TodoMarker", DefaultLevel: ir.LevelNote},
			},
		},
		Invocation: ir.Invocation{
			StartTime:         t0,
			EndTime:           t0.Add(time.Second),
			ExitCode:          1,
			RuntimeConditions: []string{"exceptionInRule", "oneOrMoreErrorsFired"},
		},
		Conditions: ir.ExceptionInRule | ir.OneOrMoreErrorsFired,
		Artifacts: []ir.ArtifactRecord{
			{Location: ir.ArtifactLocation{URI: "file:///src/a.txt"}, Length: 12, Hashes: map[string]string{"sha-256": "abc"}},
		},
		Results: []ir.Result{
			{
				RuleID:    "SKIM1001",
				Level:     ir.LevelError,
				Message:   ir.NewMessage("Line 3 is 130 characters long."),
				Locations: []ir.Location{loc("file:///src/a.txt", 3, 121, "return x")},
			},
			{
				RuleID:    "SKIM1003",
				Level:     ir.LevelWarning,
				Message:   ir.NewMessage("TODO marker."),
				Locations: []ir.Location{loc("file:///src/b.txt", 1, 4, "")},
			},
			{
				RuleID:    "SKIM1004",
				Kind:      ir.KindReview,
				Message:   ir.NewMessage("Tab indentation."),
				Locations: []ir.Location{loc("file:///src/c.txt", 0, 0, "")},
			},
		},
		Notifications: []ir.Notification{
			{
				DescriptorID:     "ERR998.ExceptionInRule",
				AssociatedRuleID: "SKIM1004",
				Level:            ir.LevelError,
				Message:          ir.NewMessage("Rule 'SKIM1004' failed while analyzing 'file:///src/c.txt'."),
				Locations:        []ir.Location{loc("file:///src/c.txt", 0, 0, "")},
				Exception:        &ir.ExceptionData{Kind: "panic", Message: "boom"},
			},
		},
	}
}

func TestTextSink_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Emit(NewTextSink(&buf, false), fixture()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "text_report", buf.Bytes())
}

func TestTextSink_ColorAddsEscapes(t *testing.T) {
	var plain, colored bytes.Buffer
	require.NoError(t, Emit(NewTextSink(&plain, false), fixture()))
	require.NoError(t, Emit(NewTextSink(&colored, true), fixture()))

	assert.NotContains(t, plain.String(), "\x1b[")
	assert.Contains(t, colored.String(), "\x1b[")
}

func TestJSONSink_MinimalDocument(t *testing.T) {
	rep := &ir.Report{
		SchemaVersion: "1",
		RunID:         "r",
		Tool:          ir.Tool{Name: "skim", Version: "0.1.0"},
		Invocation:    ir.Invocation{StartTime: t0, EndTime: t0, ExecutionSuccessful: true},
		Results:       []ir.Result{},
	}

	var buf bytes.Buffer
	require.NoError(t, Emit(NewJSONSink(&buf), rep))

	want := `{"invocation":{"endTimeUtc":"2026-01-02T03:04:05Z","executionSuccessful":true,"exitCode":0,"startTimeUtc":"2026-01-02T03:04:05Z"},` +
		`"results":[],"runGuid":"r","schemaVersion":"1","tool":{"name":"skim","version":"0.1.0"}}` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestJSONSink_DecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Emit(NewJSONSink(&buf), fixture()))

	got, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, fixture(), got)
}

func TestJSONSink_ByteIdentical(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, Emit(NewJSONSink(&a), fixture()))
	require.NoError(t, Emit(NewJSONSink(&b), fixture()))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte(`{"schemaVersion":"1","bogus":true}`)))
	assert.Error(t, err)
}

func TestMemorySink_RestoresConditions(t *testing.T) {
	m := NewMemorySink()
	require.NoError(t, Emit(m, fixture()))

	rep := m.Report()
	assert.Equal(t, fixture(), rep)
	assert.Error(t, m.WriteResults(nil), "writes after Close fail")
}

type failingSink struct {
	*MemorySink
	closed bool
}

func (f *failingSink) WriteResults([]ir.Result) error {
	return errors.New("disk full")
}

func (f *failingSink) Close() error {
	f.closed = true
	return nil
}

func TestEmit_ClosesOnError(t *testing.T) {
	f := &failingSink{MemorySink: NewMemorySink()}
	err := Emit(f, fixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write results: disk full")
	assert.True(t, f.closed)
}

func TestTee_FansOut(t *testing.T) {
	a, b := NewMemorySink(), NewMemorySink()
	require.NoError(t, Emit(Tee(a, b), fixture()))
	assert.Equal(t, a.Report(), b.Report())
	assert.Len(t, b.Report().Results, 3)
}
