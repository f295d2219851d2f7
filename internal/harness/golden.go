package harness

import (
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/skim/internal/ir"
)

// Snapshot is the golden view of a scenario's reference report. It keeps
// what a reader reviews (findings, notifications, conditions) and drops
// what the harness pins anyway (clock, run ID, host).
type Snapshot struct {
	Scenario      string           `json:"scenario"`
	Results       []SnapshotResult `json:"results"`
	Notifications []SnapshotNotice `json:"notifications,omitempty"`
	Conditions    []string         `json:"conditions,omitempty"`
	ExitCode      int              `json:"exitCode"`
}

// SnapshotResult is one result line of a Snapshot.
type SnapshotResult struct {
	Rule    string `json:"rule"`
	Level   string `json:"level"`
	URI     string `json:"uri"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// SnapshotNotice is one notification of a Snapshot.
type SnapshotNotice struct {
	Descriptor string `json:"descriptor"`
	Rule       string `json:"rule,omitempty"`
	URI        string `json:"uri,omitempty"`
	Message    string `json:"message"`
}

// NewSnapshot reduces rep to its golden view.
func NewSnapshot(name string, rep *ir.Report) Snapshot {
	s := Snapshot{
		Scenario:   name,
		Results:    make([]SnapshotResult, 0, len(rep.Results)),
		Conditions: rep.Conditions.Names(),
		ExitCode:   rep.Invocation.ExitCode,
	}
	for _, r := range rep.Results {
		uri, line := resultPlace(r)
		s.Results = append(s.Results, SnapshotResult{
			Rule:    r.RuleID,
			Level:   r.Level.String(),
			URI:     uri,
			Line:    line,
			Message: r.Message.Text,
		})
	}
	for _, n := range rep.Notifications {
		notice := SnapshotNotice{
			Descriptor: n.DescriptorID,
			Rule:       n.AssociatedRuleID,
			Message:    n.Message.Text,
		}
		if len(n.Locations) > 0 {
			notice.URI, _ = locationPlace(n.Locations[0])
		}
		s.Notifications = append(s.Notifications, notice)
	}
	return s
}

// Marshal returns the canonical JSON of the snapshot with a trailing
// newline.
func (s Snapshot) Marshal() ([]byte, error) {
	b, err := ir.Canonicalize(s)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// RunWithGolden executes a scenario and compares its reference report
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The scenario's own pass/fail is returned in the Result; only golden
// mismatches fail the test directly.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, result.Report).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, strings.ReplaceAll(name, " ", "_"), data)
	return nil
}
