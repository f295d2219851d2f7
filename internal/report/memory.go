package report

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/skim/internal/ir"
)

// MemorySink assembles the sections it receives back into an ir.Report.
type MemorySink struct {
	rep    ir.Report
	closed bool
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

var errClosed = errors.New("sink is closed")

// Initialize implements Sink.
func (m *MemorySink) Initialize(runID, automationID string) error {
	if m.closed {
		return errClosed
	}
	m.rep = ir.Report{
		SchemaVersion: ir.SchemaVersion,
		RunID:         runID,
		AutomationID:  automationID,
		Results:       []ir.Result{},
	}
	return nil
}

// WriteTool implements Sink.
func (m *MemorySink) WriteTool(tool ir.Tool) error {
	if m.closed {
		return errClosed
	}
	tool.Rules = slices.Clone(tool.Rules)
	m.rep.Tool = tool
	return nil
}

// WriteInvocation implements Sink. It also restores Report.Conditions
// from the invocation's condition names.
func (m *MemorySink) WriteInvocation(inv ir.Invocation) error {
	if m.closed {
		return errClosed
	}
	conds, err := ir.ParseRuntimeConditions(inv.RuntimeConditions)
	if err != nil {
		return fmt.Errorf("invocation: %w", err)
	}
	inv.RuntimeConditions = slices.Clone(inv.RuntimeConditions)
	m.rep.Invocation = inv
	m.rep.Conditions = conds
	return nil
}

// WriteArtifacts implements Sink.
func (m *MemorySink) WriteArtifacts(a []ir.ArtifactRecord) error {
	if m.closed {
		return errClosed
	}
	m.rep.Artifacts = append(m.rep.Artifacts, a...)
	return nil
}

// WriteResults implements Sink.
func (m *MemorySink) WriteResults(r []ir.Result) error {
	if m.closed {
		return errClosed
	}
	m.rep.Results = append(m.rep.Results, r...)
	return nil
}

// WriteNotifications implements Sink.
func (m *MemorySink) WriteNotifications(n []ir.Notification) error {
	if m.closed {
		return errClosed
	}
	m.rep.Notifications = append(m.rep.Notifications, n...)
	return nil
}

// Close implements Sink.
func (m *MemorySink) Close() error {
	m.closed = true
	return nil
}

// Report returns the assembled report.
func (m *MemorySink) Report() *ir.Report {
	rep := m.rep
	return &rep
}
