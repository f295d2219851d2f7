package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/skim/internal/ir"
)

// JSONSink writes the report as one canonical JSON document on Close.
// Two runs that produce equal reports produce identical bytes.
type JSONSink struct {
	w   io.Writer
	mem MemorySink
}

// NewJSONSink returns a sink writing to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w}
}

// Initialize implements Sink.
func (j *JSONSink) Initialize(runID, automationID string) error {
	return j.mem.Initialize(runID, automationID)
}

// WriteTool implements Sink.
func (j *JSONSink) WriteTool(tool ir.Tool) error {
	return j.mem.WriteTool(tool)
}

// WriteInvocation implements Sink.
func (j *JSONSink) WriteInvocation(inv ir.Invocation) error {
	return j.mem.WriteInvocation(inv)
}

// WriteArtifacts implements Sink.
func (j *JSONSink) WriteArtifacts(a []ir.ArtifactRecord) error {
	return j.mem.WriteArtifacts(a)
}

// WriteResults implements Sink.
func (j *JSONSink) WriteResults(r []ir.Result) error {
	return j.mem.WriteResults(r)
}

// WriteNotifications implements Sink.
func (j *JSONSink) WriteNotifications(n []ir.Notification) error {
	return j.mem.WriteNotifications(n)
}

// Close marshals and writes the document. A second Close is a no-op.
func (j *JSONSink) Close() error {
	if j.mem.closed {
		return nil
	}
	j.mem.closed = true
	data, err := Marshal(j.mem.Report())
	if err != nil {
		return err
	}
	if _, err := j.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Marshal encodes a report as canonical JSON.
func Marshal(rep *ir.Report) ([]byte, error) {
	data, err := ir.Canonicalize(rep)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// Decode reads a JSON report, restoring Conditions from the invocation.
func Decode(r io.Reader) (*ir.Report, error) {
	var rep ir.Report
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	conds, err := ir.ParseRuntimeConditions(rep.Invocation.RuntimeConditions)
	if err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	rep.Conditions = conds
	if rep.Results == nil {
		rep.Results = []ir.Result{}
	}
	return &rep, nil
}
