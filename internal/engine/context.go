package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/sched"
)

// AnalysisContext is the per-artifact state handed to every rule.
//
// Thread-safety model: exactly one AnalysisContext exists per in-flight
// artifact and only its worker goroutine touches it. Rules must not retain
// it after Analyze returns.
type AnalysisContext struct {
	ctx      context.Context
	artifact Artifact
	opts     *Options
	policy   *policyState
	worker   sched.Worker
	logger   *slog.Logger

	rule    ir.ReportingDescriptor
	pending []ir.Result

	content  []byte
	observed bool
	closed   bool
}

func newAnalysisContext(ctx context.Context, a Artifact, opts *Options, policy *policyState, w sched.Worker, logger *slog.Logger) *AnalysisContext {
	return &AnalysisContext{
		ctx:      ctx,
		artifact: a,
		opts:     opts,
		policy:   policy,
		worker:   w,
		logger:   logger.With("artifact", a.URI),
	}
}

// Context returns the run's cancellation context.
func (c *AnalysisContext) Context() context.Context {
	return c.ctx
}

// Artifact returns the artifact under analysis.
func (c *AnalysisContext) Artifact() Artifact {
	return c.artifact
}

// Rule returns the descriptor of the rule currently running.
func (c *AnalysisContext) Rule() ir.ReportingDescriptor {
	return c.rule
}

// Logger returns a logger tagged with the artifact and current rule.
func (c *AnalysisContext) Logger() *slog.Logger {
	if c.rule.ID != "" {
		return c.logger.With("rule", c.rule.ID)
	}
	return c.logger
}

// Content returns the artifact bytes. The engine reads them once before
// any rule runs; the slice must not be modified.
func (c *AnalysisContext) Content() []byte {
	return c.content
}

// Reader returns a fresh reader over the content.
func (c *AnalysisContext) Reader() io.Reader {
	return bytes.NewReader(c.content)
}

// Policy returns the rule-specific setting "<current rule ID>.<name>", or
// nil when unset.
func (c *AnalysisContext) Policy(name string) ir.Value {
	return c.opts.Policy[c.rule.ID+"."+name]
}

// PolicyInt returns an integer policy setting or def.
func (c *AnalysisContext) PolicyInt(name string, def int64) int64 {
	if v, ok := c.Policy(name).(ir.Int); ok {
		return int64(v)
	}
	return def
}

// Tracing reports whether the named diagnostic trace is enabled.
func (c *AnalysisContext) Tracing(name string) bool {
	return slices.Contains(c.opts.Traces, name)
}

// Checkpoint is a cooperative cancellation and scheduling point. Rules
// doing long work call it periodically and return its error unchanged.
// Once it has returned an error, nothing this artifact produced is kept.
func (c *AnalysisContext) Checkpoint() error {
	c.worker.Yield()
	if err := c.ctx.Err(); err != nil {
		c.observed = true
		return fmt.Errorf("checkpoint: %w", err)
	}
	if c.policy.beyondHalt(c.artifact.Index) {
		c.observed = true
		return errAbandoned
	}
	return nil
}

// Report records a finding for the current rule. An empty rule ID is
// filled from the rule descriptor, as is the level of a fail result
// reported at level none.
func (c *AnalysisContext) Report(r ir.Result) {
	if c.closed {
		panic("engine: Report after AnalysisContext closed")
	}
	if r.RuleID == "" {
		r.RuleID = c.rule.ID
	}
	if r.Kind == ir.KindFail && r.Level == ir.LevelNone {
		r.Level = c.rule.DefaultLevel
	}
	c.pending = append(c.pending, r)
}

// Location returns a location in the current artifact.
func (c *AnalysisContext) Location(region ir.Region) ir.Location {
	return ir.Location{
		PhysicalLocation: &ir.PhysicalLocation{
			ArtifactLocation: &ir.ArtifactLocation{URI: c.artifact.URI},
			Region:           &region,
		},
	}
}

func (c *AnalysisContext) beginRule(d ir.ReportingDescriptor) {
	c.rule = d
	c.pending = nil
}

// takePending returns and clears the current rule's buffered results.
func (c *AnalysisContext) takePending() []ir.Result {
	p := c.pending
	c.pending = nil
	return p
}

// Close releases the cached content. Safe to call twice.
func (c *AnalysisContext) Close() {
	c.closed = true
	c.content = nil
	c.pending = nil
}
