package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/sched"
)

type countingWorker struct{ yields int }

func (w *countingWorker) Yield() { w.yields++ }

func newTestContext(ctx context.Context, opts *Options, p *policyState, w sched.Worker) *AnalysisContext {
	actx := newAnalysisContext(ctx, Artifact{URI: "mem:///a", Index: 2}, opts, p, w, discardLogger())
	actx.beginRule(ir.ReportingDescriptor{ID: "R1", DefaultLevel: ir.LevelWarning})
	return actx
}

func TestAnalysisContext_PolicyLookup(t *testing.T) {
	opts := DefaultOptions()
	opts.Policy = ir.PropertyBag{
		"R1.limit": ir.Int(80),
		"R1.name":  ir.String("x"),
		"R2.limit": ir.Int(10),
	}
	opts.Traces = []string{"timing"}
	actx := newTestContext(context.Background(), &opts, newPolicyState(ir.IncompatibleIgnore, nil), &countingWorker{})

	assert.Equal(t, int64(80), actx.PolicyInt("limit", 1))
	assert.Equal(t, int64(1), actx.PolicyInt("name", 1), "wrong type falls back")
	assert.Equal(t, int64(5), actx.PolicyInt("missing", 5))
	assert.Equal(t, ir.String("x"), actx.Policy("name"))
	assert.True(t, actx.Tracing("timing"))
	assert.False(t, actx.Tracing("memory"))
}

func TestAnalysisContext_Checkpoint(t *testing.T) {
	opts := DefaultOptions()
	w := &countingWorker{}
	p := newPolicyState(ir.IncompatibleExit, nil)
	ctx, cancel := context.WithCancel(context.Background())

	actx := newTestContext(ctx, &opts, p, w)
	require.NoError(t, actx.Checkpoint())
	assert.Equal(t, 1, w.yields)
	assert.False(t, actx.observed)

	cancel()
	err := actx.Checkpoint()
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, actx.observed)
}

func TestAnalysisContext_CheckpointAfterHalt(t *testing.T) {
	opts := DefaultOptions()
	p := newPolicyState(ir.IncompatibleExit, nil)
	p.recordHalt(1)

	actx := newTestContext(context.Background(), &opts, p, &countingWorker{})
	assert.True(t, errors.Is(actx.Checkpoint(), errAbandoned))
}

func TestAnalysisContext_Report(t *testing.T) {
	opts := DefaultOptions()
	actx := newTestContext(context.Background(), &opts, newPolicyState(ir.IncompatibleIgnore, nil), &countingWorker{})

	actx.Report(ir.Result{})
	actx.Report(ir.Result{RuleID: "R1/sub", Level: ir.LevelError})
	actx.Report(ir.Result{Kind: ir.KindPass})

	got := actx.takePending()
	require.Len(t, got, 3)
	assert.Equal(t, "R1", got[0].RuleID)
	assert.Equal(t, ir.LevelWarning, got[0].Level)
	assert.Equal(t, "R1/sub", got[1].RuleID)
	assert.Equal(t, ir.LevelError, got[1].Level)
	assert.Equal(t, ir.LevelNone, got[2].Level)
	assert.Empty(t, actx.takePending())

	loc := actx.Location(ir.Region{StartLine: 3})
	assert.Equal(t, "mem:///a", loc.PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 3, loc.PhysicalLocation.Region.StartLine)

	actx.Close()
	assert.Panics(t, func() { actx.Report(ir.Result{}) })
}
