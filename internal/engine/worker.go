package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/sched"
	"github.com/roach88/skim/internal/telemetry"
)

// outcome is everything one artifact contributes. A worker builds it
// privately and commits it to the Aggregator in one step, or drops it.
type outcome struct {
	index         int
	results       []taggedResult
	notifications []taggedNotification
	artifact      *taggedArtifact

	// dirty marks an outcome that must not be cached.
	dirty bool
}

func (o *outcome) addResults(ruleID string, rs []ir.Result) {
	for _, r := range rs {
		o.results = append(o.results, taggedResult{tag: tag{Index: o.index, RuleID: ruleID}, Result: r})
	}
}

func (o *outcome) addNotification(t tag, n ir.Notification) {
	t.Index = o.index
	o.notifications = append(o.notifications, taggedNotification{tag: t, Notification: n})
	o.dirty = true
}

// run holds the immutable inputs and the shared state of one Run call.
type run struct {
	id        string
	opts      *Options
	artifacts []Artifact
	rules     []Rule
	descs     []ir.ReportingDescriptor
	ruleSet   string
	policy    *policyState
	agg       *Aggregator
	cache     OutcomeCache
	logger    *slog.Logger

	canceled atomic.Bool
}

// process analyzes artifact i. It never returns an error: every failure
// becomes part of the outcome.
func (r *run) process(ctx context.Context, w sched.Worker, i int) error {
	a := r.artifacts[i]
	if r.policy.beyondHalt(i) {
		return nil
	}
	if ctx.Err() != nil {
		r.canceled.Store(true)
		return nil
	}

	ctx, span := telemetry.StartArtifact(ctx, a.URI, i)
	defer span.End()
	start := time.Now()

	actx := newAnalysisContext(ctx, a, r.opts, r.policy, w, r.logger)
	defer actx.Close()

	out, clean := r.analyze(ctx, actx, w, i)

	w.Yield()
	status := r.commit(ctx, actx, out)
	if status == "committed" && clean && r.cache != nil && actx.content != nil {
		r.store(a, actx, out)
	}
	telemetry.RecordArtifact(ctx, span, time.Since(start), len(out.results), status)
	return nil
}

// analyze loads the artifact and runs every active rule over it.
func (r *run) analyze(ctx context.Context, actx *AnalysisContext, w sched.Worker, i int) (*outcome, bool) {
	a := actx.artifact
	out := &outcome{index: i}

	content, err := load(a)
	if err != nil {
		r.logger.Warn("artifact load failed", "artifact", a.URI, "error", err)
		out.addNotification(tag{Conditions: ir.ExceptionLoadingTarget}, loadFailureNotification(a, err))
		return out, false
	}
	actx.content = content

	var sha string
	if r.cache != nil || r.opts.DataToInsert.Has(ir.InsertHashes) {
		sum := sha256.Sum256(content)
		sha = hex.EncodeToString(sum[:])
	}

	if r.cache != nil {
		co, ok, err := r.cache.Get(cacheKey(r.ruleSet, a.URI, sha))
		switch {
		case err != nil:
			r.logger.Warn("cache lookup failed", "artifact", a.URI, "error", err)
		case ok:
			r.logger.Debug("cache hit", "artifact", a.URI)
			return outcomeFromCache(i, co), false
		}
	}

rules:
	for k, rule := range r.rules {
		d := r.descs[k]
		w.Yield()
		if ctx.Err() != nil || r.policy.beyondHalt(i) {
			actx.observed = true
			break
		}
		if r.policy.ruleDisabled(d.ID, i) {
			// The outcome now depends on another artifact's failure.
			out.dirty = true
			continue
		}

		actx.beginRule(d)
		err := invoke(rule, actx)
		pending := actx.takePending()
		if actx.observed {
			break
		}

		var inc *IncompatibleError
		switch {
		case err == nil:
			out.addResults(d.ID, pending)

		case errors.Is(err, ErrIncompatible):
			reason := err.Error()
			if errors.As(err, &inc) {
				inc.RuleID = d.ID
				reason = inc.Reason
			}
			if r.incompatible(out, a, d.ID, reason) {
				break rules
			}

		case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
			actx.observed = true
			break rules

		default:
			actx.Logger().Warn("rule failed", "error", err)
			out.addResults(d.ID, pending)
			out.addNotification(tag{RuleID: d.ID, Conditions: ir.ExceptionInRule}, ruleExceptionNotification(a, d.ID, err))
		}
	}

	if !actx.observed {
		enrichResults(out.results, a, content, r.opts.DataToInsert)
		if rec := artifactRecord(a, content, sha, r.opts.DataToInsert); rec != nil {
			out.artifact = &taggedArtifact{tag: tag{Index: i}, Record: *rec}
		}
	}
	return out, !out.dirty
}

// incompatible applies the incompatible-rule policy. It returns true when
// the artifact's remaining rules must not run.
func (r *run) incompatible(out *outcome, a Artifact, ruleID, reason string) bool {
	i := out.index
	switch r.policy.handling {
	case ir.IncompatibleDisable:
		r.logger.Info("disabling incompatible rule", "rule", ruleID, "artifact", a.URI, "index", i)
		r.policy.recordDisable(ruleID, i)
		out.addNotification(
			tag{RuleID: ruleID, Conditions: ir.RuleIncompatible | ir.RuleDisabled},
			incompatibleNotification(a, ruleID, reason, ir.IncompatibleDisable))
		return false

	case ir.IncompatibleExit:
		r.logger.Info("halting on incompatible rule", "rule", ruleID, "artifact", a.URI, "index", i)
		r.policy.recordHalt(i)
		out.addNotification(
			tag{RuleID: ruleID, Conditions: ir.RuleIncompatible | ir.AnalysisHalted, Halt: true},
			incompatibleNotification(a, ruleID, reason, ir.IncompatibleExit))
		return true

	default:
		r.logger.Debug("ignoring incompatible rule", "rule", ruleID, "artifact", a.URI)
		// Ignored incompatibility leaves no record, so the outcome stays
		// cacheable only if nothing else went wrong.
		out.dirty = true
		return false
	}
}

// commit hands the outcome to the aggregator unless the artifact observed
// cancellation or now lies past the exit point.
func (r *run) commit(ctx context.Context, actx *AnalysisContext, out *outcome) string {
	if ctx.Err() != nil {
		actx.observed = true
		r.canceled.Store(true)
	}
	if actx.observed {
		r.logger.Debug("artifact abandoned", "artifact", actx.artifact.URI)
		return "abandoned"
	}
	if r.policy.beyondHalt(out.index) {
		return "discarded"
	}
	r.agg.Commit(out)
	return "committed"
}

func (r *run) store(a Artifact, actx *AnalysisContext, out *outcome) {
	sum := sha256.Sum256(actx.content)
	key := cacheKey(r.ruleSet, a.URI, hex.EncodeToString(sum[:]))
	if err := r.cache.Put(key, out.toCached()); err != nil {
		r.logger.Warn("cache store failed", "artifact", a.URI, "error", err)
	}
}

// invoke runs one rule, converting a panic into an error.
func invoke(rule Rule, actx *AnalysisContext) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p}
		}
	}()
	return rule.Analyze(actx)
}

func load(a Artifact) ([]byte, error) {
	if a.Open == nil {
		return nil, fmt.Errorf("artifact %s has no content", a.URI)
	}
	rc, err := a.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.URI, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", a.URI, err)
	}
	return data, nil
}
