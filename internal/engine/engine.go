package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"slices"
	"strings"

	"github.com/roach88/skim/internal/compare"
	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/report"
	"github.com/roach88/skim/internal/sched"
	"github.com/roach88/skim/internal/telemetry"
)

// Engine runs a fixed rule set over the artifacts of a provider and
// produces one canonically ordered report per Run.
//
// Thread-safety model:
//   - Run may be called repeatedly, but not concurrently on one Engine
//   - Rules are invoked from many worker goroutines at once
//   - All shared run state lives in the Aggregator and the policy state;
//     workers never talk to each other
//
// INVARIANTS:
//   - The report depends only on the set of contributions kept, never on
//     the order workers produced them
//   - Invocation end fields are written once, after every worker joined
type Engine struct {
	provider Provider
	rules    []Rule
	opts     Options

	scheduler sched.Scheduler
	clock     Clock
	ids       RunIDGenerator
	logger    *slog.Logger
	cache     OutcomeCache
	sink      report.Sink
	host      HostInfo
}

// HostInfo is the machine identity recorded in the Invocation.
type HostInfo struct {
	Machine   string
	Account   string
	ProcessID int
}

// Option configures an Engine.
type Option func(*Engine)

// WithScheduler replaces the default preemptive scheduler.
func WithScheduler(s sched.Scheduler) Option {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ID generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCache enables the per-artifact outcome cache.
func WithCache(c OutcomeCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithSink streams every finished report to s.
func WithSink(s report.Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithHostInfo overrides the detected machine identity.
func WithHostInfo(h HostInfo) Option {
	return func(e *Engine) {
		e.host = h
	}
}

// New creates an Engine. The rules slice is copied and sorted by rule ID;
// that order is the order rules run in on every artifact.
func New(provider Provider, rules []Rule, opts Options, options ...Option) *Engine {
	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b Rule) int {
		return strings.Compare(a.Descriptor().ID, b.Descriptor().ID)
	})

	e := &Engine{
		provider:  provider,
		rules:     sorted,
		opts:      opts.clone(),
		scheduler: sched.NewPreemptive(),
		clock:     SystemClock{},
		ids:       UUIDv7Generator{},
		logger:    slog.Default(),
		host:      detectHost(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func detectHost() HostInfo {
	h := HostInfo{ProcessID: os.Getpid()}
	h.Machine, _ = os.Hostname()
	if u, err := user.Current(); err == nil {
		h.Account = u.Username
	}
	return h
}

// Run executes one analysis.
//
// Errors are returned only for fatal conditions: invalid options or rules,
// failed enumeration, or a failing sink. Cancellation of ctx is not an
// error; Run then returns the partial report with AnalysisCanceled set.
func (e *Engine) Run(ctx context.Context) (*ir.Report, error) {
	runID := e.ids.Generate()
	sm := &stateMachine{runID: runID, logger: e.logger}

	if err := e.opts.Validate(); err != nil {
		return nil, sm.fail(err)
	}
	descs, err := describe(e.rules)
	if err != nil {
		return nil, sm.fail(err)
	}
	opts := e.opts.clone()

	ctx, span := telemetry.StartRun(ctx, runID, len(e.rules))
	defer span.End()

	start := e.clock.Now()
	e.logger.Info("analysis starting", "run", runID, "rules", len(descs), "threads", opts.Threads)

	if err := sm.transition(StateEnumerating); err != nil {
		return nil, sm.fail(err)
	}
	agg := NewAggregator()
	artifacts, err := e.enumerate(ctx, &opts, agg)
	if err != nil {
		return nil, sm.fail(err)
	}

	ruleIDs := make([]string, len(descs))
	for i, d := range descs {
		ruleIDs[i] = d.ID
	}
	ruleSet, err := ir.RuleSetFingerprint(descs, cacheSalt(&opts))
	if err != nil {
		return nil, sm.fail(&RunError{Code: ErrCodeInvalidOptions, Message: "rule set fingerprint", Err: err})
	}

	r := &run{
		id:        runID,
		opts:      &opts,
		artifacts: artifacts,
		rules:     e.rules,
		descs:     descs,
		ruleSet:   ruleSet,
		policy:    newPolicyState(opts.IncompatibleRules, ruleIDs),
		agg:       agg,
		cache:     e.cache,
		logger:    e.logger.With("run", runID),
	}

	if len(e.rules) == 0 {
		agg.MergeConditions(ir.NoRulesLoaded)
		agg.AppendNotification(noRulesNotification())
	}

	if err := sm.transition(StateRunning); err != nil {
		return nil, sm.fail(err)
	}
	if len(e.rules) > 0 && len(artifacts) > 0 {
		if err := e.scheduler.Run(ctx, len(artifacts), opts.Threads, r.process); err != nil {
			// process never fails; a scheduler error is an engine fault.
			e.logger.Error("scheduler failed", "run", runID, "error", err)
			agg.MergeConditions(ir.ExceptionInEngine)
			agg.AppendNotification(engineExceptionNotification(err))
		}
	}

	if ctx.Err() != nil || r.canceled.Load() {
		if err := sm.transition(StateCancelling); err != nil {
			return nil, sm.fail(err)
		}
		e.logger.Warn("analysis canceled", "run", runID)
		agg.MergeConditions(ir.AnalysisHalted | ir.AnalysisCanceled)
	}

	if err := sm.transition(StateAggregating); err != nil {
		return nil, sm.fail(err)
	}
	rep := r.assemble()

	if err := sm.transition(StateSorted); err != nil {
		return nil, sm.fail(err)
	}
	rep.RunID = runID
	rep.AutomationID = opts.AutomationID
	rep.Invocation = ir.Invocation{
		CommandLine:         opts.CommandLine,
		Machine:             e.host.Machine,
		Account:             e.host.Account,
		ProcessID:           e.host.ProcessID,
		StartTime:           start,
		EndTime:             e.clock.Now(),
		ExitCode:            opts.exitCode(rep.Conditions),
		ExecutionSuccessful: !rep.Conditions.Fatal(),
		RuntimeConditions:   rep.Conditions.Names(),
	}
	telemetry.EndRun(span, rep.Conditions, len(rep.Results), len(rep.Notifications))

	if e.sink != nil {
		if err := report.Emit(e.sink, rep); err != nil {
			return nil, sm.fail(&RunError{Code: ErrCodeSinkFailed, Message: "write report", Err: err})
		}
	}
	if err := sm.transition(StateCompleted); err != nil {
		return nil, sm.fail(err)
	}

	e.logger.Info("analysis complete",
		"run", runID,
		"artifacts", len(artifacts),
		"results", len(rep.Results),
		"notifications", len(rep.Notifications),
		"conditions", rep.Conditions.String(),
		"exit_code", rep.Invocation.ExitCode,
	)
	return rep, nil
}

// enumerate pulls, orders and size-filters the artifacts. Skipped
// artifacts become run-level notifications.
func (e *Engine) enumerate(ctx context.Context, opts *Options, agg *Aggregator) ([]Artifact, error) {
	found, err := e.provider.Enumerate(ctx, Query{
		Specifiers: opts.TargetFileSpecifiers,
		Recurse:    opts.Recurse,
	})
	if err != nil {
		if ctx.Err() != nil {
			// Canceled before enumeration finished: an empty, canceled run.
			e.logger.Warn("enumeration canceled", "error", err)
			return nil, nil
		}
		return nil, &RunError{Code: ErrCodeEnumerationFailed, Message: "enumerate artifacts", Err: err}
	}

	limit := opts.maxBytes()
	maxKB := limit / 1024
	var analyzable []Artifact
	for _, a := range canonicalArtifacts(found) {
		if a.Size > limit {
			e.logger.Info("artifact skipped: too large", "artifact", a.URI, "size", a.Size, "max_kb", maxKB)
			agg.MergeConditions(ir.OneOrMoreFilesSkipped | ir.OneOrMoreFilesSkippedDueToSizeLimits)
			agg.AppendNotification(sizeSkippedNotification(a, maxKB))
			continue
		}
		a.Index = len(analyzable)
		analyzable = append(analyzable, a)
	}

	if len(analyzable) == 0 {
		agg.MergeConditions(ir.NoValidAnalysisTargets)
		agg.AppendNotification(noTargetsNotification())
	}
	return analyzable, nil
}

// assemble filters the aggregated contributions by policy and result
// filters, derives the run conditions from what was kept, and sorts.
func (r *run) assemble() *ir.Report {
	snap := r.agg.snapshot()
	conds := snap.conditions

	rep := &ir.Report{
		SchemaVersion: ir.SchemaVersion,
		Tool: ir.Tool{
			Name:    ir.ToolName,
			Version: ir.ToolVersion,
			Rules:   slices.Clone(r.descs),
		},
		Results: []ir.Result{},
	}

	for _, n := range snap.notifications {
		if !r.policy.keep(n.tag) {
			continue
		}
		conds |= n.Conditions
		rep.Notifications = append(rep.Notifications, n.Notification)
	}
	for _, res := range snap.results {
		if !r.policy.keep(res.tag) || !r.opts.keepsResult(res.Result) {
			continue
		}
		if res.Result.Kind == ir.KindFail {
			switch res.Result.Level {
			case ir.LevelError:
				conds |= ir.OneOrMoreErrorsFired
			case ir.LevelWarning:
				conds |= ir.OneOrMoreWarningsFired
			}
		}
		rep.Results = append(rep.Results, res.Result)
	}
	for _, a := range snap.artifacts {
		if r.policy.keep(a.tag) {
			rep.Artifacts = append(rep.Artifacts, a.Record)
		}
	}

	compare.SortResults(rep.Results)
	compare.SortNotifications(rep.Notifications)
	compare.SortArtifacts(rep.Artifacts)
	compare.SortRules(rep.Tool.Rules)

	rep.Conditions = conds
	return rep
}

// describe collects rule descriptors, rejecting empty and duplicate IDs.
func describe(rules []Rule) ([]ir.ReportingDescriptor, error) {
	descs := make([]ir.ReportingDescriptor, len(rules))
	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		d := rule.Descriptor()
		if d.ID == "" {
			return nil, &RunError{Code: ErrCodeInvalidOptions, Message: fmt.Sprintf("rule %d has an empty ID", i)}
		}
		if seen[d.ID] {
			return nil, &RunError{Code: ErrCodeInvalidOptions, Message: fmt.Sprintf("duplicate rule ID %q", d.ID)}
		}
		seen[d.ID] = true
		descs[i] = d
	}
	return descs, nil
}

// cacheSalt covers the options that change raw, unfiltered outcomes.
func cacheSalt(o *Options) string {
	policy, _ := ir.MarshalCanonical(o.Policy)
	return fmt.Sprintf("insert=%d;incompatible=%d;policy=%s", o.DataToInsert, o.IncompatibleRules, policy)
}
