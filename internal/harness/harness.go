package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/skim/internal/artifact"
	"github.com/roach88/skim/internal/engine"
	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/report"
	"github.com/roach88/skim/internal/sched"
	"github.com/roach88/skim/internal/testutil"
)

// Harness runs one scenario repeatedly with fixed clock, run ID and host,
// so that only scheduling can change the report.
type Harness struct {
	scenario *Scenario
	provider *artifact.Memory
	opts     engine.Options
	logger   *slog.Logger
}

// New prepares a harness for s. The scenario must have been validated by
// LoadScenario or constructed by hand with valid fields.
func New(s *Scenario) (*Harness, error) {
	opts, err := s.Options.Options()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: options: %w", s.Name, err)
	}
	mem := artifact.NewMemory()
	for name, content := range s.Files {
		mem.Add(uriPrefix+name, []byte(content))
	}
	return &Harness{
		scenario: s,
		provider: mem,
		opts:     opts,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Run sequentially to get the reference report
// 2. Run under every explored interleaving, then under seeded random schedules
// 3. Record every run whose canonical report differs from the reference
// 4. Evaluate assertions against the reference report
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	h, err := New(s)
	if err != nil {
		return nil, err
	}
	return h.Run(ctx)
}

// Run executes the scenario. See the package-level Run.
func (h *Harness) Run(ctx context.Context) (*Result, error) {
	ref, err := h.Reference(ctx)
	if err != nil {
		return nil, err
	}
	want, err := report.Marshal(ref)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Report = ref

	check := func(c *sched.Controlled) error {
		rep, err := h.runOnce(ctx, c, h.scenario.threads())
		if err != nil {
			return err
		}
		result.Runs++
		got, err := report.Marshal(rep)
		if err != nil {
			return err
		}
		if string(got) != string(want) {
			tr := c.Trace()
			tr.Note = h.scenario.Name
			result.AddDivergence(Divergence{Trace: tr, Want: string(want), Got: string(got)})
		}
		return nil
	}

	ex := sched.NewExplorer(h.scenario.maxRuns())
	for strat, ok := ex.Next(); ok; strat, ok = ex.Next() {
		if err := check(sched.NewControlled(strat)); err != nil {
			return nil, fmt.Errorf("explored run %d: %w", ex.Runs(), err)
		}
	}
	result.Exhausted = ex.Exhausted()

	for seed := 1; seed <= h.scenario.Explore.Seeds; seed++ {
		if err := check(sched.NewControlled(sched.Random(uint64(seed)))); err != nil {
			return nil, fmt.Errorf("random run seed %d: %w", seed, err)
		}
	}

	for _, msg := range EvaluateAssertions(ref, h.scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// Reference runs the scenario once on a single worker. Every other run
// must reproduce its canonical report.
func (h *Harness) Reference(ctx context.Context) (*ir.Report, error) {
	rep, err := h.runOnce(ctx, sched.NewPreemptive(), 1)
	if err != nil {
		return nil, fmt.Errorf("reference run: %w", err)
	}
	return rep, nil
}

// RunWith runs the scenario once under strategy and returns the report
// together with the schedule it took.
func (h *Harness) RunWith(ctx context.Context, strategy sched.Strategy) (*ir.Report, sched.Trace, error) {
	c := sched.NewControlled(strategy)
	rep, err := h.runOnce(ctx, c, h.scenario.threads())
	if err != nil {
		return nil, sched.Trace{}, err
	}
	tr := c.Trace()
	tr.Note = h.scenario.Name
	return rep, tr, nil
}

// Replay runs the scenario once under a saved schedule. It fails if the
// run asks for choices the trace does not contain.
func (h *Harness) Replay(ctx context.Context, t sched.Trace) (*ir.Report, error) {
	strat := sched.Replay(t)
	rep, err := h.runOnce(ctx, sched.NewControlled(strat), h.scenario.threads())
	if err != nil {
		return nil, err
	}
	if strat.Diverged() {
		return nil, fmt.Errorf("scenario %s: run left the recorded schedule", h.scenario.Name)
	}
	return rep, nil
}

// runOnce builds a fresh engine so clock and run ID restart every time.
func (h *Harness) runOnce(ctx context.Context, s sched.Scheduler, threads int) (*ir.Report, error) {
	opts := h.opts
	opts.Threads = threads
	e := engine.New(h.provider, buildRules(h.scenario.Rules), opts,
		engine.WithScheduler(s),
		engine.WithClock(testutil.NewDeterministicClock(testutil.Epoch, time.Second)),
		engine.WithRunIDGenerator(testutil.NewFixedRunID("harness-"+h.scenario.Name)),
		engine.WithHostInfo(engine.HostInfo{Machine: "harness", Account: "harness", ProcessID: 1}),
		engine.WithLogger(h.logger),
	)
	return e.Run(ctx)
}

// SaveDivergences writes each divergence's schedule to
// dir/<scenario>-<n>.trace.yaml and returns the paths written.
func SaveDivergences(dir string, name string, divs []Divergence) ([]string, error) {
	if len(divs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	var paths []string
	for i, d := range divs {
		p := filepath.Join(dir, fmt.Sprintf("%s-%d.trace.yaml", name, i+1))
		if err := d.Trace.Save(p); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
