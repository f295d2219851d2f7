package sched

import (
	"context"
	"fmt"
	"sync"
)

// Controlled runs one task at a time. At task start, at every Yield and
// whenever a task finishes, its Strategy chooses which in-flight task runs
// next. Given the same Strategy choices, the same interleaving results.
type Controlled struct {
	strategy Strategy

	mu    sync.Mutex
	trace Trace
}

// NewControlled returns a cooperative scheduler driven by s.
func NewControlled(s Strategy) *Controlled {
	return &Controlled{strategy: s}
}

// Trace returns the choices made by the most recent Run.
func (c *Controlled) Trace() Trace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trace.clone()
}

type eventKind int

const (
	eventYield eventKind = iota
	eventDone
)

type event struct {
	task int
	kind eventKind
	err  error
}

type controlledTask struct {
	index   int
	started bool
	wake    chan struct{}
}

// controlledWorker parks its task until the coordinator hands control back.
type controlledWorker struct {
	task   *controlledTask
	events chan<- event
}

func (w *controlledWorker) Yield() {
	w.events <- event{task: w.task.index, kind: eventYield}
	<-w.task.wake
}

// Run implements Scheduler.
func (c *Controlled) Run(ctx context.Context, n, limit int, fn TaskFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = Trace{Strategy: describe(c.strategy)}

	limit = EffectiveLimit(limit)
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	events := make(chan event)
	var (
		inflight []*controlledTask
		next     int
		firstErr error
	)

	admit := func() {
		for len(inflight) < limit && next < n && runCtx.Err() == nil {
			inflight = append(inflight, &controlledTask{index: next, wake: make(chan struct{})})
			next++
		}
	}

	admit()
	for len(inflight) > 0 {
		pos := c.choose(len(inflight))
		t := inflight[pos]

		if !t.started {
			t.started = true
			w := &controlledWorker{task: t, events: events}
			go func() {
				<-t.wake
				err := fn(runCtx, w, t.index)
				events <- event{task: t.index, kind: eventDone, err: err}
			}()
		}
		t.wake <- struct{}{}

		ev := <-events
		if ev.task != t.index {
			panic(fmt.Sprintf("sched: task %d ran while task %d held control", ev.task, t.index))
		}
		if ev.kind == eventDone {
			inflight = append(inflight[:pos], inflight[pos+1:]...)
			if ev.err != nil && firstErr == nil {
				firstErr = ev.err
				cancel(ev.err)
			}
			admit()
		}
	}
	return firstErr
}

// choose asks the strategy for a position among options in-flight tasks
// and records the decision. A single option is still recorded so that a
// trace's step numbers line up with the run's scheduling points.
func (c *Controlled) choose(options int) int {
	step := len(c.trace.Choices)
	pick := 0
	if options > 1 {
		pick = c.strategy.Choose(step, options)
		if pick < 0 || pick >= options {
			pick = 0
		}
	}
	c.trace.Choices = append(c.trace.Choices, Choice{Options: options, Pick: pick})
	return pick
}
