package sched

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Preemptive runs tasks concurrently on goroutines.
type Preemptive struct{}

// NewPreemptive returns the production scheduler.
func NewPreemptive() *Preemptive {
	return &Preemptive{}
}

// Run implements Scheduler.
func (p *Preemptive) Run(ctx context.Context, n, limit int, fn TaskFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(EffectiveLimit(limit))

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, noopWorker{}, i)
		})
	}
	return g.Wait()
}
