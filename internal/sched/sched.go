package sched

import (
	"context"
	"runtime"
)

// Worker is handed to every task.
type Worker interface {
	// Yield marks a point where the scheduler may switch to another task.
	// It must only be called from the task it was handed to.
	Yield()
}

// TaskFunc processes task i.
type TaskFunc func(ctx context.Context, w Worker, i int) error

// Scheduler runs n tasks with at most limit in flight. A limit of 0 means
// runtime.GOMAXPROCS(0). Admission stops once ctx is done or a task has
// returned an error; Run returns the first task error.
type Scheduler interface {
	Run(ctx context.Context, n, limit int, fn TaskFunc) error
}

// EffectiveLimit resolves a requested worker count.
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return limit
}

type noopWorker struct{}

func (noopWorker) Yield() {}
