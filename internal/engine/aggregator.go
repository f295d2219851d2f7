package engine

import (
	"slices"
	"sync"

	"github.com/roach88/skim/internal/ir"
)

// runLevel tags contributions that belong to the run rather than to one
// artifact. They are never filtered by policy.
const runLevel = -1

// tag records where a contribution came from so that policy filtering can
// be applied after all workers joined.
type tag struct {
	Index      int
	RuleID     string
	Conditions ir.RuntimeConditions
	Halt       bool
}

type taggedResult struct {
	tag
	Result ir.Result
}

type taggedNotification struct {
	tag
	Notification ir.Notification
}

type taggedArtifact struct {
	tag
	Record ir.ArtifactRecord
}

// Aggregator is the shared, append-only sink of one run. Workers append
// concurrently; nothing is ordered until the orchestrator sorts a snapshot.
//
// Thread-safety model:
//   - Append*, Commit, MergeConditions: safe from any goroutine
//   - snapshot: only after every worker has joined
type Aggregator struct {
	mu            sync.Mutex
	results       []taggedResult
	notifications []taggedNotification
	artifacts     []taggedArtifact

	conditions ir.AtomicConditions
}

// NewAggregator returns an empty aggregator. One exists per run.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// AppendResult adds a run-level result.
func (a *Aggregator) AppendResult(r ir.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, taggedResult{tag: tag{Index: runLevel}, Result: r})
}

// AppendNotification adds a run-level notification.
func (a *Aggregator) AppendNotification(n ir.Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notifications = append(a.notifications, taggedNotification{tag: tag{Index: runLevel}, Notification: n})
}

// AppendArtifact adds a run-level artifact record.
func (a *Aggregator) AppendArtifact(r ir.ArtifactRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.artifacts = append(a.artifacts, taggedArtifact{tag: tag{Index: runLevel}, Record: r})
}

// MergeConditions ORs run-level conditions in. Lock-free.
func (a *Aggregator) MergeConditions(c ir.RuntimeConditions) {
	a.conditions.Set(c)
}

// Conditions returns the run-level conditions merged so far.
func (a *Aggregator) Conditions() ir.RuntimeConditions {
	return a.conditions.Load()
}

// Commit appends one artifact's outcome under a single lock acquisition,
// so an outcome is either entirely visible or not at all.
func (a *Aggregator) Commit(o *outcome) {
	if o == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, o.results...)
	a.notifications = append(a.notifications, o.notifications...)
	if o.artifact != nil {
		a.artifacts = append(a.artifacts, *o.artifact)
	}
}

type snapshot struct {
	results       []taggedResult
	notifications []taggedNotification
	artifacts     []taggedArtifact
	conditions    ir.RuntimeConditions
}

func (a *Aggregator) snapshot() snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return snapshot{
		results:       slices.Clone(a.results),
		notifications: slices.Clone(a.notifications),
		artifacts:     slices.Clone(a.artifacts),
		conditions:    a.conditions.Load(),
	}
}
