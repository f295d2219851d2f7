// Package engine implements the skim analysis engine.
//
// The engine enumerates analysis targets from a Provider, runs every rule
// against every target on a pool of workers, and folds what the rules
// report into a single canonically ordered ir.Report.
//
// ARCHITECTURE:
//
// Parallel Workers, Single Aggregator:
// Each artifact is one task. Workers own their artifact for its whole
// analysis and talk only to the shared Aggregator, which tags every
// contribution with the artifact index and rule that produced it.
//
// Run Flow:
// 1. Validate options and rule descriptors
// 2. Enumerate, de-duplicate and size-filter targets (Enumerating)
// 3. Analyze targets through the scheduler (Running)
// 4. Filter tagged contributions by policy and result filters (Aggregating)
// 5. Sort with the comparers in package compare (Sorted)
// 6. Emit to the sink, if any (Completed)
//
// CRITICAL PATTERNS:
//
// Order-Free Aggregation:
// Workers finish in any order. The report is derived only from which tagged
// contributions survive filtering, and every slice is sorted canonically,
// so thread count never changes the output.
//
// Index-Based Policy:
// "exit" and "disable" record the lowest artifact index at which they
// fired. Contributions from higher indices are dropped after the join,
// which makes the outcome identical to a sequential run in index order.
//
// Cancellation:
// A worker that observes cancellation abandons its artifact entirely;
// partial per-artifact output is never committed.
package engine
