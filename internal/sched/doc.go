// Package sched dispatches indexed tasks to a bounded set of workers.
//
// Two schedulers implement Scheduler:
//
//   - Preemptive runs tasks on goroutines through an errgroup with a
//     concurrency limit. It is the production scheduler.
//   - Controlled runs exactly one task at a time and lets a Strategy pick
//     which in-flight task continues at every yield point. Every pick is
//     recorded into a Trace, so any interleaving it produces can be saved
//     and replayed.
//
// Tasks are admitted in index order in both schedulers: task i+1 is never
// admitted before task i.
//
// Thread-safety model: a Scheduler value may be shared, but a Controlled
// scheduler runs one Run at a time; concurrent Runs on the same Controlled
// value serialize.
package sched
