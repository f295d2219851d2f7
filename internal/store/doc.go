// Package store keeps a SQLite log of finished analysis runs.
//
// Each run is written in a single transaction by a Sink, which implements
// report.Sink and can be teed next to any other sink. A run is either fully
// stored or absent; a sink whose report was not completely written rolls
// back on Close.
//
// # Layout
//
//   - runs: one row per run, keyed by run GUID, with the tool and invocation
//     as canonical JSON
//   - rules, artifacts, results, notifications: child rows keyed by
//     (run_id, ordinal), where ordinal is the canonical report position
//
// Reads always ORDER BY ordinal, so LoadRun returns a report byte-equal
// (after canonical marshaling) to the one that was written.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
