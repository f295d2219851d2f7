// Package harness checks that analysis reports do not depend on how
// workers interleave.
//
// A scenario names a set of in-memory files, a set of rules (built-in or
// scripted) and run options. The harness runs it once sequentially to get
// the reference report, then again under the controlled scheduler for
// every interleaving the explorer reaches and for a number of seeded
// random schedules. Any run whose canonical report differs from the
// reference is a divergence; its schedule trace can be saved and replayed.
//
// # Scenario Format
//
//	name: incompatible_disable
//	description: "Disabling a rule keeps its earlier results"
//	threads: 3
//	options:                      # same keys as a skim config file
//	  incompatible_rules: disable
//	files:
//	  a.txt: "alpha\n"
//	  b.bin: "\x00\x01"
//	rules:
//	  - id: T001
//	    level: warning
//	    on:
//	      - match: "*.bin"
//	        decline: binary content
//	      - match: "*"
//	        report: 1
//	        message: first rule hit
//	  - builtin: SKIM1003
//	explore:
//	  max_runs: 50
//	  seeds: 10
//	assertions:
//	  - type: result_count
//	    rule: T001
//	    count: 1
//	  - type: conditions
//	    conditions: [ruleIncompatible, ruleDisabled, oneOrMoreWarningsFired]
//
// A scripted rule applies the first "on" entry whose glob matches the
// artifact's base name. An entry either reports N results on lines 1..N,
// declines the artifact, panics, or returns an error; "yield" adds extra
// scheduling points first.
//
// # Assertion Types
//
//   - result_count: number of results, optionally for one rule
//   - result_present: a result of rule at uri (and line, if given)
//   - notification_present: a notification with descriptor (and rule, uri)
//   - conditions: the exact set of runtime conditions
//   - exit_code: the invocation exit code
//
// # Golden Files
//
// RunWithGolden compares a compact canonical snapshot of the reference
// report against testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
package harness
