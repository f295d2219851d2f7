package ir

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// RuntimeConditions records whole-run conditions as bit flags.
type RuntimeConditions uint64

const (
	ConditionNone RuntimeConditions = 0

	ExceptionInRule RuntimeConditions = 1 << (iota - 1)
	ExceptionLoadingTarget
	ExceptionInEngine
	OneOrMoreFilesSkipped
	OneOrMoreFilesSkippedDueToSizeLimits
	RuleIncompatible
	RuleDisabled
	AnalysisHalted
	AnalysisCanceled
	NoValidAnalysisTargets
	NoRulesLoaded
	OneOrMoreWarningsFired
	OneOrMoreErrorsFired
)

// FatalConditions are the conditions that make a run unsuccessful.
const FatalConditions = ExceptionInRule | ExceptionLoadingTarget | ExceptionInEngine |
	NoRulesLoaded | AnalysisHalted | RuleIncompatible

var conditionNames = []struct {
	flag RuntimeConditions
	name string
}{
	{ExceptionInRule, "exceptionInRule"},
	{ExceptionLoadingTarget, "exceptionLoadingTarget"},
	{ExceptionInEngine, "exceptionInEngine"},
	{OneOrMoreFilesSkipped, "oneOrMoreFilesSkipped"},
	{OneOrMoreFilesSkippedDueToSizeLimits, "oneOrMoreFilesSkippedDueToSizeLimits"},
	{RuleIncompatible, "ruleIncompatible"},
	{RuleDisabled, "ruleDisabled"},
	{AnalysisHalted, "analysisHalted"},
	{AnalysisCanceled, "analysisCanceled"},
	{NoValidAnalysisTargets, "noValidAnalysisTargets"},
	{NoRulesLoaded, "noRulesLoaded"},
	{OneOrMoreWarningsFired, "oneOrMoreWarningsFired"},
	{OneOrMoreErrorsFired, "oneOrMoreErrorsFired"},
}

// Has reports whether every bit of flag is set.
func (c RuntimeConditions) Has(flag RuntimeConditions) bool {
	return c&flag == flag
}

// Fatal reports whether any fatal condition is set.
func (c RuntimeConditions) Fatal() bool {
	return c&FatalConditions != 0
}

// Names lists the set conditions in declaration order.
func (c RuntimeConditions) Names() []string {
	var out []string
	for _, n := range conditionNames {
		if c.Has(n.flag) {
			out = append(out, n.name)
		}
	}
	return out
}

func (c RuntimeConditions) String() string {
	if c == ConditionNone {
		return "none"
	}
	return strings.Join(c.Names(), "|")
}

// AtomicConditions is a RuntimeConditions set that any goroutine may OR into.
type AtomicConditions struct {
	v atomic.Uint64
}

// Set ORs flags into the set.
func (a *AtomicConditions) Set(flags RuntimeConditions) {
	if flags == ConditionNone {
		return
	}
	a.v.Or(uint64(flags))
}

// Load returns the current set.
func (a *AtomicConditions) Load() RuntimeConditions {
	return RuntimeConditions(a.v.Load())
}

// ParseRuntimeConditions is the inverse of Names. Unknown names are errors.
func ParseRuntimeConditions(names []string) (RuntimeConditions, error) {
	var c RuntimeConditions
	for _, s := range names {
		found := false
		for _, n := range conditionNames {
			if n.name == s {
				c |= n.flag
				found = true
				break
			}
		}
		if !found {
			return ConditionNone, fmt.Errorf("unknown runtime condition %q", s)
		}
	}
	return c, nil
}
