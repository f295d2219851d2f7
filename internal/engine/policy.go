package engine

import (
	"math"
	"sync/atomic"

	"github.com/roach88/skim/internal/ir"
)

const noIndex = math.MaxInt64

// policyState makes incompatible-rule handling independent of scheduling.
//
// Decisions are keyed by enumeration index, never by completion order:
//   - disable: each rule records the minimum index at which it failed;
//     its contributions from higher indices are dropped at aggregation
//   - exit: the run records the minimum failing index; nothing above it is
//     dispatched or kept, and of that artifact only the failure
//     notification is kept
//
// Both minimums only ever decrease, via compare-and-swap, so the final
// values equal those of a single-threaded run.
type policyState struct {
	handling ir.IncompatibleRuleHandling
	halt     atomic.Int64
	disabled map[string]*atomic.Int64
}

func newPolicyState(handling ir.IncompatibleRuleHandling, ruleIDs []string) *policyState {
	p := &policyState{
		handling: handling,
		disabled: make(map[string]*atomic.Int64, len(ruleIDs)),
	}
	p.halt.Store(noIndex)
	for _, id := range ruleIDs {
		v := &atomic.Int64{}
		v.Store(noIndex)
		p.disabled[id] = v
	}
	return p
}

func storeMin(v *atomic.Int64, i int64) {
	for {
		cur := v.Load()
		if i >= cur || v.CompareAndSwap(cur, i) {
			return
		}
	}
}

// beyondHalt reports whether artifact i lies past the exit point.
func (p *policyState) beyondHalt(i int) bool {
	return int64(i) > p.halt.Load()
}

// halted reports whether the exit point is at or before artifact i.
func (p *policyState) halted(i int) bool {
	return int64(i) >= p.halt.Load()
}

// ruleDisabled reports whether rule no longer runs on artifact i.
func (p *policyState) ruleDisabled(ruleID string, i int) bool {
	v, ok := p.disabled[ruleID]
	return ok && int64(i) > v.Load()
}

func (p *policyState) recordHalt(i int) {
	storeMin(&p.halt, int64(i))
}

func (p *policyState) recordDisable(ruleID string, i int) {
	if v, ok := p.disabled[ruleID]; ok {
		storeMin(v, int64(i))
	}
}

// keep decides, after all workers joined, whether a tagged contribution
// survives policy filtering.
func (p *policyState) keep(t tag) bool {
	if t.Index == runLevel {
		return true
	}
	idx := int64(t.Index)
	h := p.halt.Load()
	if idx > h || (idx == h && !t.Halt) {
		return false
	}
	if t.RuleID != "" && p.ruleDisabled(t.RuleID, t.Index) {
		return false
	}
	return true
}
