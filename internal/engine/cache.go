package engine

import (
	"github.com/roach88/skim/internal/ir"
)

// OutcomeCache stores clean per-artifact outcomes between runs. A clean
// outcome has no notifications: no rule failed, declined or panicked.
type OutcomeCache interface {
	Get(key string) (*CachedOutcome, bool, error)
	Put(key string, o *CachedOutcome) error
}

// CachedOutcome is what a cache stores for one artifact: enriched results
// before any level or kind filtering, and the artifact record if one was
// produced.
type CachedOutcome struct {
	Results  []CachedResult     `json:"results,omitempty"`
	Artifact *ir.ArtifactRecord `json:"artifact,omitempty"`
}

// CachedResult pairs a result with the rule that reported it, which may
// differ from Result.RuleID.
type CachedResult struct {
	Rule   string    `json:"rule"`
	Result ir.Result `json:"result"`
}

// cacheKey binds the rule set, the options that change raw results, the
// artifact's location and its content hash.
func cacheKey(ruleSet, uri, sha string) string {
	return ir.ContentHash(ir.DomainArtifact, []byte(ruleSet+"\x00"+uri+"\x00"+sha))
}

func (o *outcome) toCached() *CachedOutcome {
	co := &CachedOutcome{}
	for _, r := range o.results {
		co.Results = append(co.Results, CachedResult{Rule: r.RuleID, Result: r.Result})
	}
	if o.artifact != nil {
		rec := o.artifact.Record
		co.Artifact = &rec
	}
	return co
}

func outcomeFromCache(index int, co *CachedOutcome) *outcome {
	o := &outcome{index: index}
	for _, r := range co.Results {
		o.results = append(o.results, taggedResult{tag: tag{Index: index, RuleID: r.Rule}, Result: r.Result})
	}
	if co.Artifact != nil {
		o.artifact = &taggedArtifact{tag: tag{Index: index}, Record: *co.Artifact}
	}
	return o
}
