package harness

import (
	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/sched"
)

// Result is the outcome of running one scenario.
type Result struct {
	// Pass is true when no run diverged and every assertion held.
	Pass bool `json:"pass"`

	// Report is the sequential reference report.
	Report *ir.Report `json:"-"`

	// Runs counts the controlled runs compared against the reference.
	Runs int `json:"runs"`

	// Exhausted reports whether exploration visited every interleaving
	// within the run bound.
	Exhausted bool `json:"exhausted"`

	// Divergences lists the runs whose report differed.
	Divergences []Divergence `json:"divergences,omitempty"`

	// Errors contains assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// Divergence is one controlled run whose canonical report differed from
// the reference. Replaying Trace reproduces it.
type Divergence struct {
	Trace sched.Trace `json:"-"`
	Want  string      `json:"want"`
	Got   string      `json:"got"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddDivergence records a diverging run and marks the result as failed.
func (r *Result) AddDivergence(d Divergence) {
	r.Divergences = append(r.Divergences, d)
	r.Pass = false
}
