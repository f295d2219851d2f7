package sched

// Explorer enumerates interleavings depth-first. Each run replays a prefix
// of choices and takes the first option at every later choice point; the
// next prefix advances the deepest choice that still has untried options.
//
//	ex := sched.NewExplorer(200)
//	for s, ok := ex.Next(); ok; s, ok = ex.Next() {
//	    c := sched.NewControlled(s)
//	    ... run with c ...
//	}
type Explorer struct {
	maxRuns int
	runs    int
	prefix  []int
	current *dfsStrategy
	done    bool
}

// NewExplorer bounds exploration to maxRuns runs. A maxRuns of 0 means no
// bound.
func NewExplorer(maxRuns int) *Explorer {
	return &Explorer{maxRuns: maxRuns}
}

// Next returns the strategy for the next run, or false once every
// interleaving has been visited or the run bound is reached.
func (e *Explorer) Next() (Strategy, bool) {
	if e.current != nil {
		e.advance()
	}
	if e.done || (e.maxRuns > 0 && e.runs >= e.maxRuns) {
		return nil, false
	}
	e.runs++
	e.current = &dfsStrategy{prefix: e.prefix}
	return e.current, true
}

// Runs returns how many strategies Next has handed out.
func (e *Explorer) Runs() int {
	return e.runs
}

// Exhausted reports whether every interleaving has been visited. It is
// meaningful once Next has returned false.
func (e *Explorer) Exhausted() bool {
	return e.done
}

func (e *Explorer) advance() {
	seen := e.current.seen
	e.current = nil
	for i := len(seen) - 1; i >= 0; i-- {
		if seen[i].Pick+1 < seen[i].Options {
			next := make([]int, i+1)
			for j := 0; j < i; j++ {
				next[j] = seen[j].Pick
			}
			next[i] = seen[i].Pick + 1
			e.prefix = next
			return
		}
	}
	e.done = true
}

type dfsStrategy struct {
	prefix []int
	seen   []Choice
}

// Choose indexes the prefix by its own call count: only real choice
// points (more than one option) reach a strategy.
func (s *dfsStrategy) Choose(_, options int) int {
	pick := 0
	if n := len(s.seen); n < len(s.prefix) && s.prefix[n] < options {
		pick = s.prefix[n]
	}
	s.seen = append(s.seen, Choice{Options: options, Pick: pick})
	return pick
}

func (s *dfsStrategy) String() string {
	return "explore"
}
