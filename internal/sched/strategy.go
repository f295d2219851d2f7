package sched

import (
	"fmt"
	"math/rand/v2"
)

// Strategy picks which of options in-flight tasks runs at scheduling step
// step. The result must be in [0, options).
type Strategy interface {
	Choose(step, options int) int
}

// RandomStrategy samples uniformly with a seeded generator.
type RandomStrategy struct {
	seed uint64
	r    *rand.Rand
}

// Random returns a strategy whose choices are fully determined by seed.
func Random(seed uint64) *RandomStrategy {
	return &RandomStrategy{seed: seed, r: rand.New(rand.NewPCG(seed, 0x5eed))}
}

// Choose implements Strategy.
func (s *RandomStrategy) Choose(_, options int) int {
	return s.r.IntN(options)
}

func (s *RandomStrategy) String() string {
	return fmt.Sprintf("random(%d)", s.seed)
}

// ReplayStrategy repeats the picks of a recorded trace.
type ReplayStrategy struct {
	trace    Trace
	diverged bool
}

// Replay returns a strategy that reproduces t. If the run asks for a
// choice the trace does not describe, the first option is taken and
// Diverged reports true.
func Replay(t Trace) *ReplayStrategy {
	return &ReplayStrategy{trace: t.clone()}
}

// Choose implements Strategy.
func (s *ReplayStrategy) Choose(step, options int) int {
	if step >= len(s.trace.Choices) || s.trace.Choices[step].Options != options {
		s.diverged = true
		return 0
	}
	return s.trace.Choices[step].Pick
}

// Diverged reports whether the run departed from the recorded trace.
func (s *ReplayStrategy) Diverged() bool {
	return s.diverged
}

func (s *ReplayStrategy) String() string {
	return "replay"
}

func describe(s Strategy) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%T", s)
}
