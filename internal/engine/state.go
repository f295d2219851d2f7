package engine

import (
	"fmt"
	"log/slog"
)

// State is a phase of one run.
//
//	Idle → Enumerating         : Run called with valid options
//	Enumerating → Running      : artifacts enumerated
//	Running → Cancelling       : caller's context done
//	Running → Aggregating      : every worker joined
//	Cancelling → Aggregating   : in-flight workers unwound
//	Aggregating → Sorted       : filtered and canonically ordered
//	Sorted → Completed         : report handed to the sink
//	* → Failed                 : fatal pre-run or sink error
type State int

const (
	StateIdle State = iota
	StateEnumerating
	StateRunning
	StateCancelling
	StateAggregating
	StateSorted
	StateCompleted
	StateFailed
)

var stateNames = []string{"idle", "enumerating", "running", "cancelling", "aggregating", "sorted", "completed", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var transitions = map[State][]State{
	StateIdle:        {StateEnumerating, StateFailed},
	StateEnumerating: {StateRunning, StateFailed},
	StateRunning:     {StateCancelling, StateAggregating, StateFailed},
	StateCancelling:  {StateAggregating, StateFailed},
	StateAggregating: {StateSorted, StateFailed},
	StateSorted:      {StateCompleted, StateFailed},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// stateMachine tracks one run's phase. Only the orchestrator goroutine
// touches it.
type stateMachine struct {
	runID  string
	state  State
	logger *slog.Logger
}

func (m *stateMachine) transition(to State) error {
	if !CanTransition(m.state, to) {
		return &RunError{
			Code:    ErrCodeIllegalTransition,
			Message: fmt.Sprintf("illegal transition %s -> %s", m.state, to),
		}
	}
	m.logger.Debug("run state", "run", m.runID, "from", m.state.String(), "to", to.String())
	m.state = to
	return nil
}

// fail moves to Failed from any non-terminal state.
func (m *stateMachine) fail(err error) error {
	if !m.state.Terminal() {
		m.logger.Error("run failed", "run", m.runID, "state", m.state.String(), "error", err)
		m.state = StateFailed
	}
	return err
}
