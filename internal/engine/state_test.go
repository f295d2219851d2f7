package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateEnumerating, true},
		{StateEnumerating, StateRunning, true},
		{StateRunning, StateAggregating, true},
		{StateRunning, StateCancelling, true},
		{StateCancelling, StateAggregating, true},
		{StateAggregating, StateSorted, true},
		{StateSorted, StateCompleted, true},
		{StateSorted, StateFailed, true},

		{StateIdle, StateRunning, false},
		{StateEnumerating, StateAggregating, false},
		{StateAggregating, StateCancelling, false},
		{StateCompleted, StateFailed, false},
		{StateFailed, StateIdle, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStateMachine_IllegalTransition(t *testing.T) {
	sm := &stateMachine{runID: "r", logger: discardLogger()}

	err := sm.transition(StateSorted)
	require.Error(t, err)
	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeIllegalTransition, re.Code)
	assert.Equal(t, StateIdle, sm.state, "a rejected transition leaves the state alone")
}

func TestStateMachine_Fail(t *testing.T) {
	sm := &stateMachine{runID: "r", logger: discardLogger()}
	require.NoError(t, sm.transition(StateEnumerating))

	cause := &RunError{Code: ErrCodeEnumerationFailed, Message: "x"}
	assert.Same(t, cause, sm.fail(cause))
	assert.Equal(t, StateFailed, sm.state)
	assert.True(t, sm.state.Terminal())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "cancelling", StateCancelling.String())
	assert.Equal(t, "state(99)", State(99).String())
}
