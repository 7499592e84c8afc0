package gst

import "fmt"

// State is the state of an element. States are totally ordered.
type State int

// Element states.
const (
	StateVoidPending State = iota
	StateNull
	StateReady
	StatePaused
	StatePlaying
)

var stateNames = [...]string{"VOID_PENDING", "NULL", "READY", "PAUSED", "PLAYING"}

func (s State) String() string {
	if s < StateVoidPending || s > StatePlaying {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// StateFromCode converts integer code into State.
func StateFromCode(code int) (State, error) {
	if code < int(StateVoidPending) || code > int(StatePlaying) {
		return StateVoidPending, &CodeError{Type: "State", Code: code}
	}
	return State(code), nil
}

// step returns the next state on the way to target.
func (s State) step(target State) State {
	switch {
	case s < target:
		return s + 1
	case s > target:
		return s - 1
	}
	return s
}

// StateChangeReturn is the outcome of a state change request.
type StateChangeReturn int

// State change results.
const (
	StateChangeFailure StateChangeReturn = iota
	StateChangeSuccess
	StateChangeAsync
	StateChangeNoPreroll
)

var returnNames = [...]string{"FAILURE", "SUCCESS", "ASYNC", "NO_PREROLL"}

func (r StateChangeReturn) String() string {
	if r < StateChangeFailure || r > StateChangeNoPreroll {
		return fmt.Sprintf("StateChangeReturn(%d)", int(r))
	}
	return returnNames[r]
}

// StateChangeReturnFromCode converts integer code into StateChangeReturn.
func StateChangeReturnFromCode(code int) (StateChangeReturn, error) {
	if code < int(StateChangeFailure) || code > int(StateChangeNoPreroll) {
		return StateChangeFailure, &CodeError{Type: "StateChangeReturn", Code: code}
	}
	return StateChangeReturn(code), nil
}

// StateChange is a single step between two adjacent states.
type StateChange struct {
	From State
	To   State
}

// Transitions.
var (
	NullToReady     = StateChange{StateNull, StateReady}
	ReadyToPaused   = StateChange{StateReady, StatePaused}
	PausedToPlaying = StateChange{StatePaused, StatePlaying}
	PlayingToPaused = StateChange{StatePlaying, StatePaused}
	PausedToReady   = StateChange{StatePaused, StateReady}
	ReadyToNull     = StateChange{StateReady, StateNull}
)

func (t StateChange) String() string {
	return t.From.String() + "_TO_" + t.To.String()
}

// upward returns true if transition goes towards PLAYING.
func (t StateChange) upward() bool {
	return t.From < t.To
}
