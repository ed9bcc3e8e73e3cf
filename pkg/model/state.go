package model

// OpState represents the lifecycle state of an operation.
type OpState string

const (
	OpStateReady     OpState = "READY"
	OpStateAwaiting  OpState = "AWAITING"
	OpStateAwaitDone OpState = "AWAIT_DONE"
	OpStateRunning   OpState = "RUNNING"
	OpStateFinished  OpState = "FINISHED"
	OpStateCanceled  OpState = "CANCELED"
)

// String returns the string representation of the operation state.
func (s OpState) String() string {
	return string(s)
}

// IsTerminal returns true if the operation is in a final state.
func (s OpState) IsTerminal() bool {
	switch s {
	case OpStateFinished, OpStateCanceled:
		return true
	}
	return false
}

// ValidOpTransitions defines the allowed forward transitions.
// OpStateCanceled is additionally reachable from every non-terminal state.
var ValidOpTransitions = map[OpState][]OpState{
	OpStateReady:     {OpStateAwaiting, OpStateAwaitDone},
	OpStateAwaiting:  {OpStateAwaitDone},
	OpStateAwaitDone: {OpStateRunning},
	OpStateRunning:   {OpStateFinished},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s OpState) CanTransitionTo(next OpState) bool {
	if next == OpStateCanceled {
		return !s.IsTerminal()
	}
	for _, allowed := range ValidOpTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
