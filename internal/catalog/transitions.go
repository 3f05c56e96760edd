package catalog

// Application states and the transitions between them:
//
//	INTERESTED ──► APPLIED ──► ACCEPTED
//	    │             │
//	    └─────────────┴──────► REJECTED
//
// ACCEPTED and REJECTED are terminal states.

import "fmt"

// State values mirror the applications.state column.
type State string

const (
	StateInterested State = "INTERESTED"
	StateApplied    State = "APPLIED"
	StateAccepted   State = "ACCEPTED"
	StateRejected   State = "REJECTED"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[State][]State{
	StateInterested: {StateApplied, StateRejected},
	StateApplied:    {StateAccepted, StateRejected},
	// ACCEPTED and REJECTED are terminal: no outgoing transitions
}

// ParseState converts a raw string to a State, returning an error for
// unknown values.
func ParseState(s string) (State, error) {
	st := State(s)
	switch st {
	case StateInterested, StateApplied, StateAccepted, StateRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown application state %q", s)
}

// IsInitial reports whether a new application may start in s.
func IsInitial(s State) bool { return s == StateInterested || s == StateApplied }

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false // terminal state
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for states with no outgoing transitions.
func IsTerminal(s State) bool { return s == StateAccepted || s == StateRejected }
