package permissions

import (
	"fmt"
	"strings"
)

// State is the platform consent state for displaying system notifications.
type State string

const (
	StateGranted State = "granted"
	StateDenied  State = "denied"
	StateDefault State = "default"
	// StateUnknown means the state was never queried or the platform lacks the capability.
	StateUnknown State = ""
)

// ParseState converts a wire value into a State. Empty input yields StateUnknown.
func ParseState(raw string) (State, error) {
	switch state := State(strings.ToLower(strings.TrimSpace(raw))); state {
	case StateGranted, StateDenied, StateDefault, StateUnknown:
		return state, nil
	default:
		return StateUnknown, fmt.Errorf("permissions: unknown state %q", raw)
	}
}

// Answerable reports whether s can be the outcome of a prompt.
func (s State) Answerable() bool {
	return s == StateGranted || s == StateDenied || s == StateDefault
}
