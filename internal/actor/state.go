// Package actor implements the lifecycle-managed data actor: subscribe/
// unsubscribe/request primitives for market data, dispatch of incoming
// typed messages to user-overridable handlers, and timer callbacks.
package actor

import (
	"fmt"

	"coreruntime/internal/core"
)

var errInvalidStateTransition = core.ErrInvalidStateTransition

// State is a DataActor's lifecycle state.
type State int

const (
	StatePreInitialized State = iota
	StateReady
	StateRunning
	StateStopped
	StateDegraded
	StateFaulted
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StatePreInitialized:
		return "PreInitialized"
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	case StateDegraded:
		return "Degraded"
	case StateFaulted:
		return "Faulted"
	case StateDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// trigger identifies a requested state transition.
type trigger int

const (
	triggerRegister trigger = iota
	triggerStart
	triggerStop
	triggerResume
	triggerDegrade
	triggerFault
	triggerDispose
)

// transitions enumerates every legal (from, trigger) -> to edge. Any pair
// absent from this table fails with ErrInvalidStateTransition. Disposed is
// reachable from every non-terminal state via triggerDispose.
var transitions = map[State]map[trigger]State{
	StatePreInitialized: {
		triggerRegister: StateReady,
		triggerDispose:  StateDisposed,
	},
	StateReady: {
		triggerStart:   StateRunning,
		triggerDispose: StateDisposed,
	},
	StateRunning: {
		triggerStop:    StateStopped,
		triggerDegrade: StateDegraded,
		triggerFault:   StateFaulted,
		triggerDispose: StateDisposed,
	},
	StateStopped: {
		triggerResume:  StateRunning,
		triggerDispose: StateDisposed,
	},
	StateDegraded: {
		triggerStop:    StateStopped,
		triggerFault:   StateFaulted,
		triggerDispose: StateDisposed,
	},
	StateFaulted: {
		triggerDispose: StateDisposed,
	},
}

func nextState(from State, t trigger) (State, error) {
	edges, ok := transitions[from]
	if !ok {
		return from, fmt.Errorf("no transitions defined from state %s: %w", from, errInvalidStateTransition)
	}
	to, ok := edges[t]
	if !ok {
		return from, fmt.Errorf("illegal transition from state %s: %w", from, errInvalidStateTransition)
	}
	return to, nil
}
