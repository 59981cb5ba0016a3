package blescan

import "strings"

// AdapterState is the power state of the local Bluetooth adapter.
type AdapterState int

// Adapter states.
const (
	StateUnknown AdapterState = iota
	StateOff
	StateTurningOff
	StateOn
	StateTurningOn
)

func (s AdapterState) String() string {
	switch s {
	case StateOff:
		return "Off"
	case StateTurningOff:
		return "TurningOff"
	case StateOn:
		return "On"
	case StateTurningOn:
		return "TurningOn"
	}
	return "Unknown"
}

// ParseAdapterState is the inverse of AdapterState.String (case insensitive).
func ParseAdapterState(s string) AdapterState {
	for _, st := range []AdapterState{StateOff, StateTurningOff, StateOn, StateTurningOn} {
		if strings.EqualFold(st.String(), s) {
			return st
		}
	}
	return StateUnknown
}

// AdapterStateObserver is notified of adapter power transitions, on the
// monitor's goroutine.
type AdapterStateObserver interface {
	OnStateChanged(s AdapterState)
}

// AdapterStateFunc adapts a function to an AdapterStateObserver.
type AdapterStateFunc func(s AdapterState)

// OnStateChanged ...
func (f AdapterStateFunc) OnStateChanged(s AdapterState) { f(s) }

// AdapterStateMonitor watches the adapter power state.
type AdapterStateMonitor interface {
	// Start begins delivering transitions to obs. obs must not be nil.
	Start(obs AdapterStateObserver) error
	// Stop ends monitoring. Stopping a monitor that is not started is a no-op.
	Stop() error
	// State reads the current state.
	State() (AdapterState, error)
}
