// Package load implements the current-drawing state machines driven by
// supply voltage and internal timers: ConstantLoad, TaskLoad,
// JITLoad and AdvancedJITLoad. All implement the common Load interface so
// the engine can treat them polymorphically.
package load

import "intermittent-sim/internal/simcore/voltagemonitor"

// Signal is an out-of-band instruction the load hands back to the engine.
type Signal int

const (
	SignalNone Signal = iota
	// SignalForceOff instructs the engine to call converter.TurnOff.
	SignalForceOff
)

// Load is the contract every variant implements.
type Load interface {
	// Reset places the load in its initial phase and installs its
	// VoltageMonitor thresholds.
	Reset(vOutInitial, vCapInitial float64) error
	// Current returns the demanded load current given the currently
	// delivered supply voltage.
	Current(vOut float64) float64
	// NextChange returns ticks until the load's own next internally
	// scheduled event, or (0, false) if none is pending.
	NextChange(t int64) (int64, bool)
	// Update advances the state machine given the combined signal set for
	// this step: the scheduled event (if t lands on one), and the ordered
	// threshold-crossing event names for v_out and v_cap since the last
	// step. Returns an optional signal for the engine, or a
	// StateMachineViolation if an internal invariant is broken.
	Update(t, dt int64, vOut, vCap float64, vOutEvents, vCapEvents []string) (Signal, error)
	// Monitor exposes the load's output-voltage threshold registry.
	Monitor() *voltagemonitor.Monitor
	// CapMonitor exposes the load's capacitor-voltage threshold registry
	// (JITLoad's checkpoint trigger watches v_cap, not v_out).
	CapMonitor() *voltagemonitor.Monitor
}

// ConfigError is a surfaced load config error.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "load config: " + e.Msg }

// StateMachineViolation indicates a Load state handler received an event it
// cannot process in its current state — a bug, never expected in a correct
// run.
type StateMachineViolation struct{ Msg string }

func (e *StateMachineViolation) Error() string { return "load state machine violation: " + e.Msg }
