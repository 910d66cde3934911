// Package converter implements the energy-path shaping components between
// harvester, capacitor and load: Diode, LDO, Hysteresis,
// BuckConverter, BuckBoost and BQ25570.
package converter

import "intermittent-sim/internal/simcore/voltagemonitor"

// Converter is the contract every variant implements.
type Converter interface {
	// InputV returns the voltage the harvester actually sees.
	InputV(vCap, ocv float64, t int64) float64
	// InputEta returns the input-path conversion efficiency in [0,1].
	InputEta(vIn, iIn float64) float64
	// OutputV returns the voltage delivered to the load (0 when disabled).
	OutputV(vCap float64) float64
	// OutputEta returns the output-path conversion efficiency in [0,1].
	OutputEta(vCap, iOut float64) float64
	// Quiescent returns the converter's own quiescent current draw.
	Quiescent(vCap float64) float64
	// TurnOff is invoked by the Load to force the output rail down.
	TurnOff(vCap float64)
	// Monitor exposes the converter's embedded threshold registry so the
	// engine can predict capacitor-voltage crossings relevant to the
	// converter's own state transitions.
	Monitor() *voltagemonitor.Monitor
}

// ConfigError is returned for unreachable-state converter setup, including
// an unsupported BQ25570 v_out rail.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "converter config: " + e.Msg }

// Resettable is implemented by converters whose internal latch depends on
// the initial capacitor voltage (LDO and Hysteresis in hysteresis mode,
// BQ25570). The engine type-asserts for this at reset time.
type Resettable interface {
	Reset(capVoltage float64)
}

// Steppable is implemented by converters that carry state advanced once per
// engine step from the new capacitor voltage (hysteresis latches, BQ25570's
// four-state classifier). The engine type-asserts for this after each step.
type Steppable interface {
	Step(capVoltage float64)
}
