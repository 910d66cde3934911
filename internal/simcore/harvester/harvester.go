// Package harvester implements the four pluggable current-source families:
// Artificial, IVCurve, SolarPanel and TEG. All implement the
// common Harvester interface so the engine can treat them polymorphically.
package harvester

// Harvester is the contract every variant implements.
type Harvester interface {
	// Reset (re)initializes internal state given the capacitor's initial
	// voltage; variants that load trace/LUT data do so here.
	Reset(initialVoltage float64) error
	// Current returns the harvester's output current at tick t for the
	// voltage presented to it.
	Current(t int64, voltage float64) float64
	// OCV returns the open-circuit voltage at tick t, or (0, false) if the
	// variant has no notion of OCV (e.g. TEG).
	OCV(t int64) (float64, bool)
	// NextChange returns ticks until the harvester's own output would next
	// change (trace step, waveform edge), or (0, false) if none.
	NextChange(t int64) (int64, bool)
	// Update advances bookkeeping (stats, log) to t+dt.
	Update(t, dt int64, voltage float64)
}

// Stats accumulates total harvested energy, in the spirit of the Python
// Artificial/TEG sources' `stats['energy_total']`.
type Stats struct {
	EnergyTotalJ float64
}

// TraceCoverageChecker is implemented by harvesters backed by a finite,
// file-loaded trace (SolarPanel, TEG). The engine calls CheckTraceCoverage
// once the requested run length is known, before the main loop starts,
// since the trace is only loaded at Reset.
type TraceCoverageChecker interface {
	CheckTraceCoverage(untilTick int64) error
}
