// Package capacitor implements the scalar charge integrator shared by every
// simulation: Ideal and Tantalum variants, both driven by the same
// tick-based update/next-change contract.
package capacitor

import (
	"log"
	"math"
)

// Event tags the outcome of the most recent Update call.
type Event int

const (
	EventNone Event = iota
	EventOvervoltage
	EventEmpty
)

func (e Event) String() string {
	switch e {
	case EventOvervoltage:
		return "OVERVOLTAGE"
	case EventEmpty:
		return "EMPTY"
	default:
		return "NONE"
	}
}

// Kind selects the leakage model.
type Kind int

const (
	Ideal Kind = iota
	Tantalum
)

// Config is the on-disk/constructor shape for a capacitor.
type Config struct {
	Kind          Kind
	CapacitanceF  float64
	VRated        float64
	VInitial      float64
	Log           bool
	DTBaseSeconds float64 // tick length in seconds; 1e-6 (1us) by default
	Verbose       bool
}

// Stats accumulates cumulative leaked energy, matching the original's
// `energy_leaked` statistic.
type Stats struct {
	EnergyLeaked float64
}

// Capacitor is the owned-by-Simulation charge integrator.
type Capacitor struct {
	cfg     Config
	voltage float64
	stats   Stats
}

// New validates cfg and returns a fresh Capacitor in its reset state.
func New(cfg Config) (*Capacitor, error) {
	if cfg.CapacitanceF <= 0 {
		return nil, &ConfigError{Msg: "capacitance must be > 0"}
	}
	if cfg.VRated <= 0 {
		return nil, &ConfigError{Msg: "v_rated must be > 0"}
	}
	if cfg.DTBaseSeconds <= 0 {
		cfg.DTBaseSeconds = 1e-6
	}
	if cfg.Verbose {
		log.Printf("[capacitor] creating capacitor")
	}
	c := &Capacitor{cfg: cfg}
	c.Reset()
	return c, nil
}

// ConfigError is returned for unreachable-state setup.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "capacitor config: " + e.Msg }

// Reset restores voltage to VInitial and clears statistics.
func (c *Capacitor) Reset() {
	c.voltage = c.cfg.VInitial
	c.stats = Stats{}
}

// Voltage returns the current capacitor voltage.
func (c *Capacitor) Voltage() float64 { return c.voltage }

// Stats returns a copy of the accumulated statistics.
func (c *Capacitor) Stats() Stats { return c.stats }

// Rated returns the capacitor's rated voltage.
func (c *Capacitor) Rated() float64 { return c.cfg.VRated }

// leakage returns the leakage current drawn by the dielectric at the
// current operating voltage (zero for the Ideal variant).
func (c *Capacitor) leakage() float64 {
	if c.cfg.Kind != Tantalum {
		return 0
	}
	// k(v_rated) = 0.05 * 20^(2.25/v_rated), per manufacturer fit.
	k := 0.05 * math.Pow(20, 2.25/c.cfg.VRated)
	iLeak := c.cfg.CapacitanceF * 0.01 * c.cfg.VRated * k
	return iLeak * c.voltage
}

// Update advances the capacitor by dt ticks under net current iNet,
// returning the event raised (if any).
func (c *Capacitor) Update(dt int64, iNet float64) Event {
	iLeak := c.leakage()
	iEff := iNet - iLeak
	dtSeconds := float64(dt) * c.cfg.DTBaseSeconds
	c.stats.EnergyLeaked += iLeak * c.voltage * dtSeconds

	c.voltage += iEff * dtSeconds / c.cfg.CapacitanceF

	event := EventNone
	if c.voltage > c.cfg.VRated {
		event = EventOvervoltage
	}
	if c.voltage < 0 {
		c.voltage = 0
		event = EventEmpty
	}
	return event
}

// EffectiveCurrent returns iNet net of leakage — the actual rate of change
// driving the voltage derivative, used by callers to pick a threshold
// search direction that accounts for Tantalum leakage even when iNet is 0.
func (c *Capacitor) EffectiveCurrent(iNet float64) float64 {
	return iNet - c.leakage()
}

// NextChange solves analytically, under constant current iNet, the number
// of ticks until voltage reaches vThr. It returns (0, false) if vThr is
// unset, iNet is zero, the target is on the wrong side of the current
// voltage given the sign of iNet, or the computed tick count rounds to
// zero (a zero-tick result is reported as "no prediction" to prevent loop
// stalls).
func (c *Capacitor) NextChange(iNet float64, vThr float64, vThrSet bool) (int64, bool) {
	if !vThrSet {
		return 0, false
	}
	iEff := iNet - c.leakage()
	if iEff == 0 {
		return 0, false
	}
	if iEff < 0 && vThr > c.voltage {
		return 0, false
	}
	if iEff > 0 && vThr < c.voltage {
		return 0, false
	}
	seconds := c.cfg.CapacitanceF * (vThr - c.voltage) / iEff
	ticks := int64(seconds / c.cfg.DTBaseSeconds)
	if ticks == 0 {
		return 0, false
	}
	return ticks, true
}
