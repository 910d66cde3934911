package harvester

import (
	"log"
	"math"
)

// Shape selects the Artificial harvester's waveform.
type Shape int

const (
	ShapeConst Shape = iota
	ShapeSquare
	ShapeSine
)

// ArtificialConfig configures the Artificial source.
type ArtificialConfig struct {
	Shape         Shape
	VOC           float64 // open-circuit voltage, default 5
	VOV           float64 // voltage above which output current is forced to 0, default 5
	IHigh         float64
	ILow          float64 // square only
	THighSeconds  float64 // square only
	TLowSeconds   float64 // square only
	PeriodSeconds float64 // sine only
	DTBaseSeconds float64
	Verbose       bool
}

// Artificial is a time-parameterised current source: const / square / sine.
type Artificial struct {
	cfg ArtificialConfig

	tHighTicks int64
	tLowTicks  int64
	periodTick int64

	stats Stats
}

// NewArtificial validates cfg and returns a fresh Artificial harvester.
func NewArtificial(cfg ArtificialConfig) (*Artificial, error) {
	if cfg.DTBaseSeconds <= 0 {
		cfg.DTBaseSeconds = 1e-6
	}
	if cfg.VOC == 0 {
		cfg.VOC = 5
	}
	if cfg.VOV == 0 {
		cfg.VOV = 5
	}
	switch cfg.Shape {
	case ShapeConst:
	case ShapeSquare:
		if cfg.THighSeconds <= 0 && cfg.TLowSeconds <= 0 {
			return nil, &ConfigError{Msg: "square wave requires t_high/t_low"}
		}
	case ShapeSine:
		if cfg.PeriodSeconds <= 0 {
			return nil, &ConfigError{Msg: "sine wave requires period"}
		}
	default:
		return nil, &ConfigError{Msg: "unknown artificial shape"}
	}
	if cfg.Verbose {
		log.Printf("[harvester] creating artificial harvester")
	}
	a := &Artificial{cfg: cfg}
	return a, nil
}

// ConfigError is a surfaced harvester config error.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "harvester config: " + e.Msg }

func (a *Artificial) Reset(initialVoltage float64) error {
	a.tHighTicks = int64(a.cfg.THighSeconds / a.cfg.DTBaseSeconds)
	a.tLowTicks = int64(a.cfg.TLowSeconds / a.cfg.DTBaseSeconds)
	if a.cfg.Shape == ShapeSquare {
		a.periodTick = a.tHighTicks + a.tLowTicks
	} else if a.cfg.Shape == ShapeSine {
		a.periodTick = int64(a.cfg.PeriodSeconds / a.cfg.DTBaseSeconds)
	}
	a.stats = Stats{}
	return nil
}

func (a *Artificial) OCV(t int64) (float64, bool) { return a.cfg.VOC, true }

func (a *Artificial) Current(t int64, voltage float64) float64 {
	if voltage >= a.cfg.VOV {
		return 0
	}
	switch a.cfg.Shape {
	case ShapeConst:
		return a.cfg.IHigh
	case ShapeSquare:
		cycle := t % a.periodTick
		if cycle < a.tHighTicks {
			return a.cfg.IHigh
		}
		return a.cfg.ILow
	case ShapeSine:
		cycle := t % a.periodTick
		phase := float64(cycle) / float64(a.periodTick)
		return a.cfg.IHigh * 0.5 * (math.Sin(phase*2*math.Pi) + 1)
	}
	return 0
}

func (a *Artificial) NextChange(t int64) (int64, bool) {
	switch a.cfg.Shape {
	case ShapeSquare:
		cycle := t % a.periodTick
		if cycle < a.tHighTicks {
			return a.tHighTicks - cycle, true
		}
		return a.periodTick - cycle, true
	default:
		return 0, false
	}
}

func (a *Artificial) Update(t, dt int64, voltage float64) {
	i := a.Current(t, voltage)
	a.stats.EnergyTotalJ += i * voltage * float64(dt) * a.cfg.DTBaseSeconds
}

func (a *Artificial) Stats() Stats { return a.stats }
