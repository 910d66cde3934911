// Package engine owns the four simulation components and drives the
// variable-step main loop: it computes the instantaneous power
// balance at the capacitor node, truncates each step to the next threshold
// crossing, and dispatches component updates in a fixed order.
package engine

import (
	"fmt"
	"log"

	"intermittent-sim/internal/simcore/capacitor"
	"intermittent-sim/internal/simcore/converter"
	"intermittent-sim/internal/simcore/harvester"
	"intermittent-sim/internal/simcore/load"
)

const defaultMaxStepTicks = 1000 // 1 ms at the default 1 us dt_base

// Config carries the engine-level settings not owned by any one component.
type Config struct {
	DTBaseSeconds float64
	MaxStepTicks  int64 // 0 -> defaultMaxStepTicks
	// Verbose, if set, makes Run log a [engine] line at start and end of a
	// simulation, instead of a package-global verbosity switch.
	Verbose bool
}

// Sample is the per-step scratch state handed to the logger.
type Sample struct {
	T                  int64
	Dt                 int64
	VCap, VIn, IIn     float64
	VOut, IOut         float64
	EtaIn, EtaOut      float64
	ILeak, INet        float64
	CapEvent           capacitor.Event
	LoadSignal         load.Signal
}

// Logger receives one Sample per committed step. Implementations must not
// retain the Sample's zero-value fields across calls.
type Logger interface {
	LogStep(Sample)
}

type nopLogger struct{}

func (nopLogger) LogStep(Sample) {}

// ThresholdCrossingMiss indicates the engine advanced time past a scheduled
// threshold crossing — a bug in compute_next_update, never expected in a
// correct run.
type ThresholdCrossingMiss struct {
	T, Scheduled int64
}

func (e *ThresholdCrossingMiss) Error() string {
	return fmt.Sprintf("engine: advanced past scheduled update (t=%d, scheduled=%d)", e.T, e.Scheduled)
}

// Simulation owns one instance of each component family and runs the main
// loop to a requested end time.
type Simulation struct {
	Harvester harvester.Harvester
	Capacitor *capacitor.Capacitor
	Converter converter.Converter
	Load      load.Load

	cfg    Config
	Logger Logger

	t int64
}

// New wires the four components into a fresh, unreset Simulation.
func New(h harvester.Harvester, c *capacitor.Capacitor, conv converter.Converter, l load.Load, cfg Config) *Simulation {
	if cfg.MaxStepTicks <= 0 {
		cfg.MaxStepTicks = defaultMaxStepTicks
	}
	if cfg.DTBaseSeconds <= 0 {
		cfg.DTBaseSeconds = 1e-6
	}
	return &Simulation{Harvester: h, Capacitor: c, Converter: conv, Load: l, cfg: cfg, Logger: nopLogger{}}
}

// Reset re-initialises all sub-components from the capacitor's initial
// voltage, matching each component's reset() contract.
func (s *Simulation) Reset() error {
	s.Capacitor.Reset()
	vCap := s.Capacitor.Voltage()

	if err := s.Harvester.Reset(vCap); err != nil {
		return err
	}
	if r, ok := s.Converter.(converter.Resettable); ok {
		r.Reset(vCap)
	}
	vOut := s.Converter.OutputV(vCap)
	if err := s.Load.Reset(vOut, vCap); err != nil {
		return err
	}

	s.t = 0
	return nil
}

// Run advances the simulation from t=0 to untilTicks, inclusive of a final
// forced log sample at the settled end state.
func (s *Simulation) Run(untilTicks int64) error {
	if s.cfg.Verbose {
		log.Printf("[engine] running to t=%d", untilTicks)
	}
	if err := s.Reset(); err != nil {
		return err
	}
	if tc, ok := s.Harvester.(harvester.TraceCoverageChecker); ok {
		if err := tc.CheckTraceCoverage(untilTicks); err != nil {
			return err
		}
	}
	for s.t < untilTicks {
		sample, err := s.step(untilTicks)
		if err != nil {
			return err
		}
		s.Logger.LogStep(sample)
	}
	s.Logger.LogStep(s.finalSample())
	s.finalize()
	if s.cfg.Verbose {
		log.Printf("[engine] settled at t=%d", s.t)
	}
	return nil
}

// finalSample evaluates the component outputs at the settled end state
// without advancing time, so the logger sees the state at t == untilTicks
// rather than only the pre-advance samples the loop itself produces.
func (s *Simulation) finalSample() Sample {
	vCap := s.Capacitor.Voltage()

	ocv, hasOCV := s.Harvester.OCV(s.t)
	effectiveOCV := ocv
	if !hasOCV {
		effectiveOCV = vCap
	}
	vIn := s.Converter.InputV(vCap, effectiveOCV, s.t)
	iIn := s.Harvester.Current(s.t, vIn)
	etaIn := s.Converter.InputEta(vIn, iIn)

	vOut := s.Converter.OutputV(vCap)
	iOut := s.Load.Current(vOut)
	etaOut := s.Converter.OutputEta(vCap, iOut)

	iLeak := s.Converter.Quiescent(vCap)

	return Sample{
		T: s.t, Dt: 0,
		VCap: vCap, VIn: vIn, IIn: iIn,
		VOut: vOut, IOut: iOut,
		EtaIn: etaIn, EtaOut: etaOut,
		ILeak: iLeak, INet: netCurrent(vCap, vIn, iIn, etaIn, vOut, iOut, etaOut, iLeak),
	}
}

// Finalizer is implemented by components that need to close out
// whole-run bookkeeping (e.g. a per-component log's trailing dt) once the
// main loop has settled at its end tick. It is optional: most components
// have nothing to finalize.
type Finalizer interface{ Finalize(t int64) }

func (s *Simulation) finalize() {
	for _, c := range [...]any{s.Harvester, s.Converter, s.Load} {
		if f, ok := c.(Finalizer); ok {
			f.Finalize(s.t)
		}
	}
}

// step performs one iteration of the main loop and
// returns the sample describing it.
func (s *Simulation) step(untilTicks int64) (Sample, error) {
	vCap := s.Capacitor.Voltage()

	ocv, hasOCV := s.Harvester.OCV(s.t)
	effectiveOCV := ocv
	if !hasOCV {
		effectiveOCV = vCap
	}
	vIn := s.Converter.InputV(vCap, effectiveOCV, s.t)
	iIn := s.Harvester.Current(s.t, vIn)
	etaIn := s.Converter.InputEta(vIn, iIn)

	vOut := s.Converter.OutputV(vCap)
	iOut := s.Load.Current(vOut)
	etaOut := s.Converter.OutputEta(vCap, iOut)

	iLeak := s.Converter.Quiescent(vCap)

	iNet := netCurrent(vCap, vIn, iIn, etaIn, vOut, iOut, etaOut, iLeak)

	dt, err := s.computeNextUpdate(iNet, untilTicks)
	if err != nil {
		return Sample{}, err
	}

	capEvent := s.Capacitor.Update(dt, iNet)
	vCapNew := s.Capacitor.Voltage()

	s.Harvester.Update(s.t, dt, vIn)

	if stp, ok := s.Converter.(converter.Steppable); ok {
		stp.Step(vCapNew)
	}

	vOutNew := s.Converter.OutputV(vCapNew)
	vOutEvents := s.Load.Monitor().Events(vOut, vOutNew)
	vCapEvents := s.Load.CapMonitor().Events(vCap, vCapNew)
	signal, err := s.Load.Update(s.t, dt, vOutNew, vCapNew, vOutEvents, vCapEvents)
	if err != nil {
		return Sample{}, err
	}
	if signal == load.SignalForceOff {
		s.Converter.TurnOff(vCapNew)
	}

	sample := Sample{
		T: s.t, Dt: dt,
		VCap: vCap, VIn: vIn, IIn: iIn,
		VOut: vOut, IOut: iOut,
		EtaIn: etaIn, EtaOut: etaOut,
		ILeak: iLeak, INet: iNet,
		CapEvent: capEvent, LoadSignal: signal,
	}

	s.t += dt
	return sample, nil
}

// netCurrent implements the power-conserving node equation: i_net = i_in*(v_in/v_cap)*eta_in - i_out*(v_out/v_cap)/eta_out - i_leak,
// with the v_in/v_cap and v_out/v_cap ratios taken as 1 when v_cap == 0.
func netCurrent(vCap, vIn, iIn, etaIn, vOut, iOut, etaOut, iLeak float64) float64 {
	inRatio, outRatio := 1.0, 1.0
	if vCap != 0 {
		inRatio = vIn / vCap
		outRatio = vOut / vCap
	}
	outEta := etaOut
	if outEta == 0 {
		outEta = 1
	}
	return iIn*inRatio*etaIn - iOut*outRatio/outEta - iLeak
}

// computeNextUpdate takes the minimum of the harvester's, load's and
// threshold-truncated capacitor next-change predictions and the configured
// max step, clamped so the run never overshoots untilTicks.
func (s *Simulation) computeNextUpdate(iNet float64, untilTicks int64) (int64, error) {
	vCap := s.Capacitor.Voltage()
	best := s.cfg.MaxStepTicks

	if remaining := untilTicks - s.t; remaining < best {
		best = remaining
	}

	if ticks, ok := s.Harvester.NextChange(s.t); ok && ticks < best {
		best = ticks
	}
	if ticks, ok := s.Load.NextChange(s.t); ok && ticks < best {
		best = ticks
	}

	effective := s.Capacitor.EffectiveCurrent(iNet)
	sign := 1.0
	if effective < 0 {
		sign = -1
	} else if effective == 0 {
		sign = 0
	}

	if vThr, ok := s.Load.Monitor().NextThreshold(vCap, sign); ok {
		if ticks, ok := s.Capacitor.NextChange(iNet, vThr, true); ok && ticks < best {
			best = ticks
		}
	}
	if vThr, ok := s.Converter.Monitor().NextThreshold(vCap, sign); ok {
		if ticks, ok := s.Capacitor.NextChange(iNet, vThr, true); ok && ticks < best {
			best = ticks
		}
	}

	if best <= 0 {
		return 0, &ThresholdCrossingMiss{T: s.t, Scheduled: s.t}
	}
	return best, nil
}

// Time returns the engine's current tick.
func (s *Simulation) Time() int64 { return s.t }
