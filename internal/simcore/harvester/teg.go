package harvester

import (
	"log"

	"intermittent-sim/internal/tracedata"
)

// TEGConfig configures an irradiance-equivalent MPP-current time series
// harvester.
type TEGConfig struct {
	TraceFilePath string
	DTBaseSeconds float64
	Verbose       bool
}

// TEG is a harvester that simply replays a time-series of MPP current; it
// has no OCV concept, so it can only be used with converters that do not
// consult OCV (e.g. a direct diode-style coupling).
type TEG struct {
	cfg      TEGConfig
	trace    []tracedata.TEGPoint
	traceIdx int
	current  float64
	stats    Stats
}

func NewTEG(cfg TEGConfig) (*TEG, error) {
	if cfg.TraceFilePath == "" {
		return nil, &ConfigError{Msg: "teg harvester requires a trace file"}
	}
	if cfg.DTBaseSeconds <= 0 {
		cfg.DTBaseSeconds = 1e-6
	}
	if cfg.Verbose {
		log.Printf("[harvester] creating teg harvester from %s", cfg.TraceFilePath)
	}
	return &TEG{cfg: cfg}, nil
}

func (h *TEG) Reset(initialVoltage float64) error {
	trace, err := tracedata.LoadTEGTrace(h.cfg.TraceFilePath, h.cfg.DTBaseSeconds)
	if err != nil {
		return err
	}
	h.trace = trace
	h.traceIdx = 0
	if len(h.trace) > 0 {
		h.current = h.trace[0].BoostIChg
	}
	h.stats = Stats{}
	return nil
}

// OCV is unusable for TEG; returns (0, false).
func (h *TEG) OCV(t int64) (float64, bool) { return 0, false }

func (h *TEG) step(t int64) {
	if h.traceIdx > 0 && t < h.trace[h.traceIdx].Tick {
		h.traceIdx = 0
	}
	for h.traceIdx+1 < len(h.trace) && h.trace[h.traceIdx+1].Tick <= t {
		h.traceIdx++
	}
	if h.traceIdx < len(h.trace) {
		h.current = h.trace[h.traceIdx].BoostIChg
	}
}

func (h *TEG) Current(t int64, voltage float64) float64 {
	h.step(t)
	return h.current
}

func (h *TEG) NextChange(t int64) (int64, bool) {
	h.step(t)
	if h.traceIdx+1 >= len(h.trace) {
		return 0, false
	}
	next := h.trace[h.traceIdx+1].Tick - t
	if next <= 0 {
		return 0, false
	}
	return next, true
}

// Update accumulates harvested energy as i*v*dt*dt_base, matching the other
// harvesters' statistic (the original Python TEG source multiplies by
// `time` instead of `dt`, a bookkeeping defect not replicated here).
func (h *TEG) Update(t, dt int64, voltage float64) {
	h.stats.EnergyTotalJ += h.current * voltage * float64(dt) * h.cfg.DTBaseSeconds
}

func (h *TEG) Stats() Stats { return h.stats }

// CheckTraceCoverage reports whether untilTick is covered by the trace
// loaded at Reset.
func (h *TEG) CheckTraceCoverage(untilTick int64) error {
	if len(h.trace) == 0 {
		return nil
	}
	last := h.trace[len(h.trace)-1].Tick
	if untilTick > last {
		return &TraceOutOfRangeError{RequestedTick: untilTick, TraceLastTick: last}
	}
	return nil
}
