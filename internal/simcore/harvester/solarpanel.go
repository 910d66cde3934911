package harvester

import (
	"log"
	"math"

	"intermittent-sim/internal/tracedata"
)

const solarLUTPoints = 601 // samples evenly spaced over [0, V_oc], V_oc scaled by SeriesCells

// SolarPanelConfig configures the irradiance-times-datasheet PV model.
type SolarPanelConfig struct {
	TraceFilePath string
	ISC           float64 // short-circuit current, A (single cell)
	IMPP          float64 // MPP current, A (single cell)
	VMPP          float64 // MPP voltage, V (single cell)
	VOCNom        float64 // nominal open-circuit voltage, V (single cell)
	SeriesCells   int     // voltage multiplier; default 1
	ParallelCells int     // current multiplier; default 1
	DTBaseSeconds float64
	Verbose       bool
}

// SolarPanel is an irradiance time-series harvester driven by a
// Campbell-fit single-diode PV approximation.
type SolarPanel struct {
	cfg SolarPanelConfig

	vOCEffective float64
	vFactor      [solarLUTPoints]float64

	trace      []tracedata.IrradiancePoint
	traceIdx   int
	irradiance float64

	stats Stats
}

func NewSolarPanel(cfg SolarPanelConfig) (*SolarPanel, error) {
	if cfg.TraceFilePath == "" {
		return nil, &ConfigError{Msg: "solar panel requires a trace file"}
	}
	if cfg.ISC <= 0 || cfg.IMPP <= 0 || cfg.VOCNom <= 0 {
		return nil, &ConfigError{Msg: "solar panel requires isc, impp, v_oc_nom"}
	}
	if cfg.SeriesCells <= 0 {
		cfg.SeriesCells = 1
	}
	if cfg.ParallelCells <= 0 {
		cfg.ParallelCells = 1
	}
	if cfg.DTBaseSeconds <= 0 {
		cfg.DTBaseSeconds = 1e-6
	}
	if cfg.Verbose {
		log.Printf("[harvester] creating solar panel harvester from %s", cfg.TraceFilePath)
	}
	return &SolarPanel{cfg: cfg}, nil
}

func (h *SolarPanel) Reset(initialVoltage float64) error {
	trace, err := tracedata.LoadIrradianceTrace(h.cfg.TraceFilePath, h.cfg.DTBaseSeconds)
	if err != nil {
		return err
	}
	h.trace = trace.Samples
	h.traceIdx = 0
	if len(h.trace) > 0 {
		h.irradiance = h.trace[0].IrradianceW
	}

	h.vOCEffective = h.cfg.VOCNom * float64(h.cfg.SeriesCells)
	iscScaled := h.cfg.ISC * float64(h.cfg.ParallelCells)
	imppScaled := h.cfg.IMPP * float64(h.cfg.ParallelCells)
	vmppScaled := h.cfg.VMPP * float64(h.cfg.SeriesCells)

	// I(v) = Isc * (1 - exp(ln(1 - Impp/Isc) * (v - Voc) / (Vmpp - Voc)))
	lnTerm := math.Log(1 - imppScaled/iscScaled)
	for k := 0; k < solarLUTPoints; k++ {
		v := float64(k) / float64(solarLUTPoints-1) * h.vOCEffective
		if v >= h.vOCEffective {
			h.vFactor[k] = 0
			continue
		}
		h.vFactor[k] = iscScaled * (1 - math.Exp(lnTerm*(v-h.vOCEffective)/(vmppScaled-h.vOCEffective)))
	}
	h.stats = Stats{}
	return nil
}

// OCV returns the nominal open-circuit voltage. The irradiance-scaled OCV
// formula is commented out in the original Python tool and only the
// nominal value is ever returned there, so that stays the contract here too.
func (h *SolarPanel) OCV(t int64) (float64, bool) { return h.vOCEffective, true }

func (h *SolarPanel) stepIrradiance(t int64) {
	if h.traceIdx > 0 && t < h.trace[h.traceIdx].Tick {
		h.traceIdx = 0
	}
	for h.traceIdx+1 < len(h.trace) && h.trace[h.traceIdx+1].Tick <= t {
		h.traceIdx++
	}
	if h.traceIdx < len(h.trace) {
		h.irradiance = h.trace[h.traceIdx].IrradianceW
	}
}

func (h *SolarPanel) Current(t int64, voltage float64) float64 {
	h.stepIrradiance(t)
	if voltage >= h.vOCEffective {
		return 0
	}
	idx := int(voltage / h.vOCEffective * float64(solarLUTPoints-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= solarLUTPoints {
		idx = solarLUTPoints - 1
	}
	return h.irradiance / 1000.0 * h.vFactor[idx]
}

func (h *SolarPanel) NextChange(t int64) (int64, bool) {
	h.stepIrradiance(t)
	if h.traceIdx+1 >= len(h.trace) {
		return 0, false
	}
	next := h.trace[h.traceIdx+1].Tick - t
	if next <= 0 {
		return 0, false
	}
	return next, true
}

func (h *SolarPanel) Update(t, dt int64, voltage float64) {
	i := h.Current(t, voltage)
	h.stats.EnergyTotalJ += i * voltage * float64(dt) * h.cfg.DTBaseSeconds
}

func (h *SolarPanel) Stats() Stats { return h.stats }

// TraceOutOfRangeError surfaces a simulation length beyond the loaded
// trace.
type TraceOutOfRangeError struct {
	RequestedTick int64
	TraceLastTick int64
}

func (e *TraceOutOfRangeError) Error() string {
	return "trace out of range: requested beyond last sample"
}

// CheckTraceCoverage reports whether untilTick is covered by the trace
// loaded at Reset; callers should surface TraceOutOfRangeError before
// running a simulation longer than the data they have.
func (h *SolarPanel) CheckTraceCoverage(untilTick int64) error {
	if len(h.trace) == 0 {
		return nil
	}
	last := h.trace[len(h.trace)-1].Tick
	if untilTick > last {
		return &TraceOutOfRangeError{RequestedTick: untilTick, TraceLastTick: last}
	}
	return nil
}
