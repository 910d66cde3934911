package harvester

import (
	"log"
	"sort"

	"intermittent-sim/internal/tracedata"
)

// IVCurveConfig configures a static I-V table harvester.
type IVCurveConfig struct {
	FilePath      string
	DTBaseSeconds float64
	Verbose       bool
}

// IVCurve is a harvester backed by a static (voltage, current) table,
// linearly interpolated between samples.
type IVCurve struct {
	cfg    IVCurveConfig
	points []tracedata.IVPoint
	ocv    float64
	stats  Stats
}

func NewIVCurve(cfg IVCurveConfig) (*IVCurve, error) {
	if cfg.FilePath == "" {
		return nil, &ConfigError{Msg: "iv curve requires a file path"}
	}
	if cfg.DTBaseSeconds <= 0 {
		cfg.DTBaseSeconds = 1e-6
	}
	if cfg.Verbose {
		log.Printf("[harvester] creating iv curve harvester from %s", cfg.FilePath)
	}
	return &IVCurve{cfg: cfg}, nil
}

func (h *IVCurve) Reset(initialVoltage float64) error {
	points, err := tracedata.LoadIVCurve(h.cfg.FilePath)
	if err != nil {
		return err
	}
	h.points = points
	h.ocv = 0
	for _, p := range points {
		if p.Voltage > h.ocv {
			h.ocv = p.Voltage
		}
	}
	h.stats = Stats{}
	return nil
}

func (h *IVCurve) OCV(t int64) (float64, bool) { return h.ocv, true }

func (h *IVCurve) Current(t int64, voltage float64) float64 {
	n := len(h.points)
	if n == 0 {
		return 0
	}
	if voltage <= h.points[0].Voltage {
		return h.points[0].Current
	}
	if voltage >= h.points[n-1].Voltage {
		return h.points[n-1].Current
	}
	idx := sort.Search(n, func(i int) bool { return h.points[i].Voltage >= voltage })
	lo, hi := h.points[idx-1], h.points[idx]
	frac := (voltage - lo.Voltage) / (hi.Voltage - lo.Voltage)
	return lo.Current + frac*(hi.Current-lo.Current)
}

func (h *IVCurve) NextChange(t int64) (int64, bool) { return 0, false }

func (h *IVCurve) Update(t, dt int64, voltage float64) {
	i := h.Current(t, voltage)
	h.stats.EnergyTotalJ += i * voltage * float64(dt) * h.cfg.DTBaseSeconds
}

func (h *IVCurve) Stats() Stats { return h.stats }
