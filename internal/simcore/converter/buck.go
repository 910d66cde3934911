package converter

import (
	"log"

	"intermittent-sim/internal/simcore/voltagemonitor"
)

// BuckConfig configures a simple buck converter: clamps output to the
// smaller of the requested set-point and the capacitor voltage.
type BuckConfig struct {
	VOut      float64
	VOV       float64 // rail above which the cap is clamped instead of VOut
	Eta       float64 // constant output efficiency
	InputEta  float64
	Verbose   bool
}

// Buck is a fixed-efficiency step-down converter.
type Buck struct {
	cfg     BuckConfig
	monitor *voltagemonitor.Monitor
}

func NewBuck(cfg BuckConfig) (*Buck, error) {
	if cfg.VOut <= 0 {
		return nil, &ConfigError{Msg: "buck converter requires v_out > 0"}
	}
	if cfg.Eta <= 0 || cfg.Eta > 1 {
		cfg.Eta = 1
	}
	if cfg.InputEta <= 0 || cfg.InputEta > 1 {
		cfg.InputEta = 1
	}
	if cfg.Verbose {
		log.Printf("[converter] creating buck converter")
	}
	return &Buck{cfg: cfg, monitor: voltagemonitor.New()}, nil
}

func (b *Buck) InputV(vCap, ocv float64, t int64) float64 { return vCap }
func (b *Buck) InputEta(vIn, iIn float64) float64         { return b.cfg.InputEta }

func (b *Buck) OutputV(vCap float64) float64 {
	cap := b.cfg.VOut
	if b.cfg.VOV > 0 && vCap > b.cfg.VOV {
		cap = b.cfg.VOV
	}
	if vCap < cap {
		return vCap
	}
	return cap
}

func (b *Buck) OutputEta(vCap, iOut float64) float64 { return b.cfg.Eta }
func (b *Buck) Quiescent(vCap float64) float64       { return 0 }
func (b *Buck) TurnOff(vCap float64)                 {}
func (b *Buck) Monitor() *voltagemonitor.Monitor     { return b.monitor }
