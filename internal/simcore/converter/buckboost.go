package converter

import (
	"log"

	"intermittent-sim/internal/simcore/voltagemonitor"
)

// BuckBoostConfig configures an ideal bidirectional converter with fixed
// set-points and fixed efficiencies on each path.
type BuckBoostConfig struct {
	VIn          float64
	VOut         float64
	VOV          float64 // input disabled above this capacitor voltage
	EfficiencyIn  float64
	EfficiencyOut float64
	Verbose       bool
}

// BuckBoost is an ideal step-up/step-down converter: regulates both the
// harvester-facing input rail and the load-facing output rail to fixed
// set-points, each scaled by a constant efficiency.
type BuckBoost struct {
	cfg     BuckBoostConfig
	monitor *voltagemonitor.Monitor
}

func NewBuckBoost(cfg BuckBoostConfig) (*BuckBoost, error) {
	if cfg.VIn <= 0 || cfg.VOut <= 0 {
		return nil, &ConfigError{Msg: "buck-boost requires v_in > 0 and v_out > 0"}
	}
	if cfg.EfficiencyIn <= 0 || cfg.EfficiencyIn > 1 {
		cfg.EfficiencyIn = 1
	}
	if cfg.EfficiencyOut <= 0 || cfg.EfficiencyOut > 1 {
		cfg.EfficiencyOut = 1
	}
	if cfg.Verbose {
		log.Printf("[converter] creating buck-boost converter")
	}
	return &BuckBoost{cfg: cfg, monitor: voltagemonitor.New()}, nil
}

func (b *BuckBoost) InputV(vCap, ocv float64, t int64) float64 {
	if b.cfg.VOV > 0 && vCap > b.cfg.VOV {
		return 0
	}
	return b.cfg.VIn
}

func (b *BuckBoost) InputEta(vIn, iIn float64) float64 {
	if vIn == 0 {
		return 0
	}
	return b.cfg.EfficiencyIn
}

func (b *BuckBoost) OutputV(vCap float64) float64 { return b.cfg.VOut }

func (b *BuckBoost) OutputEta(vCap, iOut float64) float64 { return b.cfg.EfficiencyOut }
func (b *BuckBoost) Quiescent(vCap float64) float64       { return 0 }
func (b *BuckBoost) TurnOff(vCap float64)                 {}
func (b *BuckBoost) Monitor() *voltagemonitor.Monitor     { return b.monitor }
