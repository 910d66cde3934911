package converter

import (
	"log"

	"intermittent-sim/internal/simcore/voltagemonitor"
)

// DiodeConfig configures the simplest converter: a pass-through with an
// input cutoff above VOV.
type DiodeConfig struct {
	VOV     float64 // input disabled above this capacitor voltage
	Verbose bool
}

// Diode passes harvester and load voltages straight through the capacitor
// node.
type Diode struct {
	cfg     DiodeConfig
	monitor *voltagemonitor.Monitor
}

func NewDiode(cfg DiodeConfig) (*Diode, error) {
	if cfg.VOV <= 0 {
		return nil, &ConfigError{Msg: "diode requires v_ov > 0"}
	}
	if cfg.Verbose {
		log.Printf("[converter] creating diode converter")
	}
	return &Diode{cfg: cfg, monitor: voltagemonitor.New()}, nil
}

func (d *Diode) InputV(vCap, ocv float64, t int64) float64 { return vCap }

func (d *Diode) InputEta(vIn, iIn float64) float64 {
	if vIn < d.cfg.VOV {
		return 1
	}
	return 0
}

func (d *Diode) OutputV(vCap float64) float64            { return vCap }
func (d *Diode) OutputEta(vCap, iOut float64) float64     { return 1 }
func (d *Diode) Quiescent(vCap float64) float64           { return 0 }
func (d *Diode) TurnOff(vCap float64)                     {}
func (d *Diode) Monitor() *voltagemonitor.Monitor         { return d.monitor }
