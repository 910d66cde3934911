package converter

import (
	"log"

	"intermittent-sim/internal/simcore/voltagemonitor"
)

// HysteresisConfig configures a converter that passes the capacitor voltage
// straight through while latched on, and disconnects entirely while latched
// off, switching on a [VLow, VHigh] band.
type HysteresisConfig struct {
	VHigh      float64
	VLow       float64
	IQuiescent float64
	Verbose    bool
}

// Hysteresis is an on/off pass-through switch, the simplest converter with
// a load-disconnect behavior (distinct from LDO's regulated output).
type Hysteresis struct {
	cfg     HysteresisConfig
	monitor *voltagemonitor.Monitor
	on      bool
}

func NewHysteresis(cfg HysteresisConfig) (*Hysteresis, error) {
	if cfg.VHigh <= cfg.VLow {
		return nil, &ConfigError{Msg: "hysteresis converter requires v_high > v_low"}
	}
	if cfg.Verbose {
		log.Printf("[converter] creating hysteresis converter")
	}
	h := &Hysteresis{cfg: cfg, monitor: voltagemonitor.New()}
	h.monitor.Register("ON", cfg.VHigh, voltagemonitor.Rising)
	h.monitor.Register("OFF", cfg.VLow, voltagemonitor.Falling)
	return h, nil
}

func (h *Hysteresis) Reset(capVoltage float64) {
	h.on = capVoltage >= h.cfg.VHigh
}

func (h *Hysteresis) InputV(vCap, ocv float64, t int64) float64 { return vCap }
func (h *Hysteresis) InputEta(vIn, iIn float64) float64         { return 1 }

func (h *Hysteresis) OutputV(vCap float64) float64 {
	if !h.on {
		return 0
	}
	return vCap
}

func (h *Hysteresis) OutputEta(vCap, iOut float64) float64 { return 1 }

func (h *Hysteresis) Quiescent(vCap float64) float64 {
	if h.on {
		return h.cfg.IQuiescent
	}
	return 0
}

func (h *Hysteresis) TurnOff(vCap float64) { h.on = false }

// Step applies the latch transition; called once per engine step.
func (h *Hysteresis) Step(vCap float64) {
	if h.on && vCap < h.cfg.VLow {
		h.on = false
	} else if !h.on && vCap > h.cfg.VHigh {
		h.on = true
	}
}

func (h *Hysteresis) Monitor() *voltagemonitor.Monitor { return h.monitor }
