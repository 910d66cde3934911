package converter

import (
	"log"

	"intermittent-sim/internal/simcore/voltagemonitor"
)

// LDOConfig configures the low-dropout linear regulator: Vout = Vcap while
// Vcap < VOut, and Vout = VOut with Eout = VOut/Vcap above it. Optionally
// models a hysteresis on/off latch.
type LDOConfig struct {
	VOut              float64
	IQuiescent        float64
	IQuiescentOff     float64 // defaults to IQuiescent if unset
	HysteresisEnabled bool
	VHigh             float64
	VLow              float64
	Verbose           bool
}

// LDO regulates output to VOut when the rail is above it, passes through
// below it, and optionally latches fully off via hysteresis.
type LDO struct {
	cfg     LDOConfig
	monitor *voltagemonitor.Monitor
	on      bool
}

func NewLDO(cfg LDOConfig) (*LDO, error) {
	if cfg.VOut <= 0 {
		return nil, &ConfigError{Msg: "ldo requires v_out > 0"}
	}
	if cfg.IQuiescentOff == 0 {
		cfg.IQuiescentOff = cfg.IQuiescent
	}
	if cfg.Verbose {
		log.Printf("[converter] creating ldo converter")
	}
	l := &LDO{cfg: cfg, monitor: voltagemonitor.New()}
	l.monitor.Register("OUT", cfg.VOut, voltagemonitor.Both)
	if cfg.HysteresisEnabled {
		if cfg.VHigh <= cfg.VLow {
			return nil, &ConfigError{Msg: "ldo hysteresis requires v_high > v_low"}
		}
		l.monitor.Register("ON", cfg.VHigh, voltagemonitor.Rising)
		l.monitor.Register("OFF", cfg.VLow, voltagemonitor.Falling)
	}
	return l, nil
}

// Reset sets the initial latch state: on if hysteresis is disabled, or if
// the capacitor is already above VLow at start.
func (l *LDO) Reset(capVoltage float64) {
	if l.cfg.HysteresisEnabled {
		l.on = capVoltage >= l.cfg.VLow
	} else {
		l.on = true
	}
}

func (l *LDO) InputV(vCap, ocv float64, t int64) float64 { return vCap }
func (l *LDO) InputEta(vIn, iIn float64) float64         { return 1 }

func (l *LDO) OutputV(vCap float64) float64 {
	if !l.on {
		return 0
	}
	if vCap < l.cfg.VOut {
		return vCap
	}
	return l.cfg.VOut
}

func (l *LDO) OutputEta(vCap, iOut float64) float64 {
	if vCap > l.cfg.VOut {
		return l.cfg.VOut / vCap
	}
	return 1
}

func (l *LDO) Quiescent(vCap float64) float64 {
	if l.on {
		return l.cfg.IQuiescent
	}
	return l.cfg.IQuiescentOff
}

// TurnOff forces the latch off, unless the rail is already above VHigh (in
// which case it would immediately re-latch on and the request is a no-op),
// matching Converters/LDO.py's `turn_off`.
func (l *LDO) TurnOff(vCap float64) {
	if !l.cfg.HysteresisEnabled || vCap < l.cfg.VHigh {
		l.on = false
	}
}

// Step applies the hysteresis latch transition for the current capacitor
// voltage; the engine calls this once per step alongside the other
// component Update calls.
func (l *LDO) Step(vCap float64) {
	if !l.cfg.HysteresisEnabled {
		return
	}
	if l.on && vCap < l.cfg.VLow {
		l.on = false
	} else if !l.on && vCap > l.cfg.VHigh {
		l.on = true
	}
}

func (l *LDO) Monitor() *voltagemonitor.Monitor { return l.monitor }
