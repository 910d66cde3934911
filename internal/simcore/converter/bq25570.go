package converter

import (
	"fmt"
	"log"
	"math"

	"intermittent-sim/internal/simcore/voltagemonitor"
	"intermittent-sim/internal/tracedata"
)

// bqState is the BQ25570's four-valued charge-controller state.
type bqState int

const (
	bqColdstart bqState = iota
	bqUndervoltage
	bqCharging
	bqOvervoltage
)

const (
	vChgen = 1.8
	vUV    = 1.95
)

// SupportedVOutRails lists the buck-converter output rails the hardware
// resistor network supports; the buck LUT is characterized per rail.
var SupportedVOutRails = []float64{1.8, 2.0, 2.2, 2.4, 3.0, 3.3}

// ValidVOut reports whether v is one of SupportedVOutRails.
func ValidVOut(v float64) bool {
	for _, r := range SupportedVOutRails {
		if r == v {
			return true
		}
	}
	return false
}

// BQ25570Config configures the Texas Instruments BQ25570-modeled four-state
// charge controller: COLDSTART / UNDERVOLTAGE / CHARGING / OVERVOLTAGE,
// driven by the capacitor voltage standing in for the chip's v_stor rail.
type BQ25570Config struct {
	VOV             float64 // overvoltage threshold (v_stor >= this -> OVERVOLTAGE)
	VOut            float64 // buck output rail; must be one of SupportedVOutRails
	BoostLUT        []tracedata.LUTRow4
	BuckLUT         []tracedata.LUTRow3 // for the configured VOut rail
	QuiescentActive []tracedata.QuiescentRow
	QuiescentStandby []tracedata.QuiescentRow

	HysteresisEnabled bool
	VOutOKHigh        float64
	VOutOKLow         float64
	Verbose           bool
}

// BQ25570 implements the four-state LUT-driven charge controller.
type BQ25570 struct {
	cfg     BQ25570Config
	monitor *voltagemonitor.Monitor
	state   bqState
	outputOn bool
	vStor   float64

	boostCacheKey [2]float64
	boostCacheEta float64
	boostCacheSet bool

	buckCacheKey [2]float64
	buckCacheEta float64
	buckCacheSet bool
}

func NewBQ25570(cfg BQ25570Config) (*BQ25570, error) {
	if cfg.VOV <= vUV {
		return nil, &ConfigError{Msg: "bq25570 requires v_ov > v_uv (1.95)"}
	}
	if !ValidVOut(cfg.VOut) {
		return nil, &ConfigError{Msg: fmt.Sprintf("bq25570 v_out %g is not in the supported set %v", cfg.VOut, SupportedVOutRails)}
	}
	if len(cfg.BoostLUT) == 0 || len(cfg.BuckLUT) == 0 {
		return nil, &ConfigError{Msg: "bq25570 requires non-empty boost and buck LUTs"}
	}
	if cfg.Verbose {
		log.Printf("[converter] creating bq25570 converter (v_out=%g)", cfg.VOut)
	}
	b := &BQ25570{cfg: cfg, monitor: voltagemonitor.New(), outputOn: true}
	b.monitor.Register("CHGEN", vChgen, voltagemonitor.Both)
	b.monitor.Register("UV", vUV, voltagemonitor.Both)
	b.monitor.Register("OV", cfg.VOV, voltagemonitor.Both)
	if cfg.HysteresisEnabled {
		if cfg.VOutOKHigh <= cfg.VOutOKLow {
			return nil, &ConfigError{Msg: "bq25570 hysteresis requires v_out_ok_high > v_out_ok_low"}
		}
		b.monitor.Register("OUT_OK_HIGH", cfg.VOutOKHigh, voltagemonitor.Rising)
		b.monitor.Register("OUT_OK_LOW", cfg.VOutOKLow, voltagemonitor.Falling)
	}
	return b, nil
}

func (b *BQ25570) Reset(capVoltage float64) {
	b.state = classifyBQState(capVoltage, b.cfg.VOV)
	b.outputOn = !b.cfg.HysteresisEnabled || capVoltage >= b.cfg.VOutOKHigh
	b.vStor = capVoltage
	b.boostCacheSet = false
	b.buckCacheSet = false
}

func classifyBQState(vStor, vOV float64) bqState {
	switch {
	case vStor < vChgen:
		return bqColdstart
	case vStor < vUV:
		return bqUndervoltage
	case vStor < vOV:
		return bqCharging
	default:
		return bqOvervoltage
	}
}

// Step re-derives the controller state from the current capacitor voltage;
// the engine calls this once per step alongside the monitor-driven
// threshold crossings.
func (b *BQ25570) Step(vCap float64) {
	b.state = classifyBQState(vCap, b.cfg.VOV)
	b.vStor = vCap
	if b.cfg.HysteresisEnabled {
		if b.outputOn && vCap < b.cfg.VOutOKLow {
			b.outputOn = false
		} else if !b.outputOn && vCap > b.cfg.VOutOKHigh {
			b.outputOn = true
		}
	}
}

func (b *BQ25570) InputV(vCap, ocv float64, t int64) float64 {
	switch b.state {
	case bqColdstart:
		return 0.33
	case bqOvervoltage:
		return 0
	default:
		return ocv // MPPT: harvester is asked for its max-power-point current at its own ocv
	}
}

func (b *BQ25570) InputEta(vIn, iIn float64) float64 {
	switch b.state {
	case bqColdstart:
		return 0.06
	case bqOvervoltage:
		return 0
	case bqUndervoltage:
		return 0
	default:
		eta, ok := b.boostLookup(vIn, iIn)
		if !ok {
			return 0
		}
		return eta
	}
}

func (b *BQ25570) OutputV(vCap float64) float64 {
	if b.state == bqColdstart || b.state == bqUndervoltage {
		return 0
	}
	if !b.outputOn {
		return 0
	}
	return vCap
}

func (b *BQ25570) OutputEta(vCap, iOut float64) float64 {
	if b.state == bqColdstart || b.state == bqUndervoltage {
		return 0
	}
	eta, ok := b.buckLookup(vCap, iOut)
	if !ok {
		return 1
	}
	return eta
}

func (b *BQ25570) Quiescent(vCap float64) float64 {
	table := b.cfg.QuiescentStandby
	if b.state == bqCharging || b.state == bqOvervoltage {
		table = b.cfg.QuiescentActive
	}
	return nearestQuiescent(table, vCap)
}

func (b *BQ25570) TurnOff(vCap float64) { b.outputOn = false }

func (b *BQ25570) Monitor() *voltagemonitor.Monitor { return b.monitor }

func (b *BQ25570) boostLookup(vIn, iIn float64) (float64, bool) {
	key := [2]float64{vIn, iIn}
	if b.boostCacheSet && key == b.boostCacheKey {
		return b.boostCacheEta, true
	}
	iInUA := iIn * 1e6
	best := -1
	bestDI := math.Inf(1)
	for idx, row := range b.cfg.BoostLUT {
		di := math.Abs(row.IInUA - iInUA)
		if di < bestDI {
			bestDI = di
			best = idx
		}
	}
	if best < 0 {
		return 0, false
	}
	nearestDI := bestDI
	bestScore := math.Inf(1)
	chosen := -1
	for idx, row := range b.cfg.BoostLUT {
		if math.Abs(row.IInUA-iInUA) > nearestDI+1e-12 {
			continue
		}
		score := math.Abs(row.VIn-vIn) + math.Abs(row.VStor-b.vStor)
		if score < bestScore {
			bestScore = score
			chosen = idx
		}
	}
	if chosen < 0 {
		chosen = best
	}
	eta := b.cfg.BoostLUT[chosen].EtaPct / 100
	b.boostCacheKey = key
	b.boostCacheEta = eta
	b.boostCacheSet = true
	return eta, true
}

func (b *BQ25570) buckLookup(vStor, iOut float64) (float64, bool) {
	key := [2]float64{vStor, iOut}
	if b.buckCacheSet && key == b.buckCacheKey {
		return b.buckCacheEta, true
	}
	best := -1
	bestDI := math.Inf(1)
	for idx, row := range b.cfg.BuckLUT {
		di := math.Abs(row.IOut - iOut)
		if di < bestDI {
			bestDI = di
			best = idx
		}
	}
	if best < 0 {
		return 0, false
	}
	nearestDI := bestDI
	bestDV := math.Inf(1)
	chosen := -1
	for idx, row := range b.cfg.BuckLUT {
		if math.Abs(row.IOut-iOut) > nearestDI+1e-12 {
			continue
		}
		dv := math.Abs(row.VStor - vStor)
		if dv < bestDV {
			bestDV = dv
			chosen = idx
		}
	}
	if chosen < 0 {
		chosen = best
	}
	eta := b.cfg.BuckLUT[chosen].Eta
	b.buckCacheKey = key
	b.buckCacheEta = eta
	b.buckCacheSet = true
	return eta, true
}

func nearestQuiescent(table []tracedata.QuiescentRow, vStor float64) float64 {
	if len(table) == 0 {
		return 0
	}
	best := table[0]
	bestD := math.Abs(best.VStor - vStor)
	for _, row := range table[1:] {
		d := math.Abs(row.VStor - vStor)
		if d < bestD {
			bestD = d
			best = row
		}
	}
	return best.IQuiet
}
