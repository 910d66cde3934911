package load

import (
	"log"

	"intermittent-sim/internal/simcore/voltagemonitor"
)

// ajitState is AdvancedJITLoad's outer automaton state. The source lists a
// fifth SLEEP phase in passing but never defines a transition into or out
// of it; only OFF/RESTORE/ON/SAVE are reachable, matching
// Loads/AdvancedJITLoad.py, so SLEEP is omitted here.
type ajitState int

const (
	ajitOff ajitState = iota
	ajitRestore
	ajitOn
	ajitSave
)

func (s ajitState) String() string {
	switch s {
	case ajitOff:
		return "OFF"
	case ajitRestore:
		return "RESTORE"
	case ajitOn:
		return "ON"
	case ajitSave:
		return "SAVE"
	}
	return "UNKNOWN"
}

type ajitEvent int

const (
	ajitEvNone ajitEvent = iota
	ajitEvSaveStart
	ajitEvRestoreStart
	ajitEvSaveSuccess
	ajitEvRestoreSuccess
	ajitEvSaveFail
	ajitEvRestoreFail
	ajitEvApplicationEvent
	ajitEvForcedOff
)

// AdvancedJITLoadConfig configures the three-phase (OFF/RESTORE/ON/SAVE)
// automaton hosting a nested Application.
type AdvancedJITLoadConfig struct {
	VRestore float64
	VSave    float64
	VMin     float64

	CurrentOff     float64
	CurrentRestore float64
	CurrentSave    float64

	TRestoreSeconds float64
	TSaveSeconds    float64

	InitialState string // "OFF" (default) or "ON"

	Application   Application
	DTBaseSeconds float64
	VerboseLog    bool
	Verbose       bool
}

// AdvancedJITLoad delegates its ON-state current draw and scheduling to a
// nested Application, while the outer automaton handles power thresholds.
type AdvancedJITLoad struct {
	cfg        AdvancedJITLoadConfig
	monitor    *voltagemonitor.Monitor
	capMonitor *voltagemonitor.Monitor

	tRestoreTicks int64
	tSaveTicks    int64

	state         ajitState
	nextEvent     ajitEvent
	nextEventTick int64
	nextEventPending bool
	offStartTime  int64
	maxOffTicks   int64

	stats AdvancedJITLoadStats
}

// AdvancedJITLoadStats accumulates per-state time/energy and transition
// counts.
type AdvancedJITLoadStats struct {
	TimeOnTicks      int64
	TimeOffTicks     int64
	TimeSaveTicks    int64
	TimeRestoreTicks int64

	EnergyOn      float64
	EnergyOff     float64
	EnergySave    float64
	EnergyRestore float64

	MaxOffTicks int64

	NumSaveSuccess    int
	NumSaveFail       int
	NumRestoreSuccess int
	NumRestoreFail    int
	NumForcedOff      int
}

func NewAdvancedJITLoad(cfg AdvancedJITLoadConfig) (*AdvancedJITLoad, error) {
	if cfg.VRestore <= cfg.VMin || cfg.VSave <= cfg.VMin {
		return nil, &ConfigError{Msg: "advanced jit load requires v_restore, v_save > v_min"}
	}
	if cfg.Application == nil {
		return nil, &ConfigError{Msg: "advanced jit load requires an application"}
	}
	if cfg.DTBaseSeconds <= 0 {
		cfg.DTBaseSeconds = 1e-6
	}
	if cfg.InitialState == "" {
		cfg.InitialState = "OFF"
	}
	if cfg.Verbose {
		log.Printf("[load] creating advanced jit load")
	}
	a := &AdvancedJITLoad{cfg: cfg}
	a.tRestoreTicks = int64(cfg.TRestoreSeconds / cfg.DTBaseSeconds)
	a.tSaveTicks = int64(cfg.TSaveSeconds / cfg.DTBaseSeconds)
	return a, nil
}

func (a *AdvancedJITLoad) Reset(vOutInitial, vCapInitial float64) error {
	a.monitor = voltagemonitor.New()
	a.monitor.Register("OFF", a.cfg.VMin, voltagemonitor.Falling)
	a.capMonitor = voltagemonitor.New()
	a.capMonitor.Register("RESTORE", a.cfg.VRestore, voltagemonitor.Rising)
	a.capMonitor.Register("SAVE", a.cfg.VSave, voltagemonitor.Falling)

	a.cfg.Application.Reset()

	switch a.cfg.InitialState {
	case "ON":
		a.state = ajitOn
	default:
		a.state = ajitOff
	}
	a.stats = AdvancedJITLoadStats{}

	if a.state == ajitOn {
		a.cfg.Application.Start(0)
		if due, ok := a.cfg.Application.NextChange(0); ok {
			a.nextEvent = ajitEvApplicationEvent
			a.nextEventTick = due
			a.nextEventPending = true
		} else {
			a.nextEventPending = false
		}
	} else {
		a.nextEventPending = false
		a.offStartTime = 0
	}
	return nil
}

func (a *AdvancedJITLoad) Current(vOut float64) float64 {
	if a.state == ajitOn {
		return a.cfg.Application.Current()
	}
	switch a.state {
	case ajitOff:
		return a.cfg.CurrentOff
	case ajitRestore:
		return a.cfg.CurrentRestore
	case ajitSave:
		return a.cfg.CurrentSave
	}
	return 0
}

func (a *AdvancedJITLoad) NextChange(t int64) (int64, bool) {
	if a.state == ajitOn {
		due, ok := a.cfg.Application.NextChange(t)
		if !ok {
			return 0, false
		}
		if due <= t {
			return 0, false
		}
		return due - t, true
	}
	if !a.nextEventPending || a.nextEventTick <= t {
		return 0, false
	}
	return a.nextEventTick - t, true
}

func (a *AdvancedJITLoad) Update(t, dt int64, vOut, vCap float64, vOutEvents, vCapEvents []string) (Signal, error) {
	if a.cfg.VerboseLog {
		log.Printf("[load] t=%d state=%s v_out=%g v_cap=%g", t, a.state, vOut, vCap)
	}
	if vOut <= a.cfg.VMin {
		vCapEvents = nil
	}

	vOutEvent := ""
	if len(vOutEvents) > 0 {
		vOutEvent = vOutEvents[len(vOutEvents)-1]
	}
	vCapEvent := ""
	if len(vCapEvents) > 0 {
		vCapEvent = vCapEvents[0]
	}

	loadEvent := ajitEvNone
	loadEventPresent := false
	if a.nextEventPending && t >= a.nextEventTick {
		loadEvent = a.nextEvent
		loadEventPresent = true
	}

	a.stats.add(a.state, dt, vOut*a.Current(vOut)*float64(dt)*a.cfg.DTBaseSeconds)

	if vCapEvent == "" && vOutEvent == "" && !loadEventPresent {
		return SignalNone, nil
	}

	var (
		out ajitEvent
		err error
	)
	switch a.state {
	case ajitOn:
		out, err = a.handleOn(t, loadEvent, loadEventPresent, vCapEvent, vOutEvent)
	case ajitOff:
		out, err = a.handleOff(t, vCapEvent, vOutEvent)
	case ajitRestore:
		out, err = a.handleRestore(t, loadEvent, loadEventPresent, vCapEvent, vOutEvent)
	case ajitSave:
		out, err = a.handleSave(t, loadEvent, loadEventPresent, vOutEvent)
	}
	if err != nil {
		return SignalNone, err
	}
	if out == ajitEvForcedOff {
		return SignalForceOff, nil
	}
	return SignalNone, nil
}

func (a *AdvancedJITLoad) handleOff(t int64, vCapEvent, vOutEvent string) (ajitEvent, error) {
	if vOutEvent == "OFF" || vCapEvent == "SAVE" {
		return ajitEvNone, nil
	}
	if vCapEvent != "RESTORE" {
		return ajitEvNone, &StateMachineViolation{Msg: "OFF state expected a restore trigger"}
	}
	a.state = ajitRestore
	a.nextEvent = ajitEvRestoreSuccess
	a.nextEventTick = t + a.tRestoreTicks
	a.nextEventPending = true
	return ajitEvRestoreStart, nil
}

func (a *AdvancedJITLoad) handleRestore(t int64, loadEvent ajitEvent, loadEventPresent bool, vCapEvent, vOutEvent string) (ajitEvent, error) {
	if vOutEvent == "OFF" {
		a.state = ajitOff
		a.nextEventPending = false
		a.offStartTime = t
		a.stats.NumRestoreFail++
		return ajitEvRestoreFail, nil
	}
	if vCapEvent == "SAVE" {
		a.state = ajitSave
		a.nextEvent = ajitEvSaveSuccess
		a.nextEventTick = t + a.tSaveTicks
		a.nextEventPending = true
		return ajitEvSaveFail, nil
	}
	if !loadEventPresent || loadEvent != ajitEvRestoreSuccess {
		return ajitEvNone, &StateMachineViolation{Msg: "RESTORE state expected restore success"}
	}
	a.state = ajitOn
	a.cfg.Application.Start(t)
	if due, ok := a.cfg.Application.NextChange(t); ok {
		a.nextEvent = ajitEvApplicationEvent
		a.nextEventTick = due
		a.nextEventPending = true
	} else {
		a.nextEventPending = false
	}
	if off := t - a.offStartTime; off > a.maxOffTicks {
		a.maxOffTicks = off
		a.stats.MaxOffTicks = off
	}
	a.stats.NumRestoreSuccess++
	return ajitEvRestoreSuccess, nil
}

func (a *AdvancedJITLoad) handleSave(t int64, loadEvent ajitEvent, loadEventPresent bool, vOutEvent string) (ajitEvent, error) {
	success := loadEventPresent && loadEvent == ajitEvSaveSuccess
	if !success && vOutEvent != "OFF" {
		return ajitEvNone, &StateMachineViolation{Msg: "SAVE state expected save success or forced off"}
	}
	a.state = ajitOff
	a.nextEventPending = false
	a.offStartTime = t
	if success {
		a.stats.NumSaveSuccess++
		return ajitEvSaveSuccess, nil
	}
	a.stats.NumSaveFail++
	return ajitEvSaveFail, nil
}

func (a *AdvancedJITLoad) handleOn(t int64, loadEvent ajitEvent, loadEventPresent bool, vCapEvent, vOutEvent string) (ajitEvent, error) {
	out := ajitEvNone
	if loadEventPresent && loadEvent == ajitEvApplicationEvent {
		a.cfg.Application.Proceed(t)
		if due, ok := a.cfg.Application.NextChange(t); ok {
			a.nextEvent = ajitEvApplicationEvent
			a.nextEventTick = due
			a.nextEventPending = true
		} else {
			a.nextEventPending = false
		}
		out = ajitEvApplicationEvent
	}

	if vOutEvent == "OFF" {
		a.cfg.Application.Stop(t)
		a.state = ajitOff
		a.nextEventPending = false
		a.offStartTime = t
		a.stats.NumForcedOff++
		return ajitEvForcedOff, nil
	}

	if vCapEvent == "RESTORE" {
		return out, nil // nothing to restore
	}

	if vCapEvent == "SAVE" {
		a.state = ajitSave
		a.nextEvent = ajitEvSaveSuccess
		a.nextEventTick = t + a.tSaveTicks
		a.nextEventPending = true
		a.cfg.Application.Stop(t)
		a.offStartTime = t
		return ajitEvSaveStart, nil
	}

	return out, nil
}

func (s *AdvancedJITLoadStats) add(state ajitState, dt int64, energy float64) {
	switch state {
	case ajitOn:
		s.TimeOnTicks += dt
		s.EnergyOn += energy
	case ajitOff:
		s.TimeOffTicks += dt
		s.EnergyOff += energy
	case ajitSave:
		s.TimeSaveTicks += dt
		s.EnergySave += energy
	case ajitRestore:
		s.TimeRestoreTicks += dt
		s.EnergyRestore += energy
	}
}

func (a *AdvancedJITLoad) Monitor() *voltagemonitor.Monitor    { return a.monitor }
func (a *AdvancedJITLoad) CapMonitor() *voltagemonitor.Monitor { return a.capMonitor }
func (a *AdvancedJITLoad) Stats() AdvancedJITLoadStats         { return a.stats }
