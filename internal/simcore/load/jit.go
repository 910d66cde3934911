package load

import (
	"log"

	"intermittent-sim/internal/simcore/voltagemonitor"
)

// jitState is JITLoad's checkpoint/restore automaton state.
type jitState int

const (
	jitOff jitState = iota
	jitRestore
	jitCompute
	jitCheckpoint
)

func (s jitState) String() string {
	switch s {
	case jitOff:
		return "OFF"
	case jitRestore:
		return "RESTORE"
	case jitCompute:
		return "COMPUTE"
	case jitCheckpoint:
		return "CHECKPOINT"
	}
	return "UNKNOWN"
}

// jitEvent names a JITLoad transition, mirroring Loads/JITLoad.py's Events.
type jitEvent int

const (
	jitEvNone jitEvent = iota
	jitEvRestoreStart
	jitEvRestoreSuccess
	jitEvRestoreFail
	jitEvCheckpointStart
	jitEvCheckpointFail
	jitEvCheckpointSuccess
	jitEvTurnOff
)

// JITLoadConfig configures the checkpoint/restore automaton.
type JITLoadConfig struct {
	VOff        float64
	VOn         float64
	VCheckpoint float64

	CurrentOff        float64
	CurrentRestore    float64
	CurrentCompute    float64
	CurrentCheckpoint float64

	TCheckpointSeconds       float64
	TCheckpointPeriodSeconds float64
	TRestoreSeconds          float64
	TRestoreStartupSeconds   float64

	DTBaseSeconds float64
	VerboseLog    bool
	Verbose       bool
}

type jitLogEntry struct {
	time            int64
	event           jitEvent
	state           jitState
	vOut            float64
	vCap            float64
	validCheckpoint bool
}

// JITLoad is the checkpoint/restore automaton at the heart of the system:
// OFF -> RESTORE -> COMPUTE <-> CHECKPOINT, driven by v_out/v_cap threshold
// crossings and internal timers.
type JITLoad struct {
	cfg        JITLoadConfig
	monitor    *voltagemonitor.Monitor
	capMonitor *voltagemonitor.Monitor

	tCheckpointTicks       int64
	tCheckpointPeriodTicks int64
	tRestoreTicks          int64
	tRestoreStartupTicks   int64

	state                 jitState
	oldVoltage            float64
	nextEvent             jitEvent
	nextEventTick         int64
	nextEventPending      bool
	initialCheckpointDone bool

	log []jitLogEntry

	stats JITLoadStats
}

// JITLoadStats accumulates the raw per-state time/energy totals; derived
// forward-progress metrics are computed on demand by ForwardProgress.
type JITLoadStats struct {
	TimeOffTicks        int64
	TimeRestoreTicks    int64
	TimeComputeTicks    int64
	TimeCheckpointTicks int64

	EnergyOff        float64
	EnergyRestore    float64
	EnergyCompute    float64
	EnergyCheckpoint float64

	NumCheckpointSuccessful int
	NumCheckpointFailed     int
	NumRestoreSuccessful    int
	NumRestoreFailed        int
}

func NewJITLoad(cfg JITLoadConfig) (*JITLoad, error) {
	if cfg.VCheckpoint <= cfg.VOff {
		return nil, &ConfigError{Msg: "jit load requires v_checkpoint > v_off"}
	}
	if cfg.VOn <= cfg.VOff {
		return nil, &ConfigError{Msg: "jit load requires v_on > v_off"}
	}
	if cfg.DTBaseSeconds <= 0 {
		cfg.DTBaseSeconds = 1e-6
	}
	if cfg.Verbose {
		log.Printf("[load] creating jit load")
	}
	j := &JITLoad{cfg: cfg}
	j.tCheckpointTicks = int64(cfg.TCheckpointSeconds / cfg.DTBaseSeconds)
	j.tCheckpointPeriodTicks = int64(cfg.TCheckpointPeriodSeconds / cfg.DTBaseSeconds)
	j.tRestoreTicks = int64(cfg.TRestoreSeconds / cfg.DTBaseSeconds)
	j.tRestoreStartupTicks = int64(cfg.TRestoreStartupSeconds / cfg.DTBaseSeconds)
	return j, nil
}

func (j *JITLoad) currentFor(s jitState) float64 {
	switch s {
	case jitOff:
		return j.cfg.CurrentOff
	case jitRestore:
		return j.cfg.CurrentRestore
	case jitCompute:
		return j.cfg.CurrentCompute
	case jitCheckpoint:
		return j.cfg.CurrentCheckpoint
	}
	return 0
}

func (j *JITLoad) Reset(vOutInitial, vCapInitial float64) error {
	j.oldVoltage = vOutInitial
	j.monitor = voltagemonitor.New()
	j.monitor.Register("OFF", j.cfg.VOff, voltagemonitor.Falling)
	j.monitor.Register("ON", j.cfg.VOn, voltagemonitor.Rising)
	j.capMonitor = voltagemonitor.New()
	j.capMonitor.Register("CHECKPOINTS_START", j.cfg.VCheckpoint, voltagemonitor.Falling)

	j.initialCheckpointDone = false
	j.stats = JITLoadStats{}
	j.log = j.log[:0]

	if vOutInitial > j.cfg.VOff {
		j.state = jitRestore
		j.monitor.UnregisterName("ON")
		j.nextEvent = jitEvRestoreSuccess
		j.nextEventTick = j.tRestoreStartupTicks
		j.nextEventPending = true
	} else {
		j.state = jitOff
		j.nextEventPending = false
		j.monitor.UnregisterName("OFF")
		j.capMonitor.UnregisterName("CHECKPOINTS_START")
	}

	j.log = append(j.log, jitLogEntry{time: 0, event: jitEvNone, state: j.state, vOut: vOutInitial, vCap: vCapInitial})
	return nil
}

func (j *JITLoad) Current(vOut float64) float64 { return j.currentFor(j.state) }

func (j *JITLoad) NextChange(t int64) (int64, bool) {
	if !j.nextEventPending {
		return 0, false
	}
	remaining := j.nextEventTick - t
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

func (j *JITLoad) Update(t, dt int64, vOut, vCap float64, vOutEvents, vCapEvents []string) (Signal, error) {
	if j.cfg.VerboseLog {
		log.Printf("[load] t=%d state=%s v_out=%g v_cap=%g", t, j.state, vOut, vCap)
	}
	if j.nextEventPending && t > j.nextEventTick {
		return SignalNone, &StateMachineViolation{Msg: "missed a scheduled load update"}
	}

	j.stats.add(j.state, dt, (j.oldVoltage+vOut)/2*j.currentFor(j.state)*float64(dt)*j.cfg.DTBaseSeconds)

	var loadEvent jitEvent
	loadEventPresent := false
	if j.nextEventPending && j.nextEventTick == t {
		loadEvent = j.nextEvent
		loadEventPresent = true
	}

	voltageEvent := ""
	if hasEvent(vOutEvents, "OFF") {
		voltageEvent = "OFF"
	} else if hasEvent(vOutEvents, "ON") {
		voltageEvent = "ON"
	} else if hasEvent(vCapEvents, "CHECKPOINTS_START") {
		voltageEvent = "CHECKPOINTS_START"
	}

	j.oldVoltage = vOut

	if voltageEvent == "" && !loadEventPresent && (vCap > j.cfg.VCheckpoint || vOut < j.cfg.VOff) {
		return SignalNone, nil
	}

	var (
		outEvent jitEvent
		signal   Signal
		err      error
	)
	switch voltageEvent {
	case "OFF":
		outEvent = j.turnOff(loadEvent, loadEventPresent)
		signal = SignalForceOff
	case "ON":
		if loadEventPresent {
			return SignalNone, &StateMachineViolation{Msg: "OFF state not expecting a scheduled event"}
		}
		outEvent = j.turnOn(t)
	default:
		outEvent, err = j.continueApplication(t, loadEvent, loadEventPresent, vCap)
	}
	if err != nil {
		return SignalNone, err
	}

	if outEvent != jitEvNone {
		j.log = append(j.log, jitLogEntry{time: t, event: outEvent, state: j.state, vOut: vOut, vCap: vCap})
	}
	return signal, nil
}

func (j *JITLoad) turnOff(loadEvent jitEvent, loadEventPresent bool) jitEvent {
	var event jitEvent
	if !loadEventPresent {
		switch j.state {
		case jitCheckpoint:
			j.stats.NumCheckpointFailed++
			event = jitEvCheckpointFail
		case jitRestore:
			j.stats.NumRestoreFailed++
			event = jitEvRestoreFail
		default:
			event = jitEvTurnOff
		}
	} else {
		if j.state == jitCheckpoint {
			j.stats.NumCheckpointSuccessful++
			if n := len(j.log); n >= 2 {
				j.log[n-2].validCheckpoint = true
			}
		}
		event = jitEvTurnOff
	}

	j.state = jitOff
	j.nextEventPending = false
	j.monitor.UnregisterName("OFF")
	j.capMonitor.UnregisterName("CHECKPOINTS_START")
	j.monitor.Register("ON", j.cfg.VOn, voltagemonitor.Rising)
	return event
}

func (j *JITLoad) turnOn(t int64) jitEvent {
	j.monitor.UnregisterName("ON")
	j.monitor.Register("OFF", j.cfg.VOff, voltagemonitor.Falling)

	j.state = jitRestore
	restoreTicks := j.tRestoreTicks
	if !j.initialCheckpointDone {
		restoreTicks = j.tRestoreStartupTicks
	}
	j.nextEvent = jitEvRestoreSuccess
	j.nextEventTick = t + restoreTicks
	j.nextEventPending = true
	return jitEvRestoreStart
}

func (j *JITLoad) continueApplication(t int64, loadEvent jitEvent, loadEventPresent bool, vCap float64) (jitEvent, error) {
	if vCap <= j.cfg.VCheckpoint && !j.nextEventPending {
		if j.state != jitCompute {
			return jitEvNone, &StateMachineViolation{Msg: "checkpoint trigger outside COMPUTE"}
		}
		loadEvent = jitEvCheckpointStart
		loadEventPresent = true
	}

	if !loadEventPresent {
		return jitEvNone, nil
	}

	switch loadEvent {
	case jitEvCheckpointStart:
		if j.state != jitCompute && j.state != jitRestore {
			return jitEvNone, &StateMachineViolation{Msg: "checkpoint can only start from COMPUTE or RESTORE"}
		}
		j.state = jitCheckpoint
		j.nextEvent = jitEvCheckpointSuccess
		j.nextEventTick = t + j.tCheckpointTicks
		j.nextEventPending = true

	case jitEvCheckpointSuccess:
		if j.state != jitCheckpoint {
			return jitEvNone, &StateMachineViolation{Msg: "checkpoint success outside CHECKPOINT"}
		}
		j.initialCheckpointDone = true
		j.stats.NumCheckpointSuccessful++
		j.state = jitCompute
		if n := len(j.log); n >= 2 {
			j.log[n-2].validCheckpoint = true
		}
		j.nextEvent = jitEvCheckpointStart
		j.nextEventTick = t + j.tCheckpointPeriodTicks
		j.nextEventPending = true
		j.capMonitor.UnregisterName("CHECKPOINTS_START")

	case jitEvRestoreSuccess:
		if j.state != jitRestore {
			return jitEvNone, &StateMachineViolation{Msg: "restore success outside RESTORE"}
		}
		j.stats.NumRestoreSuccessful++
		j.state = jitCompute
		j.capMonitor.Register("CHECKPOINTS_START", j.cfg.VCheckpoint, voltagemonitor.Falling)
		if vCap <= j.cfg.VCheckpoint {
			j.nextEvent = jitEvCheckpointStart
			j.nextEventTick = t + 1
			j.nextEventPending = true
		} else {
			j.nextEventPending = false
		}
	}

	return loadEvent, nil
}

func (s *JITLoadStats) add(state jitState, dt int64, energy float64) {
	switch state {
	case jitOff:
		s.TimeOffTicks += dt
		s.EnergyOff += energy
	case jitRestore:
		s.TimeRestoreTicks += dt
		s.EnergyRestore += energy
	case jitCompute:
		s.TimeComputeTicks += dt
		s.EnergyCompute += energy
	case jitCheckpoint:
		s.TimeCheckpointTicks += dt
		s.EnergyCheckpoint += energy
	}
}

func (j *JITLoad) Monitor() *voltagemonitor.Monitor    { return j.monitor }
func (j *JITLoad) CapMonitor() *voltagemonitor.Monitor { return j.capMonitor }
func (j *JITLoad) Stats() JITLoadStats                 { return j.stats }

// ForwardProgress computes the end-of-run forward-progress metrics from the
// event log. When normalize is
// true, analysis is restricted to [first RESTORE, last RESTORE] so runs
// under different harvesting conditions are comparable.
func (j *JITLoad) ForwardProgress(normalize bool) ForwardProgressStats {
	entries := j.log
	windowed := false
	if normalize {
		first, last, ok := restoreBounds(entries)
		if ok {
			entries = entries[first : last+1]
			windowed = true
		}
	}

	var fp ForwardProgressStats
	segStart := make(map[int]int64) // index of state-entry start ticks, by position
	_ = segStart

	var timeComputeUseful int64
	var unavailable []int64
	var cycleOffStart int64 = -1

	for i, e := range entries {
		var segDT int64
		if i+1 < len(entries) {
			segDT = entries[i+1].time - e.time
		}
		if e.state == jitCompute && e.validCheckpoint {
			timeComputeUseful += segDT
		}
		if e.state == jitOff {
			if cycleOffStart < 0 {
				cycleOffStart = e.time
			}
		} else if e.state == jitRestore && cycleOffStart >= 0 {
			unavailable = append(unavailable, e.time-cycleOffStart)
			cycleOffStart = -1
		}
	}

	total := float64(j.stats.TimeComputeTicks + j.stats.TimeCheckpointTicks + j.stats.TimeRestoreTicks + j.stats.TimeOffTicks)
	if windowed {
		total = float64(entries[len(entries)-1].time - entries[0].time)
	}
	fp.TimeComputeUsefulTicks = timeComputeUseful
	if total > 0 {
		fp.ForwardProgress = float64(timeComputeUseful) / total
	}
	fp.TimeUnavailableMean, fp.TimeUnavailable95, fp.TimeUnavailableMax = ticksStats(unavailable)
	return fp
}

// ForwardProgressStats holds the derived JITLoad metrics.
type ForwardProgressStats struct {
	TimeComputeUsefulTicks int64
	ForwardProgress        float64
	TimeUnavailableMean    float64
	TimeUnavailable95      float64
	TimeUnavailableMax     int64
}

func restoreBounds(entries []jitLogEntry) (int, int, bool) {
	first, last := -1, -1
	for i, e := range entries {
		if e.state == jitRestore {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, 0, false
	}
	return first, last, true
}

func ticksStats(vals []int64) (mean, p95 float64, max int64) {
	if len(vals) == 0 {
		return 0, 0, 0
	}
	sorted := append([]int64(nil), vals...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	var sum int64
	for _, v := range sorted {
		sum += v
		if v > max {
			max = v
		}
	}
	mean = float64(sum) / float64(len(sorted))
	idx := int(0.95 * float64(len(sorted)-1))
	p95 = float64(sorted[idx])
	return mean, p95, max
}
