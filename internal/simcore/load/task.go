package load

import (
	"log"

	"intermittent-sim/internal/simcore/voltagemonitor"
)

// Task is one entry of a TaskLoad's finite ordered task list.
type Task struct {
	Name            string
	DurationSeconds float64
	Current         float64
}

// TaskLoadConfig configures a TaskLoad.
type TaskLoadConfig struct {
	Tasks                   []Task
	VOn                     float64 // rising threshold that wakes the load from OFF
	VOff                    float64 // falling threshold that fails the active task
	SkipInitialTask         int     // task index resumed to after completing the last task
	ShutdownAfterCompletion bool
	DTBaseSeconds           float64
	VerboseLog              bool
	Verbose                 bool
}

// TaskLoad cycles through a fixed list of tasks, each drawing its own
// current for a fixed duration, restarting on power loss.
type TaskLoad struct {
	cfg        TaskLoadConfig
	monitor    *voltagemonitor.Monitor
	capMonitor *voltagemonitor.Monitor

	taskTicks []int64

	running     bool
	taskIdx     int
	taskStart   int64
	dueTick     int64
	wastedEnergyAccum float64

	stats TaskLoadStats
}

// TaskLoadStats accumulates per-task failure bookkeeping.
type TaskLoadStats struct {
	FailuresByTask     map[string]int
	WastedTimeByTask   map[string]int64 // ticks
	WastedEnergyByTask map[string]float64
	CompletionsByTask  map[string]int
}

func newTaskLoadStats() TaskLoadStats {
	return TaskLoadStats{
		FailuresByTask:     map[string]int{},
		WastedTimeByTask:   map[string]int64{},
		WastedEnergyByTask: map[string]float64{},
		CompletionsByTask:  map[string]int{},
	}
}

func NewTaskLoad(cfg TaskLoadConfig) (*TaskLoad, error) {
	if len(cfg.Tasks) == 0 {
		return nil, &ConfigError{Msg: "task load requires at least one task"}
	}
	if cfg.VOn <= cfg.VOff {
		return nil, &ConfigError{Msg: "task load requires v_on > v_off"}
	}
	if cfg.DTBaseSeconds <= 0 {
		cfg.DTBaseSeconds = 1e-6
	}
	if cfg.SkipInitialTask < 0 || cfg.SkipInitialTask >= len(cfg.Tasks) {
		cfg.SkipInitialTask = 0
	}
	if cfg.Verbose {
		log.Printf("[load] creating task load with %d tasks", len(cfg.Tasks))
	}
	tl := &TaskLoad{
		cfg:        cfg,
		monitor:    voltagemonitor.New(),
		capMonitor: voltagemonitor.New(),
		taskTicks:  make([]int64, len(cfg.Tasks)),
	}
	for i, task := range cfg.Tasks {
		tl.taskTicks[i] = int64(task.DurationSeconds / cfg.DTBaseSeconds)
	}
	return tl, nil
}

func (tl *TaskLoad) Reset(vOutInitial, vCapInitial float64) error {
	tl.running = false
	tl.taskIdx = 0
	tl.wastedEnergyAccum = 0
	tl.stats = newTaskLoadStats()
	tl.monitor.UnregisterName("ON")
	tl.monitor.UnregisterName("OFF")
	tl.monitor.Register("ON", tl.cfg.VOn, voltagemonitor.Rising)
	return nil
}

func (tl *TaskLoad) Current(vOut float64) float64 {
	if vOut <= 0 || !tl.running {
		return 0
	}
	return tl.cfg.Tasks[tl.taskIdx].Current
}

func (tl *TaskLoad) NextChange(t int64) (int64, bool) {
	if !tl.running {
		return 0, false
	}
	remaining := tl.dueTick - t
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

func hasEvent(events []string, name string) bool {
	for _, e := range events {
		if e == name {
			return true
		}
	}
	return false
}

func (tl *TaskLoad) Update(t, dt int64, vOut, vCap float64, vOutEvents, vCapEvents []string) (Signal, error) {
	if tl.cfg.VerboseLog {
		log.Printf("[load] t=%d v_out=%g v_cap=%g running=%v task=%d", t, vOut, vCap, tl.running, tl.taskIdx)
	}
	if tl.running {
		tl.wastedEnergyAccum += tl.cfg.Tasks[tl.taskIdx].Current * vOut * float64(dt) * tl.cfg.DTBaseSeconds
	}

	if !tl.running && hasEvent(vOutEvents, "ON") {
		tl.startTask(t, tl.taskIdx)
		return SignalNone, nil
	}

	if tl.running && hasEvent(vOutEvents, "OFF") {
		task := tl.cfg.Tasks[tl.taskIdx]
		tl.stats.FailuresByTask[task.Name]++
		tl.stats.WastedTimeByTask[task.Name] += t - tl.taskStart
		tl.stats.WastedEnergyByTask[task.Name] += tl.wastedEnergyAccum
		tl.running = false
		tl.monitor.UnregisterName("OFF")
		tl.monitor.Register("ON", tl.cfg.VOn, voltagemonitor.Rising)
		return SignalForceOff, nil
	}

	if tl.running && t >= tl.dueTick {
		task := tl.cfg.Tasks[tl.taskIdx]
		tl.stats.CompletionsByTask[task.Name]++
		next := tl.taskIdx + 1
		last := next >= len(tl.cfg.Tasks)
		if last {
			if tl.cfg.ShutdownAfterCompletion {
				tl.running = false
				tl.monitor.UnregisterName("OFF")
				tl.monitor.Register("ON", tl.cfg.VOn, voltagemonitor.Rising)
				return SignalForceOff, nil
			}
			next = tl.cfg.SkipInitialTask
		}
		tl.startTask(t, next)
	}

	return SignalNone, nil
}

func (tl *TaskLoad) startTask(t int64, idx int) {
	tl.running = true
	tl.taskIdx = idx
	tl.taskStart = t
	tl.dueTick = t + tl.taskTicks[idx]
	tl.wastedEnergyAccum = 0
	tl.monitor.UnregisterName("ON")
	tl.monitor.Register("OFF", tl.cfg.VOff, voltagemonitor.Falling)
}

func (tl *TaskLoad) Monitor() *voltagemonitor.Monitor    { return tl.monitor }
func (tl *TaskLoad) CapMonitor() *voltagemonitor.Monitor { return tl.capMonitor }
func (tl *TaskLoad) Stats() TaskLoadStats                { return tl.stats }
