package simconfig

import (
	"fmt"
	"path/filepath"

	"intermittent-sim/internal/simcore/capacitor"
	"intermittent-sim/internal/simcore/converter"
	"intermittent-sim/internal/simcore/engine"
	"intermittent-sim/internal/simcore/harvester"
	"intermittent-sim/internal/simcore/load"
	"intermittent-sim/internal/tracedata"
)

// BuildSimulation constructs a fresh, unreset engine.Simulation from a
// validated Config. Each Build* helper below is reusable independently,
// e.g. by the sweep driver's per-job construction.
func BuildSimulation(c *Config) (*engine.Simulation, error) {
	verbose := c.Engine.Verbose
	capa, err := BuildCapacitor(c.Capacitor, c.DTBaseSeconds, verbose)
	if err != nil {
		return nil, fmt.Errorf("capacitor: %w", err)
	}
	h, err := BuildHarvester(c.Harvester, c.DTBaseSeconds, c.dir, verbose)
	if err != nil {
		return nil, fmt.Errorf("harvester: %w", err)
	}
	conv, err := BuildConverter(c.Converter, c.dir, verbose)
	if err != nil {
		return nil, fmt.Errorf("converter: %w", err)
	}
	ld, err := BuildLoad(c.Load, c.DTBaseSeconds, verbose)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	maxStep := int64(0)
	if c.Engine.TimestepSeconds > 0 {
		maxStep = int64(c.Engine.TimestepSeconds / c.DTBaseSeconds)
	}
	sim := engine.New(h, capa, conv, ld, engine.Config{DTBaseSeconds: c.DTBaseSeconds, MaxStepTicks: maxStep, Verbose: verbose})
	return sim, nil
}

// BuildCapacitor constructs the capacitor named by cc.Type ("IdealCapacitor"
// or "TantalumCapacitor").
func BuildCapacitor(cc ComponentConfig, dtBase float64, verbose bool) (*capacitor.Capacitor, error) {
	s := cc.Settings
	kind := capacitor.Ideal
	switch cc.Type {
	case "IdealCapacitor", "":
		kind = capacitor.Ideal
	case "TantalumCapacitor":
		kind = capacitor.Tantalum
	default:
		return nil, fmt.Errorf("unknown capacitor type %q", cc.Type)
	}
	return capacitor.New(capacitor.Config{
		Kind:          kind,
		CapacitanceF:  getFloat(s, "capacitance", 0),
		VRated:        getFloat(s, "v_rated", 0),
		VInitial:      getFloat(s, "v_initial", 0),
		Log:           getBool(s, "log", false),
		DTBaseSeconds: dtBase,
		Verbose:       verbose,
	})
}

// BuildHarvester constructs the harvester named by hc.Type ("Artificial",
// "IVCurve", "SolarPanel", "TEG"). Artificial's shape is selected
// by the "shape" setting ("const", "square", "sine"). File-backed settings
// (IVCurve's "file", SolarPanel's and TEG's "trace_file") resolve relative
// to dir (the owning config file's directory) before falling back to the
// working directory.
func BuildHarvester(hc ComponentConfig, dtBase float64, dir string, verbose bool) (harvester.Harvester, error) {
	s := hc.Settings
	switch hc.Type {
	case "Artificial":
		shape := harvester.ShapeConst
		switch getString(s, "shape", "const") {
		case "const":
			shape = harvester.ShapeConst
		case "square":
			shape = harvester.ShapeSquare
		case "sine":
			shape = harvester.ShapeSine
		default:
			return nil, fmt.Errorf("unknown artificial harvester shape %q", getString(s, "shape", ""))
		}
		return harvester.NewArtificial(harvester.ArtificialConfig{
			Shape:         shape,
			VOC:           getFloat(s, "v_oc", 5),
			VOV:           getFloat(s, "v_ov", 5),
			IHigh:         getFloat(s, "i_high", 0),
			ILow:          getFloat(s, "i_low", 0),
			THighSeconds:  getFloat(s, "t_high", 0),
			TLowSeconds:   getFloat(s, "t_low", 0),
			PeriodSeconds: getFloat(s, "period", 0),
			DTBaseSeconds: dtBase,
			Verbose:       verbose,
		})
	case "IVCurve":
		return harvester.NewIVCurve(harvester.IVCurveConfig{
			FilePath:      resolvePath(dir, getString(s, "file", "")),
			DTBaseSeconds: dtBase,
			Verbose:       verbose,
		})
	case "SolarPanel":
		return harvester.NewSolarPanel(harvester.SolarPanelConfig{
			TraceFilePath: resolvePath(dir, getString(s, "trace_file", "")),
			ISC:           getFloat(s, "i_sc", 0),
			IMPP:          getFloat(s, "i_mpp", 0),
			VMPP:          getFloat(s, "v_mpp", 0),
			VOCNom:        getFloat(s, "v_oc_nom", 0),
			SeriesCells:   getInt(s, "series_cells", 1),
			ParallelCells: getInt(s, "parallel_cells", 1),
			DTBaseSeconds: dtBase,
			Verbose:       verbose,
		})
	case "TEG":
		return harvester.NewTEG(harvester.TEGConfig{
			TraceFilePath: resolvePath(dir, getString(s, "trace_file", "")),
			DTBaseSeconds: dtBase,
			Verbose:       verbose,
		})
	default:
		return nil, fmt.Errorf("unknown harvester type %q", hc.Type)
	}
}

// BuildConverter constructs the converter named by cc.Type ("Diode", "LDO",
// "Hysteresis", "BuckConverter", "BuckBoost", "BQ25570"). BQ25570's LUT
// files resolve relative to dir (the owning config file's directory) before
// falling back to the working directory.
func BuildConverter(cc ComponentConfig, dir string, verbose bool) (converter.Converter, error) {
	s := cc.Settings
	switch cc.Type {
	case "Diode", "":
		return converter.NewDiode(converter.DiodeConfig{VOV: getFloat(s, "v_ov", 0), Verbose: verbose})
	case "LDO":
		return converter.NewLDO(converter.LDOConfig{
			VOut:              getFloat(s, "v_out", 0),
			IQuiescent:        getFloat(s, "i_quiescent", 0),
			IQuiescentOff:     getFloat(s, "i_quiescent_off", 0),
			HysteresisEnabled: getBool(s, "hysteresis_enabled", false),
			VHigh:             getFloat(s, "v_high", 0),
			VLow:              getFloat(s, "v_low", 0),
			Verbose:           verbose,
		})
	case "Hysteresis":
		return converter.NewHysteresis(converter.HysteresisConfig{
			VHigh:      getFloat(s, "v_high", 0),
			VLow:       getFloat(s, "v_low", 0),
			IQuiescent: getFloat(s, "i_quiescent", 0),
			Verbose:    verbose,
		})
	case "BuckConverter":
		return converter.NewBuck(converter.BuckConfig{
			VOut:     getFloat(s, "v_out", 0),
			VOV:      getFloat(s, "v_ov", 0),
			Eta:      getFloat(s, "eta", 1),
			InputEta: getFloat(s, "input_eta", 1),
			Verbose:  verbose,
		})
	case "BuckBoost":
		return converter.NewBuckBoost(converter.BuckBoostConfig{
			VIn:           getFloat(s, "v_in", 0),
			VOut:          getFloat(s, "v_out", 0),
			VOV:           getFloat(s, "v_ov", 0),
			EfficiencyIn:  getFloat(s, "efficiency_in", 1),
			EfficiencyOut: getFloat(s, "efficiency_out", 1),
			Verbose:       verbose,
		})
	case "BQ25570":
		return buildBQ25570(s, dir, verbose)
	default:
		return nil, fmt.Errorf("unknown converter type %q", cc.Type)
	}
}

// buildBQ25570 reads the v_out rail setting and validates it against
// converter.SupportedVOutRails before touching the filesystem, then
// resolves the boost/buck/quiescent LUT files. Explicit "boost_lut",
// "buck_lut", "quiescent_active" and "quiescent_standby" settings win when
// present; otherwise the filenames are derived from "lut_dir" and v_out
// following the naming scheme of the reference converter_data fixtures
// (buckConverterData_vout=<v_out>.csv etc).
func buildBQ25570(s map[string]any, dir string, verbose bool) (converter.Converter, error) {
	vOut := getFloat(s, "v_out", 0)
	if !converter.ValidVOut(vOut) {
		return nil, &converter.ConfigError{
			Msg: fmt.Sprintf("bq25570 v_out %g is not in the supported set %v", vOut, converter.SupportedVOutRails),
		}
	}

	lutDir := getString(s, "lut_dir", "")
	boostPath := getString(s, "boost_lut", "")
	if boostPath == "" && lutDir != "" {
		boostPath = filepath.Join(lutDir, "boostConverterData.csv")
	}
	buckPath := getString(s, "buck_lut", "")
	if buckPath == "" && lutDir != "" {
		buckPath = filepath.Join(lutDir, fmt.Sprintf("buckConverterData_vout=%g.csv", vOut))
	}
	activePath := getString(s, "quiescent_active", "")
	if activePath == "" && lutDir != "" {
		activePath = filepath.Join(lutDir, "quiescentData_activeMode.csv")
	}
	standbyPath := getString(s, "quiescent_standby", "")
	if standbyPath == "" && lutDir != "" {
		standbyPath = filepath.Join(lutDir, "quiescentData_standbyMode.csv")
	}

	boostLUT, err := tracedata.LoadBoostLUT(resolvePath(dir, boostPath))
	if err != nil {
		return nil, err
	}
	buckLUT, err := tracedata.LoadBuckLUT(resolvePath(dir, buckPath))
	if err != nil {
		return nil, err
	}
	active, err := tracedata.LoadQuiescentLUT(resolvePath(dir, activePath))
	if err != nil {
		return nil, err
	}
	standby, err := tracedata.LoadQuiescentLUT(resolvePath(dir, standbyPath))
	if err != nil {
		return nil, err
	}

	return converter.NewBQ25570(converter.BQ25570Config{
		VOV:               getFloat(s, "v_ov", 0),
		VOut:              vOut,
		BoostLUT:          boostLUT,
		BuckLUT:           buckLUT,
		QuiescentActive:   active,
		QuiescentStandby:  standby,
		HysteresisEnabled: getBool(s, "hysteresis_enabled", false),
		VOutOKHigh:        getFloat(s, "v_out_ok_high", 0),
		VOutOKLow:         getFloat(s, "v_out_ok_low", 0),
		Verbose:           verbose,
	})
}

// BuildLoad constructs the load named by lc.Type ("ConstantLoad", "TaskLoad",
// "JITLoad", "AdvancedJITLoad").
func BuildLoad(lc ComponentConfig, dtBase float64, verbose bool) (load.Load, error) {
	s := lc.Settings
	verboseLog := getBool(s, "verbose_log", false)
	switch lc.Type {
	case "ConstantLoad", "":
		return load.NewConstantLoad(load.ConstantConfig{
			Current:    getFloat(s, "current", 0),
			Verbose:    verbose,
			VerboseLog: verboseLog,
		})
	case "TaskLoad":
		return load.NewTaskLoad(load.TaskLoadConfig{
			Tasks:                   buildTasks(s["tasks"]),
			VOn:                     getFloat(s, "v_on", 0),
			VOff:                    getFloat(s, "v_off", 0),
			SkipInitialTask:         getInt(s, "skip_initial_task", 0),
			ShutdownAfterCompletion: getBool(s, "shutdown_after_completion", false),
			DTBaseSeconds:           dtBase,
			Verbose:                 verbose,
			VerboseLog:              verboseLog,
		})
	case "JITLoad":
		return load.NewJITLoad(load.JITLoadConfig{
			VOff:                     getFloat(s, "v_off", 0),
			VOn:                      getFloat(s, "v_on", 0),
			VCheckpoint:              getFloat(s, "v_checkpoint", 0),
			CurrentOff:               getFloat(s, "current_off", 0),
			CurrentRestore:           getFloat(s, "current_restore", 0),
			CurrentCompute:           getFloat(s, "current_compute", 0),
			CurrentCheckpoint:        getFloat(s, "current_checkpoint", 0),
			TCheckpointSeconds:       getFloat(s, "t_checkpoint", 0),
			TCheckpointPeriodSeconds: getFloat(s, "t_checkpoint_period", 0),
			TRestoreSeconds:          getFloat(s, "t_restore", 0),
			TRestoreStartupSeconds:   getFloat(s, "t_restore_startup", 0),
			DTBaseSeconds:            dtBase,
			Verbose:                  verbose,
			VerboseLog:               verboseLog,
		})
	case "AdvancedJITLoad":
		app, err := buildApplication(s["application"], dtBase, verbose)
		if err != nil {
			return nil, err
		}
		return load.NewAdvancedJITLoad(load.AdvancedJITLoadConfig{
			VRestore:        getFloat(s, "v_restore", 0),
			VSave:           getFloat(s, "v_save", 0),
			VMin:            getFloat(s, "v_min", 0),
			CurrentOff:      getFloat(s, "current_off", 0),
			CurrentRestore:  getFloat(s, "current_restore", 0),
			CurrentSave:     getFloat(s, "current_save", 0),
			TRestoreSeconds: getFloat(s, "t_restore", 0),
			TSaveSeconds:    getFloat(s, "t_save", 0),
			InitialState:    getString(s, "initial_state", "OFF"),
			Application:     app,
			DTBaseSeconds:   dtBase,
			Verbose:         verbose,
			VerboseLog:      verboseLog,
		})
	default:
		return nil, fmt.Errorf("unknown load type %q", lc.Type)
	}
}

func buildTasks(raw any) []load.Task {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	tasks := make([]load.Task, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tasks = append(tasks, load.Task{
			Name:            getString(m, "name", ""),
			DurationSeconds: getFloat(m, "duration", 0),
			Current:         getFloat(m, "current", 0),
		})
	}
	return tasks
}

func buildApplication(raw any, dtBase float64, verbose bool) (load.Application, error) {
	m, _ := raw.(map[string]any)
	appType := getString(m, "type", "Computation")
	switch appType {
	case "Computation", "":
		return &load.Computation{IActive: getFloat(m, "i_active", 0)}, nil
	case "Atomic":
		return load.NewAtomic(load.AtomicConfig{
			IActive:       getFloat(m, "i_active", 0),
			TTaskSeconds:  getFloat(m, "t_task", 0),
			DTBaseSeconds: dtBase,
			Verbose:       verbose,
		}), nil
	default:
		return nil, fmt.Errorf("unknown application type %q", appType)
	}
}
