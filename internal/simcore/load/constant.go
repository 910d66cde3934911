package load

import (
	"log"

	"intermittent-sim/internal/simcore/voltagemonitor"
)

// ConstantConfig configures a load with no internal state at all.
type ConstantConfig struct {
	Current    float64 // drawn whenever v_out > 0
	VerboseLog bool
	Verbose    bool
}

// ConstantLoad draws a fixed current whenever supplied with a non-zero rail.
type ConstantLoad struct {
	cfg        ConstantConfig
	monitor    *voltagemonitor.Monitor
	capMonitor *voltagemonitor.Monitor
}

func NewConstantLoad(cfg ConstantConfig) (*ConstantLoad, error) {
	if cfg.Current < 0 {
		return nil, &ConfigError{Msg: "constant load requires current >= 0"}
	}
	if cfg.Verbose {
		log.Printf("[load] creating constant load")
	}
	return &ConstantLoad{
		cfg:        cfg,
		monitor:    voltagemonitor.New(),
		capMonitor: voltagemonitor.New(),
	}, nil
}

func (c *ConstantLoad) Reset(vOutInitial, vCapInitial float64) error { return nil }

func (c *ConstantLoad) Current(vOut float64) float64 {
	if vOut <= 0 {
		return 0
	}
	return c.cfg.Current
}

func (c *ConstantLoad) NextChange(t int64) (int64, bool) { return 0, false }

func (c *ConstantLoad) Update(t, dt int64, vOut, vCap float64, vOutEvents, vCapEvents []string) (Signal, error) {
	if c.cfg.VerboseLog {
		log.Printf("[load] t=%d v_out=%g v_cap=%g", t, vOut, vCap)
	}
	return SignalNone, nil
}

func (c *ConstantLoad) Monitor() *voltagemonitor.Monitor    { return c.monitor }
func (c *ConstantLoad) CapMonitor() *voltagemonitor.Monitor { return c.capMonitor }
