package load_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simcore/load"
)

func TestConstantLoadDrawsWhenPowered(t *testing.T) {
	c, err := load.NewConstantLoad(load.ConstantConfig{Current: 1e-3})
	require.NoError(t, err)
	require.NoError(t, c.Reset(0, 0))
	require.Equal(t, 1e-3, c.Current(3.0))
	require.Equal(t, 0.0, c.Current(0))
}

func TestTaskLoadCyclesAndFails(t *testing.T) {
	tl, err := load.NewTaskLoad(load.TaskLoadConfig{
		Tasks: []load.Task{
			{Name: "INIT", DurationSeconds: 1e-3, Current: 1e-4},
			{Name: "SENSE", DurationSeconds: 1e-3, Current: 2e-4},
		},
		VOn:           2.5,
		VOff:          2.0,
		DTBaseSeconds: 1e-6,
	})
	require.NoError(t, err)
	require.NoError(t, tl.Reset(3.0, 3.0))

	sig, err := tl.Update(0, 0, 0, 3.0, []string{"ON"}, nil)
	require.NoError(t, err)
	require.Equal(t, load.SignalNone, sig)
	require.Equal(t, 1e-4, tl.Current(3.0))

	due, ok := tl.NextChange(0)
	require.True(t, ok)
	require.Equal(t, int64(1000), due)

	sig, err = tl.Update(1000, 1000, 3.0, 3.0, nil, nil)
	require.NoError(t, err)
	require.Equal(t, load.SignalNone, sig)
	require.Equal(t, 2e-4, tl.Current(3.0))

	sig, err = tl.Update(1500, 500, 3.0, 3.0, []string{"OFF"}, nil)
	require.NoError(t, err)
	require.Equal(t, load.SignalForceOff, sig)
	require.Equal(t, 0.0, tl.Current(3.0))
	require.Equal(t, 1, tl.Stats().FailuresByTask["SENSE"])
}

func TestJITLoadRestoreThenCompute(t *testing.T) {
	j, err := load.NewJITLoad(load.JITLoadConfig{
		VOff:                     2.0,
		VOn:                      2.5,
		VCheckpoint:              2.2,
		CurrentCompute:           1e-4,
		CurrentRestore:           5e-4,
		TRestoreStartupSeconds:   1e-3,
		TRestoreSeconds:          1e-3,
		TCheckpointSeconds:       1e-4,
		TCheckpointPeriodSeconds: 5e-3,
		DTBaseSeconds:            1e-6,
	})
	require.NoError(t, err)
	require.NoError(t, j.Reset(0, 0))

	sig, err := j.Update(0, 0, 0, 0, []string{"ON"}, nil)
	require.NoError(t, err)
	require.Equal(t, load.SignalNone, sig)

	due, ok := j.NextChange(0)
	require.True(t, ok)
	require.Equal(t, int64(1000), due)

	_, err = j.Update(1000, 1000, 2.8, 2.8, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, j.Stats().NumRestoreSuccessful)
}

func TestAdvancedJITLoadComputationRuns(t *testing.T) {
	app := &load.Computation{IActive: 2e-4}
	a, err := load.NewAdvancedJITLoad(load.AdvancedJITLoadConfig{
		VRestore:        2.6,
		VSave:           2.3,
		VMin:            2.0,
		TRestoreSeconds: 1e-3,
		TSaveSeconds:    1e-4,
		Application:     app,
		DTBaseSeconds:   1e-6,
		InitialState:    "OFF",
	})
	require.NoError(t, err)
	require.NoError(t, a.Reset(0, 0))

	_, err = a.Update(0, 0, 2.8, 2.8, nil, []string{"RESTORE"})
	require.NoError(t, err)

	_, err = a.Update(1000, 1000, 2.8, 2.8, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2e-4, a.Current(2.8))
}

func TestAtomicApplicationTracksFailure(t *testing.T) {
	at := load.NewAtomic(load.AtomicConfig{IActive: 1e-4, TTaskSeconds: 1e-3, DTBaseSeconds: 1e-6})
	at.Reset()
	at.Start(0)
	at.Stop(500) // stopped before completion: failure
	succ, fail := at.Stats()
	require.Equal(t, 0, succ)
	require.Equal(t, 1, fail)
}
