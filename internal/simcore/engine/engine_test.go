package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simcore/capacitor"
	"intermittent-sim/internal/simcore/converter"
	"intermittent-sim/internal/simcore/engine"
	"intermittent-sim/internal/simcore/harvester"
	"intermittent-sim/internal/simcore/load"
)

type recordingLogger struct {
	samples []engine.Sample
}

func (r *recordingLogger) LogStep(s engine.Sample) { r.samples = append(r.samples, s) }

func TestSimulationRunsToCompletion(t *testing.T) {
	h, err := harvester.NewArtificial(harvester.ArtificialConfig{
		Shape: harvester.ShapeConst, IHigh: 400e-6, VOV: 5, VOC: 5, DTBaseSeconds: 1e-6,
	})
	require.NoError(t, err)

	c, err := capacitor.New(capacitor.Config{
		Kind: capacitor.Ideal, CapacitanceF: 110e-6, VRated: 3.6, VInitial: 3.0, DTBaseSeconds: 1e-6,
	})
	require.NoError(t, err)

	conv, err := converter.NewDiode(converter.DiodeConfig{VOV: 3.6})
	require.NoError(t, err)

	ld, err := load.NewConstantLoad(load.ConstantConfig{Current: 100e-6})
	require.NoError(t, err)

	sim := engine.New(h, c, conv, ld, engine.Config{DTBaseSeconds: 1e-6, MaxStepTicks: 1000})
	rec := &recordingLogger{}
	sim.Logger = rec

	err = sim.Run(1_000_000) // 1 second at 1us ticks
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), sim.Time())
	require.NotEmpty(t, rec.samples)

	v := c.Voltage()
	require.GreaterOrEqual(t, v, 0.0)
	require.LessOrEqual(t, v, 3.6+1e-9)
}

func TestSimulationRespectsMaxStep(t *testing.T) {
	h, err := harvester.NewArtificial(harvester.ArtificialConfig{
		Shape: harvester.ShapeConst, IHigh: 0, VOV: 5, VOC: 5, DTBaseSeconds: 1e-6,
	})
	require.NoError(t, err)
	c, err := capacitor.New(capacitor.Config{
		Kind: capacitor.Ideal, CapacitanceF: 100e-6, VRated: 5, VInitial: 2.0, DTBaseSeconds: 1e-6,
	})
	require.NoError(t, err)
	conv, err := converter.NewDiode(converter.DiodeConfig{VOV: 5})
	require.NoError(t, err)
	ld, err := load.NewConstantLoad(load.ConstantConfig{Current: 0})
	require.NoError(t, err)

	sim := engine.New(h, c, conv, ld, engine.Config{DTBaseSeconds: 1e-6, MaxStepTicks: 500})
	rec := &recordingLogger{}
	sim.Logger = rec

	require.NoError(t, sim.Run(5000))
	for _, s := range rec.samples {
		require.LessOrEqual(t, s.Dt, int64(500))
	}
}
