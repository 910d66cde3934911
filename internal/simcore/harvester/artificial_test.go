package harvester_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simcore/harvester"
)

func TestArtificialConstShape(t *testing.T) {
	h, err := harvester.NewArtificial(harvester.ArtificialConfig{
		Shape:         harvester.ShapeConst,
		IHigh:         400e-6,
		VOV:           5,
		DTBaseSeconds: 1e-6,
	})
	require.NoError(t, err)
	require.NoError(t, h.Reset(0))

	require.Equal(t, 400e-6, h.Current(0, 3.0))
	require.Equal(t, 0.0, h.Current(0, 5.0))
	_, ok := h.NextChange(0)
	require.False(t, ok)
}

func TestArtificialSquareShapeEdges(t *testing.T) {
	h, err := harvester.NewArtificial(harvester.ArtificialConfig{
		Shape:         harvester.ShapeSquare,
		IHigh:         1e-3,
		ILow:          0,
		THighSeconds:  1e-3,
		TLowSeconds:   1e-3,
		DTBaseSeconds: 1e-6,
		VOV:           5,
	})
	require.NoError(t, err)
	require.NoError(t, h.Reset(0))

	require.Equal(t, 1e-3, h.Current(0, 0))
	require.Equal(t, 0.0, h.Current(1500, 0))

	next, ok := h.NextChange(0)
	require.True(t, ok)
	require.Equal(t, int64(1000), next)
}

func TestArtificialSineNonNegative(t *testing.T) {
	h, err := harvester.NewArtificial(harvester.ArtificialConfig{
		Shape:         harvester.ShapeSine,
		IHigh:         1e-3,
		PeriodSeconds: 1e-3,
		DTBaseSeconds: 1e-6,
		VOV:           5,
	})
	require.NoError(t, err)
	require.NoError(t, h.Reset(0))

	for tick := int64(0); tick < 1000; tick += 100 {
		i := h.Current(tick, 0)
		require.GreaterOrEqual(t, i, 0.0)
		require.LessOrEqual(t, i, 1e-3+1e-12)
	}
}
