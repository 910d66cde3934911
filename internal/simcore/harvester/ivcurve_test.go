package harvester_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simcore/harvester"
)

func writeIVCurveFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ivcurve.json")
	body := `{"0": 1e-3, "1": 8e-4, "2": 0}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestIVCurveInterpolatesBetweenSamples(t *testing.T) {
	h, err := harvester.NewIVCurve(harvester.IVCurveConfig{
		FilePath:      writeIVCurveFile(t),
		DTBaseSeconds: 1e-6,
	})
	require.NoError(t, err)
	require.NoError(t, h.Reset(0))

	ocv, ok := h.OCV(0)
	require.True(t, ok)
	require.Equal(t, 2.0, ocv)

	require.Equal(t, 1e-3, h.Current(0, 0))
	require.Equal(t, 0.0, h.Current(0, 2))
	require.InDelta(t, 9e-4, h.Current(0, 0.5), 1e-12)

	_, ok = h.NextChange(0)
	require.False(t, ok)
}

func TestIVCurveRequiresFilePath(t *testing.T) {
	_, err := harvester.NewIVCurve(harvester.IVCurveConfig{})
	require.Error(t, err)
}
