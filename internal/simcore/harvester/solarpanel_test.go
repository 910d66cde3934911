package harvester_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simcore/harvester"
)

func writeIrradianceTrace(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "irradiance.json")
	header := `{"Type":"irradiance","StartTime":"2020-01-01T00:00:00Z","Season":"summer","TraceLength":2}`
	body := `{"0": {"irradiance": 1000}, "1": {"irradiance": 500}}`
	require.NoError(t, os.WriteFile(path, []byte(header+"\n"+body), 0o644))
	return path
}

func TestSolarPanelZeroCurrentAtOpenCircuit(t *testing.T) {
	h, err := harvester.NewSolarPanel(harvester.SolarPanelConfig{
		TraceFilePath: writeIrradianceTrace(t),
		ISC:           0.5,
		IMPP:          0.45,
		VMPP:          0.45,
		VOCNom:        0.6,
		DTBaseSeconds: 1e-6,
	})
	require.NoError(t, err)
	require.NoError(t, h.Reset(0))

	ocv, ok := h.OCV(0)
	require.True(t, ok)
	require.Equal(t, 0.6, ocv)

	require.Equal(t, 0.0, h.Current(0, 0.6))
	require.Greater(t, h.Current(0, 0), 0.0)
}

func TestSolarPanelStepsIrradianceAtTraceTicks(t *testing.T) {
	h, err := harvester.NewSolarPanel(harvester.SolarPanelConfig{
		TraceFilePath: writeIrradianceTrace(t),
		ISC:           0.5,
		IMPP:          0.45,
		VMPP:          0.45,
		VOCNom:        0.6,
		DTBaseSeconds: 1,
	})
	require.NoError(t, err)
	require.NoError(t, h.Reset(0))

	atStart := h.Current(0, 0.1)
	atSecondSample := h.Current(1, 0.1)
	require.Greater(t, atStart, atSecondSample)

	_, ok := h.NextChange(0)
	require.True(t, ok)
}

func TestSolarPanelRequiresDatasheetFields(t *testing.T) {
	_, err := harvester.NewSolarPanel(harvester.SolarPanelConfig{TraceFilePath: "x.json"})
	require.Error(t, err)
}
