package simconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simconfig"
)

const sampleYAML = `
dt_base: 0.000001
until: 1.0
capacitor:
  type: IdealCapacitor
  settings:
    capacitance: 0.00011
    v_rated: 3.6
    v_initial: 3.0
harvester:
  type: Artificial
  settings:
    shape: const
    i_high: 0.0004
    v_oc: 5
    v_ov: 5
converter:
  type: Diode
  settings:
    v_ov: 3.6
load:
  type: ConstantLoad
  settings:
    current: 0.0001
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	return path
}

func TestLoadValidatesRequiredTypes(t *testing.T) {
	path := writeSample(t)
	cfg, err := simconfig.Load(path)
	require.NoError(t, err)
	require.Equal(t, "IdealCapacitor", cfg.Capacitor.Type)
	require.Equal(t, "Artificial", cfg.Harvester.Type)
	require.InDelta(t, 0.00011, cfg.Capacitor.Settings["capacitance"], 1e-12)
}

func TestLoadRejectsMissingComponentType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capacitor:\n  type: \"\"\n"), 0o644))
	_, err := simconfig.Load(path)
	require.Error(t, err)
}

func TestApplyOverrideMutatesSettingsAndClone(t *testing.T) {
	path := writeSample(t)
	base, err := simconfig.Load(path)
	require.NoError(t, err)

	clone := base.Clone()
	require.NoError(t, clone.ApplyOverride("harvester.settings.i_high", 0.0008))
	require.InDelta(t, 0.0004, base.Harvester.Settings["i_high"], 1e-12)
	require.InDelta(t, 0.0008, clone.Harvester.Settings["i_high"], 1e-12)

	require.NoError(t, clone.ApplyOverride("capacitor.type", "TantalumCapacitor"))
	require.Equal(t, "TantalumCapacitor", clone.Capacitor.Type)
	require.Equal(t, "IdealCapacitor", base.Capacitor.Type)
}

func TestApplyOverrideRejectsUnknownRoot(t *testing.T) {
	var c simconfig.Config
	require.Error(t, c.ApplyOverride("nonsense.settings.x", 1))
}

func TestBuildSimulationFromConfig(t *testing.T) {
	path := writeSample(t)
	cfg, err := simconfig.Load(path)
	require.NoError(t, err)

	sim, err := simconfig.BuildSimulation(cfg)
	require.NoError(t, err)
	require.NoError(t, sim.Reset())
}
