package sweep_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simconfig"
	"intermittent-sim/internal/sweep"
)

func baseConfig() *simconfig.Config {
	return &simconfig.Config{
		DTBaseSeconds: 1e-6,
		UntilSeconds:  0.01,
		Capacitor: simconfig.ComponentConfig{
			Type: "IdealCapacitor",
			Settings: map[string]any{
				"capacitance": 110e-6, "v_rated": 3.6, "v_initial": 3.0,
			},
		},
		Harvester: simconfig.ComponentConfig{
			Type: "Artificial",
			Settings: map[string]any{
				"shape": "const", "i_high": 400e-6, "v_oc": 5.0, "v_ov": 5.0,
			},
		},
		Converter: simconfig.ComponentConfig{
			Type:     "Diode",
			Settings: map[string]any{"v_ov": 3.6},
		},
		Load: simconfig.ComponentConfig{
			Type:     "ConstantLoad",
			Settings: map[string]any{"current": 100e-6},
		},
	}
}

func TestRunExpandsCartesianProductAndExtractsMetrics(t *testing.T) {
	req := sweep.Request{
		Base: baseConfig(),
		Params: []sweep.ParamSpec{
			{FieldPath: "load.settings.current", Values: []any{50e-6, 100e-6}},
			{FieldPath: "capacitor.settings.v_initial", Values: []any{2.5, 3.0}},
		},
		Metrics: map[string][]string{"cap": {"v_cap"}},
	}

	results, err := sweep.Run(req, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for _, r := range results {
		require.NoError(t, r.Err)
		require.Contains(t, r.Metrics, "cap.v_cap.final")
	}
}

func TestRunReportsPerJobErrorsWithoutAbortingOthers(t *testing.T) {
	base := baseConfig()
	base.Converter.Type = "LDO" // missing required v_out -> ConfigError on build

	req := sweep.Request{
		Base:    base,
		Params:  []sweep.ParamSpec{{FieldPath: "load.settings.current", Values: []any{10e-6, 20e-6}}},
		Metrics: map[string][]string{"cap": {"v_cap"}},
	}

	results, err := sweep.Run(req, nil)
	require.Error(t, err)
	var sweepErr *sweep.SweepError
	require.ErrorAs(t, err, &sweepErr)
	require.Len(t, sweepErr.Failed, 2)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Error(t, r.Err)
	}
}

func TestRankTracesSortsDescendingAndSkipsErrors(t *testing.T) {
	results := []sweep.Result{
		{Params: map[string]string{"x": "1"}, Metrics: map[string]float64{"cap.v_cap.final": 1.0}},
		{Params: map[string]string{"x": "2"}, Metrics: map[string]float64{"cap.v_cap.final": 3.0}},
		{Params: map[string]string{"x": "3"}, Err: assertErr("boom")},
	}
	ranked := sweep.RankTraces(results, "cap.v_cap.final")
	require.Len(t, ranked, 2)
	require.Equal(t, "2", ranked[0].Params["x"])
	require.Equal(t, "1", ranked[1].Params["x"])
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
