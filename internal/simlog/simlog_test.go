package simlog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simcore/engine"
	"intermittent-sim/internal/simlog"
)

func TestRecorderSplitsSampleIntoFourFrames(t *testing.T) {
	rec := simlog.NewRecorder()
	rec.LogStep(engine.Sample{T: 0, VCap: 3.0, VIn: 4.8, IIn: 1e-4, VOut: 3.0, IOut: 1e-4, EtaIn: 0.9, EtaOut: 0.95, ILeak: 1e-7, INet: 5e-6})
	rec.LogStep(engine.Sample{T: 100, VCap: 3.01, LoadSignal: 1})

	require.Len(t, rec.Cap, 2)
	require.Len(t, rec.Harvester, 2)
	require.Len(t, rec.Converter, 2)
	require.Len(t, rec.Load, 2)
	require.Equal(t, "FORCE_OFF", rec.Load[1].Signal)
	require.Equal(t, "NONE", rec.Load[0].Signal)
}

func TestWriteFramesProducesLeadingSweepRow(t *testing.T) {
	rec := simlog.NewRecorder()
	rec.LogStep(engine.Sample{T: 0, VCap: 3.0})

	var buf bytes.Buffer
	err := simlog.WriteFrames(&buf, map[string]string{"i_high": "0.0004"}, rec)
	require.NoError(t, err)

	lines := strings.Split(buf.String(), "\n")
	require.Equal(t, "i_high", lines[0])
	require.Equal(t, "0.0004", lines[1])
}
