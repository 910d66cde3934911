package harvester_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/simcore/harvester"
)

func writeTEGTrace(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "teg.csv")
	body := "time_s,boost_ichg_ua\n0,100\n1,50\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestTEGReplaysTraceCurrent(t *testing.T) {
	h, err := harvester.NewTEG(harvester.TEGConfig{
		TraceFilePath: writeTEGTrace(t),
		DTBaseSeconds: 1,
	})
	require.NoError(t, err)
	require.NoError(t, h.Reset(0))

	_, ok := h.OCV(0)
	require.False(t, ok)

	require.InDelta(t, 100e-6, h.Current(0, 0), 1e-12)
	require.InDelta(t, 50e-6, h.Current(1, 0), 1e-12)

	next, ok := h.NextChange(0)
	require.True(t, ok)
	require.Equal(t, int64(1), next)
}

func TestTEGRequiresTraceFile(t *testing.T) {
	_, err := harvester.NewTEG(harvester.TEGConfig{})
	require.Error(t, err)
}
