package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"intermittent-sim/internal/metrics"
)

func TestSweepRegistersWithoutCollision(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := metrics.NewSweep()
	require.NotPanics(t, func() { s.MustRegister(reg) })

	s.JobsTotal.WithLabelValues("ok").Inc()
	s.JobDuration.Observe(0.5)
	s.ActiveJobs.Set(3)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}
