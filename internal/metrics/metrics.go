// Package metrics exposes the sweep driver's job counters and latency
// histogram as Prometheus collectors, following the namespace/subsystem
// registration idiom from sustainable-computing-io/kepler's exporter.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "intermittent_sim"

// Sweep collects sweep-job outcome counts and per-job duration.
type Sweep struct {
	JobsTotal   *prometheus.CounterVec
	JobDuration prometheus.Histogram
	ActiveJobs  prometheus.Gauge
}

// NewSweep constructs a fresh Sweep collector set. Callers register it with
// a prometheus.Registerer (or the default registry via MustRegister).
func NewSweep() *Sweep {
	return &Sweep{
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "jobs_total",
				Help:      "Count of sweep jobs by outcome (ok, error).",
			},
			[]string{"outcome"},
		),
		JobDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "job_duration_seconds",
				Help:      "Wall-clock duration of a single sweep job.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		ActiveJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "active_jobs",
				Help:      "Number of sweep jobs currently executing.",
			},
		),
	}
}

// MustRegister registers every collector with reg.
func (s *Sweep) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(s.JobsTotal, s.JobDuration, s.ActiveJobs)
}
