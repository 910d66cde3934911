// Package sweep implements the parameter-sweep driver: expands
// a cartesian grid of configuration overrides into independent simulation
// jobs, runs them across a bounded worker pool, and collects per-job metric
// rows and errors. Jobs share no state and construct a fresh simulation
// each, so the pool itself follows that independence rather than a copied
// shape; RankTraces's sort-by-metric idiom follows battery-backtest's
// internal/analysis/rank.go (RankByOracleProfit).
package sweep

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"intermittent-sim/internal/metrics"
	"intermittent-sim/internal/simconfig"
	"intermittent-sim/internal/simlog"
)

// ParamSpec is one sweep dimension: a dotted config field path and the
// values to cross it with.
type ParamSpec struct {
	FieldPath string `json:"field_path"`
	Values    []any  `json:"values"`
}

// Settings carries the engine-level knobs a sweep request can override.
type Settings struct {
	TimestepSeconds float64 `json:"timestep"`
	StoreLogData    bool    `json:"store_log_data"`
	LogPath         string  `json:"log_path"`
	NormalizeStats  bool    `json:"normalize_stats"`
}

// Request is one sweep invocation: a base configuration, the dimensions to
// cross, and which metrics to extract from each job's log frames.
type Request struct {
	Base         *simconfig.Config
	Params       []ParamSpec
	Metrics      map[string][]string // component -> requested column names
	Settings     Settings
	UntilSeconds float64
}

// Result is one sweep job's outcome: the parameter combination that
// produced it, extracted metrics, and (if the job failed) its error.
type Result struct {
	Params  map[string]string  `json:"params"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Log     *simlog.Recorder   `json:"-"`
	Err     error              `json:"error,omitempty"`
}

// SweepError aggregates every job failure from one Run call. It is raised
// in bulk after all jobs have settled, rather than aborting the sweep at
// the first failure, so a caller can inspect every failed combination
// instead of just the first one encountered.
type SweepError struct {
	Failed []Result
	Total  int
}

func (e *SweepError) Error() string {
	msgs := make([]string, len(e.Failed))
	for i, r := range e.Failed {
		msgs[i] = fmt.Sprintf("%v: %v", r.Params, r.Err)
	}
	return fmt.Sprintf("sweep: %d/%d jobs failed: %s", len(e.Failed), e.Total, strings.Join(msgs, "; "))
}

// job pairs a cloned, overridden configuration with the parameter values
// that produced it.
type job struct {
	cfg    *simconfig.Config
	params map[string]string
}

// expand computes the cartesian product of req.Params against req.Base,
// returning one job per combination. An empty Params list yields a single
// job running the base configuration unmodified.
func expand(req Request) ([]job, error) {
	jobs := []job{{cfg: req.Base.Clone(), params: map[string]string{}}}
	for _, p := range req.Params {
		next := make([]job, 0, len(jobs)*len(p.Values))
		for _, j := range jobs {
			for _, v := range p.Values {
				cfg := j.cfg.Clone()
				if err := cfg.ApplyOverride(p.FieldPath, v); err != nil {
					return nil, fmt.Errorf("sweep: applying %s=%v: %w", p.FieldPath, v, err)
				}
				params := make(map[string]string, len(j.params)+1)
				for k, pv := range j.params {
					params[k] = pv
				}
				params[p.FieldPath] = fmt.Sprintf("%v", v)
				next = append(next, job{cfg: cfg, params: params})
			}
		}
		jobs = next
	}
	return jobs, nil
}

// workerCount returns min(cpu_count/2, |jobs|), at least 1.
func workerCount(numJobs int) int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	if numJobs < n {
		n = numJobs
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Run expands req into jobs and executes them across a bounded worker pool.
// Every job's Result is returned, successes and failures alike, in
// parameter order; failures are never discarded and never abort other jobs.
// Once every job has settled, a non-nil *SweepError collecting every failed
// Result is returned alongside the full results slice — the caller decides
// whether to treat it as fatal or just report it.
func Run(req Request, sweepMetrics *metrics.Sweep) ([]Result, error) {
	if req.Settings.TimestepSeconds > 0 {
		_ = req.Base.ApplyOverride("engine.timestep", req.Settings.TimestepSeconds)
	}

	jobs, err := expand(req)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(jobs))
	sem := make(chan struct{}, workerCount(len(jobs)))
	var wg sync.WaitGroup

	for i, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, j job) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = runOne(req, j, sweepMetrics)
		}(i, j)
	}
	wg.Wait()

	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		return results, &SweepError{Failed: failed, Total: len(results)}
	}
	return results, nil
}

func runOne(req Request, j job, sweepMetrics *metrics.Sweep) Result {
	if sweepMetrics != nil {
		sweepMetrics.ActiveJobs.Inc()
		defer sweepMetrics.ActiveJobs.Dec()
	}
	start := time.Now()
	outcome := "ok"
	defer func() {
		if sweepMetrics != nil {
			sweepMetrics.JobsTotal.WithLabelValues(outcome).Inc()
			sweepMetrics.JobDuration.Observe(time.Since(start).Seconds())
		}
	}()

	sim, err := simconfig.BuildSimulation(j.cfg)
	if err != nil {
		outcome = "error"
		return Result{Params: j.params, Err: err}
	}

	rec := simlog.NewRecorder()
	sim.Logger = rec

	dtBase := j.cfg.DTBaseSeconds
	until := req.UntilSeconds
	if until <= 0 {
		until = j.cfg.UntilSeconds
	}
	untilTicks := int64(until / dtBase)

	if err := sim.Run(untilTicks); err != nil {
		outcome = "error"
		return Result{Params: j.params, Err: err, Log: rec}
	}

	result := Result{Params: j.params, Metrics: extractMetrics(rec, req.Metrics)}
	if req.Settings.StoreLogData {
		result.Log = rec
	}
	return result
}

// extractMetrics computes mean/final aggregates of the requested columns
// from each component frame. Column names match the simlog row tags
// (v_cap, i_net, v_in, i_in, eta_in, v_out, i_out, eta_out, i_leak).
func extractMetrics(rec *simlog.Recorder, requested map[string][]string) map[string]float64 {
	out := map[string]float64{}
	for component, columns := range requested {
		var series map[string][]float64
		switch component {
		case "cap":
			series = map[string][]float64{}
			for _, r := range rec.Cap {
				series["v_cap"] = append(series["v_cap"], r.VCap)
				series["i_net"] = append(series["i_net"], r.INet)
			}
		case "harvester":
			series = map[string][]float64{}
			for _, r := range rec.Harvester {
				series["v_in"] = append(series["v_in"], r.VIn)
				series["i_in"] = append(series["i_in"], r.IIn)
				series["eta_in"] = append(series["eta_in"], r.EtaIn)
			}
		case "converter":
			series = map[string][]float64{}
			for _, r := range rec.Converter {
				series["v_out"] = append(series["v_out"], r.VOut)
				series["i_out"] = append(series["i_out"], r.IOut)
				series["eta_out"] = append(series["eta_out"], r.EtaOut)
				series["i_leak"] = append(series["i_leak"], r.ILeak)
			}
		case "load":
			series = map[string][]float64{}
			for _, r := range rec.Load {
				series["v_out"] = append(series["v_out"], r.VOut)
				series["i_out"] = append(series["i_out"], r.IOut)
			}
		}
		for _, col := range columns {
			values := series[col]
			if len(values) == 0 {
				continue
			}
			out[component+"."+col+".mean"] = mean(values)
			out[component+"."+col+".final"] = values[len(values)-1]
		}
	}
	return out
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// RankTraces sorts results descending by the named metric, skipping jobs
// that errored or never computed it, in the same sort-by-derived-metric
// descending shape as RankByOracleProfit.
func RankTraces(results []Result, metricKey string) []Result {
	ranked := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if _, ok := r.Metrics[metricKey]; !ok {
			continue
		}
		ranked = append(ranked, r)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Metrics[metricKey] > ranked[j].Metrics[metricKey]
	})
	return ranked
}
