// Command simctl is the CLI front-end for the simulator: run a
// single configuration, run a parameter sweep, or rank a sweep's results by
// a chosen metric. Flag/subcommand wiring follows the cobra idiom used by
// ja7ad/consumption's cmd/consumption.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"intermittent-sim/internal/metrics"
	"intermittent-sim/internal/simconfig"
	"intermittent-sim/internal/simlog"
	"intermittent-sim/internal/sweep"
)

func main() {
	root := &cobra.Command{
		Use:   "simctl",
		Short: "Run and sweep intermittent-device simulations",
		Long: `simctl drives the intermittent-power simulation core: run a single
configuration to completion, or expand a cartesian sweep of configuration
overrides across a worker pool and report the requested metrics.`,
	}

	root.AddCommand(newSimulateCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newRankCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSimulateCmd() *cobra.Command {
	var configPath string
	var untilSeconds float64
	var logPath string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one configuration to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := simconfig.Load(configPath)
			if err != nil {
				return err
			}
			if untilSeconds <= 0 {
				untilSeconds = cfg.UntilSeconds
			}

			sim, err := simconfig.BuildSimulation(cfg)
			if err != nil {
				return err
			}
			rec := simlog.NewRecorder()
			sim.Logger = rec

			untilTicks := int64(untilSeconds / cfg.DTBaseSeconds)
			if err := sim.Run(untilTicks); err != nil {
				return err
			}

			fmt.Printf("ran %d ticks (%.3fs), %d steps logged\n", sim.Time(), untilSeconds, len(rec.Cap))

			if logPath != "" {
				f, err := os.Create(logPath)
				if err != nil {
					return err
				}
				defer f.Close()
				return simlog.WriteFrames(f, map[string]string{"config": configPath}, rec)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the simulation config YAML (required)")
	cmd.Flags().Float64Var(&untilSeconds, "until", 0, "simulated seconds to run (defaults to config's `until`)")
	cmd.Flags().StringVar(&logPath, "log", "", "optional path to dump the per-component log frames")
	cmd.MarkFlagRequired("config")

	return cmd
}

func newSweepCmd() *cobra.Command {
	var configPath string
	var untilSeconds float64
	var storeLogData bool
	var logDir string
	var rankBy string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expand a cartesian sweep and report per-job metrics",
		Long: `sweep reads a base config plus a sweep specification file (JSON: a
list of {"field_path": "...", "values": [...]} entries) and an ordered
metrics request (JSON: {"component": ["column", ...]}), runs every
combination across a bounded worker pool, and prints the resulting metric
rows as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("sweep requires <sweep-spec.json> <metrics.json>")
			}

			base, err := simconfig.Load(configPath)
			if err != nil {
				return err
			}
			params, err := loadParamSpecs(args[0])
			if err != nil {
				return err
			}
			reqMetrics, err := loadMetricsRequest(args[1])
			if err != nil {
				return err
			}

			req := sweep.Request{
				Base:         base,
				Params:       params,
				Metrics:      reqMetrics,
				UntilSeconds: untilSeconds,
				Settings: sweep.Settings{
					StoreLogData: storeLogData,
					LogPath:      logDir,
				},
			}

			sweepMetrics := metrics.NewSweep()
			results, err := sweep.Run(req, sweepMetrics)
			var sweepErr *sweep.SweepError
			if err != nil && !errors.As(err, &sweepErr) {
				return err
			}

			if rankBy != "" {
				results = sweep.RankTraces(results, rankBy)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(summarize(results)); encErr != nil {
				return encErr
			}
			if sweepErr != nil {
				fmt.Fprintln(os.Stderr, sweepErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the base simulation config YAML (required)")
	cmd.Flags().Float64Var(&untilSeconds, "until", 0, "simulated seconds to run per job")
	cmd.Flags().BoolVar(&storeLogData, "store-log-data", false, "keep each job's per-component log frames")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "passed to the sweep as its log_path setting; the sweep driver writes no log files there")
	cmd.Flags().StringVar(&rankBy, "rank-by", "", "metric key to sort results descending by")
	cmd.MarkFlagRequired("config")

	return cmd
}

func newRankCmd() *cobra.Command {
	var configPath string
	var untilSeconds float64
	var rankBy string

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Expand a cartesian sweep and print results ranked by a metric",
		Long: `rank runs the same sweep expansion as "sweep" and prints the
results sorted descending by the requested metric key, skipping jobs that
errored or never computed it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("rank requires <sweep-spec.json> <metrics.json>")
			}

			base, err := simconfig.Load(configPath)
			if err != nil {
				return err
			}
			params, err := loadParamSpecs(args[0])
			if err != nil {
				return err
			}
			reqMetrics, err := loadMetricsRequest(args[1])
			if err != nil {
				return err
			}

			req := sweep.Request{
				Base:         base,
				Params:       params,
				Metrics:      reqMetrics,
				UntilSeconds: untilSeconds,
			}

			sweepMetrics := metrics.NewSweep()
			results, err := sweep.Run(req, sweepMetrics)
			var sweepErr *sweep.SweepError
			if err != nil && !errors.As(err, &sweepErr) {
				return err
			}

			ranked := sweep.RankTraces(results, rankBy)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(summarize(ranked)); encErr != nil {
				return encErr
			}
			if sweepErr != nil {
				fmt.Fprintln(os.Stderr, sweepErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the base simulation config YAML (required)")
	cmd.Flags().Float64Var(&untilSeconds, "until", 0, "simulated seconds to run per job")
	cmd.Flags().StringVar(&rankBy, "rank-by", "", "metric key to sort results descending by (required)")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("rank-by")

	return cmd
}

type paramSpecJSON struct {
	FieldPath string `json:"field_path"`
	Values    []any  `json:"values"`
}

func loadParamSpecs(path string) ([]sweep.ParamSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var specs []paramSpecJSON
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, err
	}
	out := make([]sweep.ParamSpec, len(specs))
	for i, s := range specs {
		out[i] = sweep.ParamSpec{FieldPath: s.FieldPath, Values: s.Values}
	}
	return out, nil
}

func loadMetricsRequest(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req map[string][]string
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return req, nil
}

type resultSummary struct {
	Params  map[string]string  `json:"params"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func summarize(results []sweep.Result) []resultSummary {
	out := make([]resultSummary, len(results))
	for i, r := range results {
		s := resultSummary{Params: r.Params, Metrics: r.Metrics}
		if r.Err != nil {
			s.Error = r.Err.Error()
		}
		out[i] = s
	}
	return out
}
