// internal/commands/run.go
package groundedgeo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mwiater/groundedgeo/internal/appconfig"
	"github.com/mwiater/groundedgeo/internal/baselines"
	"github.com/mwiater/groundedgeo/internal/dataset"
	"github.com/mwiater/groundedgeo/internal/harness"
	"github.com/mwiater/groundedgeo/internal/logging"
	"github.com/mwiater/groundedgeo/internal/report"
	"github.com/mwiater/groundedgeo/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// runCmd evaluates the configured systems on one split of the dataset.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate systems on a dataset split",
	Long: `Run evaluates every configured system on the selected split, prints the
per-bucket accuracy table, writes one JSON snapshot per system to the output
directory and appends each run to the JSONL history file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return errors.New("configuration not loaded")
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()

		compliance, _ := cmd.Flags().GetBool("compliance")
		_, err := runEvaluation(ctx, cmd.OutOrStdout(), *cfg, compliance)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSlice("systems", nil, "systems to evaluate (see 'list systems')")
	runCmd.Flags().String("predicate", "", "correctness predicate (see 'list predicates')")
	runCmd.Flags().Bool("faultIsolation", false, "record system errors per query instead of aborting the run")
	runCmd.Flags().Bool("parallel", false, "evaluate systems concurrently")
	runCmd.Flags().String("history", "", "JSONL history file (default <outputDir>/history.jsonl)")
	runCmd.Flags().String("metricsFile", "", "write prometheus metrics to this textfile")
	runCmd.Flags().Bool("compliance", false, "also print the compliance counters of every run")

	for _, name := range []string{"systems", "predicate", "faultIsolation", "parallel", "history", "metricsFile"} {
		_ = viper.BindPFlag(name, runCmd.Flags().Lookup(name))
	}
}

// runEvaluation loads the dataset, evaluates every system and persists the
// results. Runs that fail leave no snapshot behind.
func runEvaluation(ctx context.Context, out io.Writer, cfg appconfig.Config, compliance bool) ([]*harness.EvalMetrics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ds, err := dataset.Load(cfg.Dataset)
	if err != nil {
		return nil, err
	}
	predicate, err := harness.PredicateByName(cfg.Predicate)
	if err != nil {
		return nil, err
	}
	systems, err := baselines.NewAll(cfg)
	if err != nil {
		return nil, err
	}

	collector := telemetry.NewCollector()
	runner, err := harness.NewRunner(ds.Queries,
		harness.WithPredicate(predicate),
		harness.WithFaultIsolation(cfg.FaultIsolation),
		harness.WithObserver(&telemetry.Logger{Verbose: cfg.Verbose}),
		harness.WithObserver(collector),
	)
	if err != nil {
		return nil, err
	}
	if len(dataset.FilterSplit(ds.Queries, cfg.Split)) == 0 {
		logging.LogEvent("Warning: split %q has no queries (available: %v)", cfg.Split, ds.Splits())
	}

	results := make([]*harness.EvalMetrics, len(systems))
	if cfg.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, sys := range systems {
			g.Go(func() error {
				m, err := runner.Run(gctx, sys, cfg.Split)
				if err != nil {
					return err
				}
				results[i] = m
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, sys := range systems {
			m, err := runner.Run(ctx, sys, cfg.Split)
			if err != nil {
				return nil, err
			}
			results[i] = m
		}
	}

	for _, m := range results {
		path, err := report.WriteFile(cfg.OutputDir, m)
		if err != nil {
			return nil, err
		}
		logging.LogEvent("Metrics for %s written to %s", m.SystemName, path)
		if err := report.AppendHistory(cfg.HistoryPath(), m); err != nil {
			return nil, err
		}
	}

	if cfg.MetricsFile != "" {
		if dir := filepath.Dir(cfg.MetricsFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("error creating metrics directory: %w", err)
			}
		}
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			return nil, err
		}
	}

	if err := report.Render(out, results...); err != nil {
		return nil, err
	}
	if compliance {
		for _, m := range results {
			if err := report.RenderCompliance(out, m); err != nil {
				return nil, err
			}
		}
	}
	return results, nil
}
