// Package main reconciles a backtest run directory into summary.json.
// Stages: precheck (optional) → reconcile → score → merge summary → sanity (optional)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"backtest-gate/internal/cli"
	"backtest-gate/internal/config"
	"backtest-gate/internal/pipeline"
)

const tool = "evaluate"

func main() {
	os.Exit(run())
}

func run() int {
	var common cli.Common
	fs := flag.NewFlagSet(tool, flag.ExitOnError)
	common.Register(fs)
	outDir := fs.String("outdir", "", "Run directory holding trades.csv and preds_test.csv (required)")
	dataRoot := fs.String("data-root", "", "Root of the price CSV files (empty: use the pnl column of trades.csv)")
	csvGlob := fs.String("csv-glob", "", "Glob relative to data-root selecting the price CSV")
	thr := fs.Float64("thr", config.DefaultThreshold, "Probability threshold")
	hold := fs.Int("hold", config.DefaultHold, "Forward-return horizon in bars")
	trades := fs.String("trades", "", "Trade log path (default <outdir>/trades.csv)")
	preds := fs.String("preds", "", "Predictions path (default <outdir>/preds_test.csv)")
	summaryPath := fs.String("summary", "", "Summary path (default <outdir>/summary.json)")
	precheck := fs.Bool("precheck", false, "Run the contract check first and stop on FAIL")
	sanity := fs.Bool("sanity", false, "Fail with exit 12 when the run shows no activity")
	fs.Parse(os.Args[1:])

	cfg, err := common.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return pipeline.ExitFailure
	}
	cli.SetupLogging(tool, cfg, os.Stderr)

	set := cli.Visited(fs)
	if set["data-root"] {
		cfg.DataRoot = *dataRoot
	}
	if set["csv-glob"] {
		cfg.CSVGlob = *csvGlob
	}
	if set["thr"] {
		cfg.Threshold = *thr
	}
	if set["hold"] {
		cfg.Hold = *hold
	}
	if *outDir == "" {
		fmt.Fprintln(os.Stderr, "Error: -outdir is required")
		fs.Usage()
		return pipeline.ExitFailure
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	stopTracing, err := cli.StartTracing(tool, cfg)
	if err != nil {
		return cli.Finish(tool, cfg, err)
	}
	defer stopTracing()

	in := pipeline.RunInput{
		OutDir:      *outDir,
		DataRoot:    cfg.DataRoot,
		CSVGlob:     cfg.CSVGlob,
		TradesPath:  *trades,
		PredsPath:   *preds,
		SummaryPath: *summaryPath,
		Threshold:   cfg.Threshold,
		Hold:        cfg.Hold,
	}.Resolve()

	return cli.Finish(tool, cfg, evaluate(ctx, cfg, in, *precheck, *sanity))
}

func evaluate(ctx context.Context, cfg *config.Config, in pipeline.RunInput, precheck, sanity bool) error {
	stores, err := cli.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	ev := pipeline.NewEvaluator(pipeline.DefaultProducer)
	if stores.Enabled() {
		ev.WithRunStore(stores.Runs).WithTradeStore(stores.Trades)
	}

	if precheck {
		if err := os.MkdirAll(in.OutDir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		checks := pipeline.Precheck(pipeline.PrecheckInput{
			DataRoot:   in.DataRoot,
			CSVGlob:    in.CSVGlob,
			TradesPath: in.TradesPath,
			PredsPath:  in.PredsPath,
		})
		if err := pipeline.WritePrecheck(in.OutDir, checks); err != nil {
			return err
		}
		for _, c := range checks.Checks() {
			log.Info().Str("check", c.Name).Str("status", string(c.Status)).Msg(c.Actual)
		}
		if err := checks.Err(); err != nil {
			return err
		}
		ev.WithChecks(checks)
	}

	res, err := ev.Run(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("run_id=%s exits=%d summary=%s\n", res.RunID, res.Exits, in.SummaryPath)

	if sanity {
		if _, err := pipeline.Sanity(in.OutDir, in.SummaryPath, in.TradesPath); err != nil {
			return err
		}
	}
	return nil
}
