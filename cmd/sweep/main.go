// Package main runs a backtest engine over a threshold x hold grid and
// evaluates every combination.
// Executes per combination: params overlay → engine → manifest → evaluate → sanity
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"backtest-gate/internal/cli"
	"backtest-gate/internal/engine"
	"backtest-gate/internal/pipeline"
	"backtest-gate/internal/sweep"
)

const tool = "sweep"

func main() {
	os.Exit(run())
}

func run() int {
	var common cli.Common
	fs := flag.NewFlagSet(tool, flag.ExitOnError)
	common.Register(fs)
	engineName := fs.String("engine", "", "Configured engine name (default: default_engine)")
	thrList := fs.String("thr-list", "", "Comma separated thresholds (default: sweep.thresholds)")
	holdList := fs.String("hold-list", "", "Comma separated holds (default: sweep.holds)")
	params := fs.String("params", "", "Base params YAML overlaid per combination")
	outRoot := fs.String("out-root", "", "Directory receiving out_* dirs and sweep_results.csv")
	parallel := fs.Int("parallel", 0, "Combinations run at once (default: sweep.parallel)")
	dataRoot := fs.String("data-root", "", "Root of the price CSV files")
	csvGlob := fs.String("csv-glob", "", "Glob relative to data-root")
	fs.Parse(os.Args[1:])

	cfg, err := common.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return pipeline.ExitFailure
	}
	cli.SetupLogging(tool, cfg, os.Stderr)

	set := cli.Visited(fs)
	if set["thr-list"] {
		if cfg.Sweep.Thresholds, err = cli.ParseFloats(*thrList); err != nil {
			return cli.Finish(tool, cfg, fmt.Errorf("-thr-list: %w", err))
		}
	}
	if set["hold-list"] {
		if cfg.Sweep.Holds, err = cli.ParseInts(*holdList); err != nil {
			return cli.Finish(tool, cfg, fmt.Errorf("-hold-list: %w", err))
		}
	}
	if set["params"] {
		cfg.Sweep.BaseParams = *params
	}
	if set["out-root"] {
		cfg.Sweep.OutRoot = *outRoot
	}
	if set["parallel"] {
		cfg.Sweep.Parallel = *parallel
	}
	if set["data-root"] {
		cfg.DataRoot = *dataRoot
	}
	if set["csv-glob"] {
		cfg.CSVGlob = *csvGlob
	}
	if cfg.Sweep.OutRoot == "" {
		cfg.Sweep.OutRoot = "."
	}

	combos := sweep.Grid(cfg.Sweep.Thresholds, cfg.Sweep.Holds)
	if len(combos) == 0 {
		return cli.Finish(tool, cfg, errors.New("empty grid: need at least one threshold and one hold"))
	}

	eng, err := engine.FromConfig(cfg).Get(*engineName)
	if err != nil {
		return cli.Finish(tool, cfg, err)
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	stopTracing, err := cli.StartTracing(tool, cfg)
	if err != nil {
		return cli.Finish(tool, cfg, err)
	}
	defer stopTracing()

	stores, err := cli.OpenStores(ctx, cfg)
	if err != nil {
		return cli.Finish(tool, cfg, err)
	}
	defer stores.Close()

	ev := pipeline.NewEvaluator(pipeline.DefaultProducer)
	if stores.Enabled() {
		ev.WithRunStore(stores.Runs).WithTradeStore(stores.Trades)
	}

	if err := os.MkdirAll(cfg.Sweep.OutRoot, 0755); err != nil {
		return cli.Finish(tool, cfg, err)
	}

	log.Info().
		Str("engine", eng.Name()).
		Int("combinations", len(combos)).
		Int("parallel", cfg.Sweep.Parallel).
		Msg("sweep started")

	runner := sweep.NewRunner(eng, ev, sweep.Options{
		DataRoot:   cfg.DataRoot,
		CSVGlob:    cfg.CSVGlob,
		BaseParams: cfg.Sweep.BaseParams,
		OutRoot:    cfg.Sweep.OutRoot,
		Parallel:   cfg.Sweep.Parallel,
	})
	results, runErr := runner.Run(ctx, combos)

	if len(results) > 0 {
		path := filepath.Join(cfg.Sweep.OutRoot, sweep.ResultsFile)
		if err := sweep.WriteResults(path, results); err != nil {
			return cli.Finish(tool, cfg, err)
		}
		fmt.Printf("%s: %d combinations, %d failed\n", path, len(results), sweep.Failed(results))
	}

	return cli.FinishCode(tool, cfg, sweep.ExitCode(results, runErr), runErr)
}
