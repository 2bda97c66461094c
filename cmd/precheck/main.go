// Package main checks the data, trade log and predictions contracts of a run
// directory and writes precheck.json.
package main

import (
	"flag"
	"fmt"
	"os"

	"backtest-gate/internal/cli"
	"backtest-gate/internal/pipeline"
)

const tool = "precheck"

func main() {
	var common cli.Common
	fs := flag.NewFlagSet(tool, flag.ExitOnError)
	common.Register(fs)
	outDir := fs.String("outdir", "", "Run directory (required)")
	dataRoot := fs.String("data-root", "", "Root of the price CSV files")
	csvGlob := fs.String("csv-glob", "", "Glob relative to data-root")
	trades := fs.String("trades", "", "Trade log path (default <outdir>/trades.csv)")
	preds := fs.String("preds", "", "Predictions path (default <outdir>/preds_test.csv)")
	fs.Parse(os.Args[1:])

	cfg, err := common.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(pipeline.ExitFailure)
	}
	cli.SetupLogging(tool, cfg, os.Stderr)

	set := cli.Visited(fs)
	if set["data-root"] {
		cfg.DataRoot = *dataRoot
	}
	if set["csv-glob"] {
		cfg.CSVGlob = *csvGlob
	}
	if *outDir == "" {
		fmt.Fprintln(os.Stderr, "Error: -outdir is required")
		os.Exit(pipeline.ExitFailure)
	}

	in := pipeline.RunInput{OutDir: *outDir, TradesPath: *trades, PredsPath: *preds}.Resolve()
	if err := os.MkdirAll(in.OutDir, 0755); err != nil {
		os.Exit(cli.Finish(tool, cfg, err))
	}

	result := pipeline.Precheck(pipeline.PrecheckInput{
		DataRoot:   cfg.DataRoot,
		CSVGlob:    cfg.CSVGlob,
		TradesPath: in.TradesPath,
		PredsPath:  in.PredsPath,
	})
	for _, c := range result.Checks() {
		fmt.Printf("%-6s %-4s %s\n", c.Name, c.Status, c.Actual)
	}
	if err := pipeline.WritePrecheck(in.OutDir, result); err != nil {
		os.Exit(cli.Finish(tool, cfg, err))
	}
	os.Exit(cli.Finish(tool, cfg, result.Err()))
}
