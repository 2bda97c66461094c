// Package main fails a run directory that shows no trading activity.
package main

import (
	"flag"
	"fmt"
	"os"

	"backtest-gate/internal/cli"
	"backtest-gate/internal/pipeline"
)

const tool = "sanity"

func main() {
	var common cli.Common
	fs := flag.NewFlagSet(tool, flag.ExitOnError)
	common.Register(fs)
	outDir := fs.String("outdir", "", "Run directory (required)")
	summaryPath := fs.String("summary", "", "Summary path (default <outdir>/summary.json)")
	trades := fs.String("trades", "", "Trade log path (default <outdir>/trades.csv)")
	fs.Parse(os.Args[1:])

	cfg, err := common.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(pipeline.ExitFailure)
	}
	cli.SetupLogging(tool, cfg, os.Stderr)

	if *outDir == "" {
		fmt.Fprintln(os.Stderr, "Error: -outdir is required")
		os.Exit(pipeline.ExitFailure)
	}
	in := pipeline.RunInput{OutDir: *outDir, SummaryPath: *summaryPath, TradesPath: *trades}.Resolve()

	report, err := pipeline.Sanity(in.OutDir, in.SummaryPath, in.TradesPath)
	if err == nil {
		fmt.Printf("activity ok: exits=%s trades_rows=%s\n", optional(report.Exits), optional(report.TradesRows))
	}
	os.Exit(cli.Finish(tool, cfg, err))
}

func optional(v *int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprint(*v)
}
