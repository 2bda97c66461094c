// Package main reports which price CSV files a glob selects and their columns.
package main

import (
	"flag"
	"fmt"
	"os"

	"backtest-gate/internal/cli"
	"backtest-gate/internal/pipeline"
)

const tool = "probe"

func main() {
	var common cli.Common
	fs := flag.NewFlagSet(tool, flag.ExitOnError)
	common.Register(fs)
	outDir := fs.String("outdir", "", "Directory for diag_probe.json (required)")
	dataRoot := fs.String("data-root", "", "Root of the price CSV files")
	csvGlob := fs.String("csv-glob", "", "Glob relative to data-root")
	limit := fs.Int("limit", pipeline.DefaultProbeSamples, "Number of files to sample")
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
	if *outDir == "" || cfg.DataRoot == "" {
		fmt.Fprintln(os.Stderr, "Error: -outdir and -data-root are required")
		os.Exit(pipeline.ExitFailure)
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		os.Exit(cli.Finish(tool, cfg, err))
	}

	report, probeErr := pipeline.Probe(cfg.DataRoot, cfg.CSVGlob, *limit)
	if err := pipeline.WriteProbe(*outDir, report); err != nil {
		os.Exit(cli.Finish(tool, cfg, err))
	}
	fmt.Printf("pattern=%s n_files=%d\n", report.Pattern, report.NFiles)
	for _, s := range report.Samples {
		if s.Error != "" {
			fmt.Printf("  %s: error: %s\n", s.Path, s.Error)
			continue
		}
		fmt.Printf("  %s: %v\n", s.Path, s.Cols)
	}
	os.Exit(cli.Finish(tool, cfg, probeErr))
}
