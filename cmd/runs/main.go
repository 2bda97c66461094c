// Package main renders a comparison of every persisted evaluation run.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"backtest-gate/internal/cli"
	"backtest-gate/internal/pipeline"
	"backtest-gate/internal/reporting"
	"backtest-gate/internal/table"
)

const tool = "runs"

func main() {
	os.Exit(run())
}

func run() int {
	var common cli.Common
	fs := flag.NewFlagSet(tool, flag.ExitOnError)
	common.Register(fs)
	format := fs.String("format", "md", "Output format: md or csv")
	out := fs.String("out", "", "Output file (default stdout)")
	fs.Parse(os.Args[1:])

	cfg, err := common.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return pipeline.ExitFailure
	}
	cli.SetupLogging(tool, cfg, os.Stderr)

	if *format != "md" && *format != "csv" {
		return cli.Finish(tool, cfg, fmt.Errorf("unknown format %q", *format))
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	stores, err := cli.OpenStores(ctx, cfg)
	if err != nil {
		return cli.Finish(tool, cfg, err)
	}
	defer stores.Close()
	if !stores.Enabled() {
		return cli.Finish(tool, cfg, fmt.Errorf("runs: %w", cli.ErrNoStorage))
	}

	report, err := reporting.NewGenerator(stores.Runs, stores.Trades).Generate(ctx)
	if err != nil {
		return cli.Finish(tool, cfg, err)
	}

	var text string
	if *format == "csv" {
		text = reporting.RenderComparisonCSV(report.Runs)
	} else {
		text = reporting.RenderComparisonMarkdown(report)
	}

	if *out == "" {
		fmt.Print(text)
		return cli.Finish(tool, cfg, nil)
	}
	err = table.WriteFileAtomic(*out, func(w io.Writer) error {
		_, err := io.Copy(w, strings.NewReader(text))
		return err
	})
	return cli.Finish(tool, cfg, err)
}
