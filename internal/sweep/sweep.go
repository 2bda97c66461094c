// Package sweep evaluates a backtest engine over a threshold x hold grid.
package sweep

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"backtest-gate/internal/engine"
	"backtest-gate/internal/pipeline"
	"backtest-gate/internal/reporting"
	"backtest-gate/internal/summary"
	"backtest-gate/internal/table"
)

// ResultsFile is the sweep table written under the output root.
const ResultsFile = "sweep_results.csv"

// Combo is one threshold/hold combination.
type Combo struct {
	Threshold float64
	Hold      int
}

// Label returns "thr<thr>_h<hold>".
func (c Combo) Label() string {
	return "thr" + strconv.FormatFloat(c.Threshold, 'g', -1, 64) + "_h" + strconv.Itoa(c.Hold)
}

// Grid returns the cartesian product, thresholds outermost.
func Grid(thresholds []float64, holds []int) []Combo {
	combos := make([]Combo, 0, len(thresholds)*len(holds))
	for _, thr := range thresholds {
		for _, hold := range holds {
			combos = append(combos, Combo{Threshold: thr, Hold: hold})
		}
	}
	return combos
}

// Options configures a sweep.
type Options struct {
	DataRoot   string
	CSVGlob    string
	BaseParams string
	OutRoot    string
	Parallel   int
}

// Result is the outcome of one combination.
type Result struct {
	Combo
	OutDir     string
	ParamsPath string
	RunID      string

	Exits        *int
	WinRate      *float64
	ProfitFactor *float64
	CumPnL       *float64
	MCC          *float64

	Err error
}

// Row converts r to a report row.
func (r Result) Row() reporting.SweepRow {
	row := reporting.SweepRow{
		Threshold:    r.Threshold,
		Hold:         r.Hold,
		OutDir:       r.OutDir,
		Exits:        r.Exits,
		WinRate:      r.WinRate,
		ProfitFactor: r.ProfitFactor,
		CumPnL:       r.CumPnL,
		MCC:          r.MCC,
	}
	if r.Err != nil {
		row.Error = r.Err.Error()
	}
	return row
}

// Runner runs the engine and the evaluator for each combination.
type Runner struct {
	engine    engine.Engine
	evaluator *pipeline.Evaluator
	opts      Options
	clock     func() time.Time
}

// NewRunner creates a sweep runner.
func NewRunner(e engine.Engine, ev *pipeline.Evaluator, opts Options) *Runner {
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	if opts.CSVGlob == "" {
		opts.CSVGlob = pipeline.DefaultCSVGlob
	}
	return &Runner{
		engine:    e,
		evaluator: ev,
		opts:      opts,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic manifests.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// Run evaluates every combination, at most Parallel at a time. Each
// combination writes only to its own directory and params file. A failed
// combination is reported in its Result; only cancellation of ctx or a
// data pattern matching nothing fails the sweep.
func (r *Runner) Run(ctx context.Context, combos []Combo) ([]Result, error) {
	csvPaths, err := table.Match(r.opts.DataRoot, r.opts.CSVGlob)
	if err != nil {
		return nil, err
	}
	if len(csvPaths) == 0 {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrNoDataMatched, filepath.Join(r.opts.DataRoot, r.opts.CSVGlob))
	}

	results := make([]Result, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallel)

	for i, c := range combos {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.runOne(gctx, c, csvPaths)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, c Combo, csvPaths []string) Result {
	res := Result{
		Combo:      c,
		OutDir:     filepath.Join(r.opts.OutRoot, "out_"+c.Label()),
		ParamsPath: filepath.Join(r.opts.OutRoot, "params_"+c.Label()+".yml"),
	}
	logger := log.With().Str("combo", c.Label()).Logger()

	if err := WriteParams(r.opts.BaseParams, res.ParamsPath, c); err != nil {
		res.Err = err
		return res
	}

	req := engine.Request{
		DataRoot:   r.opts.DataRoot,
		CSVGlob:    r.opts.CSVGlob,
		CSVPaths:   csvPaths,
		ParamsPath: res.ParamsPath,
		OutDir:     res.OutDir,
		Threshold:  c.Threshold,
		Hold:       c.Hold,
	}
	arts, err := r.engine.Run(ctx, req)
	if err != nil {
		res.Err = err
		return res
	}
	if err := engine.WriteManifest(res.OutDir, engine.NewManifest(r.engine.Name(), req, r.clock())); err != nil {
		logger.Warn().Err(err).Msg("manifest not written")
	}

	run, err := r.evaluator.Run(ctx, pipeline.RunInput{
		OutDir:      res.OutDir,
		DataRoot:    r.opts.DataRoot,
		CSVGlob:     r.opts.CSVGlob,
		TradesPath:  arts.TradesPath,
		PredsPath:   arts.PredsPath,
		SummaryPath: arts.SummaryPath,
		Threshold:   c.Threshold,
		Hold:        c.Hold,
	})
	if err != nil {
		res.Err = err
		return res
	}

	s := run.Summary
	res.RunID = run.RunID
	if exits, ok := s.Int(summary.KeyExits); ok {
		res.Exits = &exits
	}
	res.WinRate = s.Number(summary.KeyWinRate)
	res.ProfitFactor = s.Number(summary.KeyProfitFactor)
	res.CumPnL = s.Number(summary.KeyCumPnL)
	res.MCC = s.Number(summary.KeyMCC)

	if _, err := pipeline.Sanity(res.OutDir, arts.SummaryPath, arts.TradesPath); err != nil {
		res.Err = err
	}

	logger.Info().Err(res.Err).Msg("combination evaluated")
	return res
}

// Failed returns the number of results with an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// WriteResults writes the sweep table as CSV.
func WriteResults(path string, results []Result) error {
	rows := make([]reporting.SweepRow, len(results))
	for i, r := range results {
		rows[i] = r.Row()
	}
	csv := reporting.RenderSweepCSV(rows)
	return table.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, strings.NewReader(csv))
		return err
	})
}

// ExitCode returns the process exit code of a sweep: the first failing
// combination's code, or ExitOK.
func ExitCode(results []Result, err error) int {
	if err != nil {
		return pipeline.ExitCode(err)
	}
	for _, r := range results {
		if r.Err != nil {
			return pipeline.ExitCode(r.Err)
		}
	}
	return pipeline.ExitOK
}
