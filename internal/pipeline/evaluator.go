package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/ingest"
	"backtest-gate/internal/metrics"
	"backtest-gate/internal/observability"
	"backtest-gate/internal/prices"
	"backtest-gate/internal/reconcile"
	"backtest-gate/internal/reporting"
	"backtest-gate/internal/runid"
	"backtest-gate/internal/scoring"
	"backtest-gate/internal/storage"
	"backtest-gate/internal/summary"
	"backtest-gate/internal/table"
)

// Defaults.
const (
	DefaultProducer = "backtest-gate" // summary provenance of this evaluator
	DefaultCSVGlob  = "**/*.csv"
)

// RunInput names every input and output of one evaluation.
// Empty paths default to files inside OutDir.
type RunInput struct {
	OutDir      string
	DataRoot    string // empty: no price data, PnL is read from the trade log
	CSVGlob     string
	TradesPath  string
	PredsPath   string
	SummaryPath string
	Threshold   float64
	Hold        int
}

// Resolve fills default paths and the default data pattern.
func (in RunInput) Resolve() RunInput {
	if in.CSVGlob == "" {
		in.CSVGlob = DefaultCSVGlob
	}
	if in.TradesPath == "" {
		in.TradesPath = ArtifactPath(in.OutDir, FileTrades)
	}
	if in.PredsPath == "" {
		in.PredsPath = ArtifactPath(in.OutDir, FilePreds)
	}
	if in.SummaryPath == "" {
		in.SummaryPath = ArtifactPath(in.OutDir, FileSummary)
	}
	return in
}

// RunResult holds everything one evaluation computed.
type RunResult struct {
	RunID   string
	Summary *summary.Summary

	Reconcile   summary.ReconcileStatus
	Exits       int
	Trades      []domain.Trade
	Performance domain.Performance
	Ingest      ingest.IngestStats
	Prices      prices.LoadStats
	Enriched    int

	UnmatchedExits int
	OpenAtEnd      int
	JoinMisses     int

	Scoring   summary.ScoringStatus
	Confusion domain.ConfusionMatrix

	// Diagnostics lists stages that failed without aborting the run.
	Diagnostics []Diagnostic
}

// Evaluator reconciles a backtest's trade log and predictions into the run summary.
type Evaluator struct {
	producer   string
	runStore   storage.RunStore
	tradeStore storage.TradeStore
	checks     []ContractCheck
	clock      func() time.Time
}

// NewEvaluator creates an evaluator that records producer in summary provenance.
func NewEvaluator(producer string) *Evaluator {
	if producer == "" {
		producer = DefaultProducer
	}
	return &Evaluator{
		producer: producer,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithRunStore persists each run record to s.
func (e *Evaluator) WithRunStore(s storage.RunStore) *Evaluator {
	e.runStore = s
	return e
}

// WithTradeStore persists each run's valued trades to s.
func (e *Evaluator) WithTradeStore(s storage.TradeStore) *Evaluator {
	e.tradeStore = s
	return e
}

// WithChecks includes contract check results in the report.
func (e *Evaluator) WithChecks(r PrecheckResult) *Evaluator {
	e.checks = r.Checks()
	return e
}

// WithClock sets a custom clock function for deterministic output.
func (e *Evaluator) WithClock(clock func() time.Time) *Evaluator {
	e.clock = clock
	return e
}

// Run executes one evaluation and writes:
//   - summary.json (merged, atomic)
//   - trades.csv (enriched in place, when prices are available)
//   - report.md
//   - diagnostic.json (when any stage failed)
//
// A failure loading prices, saving the summary or persisting the run aborts
// the evaluation. A trade log without the required columns degrades the run
// to carrying exits forward, and a scoring failure only nulls mcc.
func (e *Evaluator) Run(ctx context.Context, in RunInput) (res *RunResult, err error) {
	in = in.Resolve()
	if in.OutDir == "" {
		return nil, errors.New("evaluate: output directory is required")
	}

	ctx, span := observability.StartSpan(ctx, "evaluate",
		attribute.String("outdir", in.OutDir),
		attribute.Float64("threshold", in.Threshold),
		attribute.Int("hold", in.Hold),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := os.MkdirAll(in.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	res = &RunResult{}
	existing := summary.Load(in.SummaryPath)

	series, err := e.loadPrices(ctx, in, res)
	if err != nil {
		return res, e.fail(in.OutDir, res, err)
	}

	res.RunID, err = e.computeRunID(in, res.Prices.Source)
	if err != nil {
		return res, e.fail(in.OutDir, res, &StageError{Stage: "run_id", Err: err})
	}

	if err := e.reconcile(ctx, in, series, res); err != nil {
		return res, e.fail(in.OutDir, res, err)
	}
	e.score(ctx, in, series, res)

	res.Summary = summary.Merge(existing, summary.Update{
		Producer:    e.producer,
		Reconcile:   res.Reconcile,
		Exits:       res.Exits,
		Performance: res.Performance,
		Scoring:     res.Scoring,
		Confusion:   res.Confusion,
	})
	if err := res.Summary.Save(in.SummaryPath); err != nil {
		return res, e.fail(in.OutDir, res, &StageError{Stage: "summary", Err: err})
	}

	if err := e.persist(ctx, in, res); err != nil {
		return res, e.fail(in.OutDir, res, &StageError{Stage: "persist", Err: err})
	}

	if len(res.Diagnostics) > 0 {
		if err := WriteDiagnostics(in.OutDir, res.Diagnostics); err != nil {
			return res, fmt.Errorf("write %s: %w", FileDiagnostic, err)
		}
	}
	if err := e.writeReport(in, res); err != nil {
		return res, fmt.Errorf("write %s: %w", FileReport, err)
	}

	observability.RecordReconcile(res.Exits, res.UnmatchedExits, res.OpenAtEnd, res.JoinMisses, res.Ingest.Ambiguous)
	if res.Reconcile == summary.ReconcileDone {
		observability.RecordResult(res.Performance.WinRate, res.Summary.Number(summary.KeyMCC))
	}

	log.Info().
		Str("run_id", res.RunID).
		Int("exits", res.Exits).
		Int("unmatched_exits", res.UnmatchedExits).
		Int("open_at_end", res.OpenAtEnd).
		Int("join_misses", res.JoinMisses).
		Msg("evaluation complete")

	return res, nil
}

// fail records err as the aborting diagnostic and returns it.
func (e *Evaluator) fail(outDir string, res *RunResult, err error) error {
	stage := "evaluate"
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	ds := append(res.Diagnostics, NewDiagnostic(stage, err, e.clock()))
	if werr := WriteDiagnostics(outDir, ds); werr != nil {
		log.Error().Err(werr).Msg("write diagnostic failed")
	}
	return err
}

// degrade records a stage failure that does not abort the run.
func (e *Evaluator) degrade(res *RunResult, stage string, err error) {
	res.Diagnostics = append(res.Diagnostics, NewDiagnostic(stage, err, e.clock()))
	log.Warn().Err(err).Str("stage", stage).Msg("stage failed, continuing")
}

func (e *Evaluator) loadPrices(ctx context.Context, in RunInput, res *RunResult) (series *domain.PriceSeries, err error) {
	if in.DataRoot == "" {
		log.Info().Msg("no data root, trade PnL is read from the trade log")
		return nil, nil
	}

	_, span := observability.StartSpan(ctx, "prices")
	defer func(start time.Time) {
		observability.RecordStage("prices", time.Since(start).Seconds(), err, errorKind(err))
		observability.EndSpan(span, err)
	}(time.Now())

	series, res.Prices, err = prices.Load(in.DataRoot, in.CSVGlob)
	if err != nil {
		return nil, &StageError{Stage: "prices", Err: err}
	}

	first, last := series.TimeRange()
	log.Info().
		Str("source", res.Prices.Source).
		Int("matched", res.Prices.Matched).
		Int("rows", res.Prices.Rows).
		Int("skipped", res.Prices.Skipped).
		Int64("first_ms", first).
		Int64("last_ms", last).
		Msg("price series loaded")
	return series, nil
}

func (e *Evaluator) computeRunID(in RunInput, priceSource string) (string, error) {
	paths := []string{in.TradesPath, in.PredsPath}
	if priceSource != "" {
		paths = append(paths, priceSource)
	}
	digest, err := runid.DigestFiles(paths...)
	if err != nil {
		return "", err
	}
	return runid.Compute(in.OutDir, in.Threshold, in.Hold, digest), nil
}

// reconcile fills the trade results of res. Only a failure to rewrite the
// trade log is returned; input problems degrade the stage.
func (e *Evaluator) reconcile(ctx context.Context, in RunInput, series *domain.PriceSeries, res *RunResult) (err error) {
	_, span := observability.StartSpan(ctx, "reconcile")
	var stageErr error
	defer func(start time.Time) {
		if err != nil {
			stageErr = err
		}
		observability.RecordStage("reconcile", time.Since(start).Seconds(), stageErr, errorKind(stageErr))
		observability.EndSpan(span, stageErr)
	}(time.Now())

	t, missing, readErr := readOptional(in.TradesPath)
	if missing {
		res.Reconcile = summary.ReconcileSkipped
		log.Info().Str("path", in.TradesPath).Msg("no trade log, reconciliation skipped")
		return nil
	}

	var events []domain.TradeEvent
	if readErr == nil {
		events, _, res.Ingest, readErr = ingest.ParseEvents(t)
	}
	if readErr != nil {
		stageErr = readErr
		res.Reconcile = summary.ReconcileFailed
		e.degrade(res, "trades", readErr)
		return nil
	}

	paired := reconcile.PairEvents(events)
	res.Exits = len(paired.Pairs)
	res.UnmatchedExits = paired.UnmatchedExits
	res.OpenAtEnd = paired.OpenAtEnd
	res.Reconcile = summary.ReconcileDone

	if series == nil {
		values, col, ok := reconcile.ExitPnLValues(t, paired.Pairs)
		if ok {
			res.Performance = metrics.FromPnLColumn(values)
			log.Info().Str("column", col).Int("values", len(values)).Msg("performance from trade log pnl")
		} else {
			res.Performance = metrics.Compute(reconcile.Join(paired.Pairs, nil).Trades)
			log.Warn().Msg("no price data and no pnl column, trades are unpriced")
		}
		return nil
	}

	joined := reconcile.Join(paired.Pairs, series)
	res.Trades = joined.Trades
	res.JoinMisses = joined.JoinMisses
	res.Performance = metrics.Compute(joined.Trades)
	res.Enriched = reconcile.Enrich(t, joined.Trades)

	if err := table.WriteCSVAtomic(in.TradesPath, t); err != nil {
		return &StageError{Stage: "trades", Err: fmt.Errorf("write enriched trades: %w", err)}
	}
	return nil
}

func (e *Evaluator) score(ctx context.Context, in RunInput, series *domain.PriceSeries, res *RunResult) {
	_, span := observability.StartSpan(ctx, "scoring")
	var err error
	defer func(start time.Time) {
		observability.RecordStage("scoring", time.Since(start).Seconds(), err, errorKind(err))
		observability.EndSpan(span, err)
	}(time.Now())

	t, missing, err := readOptional(in.PredsPath)
	if missing {
		res.Scoring = summary.ScoringSkipped
		log.Info().Str("path", in.PredsPath).Msg("no predictions, scoring skipped")
		return
	}

	var preds []domain.Prediction
	if err == nil {
		preds, _, err = scoring.ParsePredictions(t)
	}
	if err == nil {
		res.Confusion, err = scoring.Score(preds, series, scoring.Params{Threshold: in.Threshold, Hold: in.Hold})
	}
	if errors.Is(err, scoring.ErrNoProbabilityColumn) {
		err = nil
		res.Scoring = summary.ScoringSkipped
		log.Info().Str("path", in.PredsPath).Msg("no probability column, scoring skipped")
		return
	}
	if err != nil {
		res.Scoring = summary.ScoringFailed
		e.degrade(res, "scoring", err)
		return
	}
	res.Scoring = summary.ScoringComputed
}

func (e *Evaluator) persist(ctx context.Context, in RunInput, res *RunResult) error {
	if e.runStore == nil && e.tradeStore == nil {
		return nil
	}

	if e.runStore != nil {
		err := e.runStore.Insert(ctx, e.runRecord(in, res))
		if errors.Is(err, storage.ErrDuplicateKey) {
			log.Info().Str("run_id", res.RunID).Msg("run already stored")
		} else if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
	}

	if e.tradeStore != nil && len(res.Trades) > 0 {
		err := e.tradeStore.InsertBulk(ctx, res.RunID, res.Trades)
		if errors.Is(err, storage.ErrDuplicateKey) {
			log.Info().Str("run_id", res.RunID).Msg("trades already stored")
		} else if err != nil {
			return fmt.Errorf("insert trades: %w", err)
		}
	}
	return nil
}

func (e *Evaluator) runRecord(in RunInput, res *RunResult) *domain.RunRecord {
	s := res.Summary
	exits, _ := s.Int(summary.KeyExits)
	entries, _ := s.Int(summary.KeyEntries)
	return &domain.RunRecord{
		RunID:          res.RunID,
		OutDir:         in.OutDir,
		Threshold:      in.Threshold,
		Hold:           in.Hold,
		PriceSource:    res.Prices.Source,
		Exits:          exits,
		Entries:        entries,
		WinRate:        s.Number(summary.KeyWinRate),
		ProfitFactor:   s.Number(summary.KeyProfitFactor),
		CumulativePnL:  s.Number(summary.KeyCumPnL),
		MCC:            s.Number(summary.KeyMCC),
		Confusion:      s.Confusion(),
		UnmatchedExits: res.UnmatchedExits,
		OpenAtEnd:      res.OpenAtEnd,
		JoinMisses:     res.JoinMisses,
		CreatedAt:      e.clock().UnixMilli(),
	}
}

func (e *Evaluator) writeReport(in RunInput, res *RunResult) error {
	exits, _ := res.Summary.Int(summary.KeyExits)
	r := &reporting.RunReport{
		GeneratedAt:    e.clock(),
		RunID:          res.RunID,
		OutDir:         in.OutDir,
		Threshold:      in.Threshold,
		Hold:           in.Hold,
		PriceSource:    res.Prices.Source,
		Reconcile:      reconcileLabel(res.Reconcile),
		Scoring:        scoringLabel(res.Scoring),
		Exits:          exits,
		UnmatchedExits: res.UnmatchedExits,
		OpenAtEnd:      res.OpenAtEnd,
		JoinMisses:     res.JoinMisses,
		MCC:            res.Summary.Number(summary.KeyMCC),
	}
	if res.Reconcile == summary.ReconcileDone {
		perf := res.Performance
		r.Performance = &perf
	}
	if res.Scoring == summary.ScoringComputed {
		cm := res.Confusion
		r.Confusion = &cm
	}
	for _, c := range e.checks {
		r.Checks = append(r.Checks, reporting.CheckRow{
			Name:     c.Name,
			Status:   string(c.Status),
			Expected: c.Expected,
			Actual:   c.Actual,
		})
	}
	for _, d := range res.Diagnostics {
		r.Diagnostics = append(r.Diagnostics, d.Stage+": "+d.Error)
	}

	md := reporting.RenderMarkdown(r)
	return table.WriteFileAtomic(ArtifactPath(in.OutDir, FileReport), func(w io.Writer) error {
		_, err := io.Copy(w, strings.NewReader(md))
		return err
	})
}

func reconcileLabel(s summary.ReconcileStatus) string {
	switch s {
	case summary.ReconcileDone:
		return "done"
	case summary.ReconcileFailed:
		return "failed"
	default:
		return "skipped"
	}
}

func scoringLabel(s summary.ScoringStatus) string {
	switch s {
	case summary.ScoringComputed:
		return "computed"
	case summary.ScoringFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// errorKind classifies err for the stage error counter.
func errorKind(err error) string {
	var schemaErr *ingest.SchemaError
	var scoringErr *scoring.ScoringError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &schemaErr):
		return "schema"
	case errors.As(err, &scoringErr), errors.Is(err, scoring.ErrNoProbabilityColumn):
		return "scoring"
	case errors.Is(err, prices.ErrNoSourceMatched):
		return "no_source"
	case errors.Is(err, os.ErrNotExist), errors.Is(err, table.ErrEmptyFile):
		return "io"
	default:
		return "other"
	}
}
