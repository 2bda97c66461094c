package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/metrics"
	"backtest-gate/internal/storage"
)

// Generator produces comparison reports from stored runs.
type Generator struct {
	runStore   storage.RunStore
	aggregator *metrics.Aggregator
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.RunStore, tradeStore storage.TradeStore) *Generator {
	return &Generator{
		runStore:   runStore,
		aggregator: metrics.NewAggregator(runStore, tradeStore),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate recomputes every stored run from its trades. Runs without stored
// trades are listed as skipped.
func (g *Generator) Generate(ctx context.Context) (*ComparisonReport, error) {
	runs, err := g.runStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	report := &ComparisonReport{
		GeneratedAt: g.now(),
		Runs:        make([]RunRow, 0, len(runs)),
	}
	for _, r := range runs {
		_, perf, err := g.aggregator.ComputeRun(ctx, r.RunID)
		if errors.Is(err, metrics.ErrNoTrades) {
			report.Skipped = append(report.Skipped, r.RunID)
			continue
		}
		if err != nil {
			return nil, err
		}
		report.Runs = append(report.Runs, newRunRow(r, perf))
	}

	return report, nil
}

func newRunRow(r *domain.RunRecord, perf domain.Performance) RunRow {
	return RunRow{
		RunID:                r.RunID,
		Threshold:            r.Threshold,
		Hold:                 r.Hold,
		Exits:                perf.Trades,
		WinRate:              perf.WinRate,
		ProfitFactor:         perf.ProfitFactor,
		CumulativePnL:        perf.CumulativePnL,
		MaxDrawdown:          perf.MaxDrawdown,
		MaxConsecutiveLosses: perf.MaxConsecutiveLosses,
		MCC:                  r.MCC,
		CreatedAt:            r.CreatedAt,
	}
}
