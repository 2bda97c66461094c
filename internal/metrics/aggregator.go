package metrics

import (
	"context"
	"errors"
	"fmt"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/storage"
)

// ErrNoTrades is returned when a run has no stored trades to aggregate.
var ErrNoTrades = errors.New("no trades available for aggregation")

// Aggregator recomputes run performance from persisted trades.
type Aggregator struct {
	runStore   storage.RunStore
	tradeStore storage.TradeStore
}

// NewAggregator creates a new aggregator over the given stores.
func NewAggregator(runStore storage.RunStore, tradeStore storage.TradeStore) *Aggregator {
	return &Aggregator{
		runStore:   runStore,
		tradeStore: tradeStore,
	}
}

// ComputeRun loads the trades stored for runID and aggregates them.
// Returns storage.ErrNotFound if the run does not exist, ErrNoTrades if it has no trades.
func (a *Aggregator) ComputeRun(ctx context.Context, runID string) (*domain.RunRecord, domain.Performance, error) {
	run, err := a.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, domain.Performance{}, fmt.Errorf("get run %s: %w", runID, err)
	}

	trades, err := a.tradeStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, domain.Performance{}, fmt.Errorf("get trades for %s: %w", runID, err)
	}
	if len(trades) == 0 {
		return run, domain.Performance{}, ErrNoTrades
	}

	return run, Compute(trades), nil
}
