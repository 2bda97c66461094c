package storage

import (
	"context"

	"backtest-gate/internal/domain"
)

// RunStore provides access to eval_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetAll retrieves all runs, ordered by created_at ASC, run_id ASC.
	GetAll(ctx context.Context) ([]*domain.RunRecord, error)
}

// TradeStore provides access to eval_trades storage.
type TradeStore interface {
	// InsertBulk adds all trades of a run atomically.
	// Returns ErrDuplicateKey if the run already has trades.
	InsertBulk(ctx context.Context, runID string, trades []domain.Trade) error

	// GetByRun retrieves the trades of a run, ordered by trade_id ASC.
	// Returns an empty slice if the run has no trades.
	GetByRun(ctx context.Context, runID string) ([]domain.Trade, error)
}
