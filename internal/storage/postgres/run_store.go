package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, out_dir, threshold, hold, price_source,
	exits, entries, win_rate, profit_factor, cum_pnl, mcc,
	cm_tp, cm_tn, cm_fp, cm_fn,
	unmatched_exits, open_at_end, join_misses,
	created_at`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("insert_run", start, err) }(time.Now())

	var tp, tn, fp, fn *int
	if r.Confusion != nil {
		tp, tn, fp, fn = &r.Confusion.TP, &r.Confusion.TN, &r.Confusion.FP, &r.Confusion.FN
	}

	query := `INSERT INTO eval_runs (` + runColumns + `) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10, $11,
		$12, $13, $14, $15,
		$16, $17, $18,
		$19
	)`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.OutDir, r.Threshold, r.Hold, r.PriceSource,
		r.Exits, r.Entries, r.WinRate, r.ProfitFactor, r.CumulativePnL, r.MCC,
		tp, tn, fp, fn,
		r.UnmatchedExits, r.OpenAtEnd, r.JoinMisses,
		r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert eval run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (r *domain.RunRecord, err error) {
	defer func(start time.Time) { observe("get_run", start, err) }(time.Now())

	query := `SELECT ` + runColumns + ` FROM eval_runs WHERE run_id = $1`

	r, err = scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get eval run by id: %w", err)
	}
	return r, nil
}

// GetAll retrieves all runs ordered by created_at ASC, run_id ASC.
func (s *RunStore) GetAll(ctx context.Context) (runs []*domain.RunRecord, err error) {
	defer func(start time.Time) { observe("list_runs", start, err) }(time.Now())

	query := `SELECT ` + runColumns + ` FROM eval_runs ORDER BY created_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all eval runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan eval run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate eval runs: %w", err)
	}
	return runs, nil
}

// scanRun scans a single row into a RunRecord.
func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var (
		r              domain.RunRecord
		tp, tn, fp, fn *int
	)

	err := row.Scan(
		&r.RunID, &r.OutDir, &r.Threshold, &r.Hold, &r.PriceSource,
		&r.Exits, &r.Entries, &r.WinRate, &r.ProfitFactor, &r.CumulativePnL, &r.MCC,
		&tp, &tn, &fp, &fn,
		&r.UnmatchedExits, &r.OpenAtEnd, &r.JoinMisses,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tp != nil && tn != nil && fp != nil && fn != nil {
		r.Confusion = &domain.ConfusionMatrix{TP: *tp, TN: *tn, FP: *fp, FN: *fn}
	}
	return &r, nil
}
