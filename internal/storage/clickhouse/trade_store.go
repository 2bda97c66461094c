package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/observability"
	"backtest-gate/internal/storage"
)

// TradeStore implements storage.TradeStore using ClickHouse.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// InsertBulk adds all trades of a run in one batch.
// MergeTree does not enforce keys, so duplicates are checked before insert.
func (s *TradeStore) InsertBulk(ctx context.Context, runID string, trades []domain.Trade) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "insert_trades", time.Since(start).Seconds(), err)
	}(time.Now())

	seen := make(map[int]struct{}, len(trades))
	for _, t := range trades {
		if t.TradeID <= 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[t.TradeID] = struct{}{}
	}

	exists, err := s.exists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO eval_trades (
			run_id, trade_id, entry_row, exit_row,
			entry_time_ms, exit_time_ms, side,
			entry_price, exit_price, pnl
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trades {
		err = batch.Append(
			runID, uint32(t.TradeID), uint32(t.EntryRow), uint32(t.ExitRow),
			t.EntryTimeMs, t.ExitTimeMs, int8(t.Side),
			nullablePrice(t.EntryPrice), nullablePrice(t.ExitPrice), t.PnL,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves the trades of a run ordered by trade_id ASC.
func (s *TradeStore) GetByRun(ctx context.Context, runID string) (trades []domain.Trade, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "get_trades", time.Since(start).Seconds(), err)
	}(time.Now())

	rows, err := s.conn.Query(ctx, `
		SELECT
			trade_id, entry_row, exit_row,
			entry_time_ms, exit_time_ms, side,
			entry_price, exit_price, pnl
		FROM eval_trades
		WHERE run_id = ?
		ORDER BY trade_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	trades = []domain.Trade{}
	for rows.Next() {
		var (
			tradeID, entryRow, exitRow uint32
			entryMs, exitMs            int64
			side                       int8
			entryPx, exitPx            *decimal.Decimal
			pnl                        decimal.Decimal
		)
		if err := rows.Scan(&tradeID, &entryRow, &exitRow, &entryMs, &exitMs, &side, &entryPx, &exitPx, &pnl); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, domain.Trade{
			TradeID:     int(tradeID),
			EntryRow:    int(entryRow),
			ExitRow:     int(exitRow),
			EntryTimeMs: entryMs,
			ExitTimeMs:  exitMs,
			Side:        domain.Side(side),
			EntryPrice:  fromNullable(entryPx),
			ExitPrice:   fromNullable(exitPx),
			PnL:         pnl,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return trades, nil
}

func (s *TradeStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM eval_trades WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func nullablePrice(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func fromNullable(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
