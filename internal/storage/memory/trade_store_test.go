package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/storage"
)

func makeTrade(id int, pnl int64) domain.Trade {
	return domain.Trade{
		TradeID:     id,
		EntryTimeMs: int64(id) * 1000,
		ExitTimeMs:  int64(id)*1000 + 500,
		Side:        domain.SideLong,
		EntryPrice:  decimal.NewNullDecimal(decimal.NewFromInt(100)),
		ExitPrice:   decimal.NewNullDecimal(decimal.NewFromInt(100 + pnl)),
		PnL:         decimal.NewFromInt(pnl),
	}
}

func TestTradeStore_InsertBulkAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []domain.Trade{makeTrade(2, -1), makeTrade(1, 3)}
	if err := store.InsertBulk(ctx, "run1", trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRun(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(got))
	}
	if got[0].TradeID != 1 || got[1].TradeID != 2 {
		t.Errorf("Expected trades ordered by id, got %d, %d", got[0].TradeID, got[1].TradeID)
	}
	if !got[0].PnL.Equal(decimal.NewFromInt(3)) {
		t.Errorf("PnL mismatch: got %s", got[0].PnL)
	}
}

func TestTradeStore_DuplicateRun(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "run1", []domain.Trade{makeTrade(1, 1)}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	err := store.InsertBulk(ctx, "run1", []domain.Trade{makeTrade(2, 1)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_IntraBatchDuplicate(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, "run1", []domain.Trade{makeTrade(1, 1), makeTrade(1, 2)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	got, _ := store.GetByRun(ctx, "run1")
	if len(got) != 0 {
		t.Errorf("Failed batch must not be stored, got %d trades", len(got))
	}
}

func TestTradeStore_UnknownRunIsEmpty(t *testing.T) {
	store := NewTradeStore()

	got, err := store.GetByRun(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no trades, got %d", len(got))
	}
}
