package memory

import (
	"context"
	"sort"
	"sync"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Trade // keyed by run_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string][]domain.Trade),
	}
}

// InsertBulk adds all trades of a run atomically. Fails entire batch if the run
// already has trades or the batch repeats a trade_id.
func (s *TradeStore) InsertBulk(_ context.Context, runID string, trades []domain.Trade) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	batchKeys := make(map[int]struct{}, len(trades))
	for _, t := range trades {
		if t.TradeID <= 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := batchKeys[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TradeID] = struct{}{}
	}

	stored := make([]domain.Trade, len(trades))
	copy(stored, trades)
	s.data[runID] = stored
	return nil
}

// GetByRun retrieves the trades of a run ordered by trade_id ASC.
func (s *TradeStore) GetByRun(_ context.Context, runID string) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[runID]
	result := make([]domain.Trade, len(stored))
	copy(result, stored)

	sort.Slice(result, func(i, j int) bool {
		return result[i].TradeID < result[j].TradeID
	})
	return result, nil
}
