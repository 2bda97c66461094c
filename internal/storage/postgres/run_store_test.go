package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/storage"
	pgstore "backtest-gate/internal/storage/postgres"
)

func createTestRun(runID string, createdAt int64) *domain.RunRecord {
	return &domain.RunRecord{
		RunID:          runID,
		OutDir:         "out_thr0.83_h9",
		Threshold:      0.83,
		Hold:           9,
		PriceSource:    "/data/BTCUSDT_1m.csv",
		Exits:          10,
		Entries:        11,
		WinRate:        ptr(0.6),
		CumulativePnL:  ptr(12.5),
		MCC:            ptr(0.21),
		Confusion:      &domain.ConfusionMatrix{TP: 4, TN: 3, FP: 2, FN: 1},
		UnmatchedExits: 1,
		OpenAtEnd:      1,
		JoinMisses:     2,
		CreatedAt:      createdAt,
	}
}

func TestRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewRunStore(pool)

	run := createTestRun("run-001", 1000)
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-001")
	require.NoError(t, err)

	assert.Equal(t, run.OutDir, got.OutDir)
	assert.InDelta(t, run.Threshold, got.Threshold, 1e-12)
	assert.Equal(t, run.Hold, got.Hold)
	assert.Equal(t, run.Exits, got.Exits)
	require.NotNil(t, got.WinRate)
	assert.InDelta(t, 0.6, *got.WinRate, 1e-12)
	assert.Nil(t, got.ProfitFactor, "null profit_factor must round-trip as nil")
	require.NotNil(t, got.Confusion)
	assert.Equal(t, *run.Confusion, *got.Confusion)
	assert.Equal(t, run.JoinMisses, got.JoinMisses)
	assert.Equal(t, run.CreatedAt, got.CreatedAt)
}

func TestRunStore_NoConfusionMatrix(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewRunStore(pool)

	run := createTestRun("run-002", 1000)
	run.Confusion = nil
	run.MCC = nil
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-002")
	require.NoError(t, err)
	assert.Nil(t, got.Confusion)
	assert.Nil(t, got.MCC)
}

func TestRunStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewRunStore(pool)

	require.NoError(t, store.Insert(ctx, createTestRun("dup", 1)))
	err := store.Insert(ctx, createTestRun("dup", 2))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := pgstore.NewRunStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_GetAllOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewRunStore(pool)

	require.NoError(t, store.Insert(ctx, createTestRun("b", 2000)))
	require.NoError(t, store.Insert(ctx, createTestRun("c", 1000)))
	require.NoError(t, store.Insert(ctx, createTestRun("a", 2000)))

	runs, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "a", runs[1].RunID)
	assert.Equal(t, "b", runs[2].RunID)
}
