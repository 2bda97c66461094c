package reporting

import (
	"time"

	"backtest-gate/internal/domain"
)

// RunReport represents the report of one evaluation run.
type RunReport struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	OutDir      string
	Threshold   float64
	Hold        int
	PriceSource string

	// Stage outcomes ("done", "failed", "skipped" / "computed")
	Reconcile string
	Scoring   string

	// Reconciliation
	Exits          int
	UnmatchedExits int
	OpenAtEnd      int
	JoinMisses     int
	Performance    *domain.Performance // nil unless trades were reconciled

	// Classification
	MCC       *float64
	Confusion *domain.ConfusionMatrix

	// Contract checks and stage diagnostics
	Checks      []CheckRow
	Diagnostics []string
}

// CheckRow represents one contract check.
type CheckRow struct {
	Name     string
	Status   string
	Expected string
	Actual   string
}

// ComparisonReport compares stored runs.
type ComparisonReport struct {
	GeneratedAt time.Time
	Runs        []RunRow // sorted by created_at, run_id
	Skipped     []string // run ids without stored trades
}

// RunRow represents one stored run in a comparison.
type RunRow struct {
	RunID                string
	Threshold            float64
	Hold                 int
	Exits                int
	WinRate              float64
	ProfitFactor         *float64
	CumulativePnL        float64
	MaxDrawdown          float64
	MaxConsecutiveLosses int
	MCC                  *float64
	CreatedAt            int64 // Unix ms
}

// SweepRow represents one threshold/hold combination of a parameter sweep.
type SweepRow struct {
	Threshold    float64
	Hold         int
	OutDir       string
	Exits        *int
	WinRate      *float64
	ProfitFactor *float64
	CumPnL       *float64
	MCC          *float64
	Error        string
}
