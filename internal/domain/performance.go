package domain

// Performance is the run-level performance summary over closed trades.
type Performance struct {
	// Counts
	Trades   int // closed trades, including ones with unresolved prices
	Priced   int // trades with both prices resolved
	Wins     int // pnl > 0
	Losses   int // pnl < 0
	WinRate  float64
	Unpriced int

	// PnL
	ProfitFactor  *float64 // nil when there are no losing trades
	CumulativePnL float64
	GrossProfit   float64
	GrossLoss     float64 // sum of negative pnl (<= 0)

	// Distribution
	PnLMean   float64
	PnLMedian float64
	PnLP10    float64
	PnLP90    float64
	PnLStddev float64

	// Drawdown, in exit order
	MaxDrawdown          float64
	MaxConsecutiveLosses int
}
