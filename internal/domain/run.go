package domain

// RunRecord is the persisted outcome of one evaluation run.
type RunRecord struct {
	RunID       string
	OutDir      string
	Threshold   float64
	Hold        int
	PriceSource string

	Exits         int
	Entries       int
	WinRate       *float64
	ProfitFactor  *float64
	CumulativePnL *float64
	MCC           *float64
	Confusion     *ConfusionMatrix

	UnmatchedExits int
	OpenAtEnd      int
	JoinMisses     int

	CreatedAt int64 // Unix ms
}
