package domain

import "github.com/shopspring/decimal"

// Side is the trade direction multiplier applied to the price move.
type Side int

// Trade directions.
const (
	SideLong  Side = 1
	SideShort Side = -1
)

// String returns "long" or "short".
func (s Side) String() string {
	if s == SideShort {
		return "short"
	}
	return "long"
}

// Trade is a closed round-trip built from one ENTRY and one EXIT event.
// Invariant: EntryTimeMs <= ExitTimeMs.
type Trade struct {
	TradeID     int   // sequential, assigned at ENTRY, starts at 1
	EntryRow    int   // source row of the ENTRY event
	ExitRow     int   // source row of the EXIT event
	EntryTimeMs int64 // Unix ms
	ExitTimeMs  int64 // Unix ms
	Side        Side

	// Prices are null when the timestamp has no exact match in the price series.
	EntryPrice decimal.NullDecimal
	ExitPrice  decimal.NullDecimal

	// PnL is (exit - entry) * side, or zero when either price is null.
	PnL decimal.Decimal
}

// Priced reports whether both execution prices were resolved.
func (t *Trade) Priced() bool {
	return t.EntryPrice.Valid && t.ExitPrice.Valid
}
