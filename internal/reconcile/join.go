package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/metrics"
)

// ResolveSide derives the trade direction from the ENTRY event's side value.
// Values containing "short", "sell" or "-1" are short; anything else,
// including an absent side column, is long.
func ResolveSide(entry domain.TradeEvent) domain.Side {
	if !entry.HasSide {
		return domain.SideLong
	}
	v := strings.ToLower(entry.Side)
	if strings.Contains(v, "short") || strings.Contains(v, "sell") || strings.Contains(v, "-1") {
		return domain.SideShort
	}
	return domain.SideLong
}

// JoinResult holds valued trades and the number of price lookups that missed.
type JoinResult struct {
	Trades     []domain.Trade
	JoinMisses int
}

// Join values each pair at the exact entry and exit timestamps.
// A miss leaves the price null and the trade's PnL at zero; the trade is kept.
func Join(pairs []Pair, series *domain.PriceSeries) JoinResult {
	res := JoinResult{Trades: make([]domain.Trade, 0, len(pairs))}

	for _, p := range pairs {
		entryPx := lookup(series, p.Entry.TimestampMs)
		exitPx := lookup(series, p.Exit.TimestampMs)
		if !entryPx.Valid {
			res.JoinMisses++
		}
		if !exitPx.Valid {
			res.JoinMisses++
		}

		side := ResolveSide(p.Entry)
		res.Trades = append(res.Trades, domain.Trade{
			TradeID:     p.TradeID,
			EntryRow:    p.Entry.Row,
			ExitRow:     p.Exit.Row,
			EntryTimeMs: p.Entry.TimestampMs,
			ExitTimeMs:  p.Exit.TimestampMs,
			Side:        side,
			EntryPrice:  entryPx,
			ExitPrice:   exitPx,
			PnL:         metrics.TradePnL(entryPx, exitPx, side),
		})
	}

	return res
}

func lookup(series *domain.PriceSeries, ts int64) decimal.NullDecimal {
	px, ok := series.At(ts)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(px)
}
