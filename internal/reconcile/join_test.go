package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-gate/internal/domain"
)

func series(points map[int64]string) *domain.PriceSeries {
	pts := make([]domain.PricePoint, 0, len(points))
	for ts, c := range points {
		pts = append(pts, domain.PricePoint{TimestampMs: ts, Close: decimal.RequireFromString(c)})
	}
	return domain.NewPriceSeries("test", pts)
}

func TestResolveSide(t *testing.T) {
	tests := []struct {
		name string
		ev   domain.TradeEvent
		want domain.Side
	}{
		{"no side column", domain.TradeEvent{}, domain.SideLong},
		{"short", domain.TradeEvent{HasSide: true, Side: "SHORT"}, domain.SideShort},
		{"sell", domain.TradeEvent{HasSide: true, Side: "Sell"}, domain.SideShort},
		{"minus one", domain.TradeEvent{HasSide: true, Side: "-1"}, domain.SideShort},
		{"long", domain.TradeEvent{HasSide: true, Side: "long"}, domain.SideLong},
		{"buy", domain.TradeEvent{HasSide: true, Side: "buy"}, domain.SideLong},
		{"blank", domain.TradeEvent{HasSide: true, Side: ""}, domain.SideLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveSide(tt.ev))
		})
	}
}

func TestJoin_LongAndShort(t *testing.T) {
	px := series(map[int64]string{1000: "100", 2000: "110", 3000: "120", 4000: "90"})

	pairs := []Pair{
		{TradeID: 1, Entry: entry(0, 1000), Exit: exit(1, 2000)},
		{
			TradeID: 2,
			Entry:   domain.TradeEvent{Row: 2, TimestampMs: 3000, Kind: domain.EventKindEntry, HasSide: true, Side: "short"},
			Exit:    exit(3, 4000),
		},
	}

	res := Join(pairs, px)

	require.Len(t, res.Trades, 2)
	assert.Zero(t, res.JoinMisses)

	assert.True(t, res.Trades[0].PnL.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, domain.SideLong, res.Trades[0].Side)

	assert.True(t, res.Trades[1].PnL.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, domain.SideShort, res.Trades[1].Side)
	assert.Equal(t, 2, res.Trades[1].EntryRow)
	assert.Equal(t, 3, res.Trades[1].ExitRow)
}

func TestJoin_MissKeepsTradeWithZeroPnL(t *testing.T) {
	px := series(map[int64]string{1000: "100"})

	res := Join([]Pair{{TradeID: 1, Entry: entry(0, 1000), Exit: exit(1, 2500)}}, px)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, 1, res.JoinMisses)
	tr := res.Trades[0]
	assert.True(t, tr.EntryPrice.Valid)
	assert.False(t, tr.ExitPrice.Valid)
	assert.False(t, tr.Priced())
	assert.True(t, tr.PnL.IsZero())
}

func TestJoin_NilSeries(t *testing.T) {
	res := Join([]Pair{{TradeID: 1, Entry: entry(0, 1), Exit: exit(1, 2)}}, nil)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, 2, res.JoinMisses)
}
