package reconcile

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/ingest"
	"backtest-gate/internal/table"
)

func TestEnrich_ByRowIdentity(t *testing.T) {
	// The second EXIT closes the first trade in time even though it comes later in the log.
	tb, err := table.Parse(strings.NewReader(`open_time,event,pnl_close_based
1700000300000,EXIT,stale
1700000000000,ENTRY,stale
1700000060000,ENTRY,
1700000120000,EXIT,
`))
	require.NoError(t, err)

	events, _, _, err := ingest.ParseEvents(tb)
	require.NoError(t, err)
	pairs := PairEvents(events).Pairs
	require.Len(t, pairs, 2)

	px := series(map[int64]string{
		1700000000000: "100",
		1700000060000: "200",
		1700000120000: "103",
		1700000300000: "150",
	})
	trades := Join(pairs, px).Trades

	filled := Enrich(tb, trades)

	assert.Equal(t, 2, filled)
	assert.Equal(t, []string{"open_time", "event", "pnl_close_based"}, tb.Columns)
	// trade 1: entry 100 at row 1, exit at row 3 (t=120000) -> 3
	assert.Equal(t, "3", tb.Get(3, table.PnLColumn))
	// trade 2: entry 200 at row 2, exit at row 0 (t=300000) -> -50
	assert.Equal(t, "-50", tb.Get(0, table.PnLColumn))
	assert.Equal(t, "", tb.Get(1, table.PnLColumn))
	assert.Equal(t, "", tb.Get(2, table.PnLColumn))
}

func TestEnrich_AddsColumn(t *testing.T) {
	tb := table.New("t.csv", "open_time", "event")
	tb.Append(map[string]string{"open_time": "1", "event": "ENTRY"})
	tb.Append(map[string]string{"open_time": "2", "event": "EXIT"})

	n := Enrich(tb, []domain.Trade{{TradeID: 1, EntryRow: 0, ExitRow: 1, PnL: decimal.RequireFromString("1.25")}})

	assert.Equal(t, 1, n)
	assert.Equal(t, "1.25", tb.Get(1, table.PnLColumn))
}

func TestExitPnLValues(t *testing.T) {
	tb, err := table.Parse(strings.NewReader("time,event,PnL\n1,ENTRY,\n2,EXIT,1.5\n3,ENTRY,\n4,EXIT,-0.5\n"))
	require.NoError(t, err)
	events, _, _, err := ingest.ParseEvents(tb)
	require.NoError(t, err)

	values, col, ok := ExitPnLValues(tb, PairEvents(events).Pairs)

	require.True(t, ok)
	assert.Equal(t, "PnL", col)
	assert.Equal(t, []string{"1.5", "-0.5"}, values)
}

func TestExitPnLValues_SkipsUnmatchedExit(t *testing.T) {
	tb, err := table.Parse(strings.NewReader("time,event,pnl\n1,EXIT,-50\n2,ENTRY,\n3,EXIT,3\n"))
	require.NoError(t, err)
	events, _, _, err := ingest.ParseEvents(tb)
	require.NoError(t, err)

	paired := PairEvents(events)
	require.Equal(t, 1, paired.UnmatchedExits)

	values, _, ok := ExitPnLValues(tb, paired.Pairs)

	require.True(t, ok)
	assert.Equal(t, []string{"3"}, values)
}

func TestExitPnLValues_NoColumn(t *testing.T) {
	tb := table.New("t.csv", "time", "event")
	_, _, ok := ExitPnLValues(tb, nil)
	assert.False(t, ok)
}
