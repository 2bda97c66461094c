package reconcile

import (
	"backtest-gate/internal/domain"
	"backtest-gate/internal/table"
)

// Enrich writes each trade's PnL into the pnl_close_based column on the row of
// its EXIT event. Every other row gets a blank value. Row order and the other
// columns are untouched. Returns the number of rows filled.
func Enrich(t *table.Table, trades []domain.Trade) int {
	col := t.EnsureColumn(table.PnLColumn)
	for row := range t.Rows {
		t.Rows[row][col] = ""
	}

	filled := 0
	for _, tr := range trades {
		if tr.ExitRow < 0 || tr.ExitRow >= t.Len() {
			continue
		}
		t.Rows[tr.ExitRow][col] = tr.PnL.String()
		filled++
	}
	return filled
}

// ExitPnLValues returns the first PnL-like column's values on the EXIT rows of
// closed trades, in trade order, for logs that already carry per-trade PnL.
// Unmatched EXIT rows are left out. ok is false if no such column exists.
func ExitPnLValues(t *table.Table, pairs []Pair) (values []string, col string, ok bool) {
	col, ok = t.Find(table.PnLColumns...)
	if !ok {
		return nil, "", false
	}
	values = make([]string, 0, len(pairs))
	for _, p := range pairs {
		values = append(values, t.Get(p.Exit.Row, col))
	}
	return values, col, true
}
