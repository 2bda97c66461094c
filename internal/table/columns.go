package table

// Accepted column names, in priority order.
var (
	TimestampColumns   = []string{"open_time", "timestamp", "time", "datetime", "date"}
	CloseColumns       = []string{"close", "close_price", "c"}
	EventColumns       = []string{"event"}
	SideColumns        = []string{"side", "direction", "dir"}
	ProbabilityColumns = []string{"p", "p_gate", "gatep", "prob", "score", "p_trend", "p_range"}
	PnLColumns         = []string{
		"pnl_close_based", "pnl", "pnl_value", "pnl_usd", "pnl_krw",
		"pnl_pct", "pnl_percent", "ret", "return", "pnl_close",
	}
)

// PnLColumn is the column added to the enriched trade table.
const PnLColumn = "pnl_close_based"
