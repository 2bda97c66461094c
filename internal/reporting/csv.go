package reporting

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderSweepCSV renders sweep results as CSV string.
func RenderSweepCSV(rows []SweepRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("thr,hold,outdir,exits,win_rate,profit_factor,cum_pnl_close_based,mcc,error\n")

	// Rows
	for _, r := range rows {
		exits := ""
		if r.Exits != nil {
			exits = strconv.Itoa(*r.Exits)
		}
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%s,%s,%s,%s,%s,%s\n",
			strconvFloat(r.Threshold),
			r.Hold,
			csvField(r.OutDir),
			exits,
			csvOptional(r.WinRate),
			csvOptional(r.ProfitFactor),
			csvOptional(r.CumPnL),
			csvOptional(r.MCC),
			csvField(r.Error),
		))
	}

	return sb.String()
}

// RenderComparisonCSV renders stored runs as CSV string.
func RenderComparisonCSV(rows []RunRow) string {
	var sb strings.Builder

	sb.WriteString("run_id,thr,hold,exits,win_rate,profit_factor,cum_pnl_close_based,")
	sb.WriteString("max_drawdown,max_consecutive_losses,mcc,created_at\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.6f,%s,%.6f,%.6f,%d,%s,%d\n",
			r.RunID,
			strconvFloat(r.Threshold),
			r.Hold,
			r.Exits,
			r.WinRate,
			csvOptional(r.ProfitFactor),
			r.CumulativePnL,
			r.MaxDrawdown,
			r.MaxConsecutiveLosses,
			csvOptional(r.MCC),
			r.CreatedAt,
		))
	}

	return sb.String()
}

func strconvFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func csvOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}

// csvField quotes s if it contains a separator, quote or newline.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
