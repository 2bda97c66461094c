package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a run report as Markdown string.
func RenderMarkdown(r *RunReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Evaluation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	}

	// Parameters
	sb.WriteString("## Parameters\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Output Dir | %s |\n", r.OutDir))
	sb.WriteString(fmt.Sprintf("| Threshold | %s |\n", strconvFloat(r.Threshold)))
	sb.WriteString(fmt.Sprintf("| Hold | %d |\n", r.Hold))
	sb.WriteString(fmt.Sprintf("| Price Source | %s |\n", orDash(r.PriceSource)))
	sb.WriteString(fmt.Sprintf("| Reconcile | %s |\n", r.Reconcile))
	sb.WriteString(fmt.Sprintf("| Scoring | %s |\n", r.Scoring))
	sb.WriteString("\n")

	// Contract checks
	if len(r.Checks) > 0 {
		sb.WriteString("## Contract Checks\n\n")
		sb.WriteString("| Check | Expected | Actual | Status |\n")
		sb.WriteString("|-------|----------|--------|--------|\n")
		for _, c := range r.Checks {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				c.Name, escapeCell(c.Expected), escapeCell(c.Actual), c.Status))
		}
		sb.WriteString("\n")
	}

	// Performance
	sb.WriteString("## Performance\n\n")
	if p := r.Performance; p != nil {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Exits | %d |\n", r.Exits))
		sb.WriteString(fmt.Sprintf("| Priced Trades | %d |\n", p.Priced))
		sb.WriteString(fmt.Sprintf("| Unmatched Exits | %d |\n", r.UnmatchedExits))
		sb.WriteString(fmt.Sprintf("| Open At End | %d |\n", r.OpenAtEnd))
		sb.WriteString(fmt.Sprintf("| Join Misses | %d |\n", r.JoinMisses))
		sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", p.Wins, p.Losses))
		sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", p.WinRate))
		sb.WriteString(fmt.Sprintf("| Profit Factor | %s |\n", formatOptional(p.ProfitFactor)))
		sb.WriteString(fmt.Sprintf("| Cumulative PnL | %.6f |\n", p.CumulativePnL))
		sb.WriteString(fmt.Sprintf("| Mean | %.6f |\n", p.PnLMean))
		sb.WriteString(fmt.Sprintf("| Median | %.6f |\n", p.PnLMedian))
		sb.WriteString(fmt.Sprintf("| P10 / P90 | %.6f / %.6f |\n", p.PnLP10, p.PnLP90))
		sb.WriteString(fmt.Sprintf("| Stddev | %.6f |\n", p.PnLStddev))
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %.6f |\n", p.MaxDrawdown))
		sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", p.MaxConsecutiveLosses))
	} else {
		sb.WriteString(fmt.Sprintf("No trades reconciled. Exits: %d\n", r.Exits))
	}
	sb.WriteString("\n")

	// Classification
	sb.WriteString("## Classification\n\n")
	if cm := r.Confusion; cm != nil {
		sb.WriteString(fmt.Sprintf("MCC: %s\n\n", formatOptional(r.MCC)))
		sb.WriteString("| | Predicted + | Predicted - |\n")
		sb.WriteString("|---|-------------|-------------|\n")
		sb.WriteString(fmt.Sprintf("| Actual + | %d | %d |\n", cm.TP, cm.FN))
		sb.WriteString(fmt.Sprintf("| Actual - | %d | %d |\n", cm.FP, cm.TN))
	} else {
		sb.WriteString(fmt.Sprintf("No classification computed. MCC: %s\n", formatOptional(r.MCC)))
	}
	sb.WriteString("\n")

	// Diagnostics
	if len(r.Diagnostics) > 0 {
		sb.WriteString("## Diagnostics\n\n")
		for _, d := range r.Diagnostics {
			sb.WriteString(fmt.Sprintf("- %s\n", d))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderComparisonMarkdown renders stored runs side by side.
func RenderComparisonMarkdown(c *ComparisonReport) string {
	var sb strings.Builder

	sb.WriteString("# Run Comparison\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", c.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d | Skipped: %d\n\n", len(c.Runs), len(c.Skipped)))

	if len(c.Runs) > 0 {
		sb.WriteString("| Run | Thr | Hold | Exits | WinRate | PF | CumPnL | MaxDD | MaxLoss | MCC |\n")
		sb.WriteString("|-----|-----|------|-------|---------|----|--------|-------|---------|-----|\n")
		for _, r := range c.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.4f | %s | %.6f | %.6f | %d | %s |\n",
				r.RunID, strconvFloat(r.Threshold), r.Hold, r.Exits,
				r.WinRate, formatOptional(r.ProfitFactor), r.CumulativePnL,
				r.MaxDrawdown, r.MaxConsecutiveLosses, formatOptional(r.MCC)))
		}
	} else {
		sb.WriteString("No stored runs with trades.\n")
	}
	sb.WriteString("\n")

	if len(c.Skipped) > 0 {
		sb.WriteString("## Runs Without Trades\n\n")
		for _, id := range c.Skipped {
			sb.WriteString(fmt.Sprintf("- %s\n", id))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
