package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"backtest-gate/internal/domain"
)

// TradePnL returns (exit - entry) * side, or zero if either price is null.
func TradePnL(entry, exit decimal.NullDecimal, side domain.Side) decimal.Decimal {
	if !entry.Valid || !exit.Valid {
		return decimal.Zero
	}
	return exit.Decimal.Sub(entry.Decimal).Mul(decimal.NewFromInt(int64(side)))
}

// Compute aggregates performance over closed trades.
// Trades are sorted by ExitTimeMs ASC, TradeID ASC before computing
// order-dependent metrics (MaxDrawdown, MaxConsecutiveLosses).
// Unpriced trades count toward Trades with zero PnL.
func Compute(trades []domain.Trade) domain.Performance {
	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ExitTimeMs != sorted[j].ExitTimeMs {
			return sorted[i].ExitTimeMs < sorted[j].ExitTimeMs
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})

	pnl := make([]decimal.Decimal, len(sorted))
	priced := 0
	for i := range sorted {
		pnl[i] = sorted[i].PnL
		if sorted[i].Priced() {
			priced++
		}
	}

	perf := fromPnL(pnl)
	perf.Priced = priced
	perf.Unpriced = len(sorted) - priced
	return perf
}

// FromPnLColumn aggregates performance from precomputed per-trade pnl values,
// as found on EXIT rows of an already-enriched trade table.
// Non-numeric values count as zero.
func FromPnLColumn(values []string) domain.Performance {
	pnl := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			d = parseLooseFloat(v)
		}
		pnl[i] = d
	}
	perf := fromPnL(pnl)
	perf.Priced = len(values)
	return perf
}

// parseLooseFloat accepts forms decimal rejects ("1e-3", "NaN" → 0).
func parseLooseFloat(v string) decimal.Decimal {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// fromPnL computes every aggregate from pnl values in chronological order.
func fromPnL(pnl []decimal.Decimal) domain.Performance {
	n := len(pnl)
	perf := domain.Performance{Trades: n}

	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	cum := decimal.Zero
	for _, p := range pnl {
		cum = cum.Add(p)
		switch p.Sign() {
		case 1:
			perf.Wins++
			grossProfit = grossProfit.Add(p)
		case -1:
			perf.Losses++
			grossLoss = grossLoss.Add(p)
		}
	}

	perf.WinRate = computeWinRate(perf.Wins, n)
	perf.CumulativePnL = cum.InexactFloat64()
	perf.GrossProfit = grossProfit.InexactFloat64()
	perf.GrossLoss = grossLoss.InexactFloat64()
	perf.ProfitFactor = computeProfitFactor(grossProfit, grossLoss)

	if n == 0 {
		return perf
	}

	values := make([]float64, n)
	for i, p := range pnl {
		values[i] = p.InexactFloat64()
	}
	sortedValues := make([]float64, n)
	copy(sortedValues, values)
	sort.Float64s(sortedValues)

	perf.PnLMean = computeMean(values)
	perf.PnLStddev = computeStddev(values, perf.PnLMean)
	perf.PnLMedian = computePercentile(sortedValues, 0.50)
	perf.PnLP10 = computePercentile(sortedValues, 0.10)
	perf.PnLP90 = computePercentile(sortedValues, 0.90)
	perf.MaxDrawdown = computeMaxDrawdown(values)
	perf.MaxConsecutiveLosses = computeMaxConsecutiveLosses(values)

	return perf
}

// computeWinRate calculates win rate as wins / max(1, total).
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeProfitFactor returns gross profit over absolute gross loss,
// or nil when there is no loss to divide by.
func computeProfitFactor(grossProfit, grossLoss decimal.Decimal) *float64 {
	if grossLoss.IsZero() {
		return nil
	}
	pf := grossProfit.Div(grossLoss.Abs()).InexactFloat64()
	return &pf
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC; p is a fraction (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative pnl.
// Values must be in chronological order.
func computeMaxDrawdown(values []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, v := range values {
		cumulative += v
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of pnl <= 0.
func computeMaxConsecutiveLosses(values []float64) int {
	maxStreak := 0
	current := 0

	for _, v := range values {
		if v <= 0 {
			current++
			if current > maxStreak {
				maxStreak = current
			}
		} else {
			current = 0
		}
	}
	return maxStreak
}
