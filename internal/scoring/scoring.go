// Package scoring evaluates probability forecasts against realized forward returns.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/table"
)

// ErrNoProbabilityColumn is returned when the predictions table has no
// probability-like or no timestamp-like column. The stage is skipped.
var ErrNoProbabilityColumn = errors.New("predictions have no probability or timestamp column")

// ScoringError wraps any failure inside the scoring stage.
type ScoringError struct {
	Op  string
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring %s: %v", e.Op, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// Params configures classification.
type Params struct {
	Threshold float64 // p >= Threshold predicts a positive forward return
	Hold      int     // forward horizon in bars
}

// Columns records the resolved prediction columns.
type Columns struct {
	Timestamp   string
	Probability string
}

// ParsePredictions extracts forecasts from a predictions table.
// An unparseable probability is kept as NaN and never predicts positive.
// An unparseable timestamp fails the stage.
func ParsePredictions(t *table.Table) ([]domain.Prediction, Columns, error) {
	var cols Columns

	probCol, ok := t.Find(table.ProbabilityColumns...)
	if !ok {
		return nil, cols, ErrNoProbabilityColumn
	}
	tsCol, ok := t.Find(table.TimestampColumns...)
	if !ok {
		return nil, cols, ErrNoProbabilityColumn
	}
	cols = Columns{Timestamp: tsCol, Probability: probCol}

	preds := make([]domain.Prediction, 0, t.Len())
	for row := range t.Rows {
		ts, err := table.ParseTimestamp(t.Get(row, tsCol))
		if err != nil {
			return nil, cols, &ScoringError{Op: "parse predictions", Err: fmt.Errorf("row %d: %w", row, err)}
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(t.Get(row, probCol)), 64)
		if err != nil {
			p = math.NaN()
		}
		preds = append(preds, domain.Prediction{TimestampMs: ts, Probability: p})
	}
	return preds, cols, nil
}

// ForwardReturns computes close[i+hold]/close[i] - 1 over the series sorted by
// timestamp. The last hold points, and points with a zero close, have no value.
// On duplicate timestamps the first point's value is kept.
func ForwardReturns(series *domain.PriceSeries, hold int) (map[int64]float64, error) {
	if hold < 0 {
		return nil, &ScoringError{Op: "forward returns", Err: fmt.Errorf("hold must be >= 0, got %d", hold)}
	}

	points := series.Sorted()
	fwd := make(map[int64]float64, len(points))
	for i := 0; i+hold < len(points); i++ {
		base := points[i].Close
		if base.IsZero() {
			continue
		}
		if _, exists := fwd[points[i].TimestampMs]; exists {
			continue
		}
		r := points[i+hold].Close.Div(base).InexactFloat64() - 1
		fwd[points[i].TimestampMs] = r
	}
	return fwd, nil
}

// Score builds the confusion matrix of y_pred = p >= threshold against
// y_true = forward return > 0. A prediction with no forward return is
// labelled negative.
func Score(preds []domain.Prediction, series *domain.PriceSeries, params Params) (domain.ConfusionMatrix, error) {
	var cm domain.ConfusionMatrix

	if series.Len() == 0 {
		return cm, &ScoringError{Op: "score", Err: errors.New("empty price series")}
	}
	fwd, err := ForwardReturns(series, params.Hold)
	if err != nil {
		return cm, err
	}

	for _, p := range preds {
		r, ok := fwd[p.TimestampMs]
		yTrue := ok && r > 0
		yPred := p.Probability >= params.Threshold

		switch {
		case yPred && yTrue:
			cm.TP++
		case !yPred && !yTrue:
			cm.TN++
		case yPred && !yTrue:
			cm.FP++
		default:
			cm.FN++
		}
	}
	return cm, nil
}
