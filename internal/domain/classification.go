package domain

import "math"

// Prediction is one probability forecast from the predictions table.
type Prediction struct {
	TimestampMs int64
	Probability float64
}

// ConfusionMatrix holds 2x2 classification counts.
type ConfusionMatrix struct {
	TP int `json:"TP"`
	TN int `json:"TN"`
	FP int `json:"FP"`
	FN int `json:"FN"`
}

// Total returns the number of scored rows.
func (m ConfusionMatrix) Total() int {
	return m.TP + m.TN + m.FP + m.FN
}

// MCC returns the Matthews correlation coefficient.
// Returns 0 when any marginal sum is zero, so the value is always finite.
func (m ConfusionMatrix) MCC() float64 {
	tp, tn, fp, fn := float64(m.TP), float64(m.TN), float64(m.FP), float64(m.FN)
	denom := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
	if denom == 0 {
		return 0
	}
	return (tp*tn - fp*fn) / denom
}
