package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PricePoint is one bar of the price series used for joins.
type PricePoint struct {
	TimestampMs int64           // bar open time, Unix ms
	Close       decimal.Decimal // close price
}

// PriceSeries is an ordered sequence of price points with exact-key lookup.
// Timestamps are expected to be unique; on duplicates the first point wins.
type PriceSeries struct {
	Source string // file the series was loaded from
	Points []PricePoint
	index  map[int64]int
}

// NewPriceSeries builds a series from points in source order.
func NewPriceSeries(source string, points []PricePoint) *PriceSeries {
	s := &PriceSeries{
		Source: source,
		Points: points,
		index:  make(map[int64]int, len(points)),
	}
	for i, p := range points {
		if _, exists := s.index[p.TimestampMs]; !exists {
			s.index[p.TimestampMs] = i
		}
	}
	return s
}

// Len returns the number of points.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// At returns the close at exactly ts. No interpolation.
func (s *PriceSeries) At(ts int64) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Decimal{}, false
	}
	i, ok := s.index[ts]
	if !ok {
		return decimal.Decimal{}, false
	}
	return s.Points[i].Close, true
}

// Sorted returns a copy of the points ordered by timestamp ASC (stable).
func (s *PriceSeries) Sorted() []PricePoint {
	if s == nil {
		return nil
	}
	out := make([]PricePoint, len(s.Points))
	copy(out, s.Points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimestampMs < out[j].TimestampMs
	})
	return out
}

// TimeRange returns the min and max timestamps, or (0, 0) if empty.
func (s *PriceSeries) TimeRange() (int64, int64) {
	if s.Len() == 0 {
		return 0, 0
	}
	minTs, maxTs := s.Points[0].TimestampMs, s.Points[0].TimestampMs
	for _, p := range s.Points {
		if p.TimestampMs < minTs {
			minTs = p.TimestampMs
		}
		if p.TimestampMs > maxTs {
			maxTs = p.TimestampMs
		}
	}
	return minTs, maxTs
}
