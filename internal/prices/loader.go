// Package prices loads the close-price series used to value reconciled trades.
package prices

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/ingest"
	"backtest-gate/internal/table"
)

// ErrNoSourceMatched is returned when the glob matches no file under the data root.
var ErrNoSourceMatched = errors.New("no price source matched")

// LoadStats describes a loaded price source.
type LoadStats struct {
	Matched int    // files matched by the glob
	Source  string // file actually loaded (first match)
	Rows    int
	Skipped int // rows with an unparseable timestamp or close
}

// Load reads the first file matching pattern under root.
func Load(root, pattern string) (*domain.PriceSeries, LoadStats, error) {
	var stats LoadStats

	matches, err := table.Match(root, pattern)
	if err != nil {
		return nil, stats, fmt.Errorf("match %q under %s: %w", pattern, root, err)
	}
	stats.Matched = len(matches)
	if len(matches) == 0 {
		return nil, stats, fmt.Errorf("%w: %q under %s", ErrNoSourceMatched, pattern, root)
	}
	if len(matches) > 1 {
		log.Debug().
			Str("component", "prices").
			Int("matched", len(matches)).
			Str("using", matches[0]).
			Msg("multiple price sources matched, using first")
	}

	t, err := table.ReadCSV(matches[0])
	if err != nil {
		return nil, stats, fmt.Errorf("read price source: %w", err)
	}

	series, ftStats, err := FromTable(t)
	if err != nil {
		return nil, stats, err
	}
	ftStats.Matched = stats.Matched
	return series, ftStats, nil
}

// FromTable builds a price series from an already-parsed table.
// Duplicate timestamps are kept; lookups return the first.
func FromTable(t *table.Table) (*domain.PriceSeries, LoadStats, error) {
	stats := LoadStats{Source: t.Path, Rows: t.Len()}

	tsCol, ok := t.Find(table.TimestampColumns...)
	if !ok {
		return nil, stats, ingest.NewSchemaError("prices", t.Path, "timestamp", table.TimestampColumns, t.Columns)
	}
	closeCol, ok := t.Find(table.CloseColumns...)
	if !ok {
		return nil, stats, ingest.NewSchemaError("prices", t.Path, "close", table.CloseColumns, t.Columns)
	}

	points := make([]domain.PricePoint, 0, t.Len())
	for row := range t.Rows {
		ts, err := table.ParseTimestamp(t.Get(row, tsCol))
		if err != nil {
			stats.Skipped++
			continue
		}
		c, err := decimal.NewFromString(strings.TrimSpace(t.Get(row, closeCol)))
		if err != nil {
			stats.Skipped++
			continue
		}
		points = append(points, domain.PricePoint{TimestampMs: ts, Close: c})
	}

	if stats.Skipped > 0 {
		log.Warn().
			Str("component", "prices").
			Str("source", t.Path).
			Int("skipped", stats.Skipped).
			Msg("skipped unparseable price rows")
	}

	return domain.NewPriceSeries(t.Path, points), stats, nil
}
