// Package ingest turns the raw trade-event log into typed TradeEvents.
package ingest

import (
	"strings"

	"github.com/rs/zerolog/log"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/table"
)

// IngestStats describes how the rows of a trade-event log were classified.
type IngestStats struct {
	Rows          int
	Entries       int
	Exits         int
	Ignored       int // neither ENTRY nor EXIT
	Ambiguous     int // matched both tokens, treated as neither
	BadTimestamps int // ENTRY/EXIT rows whose timestamp could not be parsed
}

// Columns records which source columns were resolved.
type Columns struct {
	Timestamp string
	Event     string
	Side      string // empty if the log has no side-like column
}

// ParseEvents extracts ENTRY/EXIT events from a trade-event table.
// Returns *SchemaError if the timestamp or event column is missing.
// Rows that are neither ENTRY nor EXIT, or whose timestamp cannot be parsed,
// are not returned.
func ParseEvents(t *table.Table) ([]domain.TradeEvent, Columns, IngestStats, error) {
	var cols Columns
	stats := IngestStats{Rows: t.Len()}

	evCol, ok := t.Find(table.EventColumns...)
	if !ok {
		return nil, cols, stats, NewSchemaError("trades", t.Path, "event", table.EventColumns, t.Columns)
	}
	tsCol, ok := t.Find(table.TimestampColumns...)
	if !ok {
		return nil, cols, stats, NewSchemaError("trades", t.Path, "timestamp", table.TimestampColumns, t.Columns)
	}
	sideCol, hasSide := t.Find(table.SideColumns...)

	cols = Columns{Timestamp: tsCol, Event: evCol, Side: sideCol}

	events := make([]domain.TradeEvent, 0, t.Len())
	for row := range t.Rows {
		kind, ambiguous := ClassifyEvent(t.Get(row, evCol))
		if ambiguous {
			stats.Ambiguous++
			log.Warn().
				Str("component", "ingest").
				Int("row", row).
				Str("value", t.Get(row, evCol)).
				Msg("event matches both ENTRY and EXIT, ignoring row")
			continue
		}
		if kind == domain.EventKindNone {
			stats.Ignored++
			continue
		}

		ts, err := table.ParseTimestamp(t.Get(row, tsCol))
		if err != nil {
			stats.BadTimestamps++
			continue
		}

		switch kind {
		case domain.EventKindEntry:
			stats.Entries++
		case domain.EventKindExit:
			stats.Exits++
		}

		ev := domain.TradeEvent{
			Row:         row,
			TimestampMs: ts,
			Kind:        kind,
			HasSide:     hasSide,
			Fields:      t.Record(row),
		}
		if hasSide {
			ev.Side = t.Get(row, sideCol)
		}
		events = append(events, ev)
	}

	return events, cols, stats, nil
}

// ClassifyEvent maps an event cell to a kind by case-insensitive substring
// match. ambiguous is true when the value contains both tokens.
func ClassifyEvent(value string) (kind domain.EventKind, ambiguous bool) {
	v := strings.ToUpper(value)
	isEntry := strings.Contains(v, "ENTRY")
	isExit := strings.Contains(v, "EXIT")

	switch {
	case isEntry && isExit:
		return domain.EventKindNone, true
	case isEntry:
		return domain.EventKindEntry, false
	case isExit:
		return domain.EventKindExit, false
	default:
		return domain.EventKindNone, false
	}
}
