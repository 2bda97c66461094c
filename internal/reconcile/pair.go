// Package reconcile turns a stream of ENTRY/EXIT events into closed trades.
package reconcile

import (
	"sort"

	"backtest-gate/internal/domain"
)

// Pair is one ENTRY matched to one EXIT.
type Pair struct {
	TradeID int
	Entry   domain.TradeEvent
	Exit    domain.TradeEvent
}

// PairResult is the outcome of FIFO pairing.
type PairResult struct {
	Pairs          []Pair // ordered by TradeID
	UnmatchedExits int    // EXITs seen with no open trade
	OpenAtEnd      int    // ENTRYs never closed, dropped
}

// PairEvents matches events first-in-first-out after a stable sort by timestamp,
// ties broken by source row. Trade ids start at 1 and are assigned at ENTRY.
func PairEvents(events []domain.TradeEvent) PairResult {
	sorted := make([]domain.TradeEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TimestampMs != sorted[j].TimestampMs {
			return sorted[i].TimestampMs < sorted[j].TimestampMs
		}
		return sorted[i].Row < sorted[j].Row
	})

	type open struct {
		id    int
		entry domain.TradeEvent
	}

	var (
		res    PairResult
		queue  []open
		nextID = 1
	)

	for _, ev := range sorted {
		switch ev.Kind {
		case domain.EventKindEntry:
			queue = append(queue, open{id: nextID, entry: ev})
			nextID++
		case domain.EventKindExit:
			if len(queue) == 0 {
				res.UnmatchedExits++
				continue
			}
			head := queue[0]
			queue = queue[1:]
			res.Pairs = append(res.Pairs, Pair{TradeID: head.id, Entry: head.entry, Exit: ev})
		}
	}

	res.OpenAtEnd = len(queue)

	return res
}
