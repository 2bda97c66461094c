package domain

// EventKind classifies a row of the trade-event log.
type EventKind string

// Event kinds. A row that is neither ENTRY nor EXIT carries EventKindNone.
const (
	EventKindNone  EventKind = ""
	EventKindEntry EventKind = "ENTRY"
	EventKindExit  EventKind = "EXIT"
)

// TradeEvent is one row of the trade-event log after schema normalization.
type TradeEvent struct {
	Row         int       // zero-based position in the source log
	TimestampMs int64     // event time, Unix milliseconds (UTC)
	Kind        EventKind // ENTRY | EXIT | none
	Side        string    // raw side/direction value, empty if the column is absent
	HasSide     bool      // true if the log carries a side-like column

	// Fields holds every column of the row keyed by original column name.
	Fields map[string]string
}

// IsEntry reports whether the event opens a position.
func (e *TradeEvent) IsEntry() bool { return e.Kind == EventKindEntry }

// IsExit reports whether the event closes a position.
func (e *TradeEvent) IsExit() bool { return e.Kind == EventKindExit }
