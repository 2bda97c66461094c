package pipeline

import (
	"errors"
	"fmt"

	"backtest-gate/internal/summary"
	"backtest-gate/internal/table"
)

// SanityReport is the post-run activity evidence. Nil means unknown.
type SanityReport struct {
	Exits      *int `json:"exits"`
	TradesRows *int `json:"trades_rows"`
}

// Active reports whether the run shows any trading activity.
func (r SanityReport) Active() bool {
	return (r.Exits != nil && *r.Exits != 0) || (r.TradesRows != nil && *r.TradesRows != 0)
}

// Sanity checks a finished run for evidence of activity and writes
// post_sanity.json to outDir. It returns ErrActivityAbsent when neither the
// summary's exits nor the trade log's row count is positive.
func Sanity(outDir, summaryPath, tradesPath string) (SanityReport, error) {
	var r SanityReport

	if exits, ok := summary.Load(summaryPath).Int(summary.KeyExits); ok {
		r.Exits = &exits
	}

	t, missing, err := readOptional(tradesPath)
	switch {
	case missing:
	case errors.Is(err, table.ErrEmptyFile):
		zero := 0
		r.TradesRows = &zero
	case err != nil:
		return r, fmt.Errorf("sanity: %w", err)
	default:
		n := t.Len()
		r.TradesRows = &n
	}

	if err := writeJSON(ArtifactPath(outDir, FileSanity), r); err != nil {
		return r, fmt.Errorf("write %s: %w", FileSanity, err)
	}
	if !r.Active() {
		return r, ErrActivityAbsent
	}
	return r, nil
}
