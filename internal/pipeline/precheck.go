package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"backtest-gate/internal/table"
)

// Status is the outcome of one contract check.
type Status string

// Check statuses.
const (
	StatusOK   Status = "OK"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// maxActualColumns bounds the observed columns quoted in a check.
const maxActualColumns = 10

// ContractCheck represents one input contract criterion.
type ContractCheck struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Path     string `json:"path,omitempty"`
}

// PrecheckInput names the inputs to check.
type PrecheckInput struct {
	DataRoot   string
	CSVGlob    string
	TradesPath string
	PredsPath  string
}

// PrecheckResult contains the data, trades and predictions checks.
type PrecheckResult struct {
	Data   ContractCheck `json:"data"`
	Trades ContractCheck `json:"trades"`
	Preds  ContractCheck `json:"preds"`
}

// Checks returns the checks in report order.
func (r PrecheckResult) Checks() []ContractCheck {
	return []ContractCheck{r.Data, r.Trades, r.Preds}
}

// Err returns ErrContract if the data or trades check failed, ErrPredsContract
// if only the predictions check failed, and nil otherwise. Warnings pass.
func (r PrecheckResult) Err() error {
	if r.Data.Status == StatusFail || r.Trades.Status == StatusFail {
		return fmt.Errorf("%w: data=%s trades=%s", ErrContract, r.Data.Status, r.Trades.Status)
	}
	if r.Preds.Status == StatusFail {
		return fmt.Errorf("%w: %s", ErrPredsContract, r.Preds.Actual)
	}
	return nil
}

// Precheck validates the input contract before a run. A missing trade log or
// prediction file is a warning; a file with the wrong columns is a failure.
func Precheck(in PrecheckInput) PrecheckResult {
	return PrecheckResult{
		Data:   checkData(in.DataRoot, in.CSVGlob),
		Trades: checkTrades(in.TradesPath),
		Preds:  checkPreds(in.PredsPath),
	}
}

// WritePrecheck writes r to precheck.json in outDir.
func WritePrecheck(outDir string, r PrecheckResult) error {
	return writeJSON(ArtifactPath(outDir, FilePrecheck), r)
}

func checkData(root, pattern string) ContractCheck {
	c := ContractCheck{
		Name:     "data",
		Expected: fmt.Sprintf("csv with one of %v and one of %v", table.CloseColumns, table.TimestampColumns),
	}

	matches, err := table.Match(root, pattern)
	if err != nil {
		c.Status = StatusFail
		c.Actual = err.Error()
		return c
	}
	if len(matches) == 0 {
		c.Status = StatusFail
		c.Actual = "no CSV matched " + filepath.Join(root, pattern)
		return c
	}

	c.Path = matches[0]
	t, err := table.ReadCSV(c.Path)
	if err != nil {
		c.Status = StatusFail
		c.Actual = err.Error()
		return c
	}
	_, hasClose := t.Find(table.CloseColumns...)
	_, hasTime := t.Find(table.TimestampColumns...)
	if !hasClose || !hasTime {
		c.Status = StatusFail
		c.Actual = "columns " + columnList(t)
		return c
	}

	c.Status = StatusOK
	c.Actual = "csv ok: " + filepath.Base(c.Path)
	return c
}

func checkTrades(path string) ContractCheck {
	c := ContractCheck{
		Name:     "trades",
		Path:     path,
		Expected: fmt.Sprintf("one of %v and %v", table.TimestampColumns, table.EventColumns),
	}

	t, missing, err := readOptional(path)
	switch {
	case missing:
		c.Status = StatusWarn
		c.Actual = "trades file missing (will be empty)"
		return c
	case err != nil:
		c.Status = StatusFail
		c.Actual = err.Error()
		return c
	}

	_, hasTime := t.Find(table.TimestampColumns...)
	_, hasEvent := t.Find(table.EventColumns...)
	if !hasTime || !hasEvent {
		c.Status = StatusFail
		c.Actual = "columns " + columnList(t)
		return c
	}

	c.Status = StatusOK
	c.Actual = "trades ok: " + columnList(t)
	return c
}

func checkPreds(path string) ContractCheck {
	c := ContractCheck{
		Name:     "preds",
		Path:     path,
		Expected: fmt.Sprintf("one of %v and one of %v", table.TimestampColumns, table.ProbabilityColumns),
	}

	t, missing, err := readOptional(path)
	switch {
	case missing:
		c.Status = StatusWarn
		c.Actual = "predictions missing (MCC skipped)"
		return c
	case err != nil:
		c.Status = StatusFail
		c.Actual = err.Error()
		return c
	}

	_, hasTime := t.Find(table.TimestampColumns...)
	prob, hasProb := t.Find(table.ProbabilityColumns...)
	if !hasTime || !hasProb {
		c.Status = StatusFail
		c.Actual = "columns " + columnList(t)
		return c
	}

	c.Status = StatusOK
	c.Actual = "preds ok: prob=" + prob
	return c
}

// readOptional reads a CSV that may legitimately be absent.
func readOptional(path string) (t *table.Table, missing bool, err error) {
	if path == "" {
		return nil, true, nil
	}
	t, err = table.ReadCSV(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, true, nil
	}
	return t, false, err
}

func columnList(t *table.Table) string {
	cols := t.Columns
	if len(cols) > maxActualColumns {
		cols = cols[:maxActualColumns]
	}
	return "[" + strings.Join(cols, ", ") + "]"
}
