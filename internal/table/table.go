// Package table reads and writes the loosely typed CSV artifacts a backtest run
// leaves behind (trade logs, price bars, prediction tables).
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyFile is returned when a CSV file has no header row.
var ErrEmptyFile = errors.New("csv file is empty")

// Table is a header plus string rows. Every row has len(Columns) cells.
type Table struct {
	Path    string
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given header.
func New(path string, columns ...string) *Table {
	return &Table{Path: path, Columns: append([]string(nil), columns...)}
}

// ReadCSV loads a CSV file. Short rows are padded and long rows truncated to the
// header width, so a ragged file never fails the whole read.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// Parse reads CSV content from r.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	t := &Table{Columns: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Find returns the first candidate present in the header, matched
// case-insensitively. Candidate order wins over column order. The returned name
// is the column's original spelling.
func (t *Table) Find(candidates ...string) (string, bool) {
	lower := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		key := strings.ToLower(c)
		if _, exists := lower[key]; !exists {
			lower[key] = c
		}
	}
	for _, cand := range candidates {
		if col, ok := lower[strings.ToLower(cand)]; ok {
			return col, true
		}
	}
	return "", false
}

// Index returns the position of column col, or -1.
func (t *Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Get returns the cell at (row, col), or "" if the column does not exist.
func (t *Table) Get(row int, col string) string {
	i := t.Index(col)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][i]
}

// Set writes the cell at (row, col), appending the column if needed.
func (t *Table) Set(row int, col, value string) {
	i := t.EnsureColumn(col)
	t.Rows[row][i] = value
}

// EnsureColumn appends col (blank in every row) if absent and returns its index.
func (t *Table) EnsureColumn(col string) int {
	if i := t.Index(col); i >= 0 {
		return i
	}
	t.Columns = append(t.Columns, col)
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], "")
	}
	return len(t.Columns) - 1
}

// Record returns row as a column-name keyed map.
func (t *Table) Record(row int) map[string]string {
	rec := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		rec[c] = t.Rows[row][i]
	}
	return rec
}

// Append adds a row given as a column-name keyed map. Unknown keys are ignored.
func (t *Table) Append(rec map[string]string) {
	row := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		row[i] = rec[c]
	}
	t.Rows = append(t.Rows, row)
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteCSVAtomic writes the table to path via a temp file in the same directory
// followed by a rename, so readers never observe a partial file.
func WriteCSVAtomic(path string, t *Table) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		return t.Write(w)
	})
}

// WriteFileAtomic streams content produced by fill into path atomically.
func WriteFileAtomic(path string, fill func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := fill(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
