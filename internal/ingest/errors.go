package ingest

import (
	"fmt"
	"strings"
)

// maxObservedColumns caps how many observed columns a SchemaError reports.
const maxObservedColumns = 12

// SchemaError reports a required column that could not be located. It is fatal
// to the stage that raised it.
type SchemaError struct {
	Stage    string   // "trades", "prices", "predictions"
	Path     string   // file that was inspected
	Missing  string   // logical column that was not found ("event", "timestamp", "close")
	Expected []string // accepted column names
	Observed []string // columns actually present
}

// NewSchemaError builds a SchemaError, truncating the observed column list.
func NewSchemaError(stage, path, missing string, expected, observed []string) *SchemaError {
	obs := observed
	if len(obs) > maxObservedColumns {
		obs = obs[:maxObservedColumns]
	}
	return &SchemaError{
		Stage:    stage,
		Path:     path,
		Missing:  missing,
		Expected: append([]string(nil), expected...),
		Observed: append([]string(nil), obs...),
	}
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s schema: no %s column in %s (expected one of [%s], have [%s])",
		e.Stage, e.Missing, e.Path,
		strings.Join(e.Expected, ", "), strings.Join(e.Observed, ", "))
}
