package pipeline

import (
	"errors"
	"fmt"
	"time"

	"backtest-gate/internal/ingest"
)

// StageError wraps a failure with the stage it aborted.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Diagnostic describes a failed stage: what was expected versus what was found.
type Diagnostic struct {
	Stage     string   `json:"stage"`
	Error     string   `json:"error"`
	Path      string   `json:"path,omitempty"`
	Missing   string   `json:"missing,omitempty"`
	Expected  []string `json:"expected,omitempty"`
	Observed  []string `json:"observed,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// NewDiagnostic builds a diagnostic for err. Schema errors contribute the
// offending path and the expected and observed columns.
func NewDiagnostic(stage string, err error, now time.Time) Diagnostic {
	d := Diagnostic{
		Stage:     stage,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
	if err != nil {
		d.Error = err.Error()
	}

	var se *ingest.SchemaError
	if errors.As(err, &se) {
		d.Path = se.Path
		d.Missing = se.Missing
		d.Expected = se.Expected
		d.Observed = se.Observed
	}
	return d
}

// WriteDiagnostics writes ds as a JSON array to diagnostic.json in outDir.
func WriteDiagnostics(outDir string, ds []Diagnostic) error {
	if ds == nil {
		ds = []Diagnostic{}
	}
	return writeJSON(ArtifactPath(outDir, FileDiagnostic), ds)
}
