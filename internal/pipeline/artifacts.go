// Package pipeline runs the evaluation gate: contract precheck, trade
// reconciliation, prediction scoring, summary merge and post-run sanity.
package pipeline

import (
	"io"
	"path/filepath"

	"github.com/goccy/go-json"

	"backtest-gate/internal/table"
)

// Artifact file names inside an output directory.
const (
	FileTrades     = "trades.csv"
	FilePreds      = "preds_test.csv"
	FileSummary    = "summary.json"
	FilePrecheck   = "precheck.json"
	FileSanity     = "post_sanity.json"
	FileProbe      = "diag_probe.json"
	FileDiagnostic = "diagnostic.json"
	FileReport     = "report.md"
)

// ArtifactPath returns the path of name inside outDir.
func ArtifactPath(outDir, name string) string {
	return filepath.Join(outDir, name)
}

// writeJSON writes v as indented JSON, atomically.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return table.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
