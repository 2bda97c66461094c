// Package engine runs external backtest executables behind a common interface.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrUnknownEngine is returned when a name has no registered engine.
var ErrUnknownEngine = errors.New("unknown engine")

// Request describes one backtest invocation.
type Request struct {
	DataRoot   string
	CSVGlob    string
	CSVPaths   []string // files matched by CSVGlob under DataRoot
	ParamsPath string
	OutDir     string
	Threshold  float64
	Hold       int
}

// Artifacts are the files an engine is expected to leave in its output directory.
// Any of them may be absent after a run.
type Artifacts struct {
	TradesPath  string
	PredsPath   string
	SummaryPath string
}

// ArtifactsIn returns the conventional artifact paths inside outDir.
func ArtifactsIn(outDir string) Artifacts {
	return Artifacts{
		TradesPath:  filepath.Join(outDir, "trades.csv"),
		PredsPath:   filepath.Join(outDir, "preds_test.csv"),
		SummaryPath: filepath.Join(outDir, "summary.json"),
	}
}

// Engine produces backtest artifacts for a request.
type Engine interface {
	// Name returns the engine identifier.
	Name() string

	// Run executes the backtest and returns the artifact locations.
	Run(ctx context.Context, req Request) (Artifacts, error)
}

// RunError reports a failed engine invocation.
type RunError struct {
	Engine   string
	ExitCode int    // -1 if the process did not exit normally
	Output   string // tail of combined stdout and stderr
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("engine %s: exit %d: %v", e.Engine, e.ExitCode, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
