package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"backtest-gate/internal/table"
)

// Manifest file names.
const (
	ManifestFile   = "manifest.json"
	ParamsUsedFile = "params_used.yml"
)

// Manifest records how an output directory was produced.
type Manifest struct {
	Threshold  float64 `json:"thr"`
	Hold       int     `json:"hold"`
	CSVGlob    string  `json:"csv_glob"`
	DataRoot   string  `json:"data_root"`
	ParamsFile string  `json:"params_file"`
	EngineUsed string  `json:"engine_used"`
	Timestamp  string  `json:"ts"`
}

// NewManifest builds the manifest of req run by engine at now.
func NewManifest(engine string, req Request, now time.Time) Manifest {
	return Manifest{
		Threshold:  req.Threshold,
		Hold:       req.Hold,
		CSVGlob:    req.CSVGlob,
		DataRoot:   req.DataRoot,
		ParamsFile: req.ParamsPath,
		EngineUsed: engine,
		Timestamp:  now.UTC().Format(time.RFC3339),
	}
}

// WriteManifest writes m to manifest.json in outDir and copies the params
// file next to it as params_used.yml.
func WriteManifest(outDir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	err = table.WriteFileAtomic(filepath.Join(outDir, ManifestFile), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if m.ParamsFile == "" {
		return nil
	}
	params, err := os.ReadFile(m.ParamsFile)
	if err != nil {
		return fmt.Errorf("copy params: %w", err)
	}
	return table.WriteFileAtomic(filepath.Join(outDir, ParamsUsedFile), func(w io.Writer) error {
		_, err := w.Write(params)
		return err
	})
}
