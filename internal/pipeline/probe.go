package pipeline

import (
	"path/filepath"

	"backtest-gate/internal/table"
)

// DefaultProbeSamples is the number of matched files whose header is sampled.
const DefaultProbeSamples = 3

// ProbeSample is the header of one matched file, or the error reading it.
type ProbeSample struct {
	Path  string   `json:"path"`
	Cols  []string `json:"cols,omitempty"`
	Error string   `json:"error,omitempty"`
}

// ProbeReport describes what a data pattern resolves to.
type ProbeReport struct {
	Pattern string        `json:"pattern"`
	NFiles  int           `json:"n_files"`
	Samples []ProbeSample `json:"samples"`
}

// Probe resolves pattern under root and samples the headers of up to limit
// files. It returns ErrNoDataMatched, along with the report, if nothing matched.
func Probe(root, pattern string, limit int) (ProbeReport, error) {
	r := ProbeReport{
		Pattern: filepath.Join(root, pattern),
		Samples: []ProbeSample{},
	}

	matches, err := table.Match(root, pattern)
	if err != nil {
		return r, err
	}
	r.NFiles = len(matches)
	if r.NFiles == 0 {
		return r, ErrNoDataMatched
	}

	if limit <= 0 {
		limit = DefaultProbeSamples
	}
	for _, path := range matches[:min(limit, len(matches))] {
		s := ProbeSample{Path: path}
		t, err := table.ReadCSV(path)
		if err != nil {
			s.Error = err.Error()
		} else {
			s.Cols = t.Columns
		}
		r.Samples = append(r.Samples, s)
	}
	return r, nil
}

// WriteProbe writes r to diag_probe.json in outDir.
func WriteProbe(outDir string, r ProbeReport) error {
	return writeJSON(ArtifactPath(outDir, FileProbe), r)
}
