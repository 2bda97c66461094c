package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, DefaultThreshold, c.Threshold)
	assert.Equal(t, DefaultHold, c.Hold)
	assert.Equal(t, DefaultCSVGlob, c.CSVGlob)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, DefaultParallel, c.Sweep.Parallel)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "gate.yml", `
threshold: 0.7
hold: 5
data_root: /data
engines:
  vec:
    command: python3
    args: ["run.py", "--outdir", "{outdir}"]
    timeout: 2m
default_engine: vec
sweep:
  thresholds: [0.6, 0.8]
  holds: [3, 9]
  parallel: 4
`)

	c, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, 0.7, c.Threshold)
	assert.Equal(t, 5, c.Hold)
	assert.Equal(t, "/data", c.DataRoot)
	assert.Equal(t, DefaultCSVGlob, c.CSVGlob)
	require.Contains(t, c.Engines, "vec")
	assert.Equal(t, 2*time.Minute, c.Engines["vec"].Timeout)
	assert.Equal(t, []float64{0.6, 0.8}, c.Sweep.Thresholds)
	assert.Equal(t, 4, c.Sweep.Parallel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "gate.yml", "threshold: 0.7\n")
	t.Setenv("GATE_THRESHOLD", "0.9")
	t.Setenv("GATE_DATA_ROOT", "/mnt/data")
	t.Setenv("GATE_TRACE_PATH", "/tmp/trace.json")

	c, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, 0.9, c.Threshold)
	assert.Equal(t, "/mnt/data", c.DataRoot)
	assert.True(t, c.Tracing.Enabled)
}

func TestLoad_EnvFile(t *testing.T) {
	t.Setenv("GATE_HOLD", "")
	os.Unsetenv("GATE_HOLD")
	env := writeFile(t, ".env", "GATE_HOLD=12\n")

	c, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, 12, c.Hold)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"threshold above one", "threshold: 1.5\n"},
		{"negative hold", "hold: -1\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"engine without command", "engines:\n  x:\n    args: [a]\n"},
		{"unknown default engine", "default_engine: nope\n"},
		{"tracing without path", "tracing:\n  enabled: true\n"},
		{"sweep threshold out of range", "sweep:\n  thresholds: [2]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "gate.yml", tt.yaml), "")
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("GATE_HOLD", "many")
	_, err := Load("", "")
	assert.ErrorContains(t, err, "GATE_HOLD")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yml"), "")
	assert.Error(t, err)
}
