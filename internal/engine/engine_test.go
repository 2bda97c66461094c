package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-gate/internal/config"
)

func shellEngine(script string, timeout time.Duration) *CommandEngine {
	return NewCommandEngine("sh", config.EngineConfig{
		Command: "/bin/sh",
		Args:    []string{"-c", script, "engine", "{outdir}", "{thr}", "{hold}", "{params}"},
		Env:     map[string]string{"ENGINE_MODE": "test"},
		Timeout: timeout,
	})
}

func TestCommandEngine_Args(t *testing.T) {
	e := NewCommandEngine("x", config.EngineConfig{
		Command: "bt",
		Args:    []string{"--data-root", "{data_root}", "--csv-glob={csv_glob}", "--thr", "{thr}", "--hold", "{hold}", "--out", "{outdir}"},
	})

	args := e.Args(Request{DataRoot: "/d", CSVGlob: "**/*.csv", OutDir: "/o", Threshold: 0.83, Hold: 9})
	assert.Equal(t, []string{"--data-root", "/d", "--csv-glob=**/*.csv", "--thr", "0.83", "--hold", "9", "--out", "/o"}, args)
}

func TestCommandEngine_Run(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	outDir := filepath.Join(t.TempDir(), "out")
	e := shellEngine(`printf 'open_time,event\n' > "$1/trades.csv"; echo "$ENGINE_MODE $2 $3 $GATE_HOLD" > "$1/args.txt"`, 0)

	arts, err := e.Run(context.Background(), Request{OutDir: outDir, Threshold: 0.8, Hold: 4})
	require.NoError(t, err)

	assert.Equal(t, ArtifactsIn(outDir), arts)
	assert.FileExists(t, arts.TradesPath)
	got, err := os.ReadFile(filepath.Join(outDir, "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "test 0.8 4 4\n", string(got))
}

func TestCommandEngine_NonZeroExit(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	e := shellEngine(`echo "bad params" >&2; exit 3`, 0)

	_, err := e.Run(context.Background(), Request{OutDir: t.TempDir()})

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, 3, runErr.ExitCode)
	assert.Equal(t, "bad params", runErr.Output)
	assert.Equal(t, "sh", runErr.Engine)
}

func TestCommandEngine_Timeout(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	e := shellEngine(`exec sleep 5`, 100*time.Millisecond)

	start := time.Now()
	_, err := e.Run(context.Background(), Request{OutDir: t.TempDir()})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandEngine_RequiresOutDir(t *testing.T) {
	_, err := shellEngine("true", 0).Run(context.Background(), Request{})
	require.Error(t, err)
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{max: 4}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))
	assert.Equal(t, "defg", b.String())
}

func TestRegistry(t *testing.T) {
	cfg := config.Default()
	cfg.Engines = map[string]config.EngineConfig{
		"vec":  {Command: "a"},
		"slow": {Command: "b"},
	}
	cfg.DefaultEngine = "vec"
	r := FromConfig(cfg)

	e, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "vec", e.Name())

	e, err = r.Get("slow")
	require.NoError(t, err)
	assert.Equal(t, "slow", e.Name())

	_, err = r.Get("missing")
	assert.True(t, errors.Is(err, ErrUnknownEngine))
	assert.Contains(t, err.Error(), "[slow vec]")
}

func TestRegistry_SingleEngineIsImplicitDefault(t *testing.T) {
	r := NewRegistry()
	r.Register(NewCommandEngine("only", config.EngineConfig{Command: "x"}))

	e, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "only", e.Name())

	_, err = NewRegistry().Get("")
	assert.True(t, errors.Is(err, ErrUnknownEngine))
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	params := filepath.Join(dir, "params.yml")
	require.NoError(t, os.WriteFile(params, []byte("entry: {}\n"), 0o644))

	now := time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)
	m := NewManifest("vec", Request{DataRoot: "/d", CSVGlob: "*.csv", ParamsPath: params, Threshold: 0.83, Hold: 9}, now)
	require.NoError(t, WriteManifest(dir, m))

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 0.83, got["thr"])
	assert.EqualValues(t, 9, got["hold"])
	assert.Equal(t, "vec", got["engine_used"])
	assert.Equal(t, "2025-01-04T12:00:00Z", got["ts"])
	assert.True(t, strings.HasPrefix(string(data), "{\n  \""))

	copied, err := os.ReadFile(filepath.Join(dir, ParamsUsedFile))
	require.NoError(t, err)
	assert.Equal(t, "entry: {}\n", string(copied))
}

func TestWriteManifest_MissingParams(t *testing.T) {
	dir := t.TempDir()
	err := WriteManifest(dir, Manifest{ParamsFile: filepath.Join(dir, "nope.yml")})
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, ManifestFile))
}
