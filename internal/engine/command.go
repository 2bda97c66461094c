package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"backtest-gate/internal/config"
)

const (
	outputTailBytes = 4096            // engine output kept for error reports
	waitDelay       = 2 * time.Second // grace period for output pipes after a kill
)

// CommandEngine runs a configured executable. Arguments may reference
// {data_root}, {csv_glob}, {params}, {outdir}, {thr} and {hold}.
type CommandEngine struct {
	name string
	cfg  config.EngineConfig
}

// NewCommandEngine creates an engine for cfg.
func NewCommandEngine(name string, cfg config.EngineConfig) *CommandEngine {
	return &CommandEngine{name: name, cfg: cfg}
}

// Name returns the engine identifier.
func (e *CommandEngine) Name() string { return e.name }

// Args returns the command arguments with placeholders filled from req.
func (e *CommandEngine) Args(req Request) []string {
	r := strings.NewReplacer(
		"{data_root}", req.DataRoot,
		"{csv_glob}", req.CSVGlob,
		"{params}", req.ParamsPath,
		"{outdir}", req.OutDir,
		"{thr}", strconv.FormatFloat(req.Threshold, 'g', -1, 64),
		"{hold}", strconv.Itoa(req.Hold),
	)
	args := make([]string, len(e.cfg.Args))
	for i, a := range e.cfg.Args {
		args[i] = r.Replace(a)
	}
	return args
}

// Run executes the command and waits for it. The output directory is
// created first. A non-zero exit or a timeout returns *RunError.
func (e *CommandEngine) Run(ctx context.Context, req Request) (Artifacts, error) {
	if req.OutDir == "" {
		return Artifacts{}, errors.New("engine: output directory is required")
	}
	if err := os.MkdirAll(req.OutDir, 0755); err != nil {
		return Artifacts{}, fmt.Errorf("create output dir: %w", err)
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	args := e.Args(req)
	cmd := exec.CommandContext(ctx, e.cfg.Command, args...)
	cmd.Dir = e.cfg.Dir
	cmd.Env = e.environ(req)
	out := &tailBuffer{max: outputTailBytes}
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = waitDelay

	log.Info().
		Str("engine", e.name).
		Str("command", e.cfg.Command).
		Strs("args", args).
		Str("outdir", req.OutDir).
		Msg("engine started")

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		runErr := &RunError{Engine: e.name, ExitCode: -1, Output: out.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			runErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr.Err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		log.Error().
			Str("engine", e.name).
			Int("exit_code", runErr.ExitCode).
			Dur("elapsed", elapsed).
			Str("output", runErr.Output).
			Msg("engine failed")
		return Artifacts{}, runErr
	}

	log.Info().Str("engine", e.name).Dur("elapsed", elapsed).Msg("engine finished")
	return ArtifactsIn(req.OutDir), nil
}

// environ returns the process environment plus the configured variables and
// the request exported as GATE_* variables.
func (e *CommandEngine) environ(req Request) []string {
	env := os.Environ()

	keys := make([]string, 0, len(e.cfg.Env))
	for k := range e.cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+e.cfg.Env[k])
	}

	return append(env,
		"GATE_DATA_ROOT="+req.DataRoot,
		"GATE_CSV_GLOB="+req.CSVGlob,
		"GATE_CSV_PATHS="+strings.Join(req.CSVPaths, string(os.PathListSeparator)),
		"GATE_PARAMS="+req.ParamsPath,
		"GATE_OUTDIR="+req.OutDir,
		"GATE_THRESHOLD="+strconv.FormatFloat(req.Threshold, 'g', -1, 64),
		"GATE_HOLD="+strconv.Itoa(req.Hold),
	)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return strings.TrimSpace(string(b.buf))
}
