// Package cli holds the setup shared by the gate commands: configuration,
// logging, signals, tracing, metrics and storage.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"backtest-gate/internal/config"
	"backtest-gate/internal/observability"
	"backtest-gate/internal/pipeline"
)

// Common holds the flags every command accepts.
type Common struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
	Pretty     bool
}

// Register adds the common flags to fs.
func (c *Common) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigPath, "config", os.Getenv("GATE_CONFIG"), "YAML config file")
	fs.StringVar(&c.EnvFile, "env-file", "", "Optional .env file")
	fs.StringVar(&c.LogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	fs.BoolVar(&c.Pretty, "pretty", false, "Human-readable console logs")
}

// Load reads the configuration and applies the logging flags.
func (c *Common) Load() (*config.Config, error) {
	cfg, err := config.Load(c.ConfigPath, c.EnvFile)
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(c.LogLevel)
	}
	if c.Pretty {
		cfg.Log.Pretty = true
	}
	return cfg, nil
}

// SetupLogging configures the global zerolog logger writing to w.
func SetupLogging(tool string, cfg *config.Config, w io.Writer) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Log.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("tool", tool).Logger()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// StartTracing installs the span exporter if tracing is enabled. The returned
// function flushes spans and closes the trace file.
func StartTracing(tool string, cfg *config.Config) (func(), error) {
	if !cfg.Tracing.Enabled {
		return func() {}, nil
	}
	f, err := os.OpenFile(cfg.Tracing.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	if err := observability.InitTracing(f, tool); err != nil {
		f.Close()
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.ShutdownTracing(ctx); err != nil {
			log.Warn().Err(err).Msg("trace shutdown failed")
		}
		f.Close()
	}, nil
}

// Finish records the run outcome, writes the metrics textfile if configured
// and returns the process exit code for err.
func Finish(tool string, cfg *config.Config, err error) int {
	code := pipeline.ExitCode(err)
	return FinishCode(tool, cfg, code, err)
}

// FinishCode is Finish with an explicit exit code.
func FinishCode(tool string, cfg *config.Config, code int, err error) int {
	outcome := "ok"
	if code != pipeline.ExitOK {
		outcome = "exit_" + strconv.Itoa(code)
	}
	observability.RecordRun(tool, outcome)

	if cfg != nil && cfg.Metrics.Textfile != "" {
		if werr := observability.DefaultMetrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			log.Warn().Err(werr).Str("path", cfg.Metrics.Textfile).Msg("metrics textfile not written")
		}
	}

	if err != nil {
		log.Error().Err(err).Int("exit_code", code).Msg(tool + " failed")
	}
	return code
}

// Visited returns the names of flags set on the command line.
func Visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// ParseFloats parses a comma or space separated list.
func ParseFloats(s string) ([]float64, error) {
	var out []float64
	for _, f := range splitList(s) {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseInts parses a comma or space separated list.
func ParseInts(s string) ([]int, error) {
	var out []int
	for _, f := range splitList(s) {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}
