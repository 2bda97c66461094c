// Package config loads gate configuration from YAML, an optional .env file
// and GATE_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultThreshold = 0.83
	DefaultHold      = 9
	DefaultCSVGlob   = "**/*.csv"
	DefaultLogLevel  = "info"
	DefaultParallel  = 2
)

// Config is the gate configuration.
type Config struct {
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=1"`
	Hold      int     `yaml:"hold" validate:"gte=0"`
	DataRoot  string  `yaml:"data_root"`
	CSVGlob   string  `yaml:"csv_glob" validate:"required"`

	Log struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	Metrics struct {
		Textfile string `yaml:"textfile"` // node exporter textfile path, empty disables
	} `yaml:"metrics"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" validate:"required_if=Enabled true"`
	} `yaml:"tracing"`

	Storage struct {
		PostgresDSN   string `yaml:"postgres_dsn"`   // runs; empty disables persistence
		ClickhouseDSN string `yaml:"clickhouse_dsn"` // trades; empty keeps trades in memory
		Migrate       bool   `yaml:"migrate"`
	} `yaml:"storage"`

	Engines       map[string]EngineConfig `yaml:"engines" validate:"dive"`
	DefaultEngine string                  `yaml:"default_engine"`

	Sweep SweepConfig `yaml:"sweep"`
}

// EngineConfig describes an external backtest executable.
// Args may reference {data_root}, {csv_glob}, {params}, {outdir}, {thr} and {hold}.
type EngineConfig struct {
	Command string            `yaml:"command" validate:"required"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	Dir     string            `yaml:"dir"`
	Timeout time.Duration     `yaml:"timeout"`
}

// SweepConfig describes a threshold x hold grid.
type SweepConfig struct {
	Thresholds []float64 `yaml:"thresholds" validate:"dive,gte=0,lte=1"`
	Holds      []int     `yaml:"holds" validate:"dive,gte=0"`
	Parallel   int       `yaml:"parallel" validate:"gte=1"`
	BaseParams string    `yaml:"base_params"`
	OutRoot    string    `yaml:"out_root"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	c := &Config{
		Threshold: DefaultThreshold,
		Hold:      DefaultHold,
		CSVGlob:   DefaultCSVGlob,
	}
	c.Log.Level = DefaultLogLevel
	c.Sweep.Parallel = DefaultParallel
	return c
}

// Load reads configuration. path and envFile are optional; an empty value skips
// that source. Environment variables always apply last.
func Load(path, envFile string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		// Existing environment variables win over the file.
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv overlays GATE_* variables.
func (c *Config) applyEnv() error {
	var errs []error

	if v, ok := lookup("GATE_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("GATE_THRESHOLD: %w", err))
		}
		c.Threshold = f
	}
	if v, ok := lookup("GATE_HOLD"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GATE_HOLD: %w", err))
		}
		c.Hold = n
	}
	if v, ok := lookup("GATE_DATA_ROOT"); ok {
		c.DataRoot = v
	}
	if v, ok := lookup("GATE_CSV_GLOB"); ok {
		c.CSVGlob = v
	}
	if v, ok := lookup("GATE_LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup("GATE_METRICS_TEXTFILE"); ok {
		c.Metrics.Textfile = v
	}
	if v, ok := lookup("GATE_TRACE_PATH"); ok {
		c.Tracing.Enabled = true
		c.Tracing.Path = v
	}
	if v, ok := lookup("GATE_POSTGRES_DSN"); ok {
		c.Storage.PostgresDSN = v
	}
	if v, ok := lookup("GATE_CLICKHOUSE_DSN"); ok {
		c.Storage.ClickhouseDSN = v
	}

	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

var validate = validator.New()

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.DefaultEngine != "" {
		if _, ok := c.Engines[c.DefaultEngine]; !ok {
			return fmt.Errorf("invalid config: default_engine %q is not defined", c.DefaultEngine)
		}
	}
	return nil
}
