// Package config loads run settings from an optional .env file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-rde/measure/baseline"
	"github.com/cwbudde/algo-rde/measure/plateau"
	"github.com/cwbudde/algo-rde/trace"
)

// DefaultEnvFile is read when Load is called without an explicit file.
const DefaultEnvFile = ".env"

// File policies.
const (
	FileFailFast = "fail-fast"
	FileSkip     = "skip"
)

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Config holds every option of an analysis run.
type Config struct {
	SourceDir string `envconfig:"RDE_SOURCE_DIR"`
	OutputDir string `envconfig:"RDE_OUTPUT_DIR"`

	TimeColumn    string `envconfig:"RDE_TIME_COLUMN" default:"Corrected time (s)"`
	CurrentColumn string `envconfig:"RDE_CURRENT_COLUMN" default:"WE(1).Current (A)"`

	BaselineStart float64 `envconfig:"RDE_BASELINE_START" default:"5"`
	BaselineEnd   float64 `envconfig:"RDE_BASELINE_END" default:"20"`
	BaselineMode  string  `envconfig:"RDE_BASELINE_MODE" default:"slope"`

	MinPlateauDistance int `envconfig:"RDE_MIN_PLATEAU_DISTANCE" default:"10"`
	Smoothing          int `envconfig:"RDE_SMOOTHING" default:"0"`

	RowPolicy  string `envconfig:"RDE_ROW_POLICY" default:"abort"`
	FilePolicy string `envconfig:"RDE_FILE_POLICY" default:"fail-fast"`

	ArchivePath string `envconfig:"RDE_ARCHIVE_PATH"`
	MetricsFile string `envconfig:"RDE_METRICS_FILE"`

	LogLevel  string `envconfig:"RDE_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"RDE_LOG_FORMAT" default:"text"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		TimeColumn:         trace.DefaultTimeColumn,
		CurrentColumn:      trace.DefaultCurrentColumn,
		BaselineStart:      baseline.DefaultWindow().Start,
		BaselineEnd:        baseline.DefaultWindow().End,
		BaselineMode:       baseline.ModeSlope.String(),
		MinPlateauDistance: plateau.DefaultMinDistance,
		RowPolicy:          trace.RowAbort.String(),
		FilePolicy:         FileFailFast,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load reads envFile into the environment and then processes the
// environment. An empty envFile means DefaultEnvFile, which may be absent;
// an explicitly named file must exist. Variables already set in the
// environment take precedence over the file.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: %s: %w", DefaultEnvFile, err)
		}
	} else if err := godotenv.Load(envFile); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks every option without touching the file system.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.TimeColumn) == "" || strings.TrimSpace(c.CurrentColumn) == "" {
		errs = append(errs, errors.New("column names must not be empty"))
	} else if strings.TrimSpace(c.TimeColumn) == strings.TrimSpace(c.CurrentColumn) {
		errs = append(errs, fmt.Errorf("time and current column are both %q", c.TimeColumn))
	}

	if err := c.Window().Validate(); err != nil {
		errs = append(errs, err)
	}

	if _, err := baseline.ParseMode(c.BaselineMode); err != nil {
		errs = append(errs, err)
	}

	if c.MinPlateauDistance < 1 {
		errs = append(errs, fmt.Errorf("minimum plateau distance %d < 1", c.MinPlateauDistance))
	}

	if c.Smoothing < 0 {
		errs = append(errs, fmt.Errorf("smoothing width %d < 0", c.Smoothing))
	}

	if _, err := trace.ParseRowPolicy(c.RowPolicy); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(strings.TrimSpace(c.FilePolicy)) {
	case "", FileFailFast, FileSkip:
	default:
		errs = append(errs, fmt.Errorf("unknown file policy %q", c.FilePolicy))
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Window returns the baseline window.
func (c Config) Window() baseline.Window {
	return baseline.Window{Start: c.BaselineStart, End: c.BaselineEnd}
}

// Mode returns the parsed baseline mode.
func (c Config) Mode() (baseline.Mode, error) {
	return baseline.ParseMode(c.BaselineMode)
}

// LoadOptions returns the loader options.
func (c Config) LoadOptions() (trace.Options, error) {
	policy, err := trace.ParseRowPolicy(c.RowPolicy)
	if err != nil {
		return trace.Options{}, err
	}

	return trace.Options{
		Columns:   trace.Columns{Time: c.TimeColumn, Current: c.CurrentColumn},
		RowPolicy: policy,
	}, nil
}

// PlateauConfig returns the plateau detector settings.
func (c Config) PlateauConfig() plateau.Config {
	return plateau.Config{MinDistance: c.MinPlateauDistance, Smoothing: c.Smoothing}
}

// NewLogger builds the run logger writing to out.
func (c Config) NewLogger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)

	if strings.ToLower(c.LogFormat) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger, nil
}
