package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-rde/measure/baseline"
	"github.com/cwbudde/algo-rde/trace"
)

var envKeys = []string{
	"RDE_SOURCE_DIR", "RDE_OUTPUT_DIR", "RDE_TIME_COLUMN", "RDE_CURRENT_COLUMN",
	"RDE_BASELINE_START", "RDE_BASELINE_END", "RDE_BASELINE_MODE",
	"RDE_MIN_PLATEAU_DISTANCE", "RDE_SMOOTHING", "RDE_ROW_POLICY", "RDE_FILE_POLICY",
	"RDE_ARCHIVE_PATH", "RDE_METRICS_FILE", "RDE_LOG_LEVEL", "RDE_LOG_FORMAT",
}

// clearEnv unsets every option for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unset %s: %v", k, err)
		}
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load() = %+v, want %+v", cfg, Default())
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("RDE_SOURCE_DIR", "/data/rde")
	t.Setenv("RDE_BASELINE_START", "2.5")
	t.Setenv("RDE_BASELINE_END", "12")
	t.Setenv("RDE_BASELINE_MODE", "line")
	t.Setenv("RDE_MIN_PLATEAU_DISTANCE", "25")
	t.Setenv("RDE_FILE_POLICY", "skip")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SourceDir != "/data/rde" {
		t.Fatalf("SourceDir = %q", cfg.SourceDir)
	}
	if w := cfg.Window(); w != (baseline.Window{Start: 2.5, End: 12}) {
		t.Fatalf("Window() = %v", w)
	}
	if m, err := cfg.Mode(); err != nil || m != baseline.ModeLine {
		t.Fatalf("Mode() = %v, %v", m, err)
	}
	if pc := cfg.PlateauConfig(); pc.MinDistance != 25 || pc.Smoothing != 0 {
		t.Fatalf("PlateauConfig() = %+v", pc)
	}
	if cfg.FilePolicy != FileSkip {
		t.Fatalf("FilePolicy = %q, want %q", cfg.FilePolicy, FileSkip)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("RDE_SMOOTHING", "7")

	path := filepath.Join(t.TempDir(), "run.env")
	content := "RDE_SOURCE_DIR=/from/file\nRDE_SMOOTHING=3\nRDE_ROW_POLICY=skip\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SourceDir != "/from/file" {
		t.Fatalf("SourceDir = %q, want value from file", cfg.SourceDir)
	}
	if cfg.Smoothing != 7 {
		t.Fatalf("Smoothing = %d, want environment to win over file", cfg.Smoothing)
	}

	opts, err := cfg.LoadOptions()
	if err != nil {
		t.Fatalf("LoadOptions() error = %v", err)
	}
	if opts.RowPolicy != trace.RowSkip || opts.Columns != trace.DefaultColumns() {
		t.Fatalf("LoadOptions() = %+v", opts)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("Load(missing) error = nil")
	}

	t.Setenv("RDE_BASELINE_START", "five")
	if _, err := Load(""); err == nil {
		t.Fatal("Load() with bad number error = nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		msg    string
	}{
		{name: "reversed window", modify: func(c *Config) { c.BaselineStart, c.BaselineEnd = 20, 5 }, msg: "start 20 after end 5"},
		{name: "mode", modify: func(c *Config) { c.BaselineMode = "quadratic" }, msg: "unknown mode"},
		{name: "distance", modify: func(c *Config) { c.MinPlateauDistance = 0 }, msg: "distance 0"},
		{name: "smoothing", modify: func(c *Config) { c.Smoothing = -1 }, msg: "smoothing width"},
		{name: "row policy", modify: func(c *Config) { c.RowPolicy = "ignore" }, msg: "row policy"},
		{name: "file policy", modify: func(c *Config) { c.FilePolicy = "retry" }, msg: "file policy"},
		{name: "log level", modify: func(c *Config) { c.LogLevel = "loud" }, msg: "loud"},
		{name: "log format", modify: func(c *Config) { c.LogFormat = "xml" }, msg: "log format"},
		{name: "same columns", modify: func(c *Config) { c.CurrentColumn = c.TimeColumn }, msg: "both"},
		{name: "empty column", modify: func(c *Config) { c.TimeColumn = " " }, msg: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() error = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("Validate() error = %q, want it to mention %q", err, tt.msg)
			}
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := Default()
	cfg.MinPlateauDistance = 0
	cfg.LogFormat = "xml"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "distance") || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("Validate() error = %v, want both problems", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "debug"

	log, err := cfg.NewLogger(&buf)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", log.GetLevel())
	}

	log.WithField("file", "a.csv").Info("loaded")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line %q is not JSON: %v", buf.String(), err)
	}
	if entry["file"] != "a.csv" || entry["msg"] != "loaded" {
		t.Fatalf("entry = %v", entry)
	}

	cfg.LogLevel = "loud"
	if _, err := cfg.NewLogger(&buf); err == nil {
		t.Fatal("NewLogger() with bad level error = nil")
	}
}
