package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-rde/internal/analysis"
	"github.com/cwbudde/algo-rde/internal/config"
	"github.com/cwbudde/algo-rde/internal/metrics"
	"github.com/cwbudde/algo-rde/internal/store/sqlite"
)

var (
	flagEnvFile       string
	flagSource        string
	flagOutput        string
	flagTimeColumn    string
	flagCurrentColumn string
	flagBaselineStart float64
	flagBaselineEnd   float64
	flagBaselineMode  string
	flagMinDistance   int
	flagSmoothing     int
	flagRowPolicy     string
	flagFilePolicy    string
	flagArchive       string
	flagMetricsFile   string
	flagLogLevel      string
	flagLogFormat     string
)

// loadConfig reads the environment and applies every flag set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagEnvFile)
	if err != nil {
		return config.Config{}, err
	}

	set := func(name string, apply func()) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			apply()
		}
	}

	set("source", func() { cfg.SourceDir = flagSource })
	set("output", func() { cfg.OutputDir = flagOutput })
	set("time-column", func() { cfg.TimeColumn = flagTimeColumn })
	set("current-column", func() { cfg.CurrentColumn = flagCurrentColumn })
	set("baseline-start", func() { cfg.BaselineStart = flagBaselineStart })
	set("baseline-end", func() { cfg.BaselineEnd = flagBaselineEnd })
	set("baseline-mode", func() { cfg.BaselineMode = flagBaselineMode })
	set("min-distance", func() { cfg.MinPlateauDistance = flagMinDistance })
	set("smoothing", func() { cfg.Smoothing = flagSmoothing })
	set("row-policy", func() { cfg.RowPolicy = flagRowPolicy })
	set("file-policy", func() { cfg.FilePolicy = flagFilePolicy })
	set("archive", func() { cfg.ArchivePath = flagArchive })
	set("metrics-file", func() { cfg.MetricsFile = flagMetricsFile })
	set("log-level", func() { cfg.LogLevel = flagLogLevel })
	set("log-format", func() { cfg.LogFormat = flagLogFormat })

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

// session bundles what one command invocation needs.
type session struct {
	cfg      config.Config
	log      *logrus.Logger
	metrics  *metrics.Recorder
	analyzer *analysis.Analyzer
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, log: log}

	var opts []analysis.Option
	if cfg.MetricsFile != "" {
		s.metrics = metrics.New()
		opts = append(opts, analysis.WithMetrics(s.metrics))
	}

	s.analyzer, err = analysis.New(cfg, log, opts...)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// openArchive returns nil when no archive is configured.
func (s *session) openArchive() (*sqlite.Store, error) {
	if s.cfg.ArchivePath == "" {
		return nil, nil
	}
	return sqlite.Open(s.cfg.ArchivePath)
}

// archiveRun stores res and returns the run id, or "" without an archive.
func (s *session) archiveRun(ctx context.Context, store *sqlite.Store, res *analysis.Result) (string, error) {
	if store == nil {
		return "", nil
	}

	id, err := store.SaveRun(ctx, s.cfg.SourceDir, res)
	if err != nil {
		return "", err
	}

	s.log.WithField("run", id).Infof("Run archived in %s", store.Path())

	return id, nil
}

func (s *session) writeMetrics() error {
	if s.metrics == nil {
		return nil
	}
	if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
		return err
	}
	s.log.Debugf("Metrics written to %s", s.cfg.MetricsFile)
	return nil
}

func closeStore(store *sqlite.Store, log *logrus.Logger) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Warnf("closing archive: %v", err)
	}
}

func parseFloats(args []string, what string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", what, a)
		}
		out[i] = v
	}
	return out, nil
}
