// Package analysis runs the trace pipeline: load, baseline correction,
// plateau detection, then optionally calibration and plotting.
//
// Each stage is a plain function from the trace, measure and plot packages;
// this package only sequences them, attributes failures to files and logs.
package analysis

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-rde/internal/config"
	"github.com/cwbudde/algo-rde/internal/metrics"
	"github.com/cwbudde/algo-rde/measure/baseline"
	"github.com/cwbudde/algo-rde/measure/calibration"
	"github.com/cwbudde/algo-rde/measure/plateau"
	"github.com/cwbudde/algo-rde/plot"
	"github.com/cwbudde/algo-rde/stats/summary"
	"github.com/cwbudde/algo-rde/trace"
)

// Result is the outcome of a run. Traces keep discovery order.
//
// Per-trace data is keyed by the trace itself: files with the same base
// name in different directories stay distinct.
type Result struct {
	Root      string // source directory, empty for in-memory runs
	Traces    []*trace.Trace
	Baselines map[*trace.Trace]baseline.Result
	Summaries map[*trace.Trace]summary.Stats // corrected current
	Failures  []*FileError

	Started  time.Time
	Duration time.Duration
}

// NewResult returns an empty result started now.
func NewResult() *Result {
	return &Result{
		Baselines: make(map[*trace.Trace]baseline.Result),
		Summaries: make(map[*trace.Trace]summary.Stats),
		Started:   time.Now(),
	}
}

// Baseline returns the baseline fit of tr.
func (r *Result) Baseline(tr *trace.Trace) (baseline.Result, bool) {
	b, ok := r.Baselines[tr]
	return b, ok
}

// Source identifies tr within the run: its slash-separated path relative
// to Root, or its name when it was not loaded from below Root.
func (r *Result) Source(tr *trace.Trace) string {
	return sourceOf(r.Root, tr.Path, tr.Name)
}

func sourceOf(root, path, name string) string {
	if root == "" || path == "" {
		return name
	}

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return name
	}

	return filepath.ToSlash(rel)
}

// Dropped returns the failures that removed a file from Traces.
func (r *Result) Dropped() []*FileError {
	var out []*FileError
	for _, f := range r.Failures {
		if f.Stage.drops() {
			out = append(out, f)
		}
	}
	return out
}

// Analyzer runs the pipeline with one configuration.
type Analyzer struct {
	source  string
	load    trace.Options
	window  baseline.Window
	mode    baseline.Mode
	plateau plateau.Config
	policy  FilePolicy

	plotter *plot.Plotter
	metrics *metrics.Recorder
	log     *logrus.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMetrics records run statistics into m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithPlotter replaces the plotter derived from the output directory.
func WithPlotter(p *plot.Plotter) Option {
	return func(a *Analyzer) { a.plotter = p }
}

// New validates cfg and builds an analyzer. A nil log discards output.
func New(cfg config.Config, log *logrus.Logger, opts ...Option) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loadOpts, err := cfg.LoadOptions()
	if err != nil {
		return nil, err
	}

	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	policy, err := ParseFilePolicy(cfg.FilePolicy)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	a := &Analyzer{
		source:  cfg.SourceDir,
		load:    loadOpts,
		window:  cfg.Window(),
		mode:    mode,
		plateau: cfg.PlateauConfig(),
		policy:  policy,
		log:     log,
	}

	if cfg.OutputDir != "" {
		a.plotter = plot.New(cfg.OutputDir)
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Run processes every CSV file below the source directory.
func (a *Analyzer) Run() (*Result, error) {
	if a.source == "" {
		return nil, errors.New("analysis: source directory not set")
	}

	res := NewResult()
	res.Root = a.source

	paths, err := trace.Discover(a.source)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	if len(paths) == 0 {
		a.log.Warnf("No CSV files found in %s", a.source)
	} else {
		a.log.Infof("Found %d CSV files in %s", len(paths), a.source)
	}

	for _, path := range paths {
		tr, err := trace.LoadFile(path, a.load)
		if err != nil {
			if ferr := a.fail(res, &FileError{File: sourceOf(a.source, path, filepath.Base(path)), Stage: StageLoad, Err: err}); ferr != nil {
				return nil, ferr
			}
			continue
		}

		if tr.SkippedRows > 0 {
			a.log.WithFields(logrus.Fields{"file": tr.Name, "rows": tr.SkippedRows}).Warn("Skipped malformed rows")
		}

		if err := a.Process(res, tr); err != nil {
			var ferr *FileError
			if !errors.As(err, &ferr) {
				return nil, err
			}
			if err := a.fail(res, ferr); err != nil {
				return nil, err
			}
		}
	}

	res.Duration = time.Since(res.Started)
	a.metrics.RunDuration(res.Duration)

	a.log.WithFields(logrus.Fields{
		"traces":   len(res.Traces),
		"failures": len(res.Failures),
		"duration": res.Duration.Round(time.Millisecond),
	}).Info("Analysis complete")

	return res, nil
}

// Process corrects tr, detects its plateaus and adds it to res.
// Failures are returned as *FileError.
func (a *Analyzer) Process(res *Result, tr *trace.Trace) error {
	source := res.Source(tr)

	b, err := baseline.Apply(tr, a.window, a.mode)
	if err != nil {
		return &FileError{File: source, Stage: StageBaseline, Err: err}
	}

	idx, err := plateau.Apply(tr, a.plateau)
	if err != nil {
		return &FileError{File: source, Stage: StagePlateau, Err: err}
	}

	stats := summary.Calculate(tr.Corrected)

	res.Traces = append(res.Traces, tr)
	res.Baselines[tr] = b
	res.Summaries[tr] = stats

	a.metrics.FileProcessed(source, b.Slope, len(idx))

	a.log.WithFields(logrus.Fields{
		"file":     source,
		"samples":  tr.Len(),
		"slope":    b.Slope,
		"window":   b.Samples,
		"plateaus": len(idx),
		"min":      stats.Min,
	}).Info("Processed trace")

	if len(idx) == 0 {
		a.log.WithField("file", source).Warn("No plateau detected")
	}

	return nil
}

// fail records ferr under SkipFile and returns it under FailFast.
func (a *Analyzer) fail(res *Result, ferr *FileError) error {
	if ferr.Stage.drops() {
		a.metrics.FileFailed(string(ferr.Stage))
	} else {
		a.metrics.StageFailed(string(ferr.Stage))
	}

	if a.policy == FailFast {
		a.log.WithField("stage", ferr.Stage).Error(ferr.Error())
		return ferr
	}

	a.log.WithFields(logrus.Fields{"file": ferr.File, "stage": ferr.Stage}).Warnf("Skipping file: %v", ferr.Err)
	res.Failures = append(res.Failures, ferr)

	return nil
}

// Calibrate fits the standard curve pairing concentrations with res.Traces
// by position. No trace is ever skipped: a run that dropped files fails
// with ErrDroppedFiles instead of pairing the remaining traces.
func (a *Analyzer) Calibrate(res *Result, concentrations []float64) (calibration.Curve, error) {
	if dropped := res.Dropped(); len(dropped) > 0 {
		files := make([]string, len(dropped))
		for i, f := range dropped {
			files[i] = f.File
		}
		return calibration.Curve{}, &FileError{
			File:  strings.Join(files, ", "),
			Stage: StageCalibration,
			Err:   ErrDroppedFiles,
		}
	}

	curve, err := calibration.Fit(concentrations, res.Traces)
	if err != nil {
		var npe *calibration.NoPlateauError
		if errors.As(err, &npe) {
			file := npe.File
			if npe.Position >= 0 && npe.Position < len(res.Traces) {
				file = res.Source(res.Traces[npe.Position])
			}
			return calibration.Curve{}, &FileError{File: file, Stage: StageCalibration, Err: err}
		}
		return calibration.Curve{}, fmt.Errorf("analysis: calibration: %w", err)
	}

	a.metrics.Calibration(curve.Slope, curve.RSquared)

	a.log.WithFields(logrus.Fields{
		"points":    len(curve.Points),
		"slope":     curve.Slope,
		"intercept": curve.Intercept,
		"r2":        curve.RSquared,
	}).Info("Fitted standard curve")

	return curve, nil
}

// Plot renders every trace of res. It is a no-op without a plotter.
//
// Plots are named after the file; traces sharing a base name are named
// after their path relative to the source directory instead.
func (a *Analyzer) Plot(res *Result) ([]string, error) {
	if a.plotter == nil {
		a.log.Debug("No output directory, plots disabled")
		return nil, nil
	}

	names := plotNames(res)
	paths := make([]string, 0, len(res.Traces))

	for i, tr := range res.Traces {
		source := res.Source(tr)

		var (
			path string
			err  error
		)
		if names[i] == "" {
			err = ErrPlotCollision
		} else {
			path, err = a.plotter.RenderTraceAs(tr, names[i])
		}
		if err != nil {
			if ferr := a.fail(res, &FileError{File: source, Stage: StagePlot, Err: err}); ferr != nil {
				return paths, ferr
			}
			continue
		}

		a.log.WithField("file", source).Debugf("Plot saved to %s", path)
		paths = append(paths, path)
	}

	return paths, nil
}

// plotNames picks an output file per trace. An empty name marks a trace
// whose plot would still overwrite another one.
func plotNames(res *Result) []string {
	base := make(map[string]int, len(res.Traces))
	for _, tr := range res.Traces {
		base[plot.FileName(tr.Name)]++
	}

	names := make([]string, len(res.Traces))
	used := make(map[string]int, len(res.Traces))

	for i, tr := range res.Traces {
		name := plot.FileName(tr.Name)
		if base[name] > 1 {
			name = plot.FileName(strings.ReplaceAll(res.Source(tr), "/", "_"))
		}
		names[i] = name
		used[name]++
	}

	for i, name := range names {
		if used[name] > 1 {
			names[i] = ""
		}
	}

	return names
}

// PlotCalibration renders the standard curve. It is a no-op without a plotter.
func (a *Analyzer) PlotCalibration(curve calibration.Curve) (string, error) {
	if a.plotter == nil {
		return "", nil
	}

	path, err := a.plotter.RenderCalibration(curve, plot.CalibrationFile)
	if err != nil {
		return "", fmt.Errorf("analysis: %w", err)
	}

	a.log.Infof("Calibration plot saved to %s", path)

	return path, nil
}
