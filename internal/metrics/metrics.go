// Package metrics records run statistics and writes them in the Prometheus
// textfile format for node_exporter's textfile collector.
//
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rde"

// Recorder holds the collectors of one run.
type Recorder struct {
	registry *prometheus.Registry

	files         prometheus.Counter
	failed        *prometheus.CounterVec
	plateaus      prometheus.Counter
	baselineSlope *prometheus.GaugeVec
	calSlope      prometheus.Gauge
	calRSquared   prometheus.Gauge
	duration      prometheus.Gauge
}

// New returns a recorder backed by its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Trace files processed, including failed ones.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Trace files that failed, by pipeline stage.",
		}, []string{"stage"}),
		plateaus: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plateaus_detected_total",
			Help:      "Plateaus detected across all traces.",
		}),
		baselineSlope: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "baseline_slope",
			Help:      "Fitted baseline drift in amperes per second.",
		}, []string{"file"}),
		calSlope: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calibration_slope",
			Help:      "Sensitivity of the last standard curve.",
		}),
		calRSquared: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calibration_r_squared",
			Help:      "Coefficient of determination of the last standard curve.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last analysis run.",
		}),
	}

	r.registry.MustRegister(
		r.files, r.failed, r.plateaus, r.baselineSlope,
		r.calSlope, r.calRSquared, r.duration,
	)

	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// FileProcessed records a trace that passed every stage.
func (r *Recorder) FileProcessed(file string, slope float64, plateaus int) {
	if r == nil {
		return
	}
	r.files.Inc()
	r.plateaus.Add(float64(plateaus))
	r.baselineSlope.WithLabelValues(file).Set(slope)
}

// FileFailed records a trace that failed at stage and was not processed.
func (r *Recorder) FileFailed(stage string) {
	if r == nil {
		return
	}
	r.files.Inc()
	r.failed.WithLabelValues(stage).Inc()
}

// StageFailed records a failure at stage for a trace already counted by
// FileProcessed.
func (r *Recorder) StageFailed(stage string) {
	if r == nil {
		return
	}
	r.failed.WithLabelValues(stage).Inc()
}

// Calibration records the fitted standard curve.
func (r *Recorder) Calibration(slope, rSquared float64) {
	if r == nil {
		return
	}
	r.calSlope.Set(slope)
	r.calRSquared.Set(rSquared)
}

// RunDuration records the wall time of a run.
func (r *Recorder) RunDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.duration.Set(d.Seconds())
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	return nil
}
