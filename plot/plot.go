// Package plot renders traces and calibration curves as PNG line charts.
package plot

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/cwbudde/algo-rde/measure/calibration"
	"github.com/cwbudde/algo-rde/trace"
)

// Chart labels.
const (
	TraceTitle   = "Current vs Corrected Time"
	TimeLabel    = "Corrected Time (s)"
	CurrentLabel = "Current (A)"

	CalibrationTitle   = "Standard Curve"
	ConcentrationLabel = "Concentration"

	// CalibrationFile is the default calibration chart name.
	CalibrationFile = "calibration_plot.png"
)

// Default image size in pixels.
const (
	DefaultWidth  = 1000
	DefaultHeight = 600
)

// Errors returned by the plotter.
var (
	ErrLengthMismatch = errors.New("plot: x and y length mismatch")
	ErrEmptySeries    = errors.New("plot: empty series")
	ErrNoOutputDir    = errors.New("plot: output directory not set")
)

// Plotter writes charts into OutputDir.
type Plotter struct {
	OutputDir string
	Width     int
	Height    int
}

// Option configures a Plotter.
type Option func(*Plotter)

// WithSize sets the image size. Non-positive values keep the default.
func WithSize(width, height int) Option {
	return func(p *Plotter) {
		if width > 0 {
			p.Width = width
		}
		if height > 0 {
			p.Height = height
		}
	}
}

// New returns a plotter writing into dir.
func New(dir string, opts ...Option) *Plotter {
	p := &Plotter{OutputDir: dir, Width: DefaultWidth, Height: DefaultHeight}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FileName maps a source CSV name to its chart name: "a.csv" becomes "a_plot.png".
func FileName(source string) string {
	return strings.TrimSuffix(filepath.Base(source), ".csv") + "_plot.png"
}

// Render draws current against time and writes OutputDir/name.
// It returns the written path.
func (p *Plotter) Render(time, current []float64, name string) (string, error) {
	if err := checkSeries(time, current); err != nil {
		return "", err
	}

	ch := p.newChart(TraceTitle, TimeLabel, CurrentLabel, time, current)
	ch.Series = []chart.Series{
		chart.ContinuousSeries{
			Name:    "current",
			XValues: time,
			YValues: current,
			Style:   lineStyle(chart.ColorBlue),
		},
	}

	return p.write(&ch, name)
}

// RenderTrace plots the corrected current of tr, or the raw current when tr
// is uncorrected, and marks each plateau. The chart is written to
// FileName(tr.Name).
func (p *Plotter) RenderTrace(tr *trace.Trace) (string, error) {
	return p.RenderTraceAs(tr, FileName(tr.Name))
}

// RenderTraceAs is RenderTrace writing OutputDir/name.
func (p *Plotter) RenderTraceAs(tr *trace.Trace, name string) (string, error) {
	y, label := tr.Raw, "raw current"
	if tr.IsCorrected() {
		y, label = tr.Corrected, "corrected current"
	}

	if err := checkSeries(tr.Time, y); err != nil {
		return "", fmt.Errorf("%w: %s", err, tr.Name)
	}

	ch := p.newChart(TraceTitle, TimeLabel, CurrentLabel, tr.Time, y)
	ch.Series = []chart.Series{
		chart.ContinuousSeries{
			Name:    label,
			XValues: tr.Time,
			YValues: y,
			Style:   lineStyle(chart.ColorBlue),
		},
	}

	if len(tr.Plateaus) > 0 {
		px := make([]float64, 0, len(tr.Plateaus))
		py := make([]float64, 0, len(tr.Plateaus))

		for _, idx := range tr.Plateaus {
			if idx < 0 || idx >= len(y) {
				return "", fmt.Errorf("%w: %s: %d", trace.ErrPlateauRange, tr.Name, idx)
			}
			px = append(px, tr.Time[idx])
			py = append(py, y[idx])
		}

		ch.Series = append(ch.Series, chart.ContinuousSeries{
			Name:    "plateaus",
			XValues: px,
			YValues: py,
			Style:   pointStyle(chart.ColorRed),
		})
	}

	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	return p.write(&ch, name)
}

// RenderCalibration plots the calibration points with the fitted line.
func (p *Plotter) RenderCalibration(c calibration.Curve, name string) (string, error) {
	if len(c.Points) == 0 {
		return "", ErrEmptySeries
	}
	if name == "" {
		name = CalibrationFile
	}

	xs := make([]float64, len(c.Points))
	ys := make([]float64, len(c.Points))

	for i, pt := range c.Points {
		xs[i] = pt.Concentration
		ys[i] = pt.Current
	}

	lo, hi := bounds(xs)
	fitX := []float64{lo, hi}
	fitY := []float64{c.Response(lo), c.Response(hi)}

	ch := p.newChart(CalibrationTitle, ConcentrationLabel, CurrentLabel, append(xs, fitX...), append(ys, fitY...))
	ch.Title = fmt.Sprintf("%s (R² = %.4f)", CalibrationTitle, c.RSquared)
	ch.Series = []chart.Series{
		chart.ContinuousSeries{
			Name:    "fit",
			XValues: fitX,
			YValues: fitY,
			Style:   lineStyle(chart.ColorBlue),
		},
		chart.ContinuousSeries{
			Name:    "standards",
			XValues: xs,
			YValues: ys,
			Style:   pointStyle(chart.ColorRed),
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	return p.write(&ch, name)
}

func (p *Plotter) newChart(title, xName, yName string, xs, ys []float64) chart.Chart {
	grid := chart.Style{StrokeColor: chart.ColorAlternateGray, StrokeWidth: 0.5}

	return chart.Chart{
		Title:      title,
		Width:      p.Width,
		Height:     p.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           xName,
			Range:          paddedRange(xs),
			ValueFormatter: formatValue,
			GridMajorStyle: grid,
		},
		YAxis: chart.YAxis{
			Name:           yName,
			Range:          paddedRange(ys),
			ValueFormatter: formatValue,
			GridMajorStyle: grid,
		},
	}
}

func (p *Plotter) write(ch *chart.Chart, name string) (string, error) {
	if p.OutputDir == "" {
		return "", ErrNoOutputDir
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return "", fmt.Errorf("plot: render %s: %w", name, err)
	}

	if err := os.MkdirAll(p.OutputDir, 0o750); err != nil {
		return "", fmt.Errorf("plot: create output directory: %w", err)
	}

	path := filepath.Join(p.OutputDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("plot: write %s: %w", path, err)
	}

	return path, nil
}

func checkSeries(x, y []float64) error {
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return ErrEmptySeries
	}
	return nil
}

func bounds(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// paddedRange widens the data range by 5% on each side. A zero-width range
// is opened around its value, since go-chart refuses to draw one.
func paddedRange(v []float64) *chart.ContinuousRange {
	lo, hi := bounds(v)

	span := hi - lo
	if span == 0 {
		span = math.Abs(lo)
		if span == 0 {
			span = 1
		}
	}

	pad := 0.05 * span

	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func formatValue(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'g', 4, 64)
	}
	return fmt.Sprint(v)
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 1.5,
	}
}

// pointStyle draws markers without a connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: drawing.ColorTransparent,
		StrokeWidth: 0,
		DotWidth:    5,
		DotColor:    col,
	}
}
