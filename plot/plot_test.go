package plot

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-rde/internal/testutil"
	"github.com/cwbudde/algo-rde/measure/calibration"
	"github.com/cwbudde/algo-rde/trace"
)

func requirePNG(t *testing.T, path string, width, height int) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}

	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		t.Fatalf("image size = %dx%d, want %dx%d", b.Dx(), b.Dy(), width, height)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "sample.csv", want: "sample_plot.png"},
		{in: "/data/run 1/0uM.csv", want: "0uM_plot.png"},
		{in: "noext", want: "noext_plot.png"},
		{in: "upper.CSV", want: "upper.CSV_plot.png"},
	}

	for _, tt := range tests {
		if got := FileName(tt.in); got != tt.want {
			t.Fatalf("FileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewOptions(t *testing.T) {
	p := New("out")
	if p.Width != DefaultWidth || p.Height != DefaultHeight {
		t.Fatalf("default size = %dx%d", p.Width, p.Height)
	}

	p = New("out", WithSize(320, -1))
	if p.Width != 320 || p.Height != DefaultHeight {
		t.Fatalf("size = %dx%d, want 320x%d", p.Width, p.Height, DefaultHeight)
	}
}

func TestRenderWritesPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "plots")
	p := New(dir, WithSize(400, 300))

	time := testutil.Times(0, 0.1, 200)
	current := testutil.Add(testutil.Linear(time, 1e-9, 2e-7), testutil.Dips(200, 0, 5e-8, 21, 100))

	path, err := p.Render(time, current, "trace_plot.png")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if path != filepath.Join(dir, "trace_plot.png") {
		t.Fatalf("path = %q", path)
	}

	requirePNG(t, path, 400, 300)
}

func TestRenderConstantSeries(t *testing.T) {
	p := New(t.TempDir(), WithSize(200, 150))

	path, err := p.Render([]float64{0, 1, 2}, testutil.DC(0, 3), "flat.png")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	requirePNG(t, path, 200, 150)
}

func TestRenderErrors(t *testing.T) {
	p := New(t.TempDir())

	if _, err := p.Render([]float64{0, 1}, []float64{1}, "x.png"); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("Render() error = %v, want ErrLengthMismatch", err)
	}
	if _, err := p.Render(nil, nil, "x.png"); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("Render() error = %v, want ErrEmptySeries", err)
	}
	if _, err := New("").Render([]float64{0, 1}, []float64{1, 2}, "x.png"); !errors.Is(err, ErrNoOutputDir) {
		t.Fatalf("Render() error = %v, want ErrNoOutputDir", err)
	}
}

func TestRenderTrace(t *testing.T) {
	dir := t.TempDir()
	p := New(dir, WithSize(300, 200))

	time := testutil.Times(0, 0.5, 120)
	corrected := testutil.Dips(120, 1, 0.5, 9, 40, 90)

	tr := &trace.Trace{
		Name:      "10uM.csv",
		Time:      time,
		Raw:       corrected,
		Corrected: corrected,
		Plateaus:  []int{40, 90},
	}

	path, err := p.RenderTrace(tr)
	if err != nil {
		t.Fatalf("RenderTrace() error = %v", err)
	}
	if filepath.Base(path) != "10uM_plot.png" {
		t.Fatalf("path = %q", path)
	}
	requirePNG(t, path, 300, 200)

	tr.Plateaus = []int{500}
	if _, err := p.RenderTrace(tr); !errors.Is(err, trace.ErrPlateauRange) {
		t.Fatalf("RenderTrace() error = %v, want ErrPlateauRange", err)
	}
}

func TestRenderTraceUncorrected(t *testing.T) {
	p := New(t.TempDir(), WithSize(300, 200))
	tr := &trace.Trace{Name: "raw.csv", Time: []float64{0, 1, 2, 3}, Raw: []float64{4, 3, 2, 1}}

	path, err := p.RenderTrace(tr)
	if err != nil {
		t.Fatalf("RenderTrace() error = %v", err)
	}
	requirePNG(t, path, 300, 200)
}

func TestRenderCalibration(t *testing.T) {
	p := New(t.TempDir(), WithSize(320, 240))

	curve, err := calibration.FitPoints([]calibration.Point{
		{Concentration: 0, Current: 0.1},
		{Concentration: 10, Current: 0.31},
		{Concentration: 20, Current: 0.49},
	})
	if err != nil {
		t.Fatalf("FitPoints() error = %v", err)
	}

	path, err := p.RenderCalibration(curve, "")
	if err != nil {
		t.Fatalf("RenderCalibration() error = %v", err)
	}
	if filepath.Base(path) != CalibrationFile {
		t.Fatalf("path = %q", path)
	}
	requirePNG(t, path, 320, 240)

	if _, err := p.RenderCalibration(calibration.Curve{}, ""); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("RenderCalibration() error = %v, want ErrEmptySeries", err)
	}
}
