package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.FileProcessed("a.csv", 2e-9, 3)
	r.FileProcessed("b.csv", -1e-9, 1)
	r.FileFailed("baseline")
	r.StageFailed("plot")
	r.Calibration(0.02, 0.999)
	r.RunDuration(1500 * time.Millisecond)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "files", got: promtestutil.ToFloat64(r.files), want: 3},
		{name: "failed", got: promtestutil.ToFloat64(r.failed.WithLabelValues("baseline")), want: 1},
		{name: "failed plot", got: promtestutil.ToFloat64(r.failed.WithLabelValues("plot")), want: 1},
		{name: "plateaus", got: promtestutil.ToFloat64(r.plateaus), want: 4},
		{name: "slope b", got: promtestutil.ToFloat64(r.baselineSlope.WithLabelValues("b.csv")), want: -1e-9},
		{name: "calibration slope", got: promtestutil.ToFloat64(r.calSlope), want: 0.02},
		{name: "r squared", got: promtestutil.ToFloat64(r.calRSquared), want: 0.999},
		{name: "duration", got: promtestutil.ToFloat64(r.duration), want: 1.5},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Fatalf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.FileProcessed("a.csv", 1e-9, 2)

	path := filepath.Join(t.TempDir(), "textfile", "rde.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"rde_files_total 1",
		"rde_plateaus_detected_total 2",
		`rde_baseline_slope{file="a.csv"} 1e-09`,
	} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder

	r.FileProcessed("a.csv", 1, 1)
	r.FileFailed("load")
	r.StageFailed("plot")
	r.Calibration(1, 1)
	r.RunDuration(time.Second)

	if r.Registry() != nil {
		t.Fatal("Registry() != nil")
	}
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
}
