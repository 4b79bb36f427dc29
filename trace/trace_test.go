package trace

import (
	"errors"
	"math"
	"testing"
)

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name string
		time []float64
		raw  []float64
		want error
	}{
		{name: "ok", time: []float64{0, 1}, raw: []float64{1, 2}},
		{name: "empty", want: ErrEmptyTrace},
		{name: "length", time: []float64{0, 1}, raw: []float64{1}, want: ErrLengthMismatch},
		{name: "order", time: []float64{0, 0}, raw: []float64{1, 2}, want: ErrTimeOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("x.csv", tt.time, tt.raw)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("New() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidatePlateauRange(t *testing.T) {
	tr := &Trace{Name: "x", Time: []float64{0, 1, 2}, Raw: []float64{1, 1, 1}, Plateaus: []int{3}}
	if err := tr.Validate(); !errors.Is(err, ErrPlateauRange) {
		t.Fatalf("Validate() = %v, want ErrPlateauRange", err)
	}

	tr.Plateaus = []int{1}
	tr.Corrected = []float64{1, 2}
	if err := tr.Validate(); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("Validate() = %v, want ErrLengthMismatch", err)
	}
}

func TestPlateauCurrents(t *testing.T) {
	tr := &Trace{Time: []float64{0, 1, 2}, Raw: []float64{5, 6, 7}}
	if got := tr.PlateauCurrents(); got != nil {
		t.Fatalf("uncorrected PlateauCurrents() = %v, want nil", got)
	}

	tr.Corrected = []float64{3, 1, 2}
	tr.Plateaus = []int{1}
	got := tr.PlateauCurrents()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("PlateauCurrents() = %v, want [1]", got)
	}
	if !tr.IsCorrected() {
		t.Fatal("IsCorrected() = false, want true")
	}
}

func TestDurationAndInterval(t *testing.T) {
	tr := &Trace{Time: []float64{2, 2.5, 3, 3.5}}
	if d := tr.Duration(); d != 1.5 {
		t.Fatalf("Duration() = %v, want 1.5", d)
	}
	if dt := tr.SampleInterval(); dt != 0.5 {
		t.Fatalf("SampleInterval() = %v, want 0.5", dt)
	}

	single := &Trace{Time: []float64{1}}
	if !math.IsNaN(single.SampleInterval()) {
		t.Fatal("SampleInterval() of one sample should be NaN")
	}
}
