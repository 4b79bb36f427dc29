package smooth

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-rde/internal/testutil"
)

func TestKernelNormalised(t *testing.T) {
	for _, kind := range []Kind{Boxcar, Hann} {
		for _, width := range []int{1, 4, 5, 65} {
			k, err := Kernel(kind, width)
			if err != nil {
				t.Fatalf("Kernel(%d, %d) error = %v", kind, width, err)
			}
			if len(k)%2 != 1 {
				t.Fatalf("Kernel(%d, %d) length = %d, want odd", kind, width, len(k))
			}

			var sum float64
			for i, v := range k {
				sum += v
				if v <= 0 {
					t.Fatalf("Kernel(%d, %d)[%d] = %v, want > 0", kind, width, i, v)
				}
				if d := v - k[len(k)-1-i]; d > 1e-15 || d < -1e-15 {
					t.Fatalf("Kernel(%d, %d) not symmetric at %d", kind, width, i)
				}
			}
			testutil.RequireNearlyEqual(t, "sum", sum, 1, 1e-12)
		}
	}
}

func TestKernelInvalidWidth(t *testing.T) {
	if _, err := Kernel(Boxcar, 0); !errors.Is(err, ErrInvalidWidth) {
		t.Fatalf("Kernel(0) error = %v, want ErrInvalidWidth", err)
	}
}

func TestMovingAverageKnownValues(t *testing.T) {
	got, err := MovingAverage([]float64{0, 3, 6, 9, 12}, 3)
	if err != nil {
		t.Fatalf("MovingAverage() error = %v", err)
	}
	// Edges see a repeated sample: (0+0+3)/3 and (9+12+12)/3.
	testutil.RequireSliceNearlyEqual(t, got, []float64{1, 3, 6, 9, 11}, 1e-12)
}

func TestApplyPreservesConstant(t *testing.T) {
	for _, width := range []int{3, 31, 101} {
		x := testutil.DC(-4.2e-7, 500)
		got, err := MovingAverage(x, width)
		if err != nil {
			t.Fatalf("MovingAverage(width=%d) error = %v", width, err)
		}
		testutil.RequireSliceNearlyEqual(t, got, x, 1e-18)
	}
}

func TestApplyDirectMatchesFFT(t *testing.T) {
	x := testutil.Add(testutil.Dips(400, 1, 0.3, 21, 100, 300), testutil.DeterministicNoise(5, 0.01, 400))

	k, err := Kernel(Hann, 41)
	if err != nil {
		t.Fatal(err)
	}

	padded := extend(x, len(k)/2)
	want := direct(padded, k, len(x))

	got, err := Apply(x, k)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, got, want, 1e-10)
}

func TestApplyErrors(t *testing.T) {
	if _, err := Apply(nil, []float64{1}); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Apply(nil) error = %v, want ErrEmptyInput", err)
	}
	if _, err := Apply([]float64{1}, nil); !errors.Is(err, ErrEmptyKernel) {
		t.Fatalf("Apply(kernel=nil) error = %v, want ErrEmptyKernel", err)
	}
	if _, err := Apply([]float64{1}, []float64{0.5, 0.5}); !errors.Is(err, ErrEvenKernel) {
		t.Fatalf("Apply(even) error = %v, want ErrEvenKernel", err)
	}
}
