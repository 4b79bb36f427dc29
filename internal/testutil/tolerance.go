package testutil

import (
	"math"
	"testing"
)

// NearlyEqual reports whether a and b agree within eps, using a relative
// comparison once the magnitudes exceed 1.
func NearlyEqual(a, b, eps float64) bool {
	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest <= 1 {
		return false
	}

	return diff/largest <= eps
}

// RequireNearlyEqual fails t if got and want differ by more than eps.
func RequireNearlyEqual(t *testing.T, name string, got, want, eps float64) {
	t.Helper()
	if !NearlyEqual(got, want, eps) {
		t.Fatalf("%s = %v, want %v (eps %v)", name, got, want, eps)
	}
}

// RequireSliceNearlyEqual compares got and want element by element with
// NearlyEqual and reports the first sample outside eps.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}

	for i := range got {
		if !NearlyEqual(got[i], want[i], eps) {
			t.Fatalf("sample %d = %v, want %v (eps %v)", i, got[i], want[i], eps)
		}
	}
}
