package testutil

import (
	"math"
	"testing"
)

func TestTimes(t *testing.T) {
	ts := Times(5, 0.5, 4)
	want := []float64{5, 5.5, 6, 6.5}
	RequireSliceNearlyEqual(t, ts, want, 0)
}

func TestLinear(t *testing.T) {
	got := Linear([]float64{0, 1, 2}, 2, 100)
	RequireSliceNearlyEqual(t, got, []float64{100, 102, 104}, 0)
}

func TestDeterministicNoise(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
		if math.Abs(a[i]) > 1 {
			t.Fatalf("a[%d] = %v out of range", i, a[i])
		}
	}
}

func TestDipsMinimumAtCentre(t *testing.T) {
	s := Dips(100, 1, 0.5, 9, 30, 70)
	for _, c := range []int{30, 70} {
		if math.Abs(s[c]-0.5) > 1e-12 {
			t.Fatalf("s[%d] = %v, want 0.5", c, s[c])
		}
		if !(s[c] < s[c-1] && s[c] < s[c+1]) {
			t.Fatalf("s[%d] is not a strict local minimum", c)
		}
	}
	if s[0] != 1 || s[99] != 1 {
		t.Fatalf("edges = %v, %v, want base level", s[0], s[99])
	}
}

func TestDC(t *testing.T) {
	d := DC(0.5, 4)
	for i, v := range d {
		if v != 0.5 {
			t.Fatalf("DC[%d] = %v, want 0.5", i, v)
		}
	}
}

func TestAdd(t *testing.T) {
	got := Add([]float64{1, 2}, []float64{10, 20}, []float64{100, 200})
	RequireSliceNearlyEqual(t, got, []float64{111, 222}, 0)
}
