package testutil

import (
	"math"
	"math/rand"
)

// Times returns n sample times starting at start with a fixed step.
func Times(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// Linear evaluates slope*t + intercept for every t.
func Linear(t []float64, slope, intercept float64) []float64 {
	out := make([]float64, len(t))
	for i, x := range t {
		out[i] = slope*x + intercept
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Dips builds a signal at level base with a smooth negative dip of the given
// depth centred on each index. Each dip is a raised cosine of width samples,
// so its minimum sits exactly on the centre index.
func Dips(length int, base, depth float64, width int, centres ...int) []float64 {
	out := DC(base, length)
	half := width / 2
	for _, c := range centres {
		for k := -half; k <= half; k++ {
			i := c + k
			if i < 0 || i >= length {
				continue
			}
			w := 0.5 * (1 + math.Cos(math.Pi*float64(k)/float64(half+1)))
			out[i] -= depth * w
		}
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Add returns the element-wise sum of equal-length signals.
func Add(a []float64, rest ...[]float64) []float64 {
	out := append([]float64(nil), a...)
	for _, r := range rest {
		for i := range out {
			out[i] += r[i]
		}
	}
	return out
}
