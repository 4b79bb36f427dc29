// Package regression fits straight lines by ordinary least squares.
//
// The fit is computed on mean-centred data, which keeps the normal equations
// well conditioned for typical instrument time bases (seconds since start)
// and current magnitudes (nano- to microamperes).
package regression

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by Linear.
var (
	ErrLengthMismatch   = errors.New("regression: x and y length mismatch")
	ErrInsufficientData = errors.New("regression: at least two points required")
	ErrDegenerate       = errors.New("regression: x has zero variance")
)

// Result is a fitted line y = Slope*x + Intercept with goodness-of-fit data.
type Result struct {
	Slope     float64
	Intercept float64

	N           int     // number of points
	RSquared    float64 // coefficient of determination
	ResidualRMS float64 // sqrt(mean squared residual)
}

// At evaluates the fitted line at x.
func (r Result) At(x float64) float64 {
	return r.Slope*x + r.Intercept
}

// Linear fits y against x by ordinary least squares, minimising the sum of
// squared residuals.
func Linear(x, y []float64) (Result, error) {
	if len(x) != len(y) {
		return Result{}, ErrLengthMismatch
	}

	n := len(x)
	if n < 2 {
		return Result{}, ErrInsufficientData
	}

	if constant(x) {
		return Result{}, ErrDegenerate
	}

	mx := mean(x)
	my := mean(y)

	dx := make([]float64, n)
	dy := make([]float64, n)

	for i := range x {
		dx[i] = x[i] - mx
		dy[i] = y[i] - my
	}

	prod := make([]float64, n)

	vecmath.MulBlock(prod, dx, dy)
	sxy := sum(prod)

	vecmath.MulBlock(prod, dy, dy)
	syy := sum(prod)

	vecmath.MulBlockInPlace(dx, dx)
	sxx := sum(dx)

	if sxx == 0 {
		return Result{}, ErrDegenerate
	}

	slope := sxy / sxx
	intercept := my - slope*mx

	var ssRes float64

	for i := range x {
		r := y[i] - (slope*x[i] + intercept)
		ssRes += r * r
	}

	r2 := 1.0
	if syy > 0 {
		r2 = 1 - ssRes/syy
	}

	return Result{
		Slope:       slope,
		Intercept:   intercept,
		N:           n,
		RSquared:    r2,
		ResidualRMS: math.Sqrt(ssRes / float64(n)),
	}, nil
}

// Residuals returns y[i] - r.At(x[i]) for every point.
func Residuals(r Result, x, y []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, ErrLengthMismatch
	}

	out := make([]float64, len(x))
	for i := range x {
		out[i] = y[i] - r.At(x[i])
	}

	return out, nil
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

// sum uses Kahan summation for numerical stability.
func sum(x []float64) float64 {
	var s, c float64
	for _, v := range x {
		y := v - c
		t := s + y
		c = (t - s) - y
		s = t
	}
	return s
}

func mean(x []float64) float64 {
	return sum(x) / float64(len(x))
}
