// Package summary computes descriptive statistics of a sampled series in a
// single pass.
package summary

import "math"

// Stats holds descriptive statistics of a series.
type Stats struct {
	Length   int
	Mean     float64
	Variance float64 // population variance
	StdDev   float64
	RMS      float64
	Max      float64
	MaxPos   int
	Min      float64
	MinPos   int
	Range    float64 // max - min
}

// Calculate computes all statistics in a single pass using Welford's online
// algorithm for the variance. An empty series yields NaN moments.
func Calculate(x []float64) Stats {
	n := len(x)
	if n == 0 {
		nan := math.NaN()
		return Stats{Mean: nan, Variance: nan, StdDev: nan, RMS: nan, Max: nan, Min: nan, Range: nan}
	}

	var (
		mean   float64
		m2     float64
		sumSq  float64
		maxVal = x[0]
		maxPos int
		minVal = x[0]
		minPos int
	)

	for i, v := range x {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)

		sumSq += v * v

		if v > maxVal {
			maxVal = v
			maxPos = i
		}

		if v < minVal {
			minVal = v
			minPos = i
		}
	}

	nf := float64(n)
	variance := m2 / nf

	return Stats{
		Length:   n,
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		RMS:      math.Sqrt(sumSq / nf),
		Max:      maxVal,
		MaxPos:   maxPos,
		Min:      minVal,
		MinPos:   minPos,
		Range:    maxVal - minVal,
	}
}

// Accumulator collects statistics incrementally across blocks. Feeding the
// same samples in any block partition gives the same result as [Calculate].
type Accumulator struct {
	n      int
	mean   float64
	m2     float64
	sumSq  float64
	maxVal float64
	maxPos int
	minVal float64
	minPos int
}

// Update adds a block of samples.
func (a *Accumulator) Update(x []float64) {
	for _, v := range x {
		if a.n == 0 {
			a.maxVal, a.minVal = v, v
		} else {
			if v > a.maxVal {
				a.maxVal, a.maxPos = v, a.n
			}
			if v < a.minVal {
				a.minVal, a.minPos = v, a.n
			}
		}

		a.n++
		delta := v - a.mean
		a.mean += delta / float64(a.n)
		a.m2 += delta * (v - a.mean)
		a.sumSq += v * v
	}
}

// Result returns the statistics of everything seen so far.
func (a *Accumulator) Result() Stats {
	if a.n == 0 {
		return Calculate(nil)
	}

	nf := float64(a.n)
	variance := a.m2 / nf

	return Stats{
		Length:   a.n,
		Mean:     a.mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		RMS:      math.Sqrt(a.sumSq / nf),
		Max:      a.maxVal,
		MaxPos:   a.maxPos,
		Min:      a.minVal,
		MinPos:   a.minPos,
		Range:    a.maxVal - a.minVal,
	}
}

// Reset clears the accumulator for reuse.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}
