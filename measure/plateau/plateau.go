// Package plateau locates steady-state plateaus in corrected current traces.
//
// Sensor current falls while the analyte reacts and levels out at a steady
// state, so plateaus show up as local minima of the corrected current. They
// are found as local maxima of the negated series, thinned so that no two
// kept plateaus are closer than a minimum number of samples.
//
// Selection within a neighbourhood keeps the most extreme candidate. When two
// candidates are equally extreme the later one (higher index) is kept.
package plateau

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cwbudde/algo-rde/dsp/smooth"
	"github.com/cwbudde/algo-rde/trace"
)

// Errors returned by plateau detection.
var (
	ErrInvalidDistance = errors.New("plateau: minimum distance must be >= 1")
	ErrNotCorrected    = errors.New("plateau: trace has no corrected current")
)

// DefaultMinDistance is the default minimum separation in samples.
const DefaultMinDistance = 10

// Config controls detection.
type Config struct {
	// MinDistance is the smallest allowed index gap between two plateaus.
	MinDistance int
	// Smoothing, when > 1, is the width of a moving average applied before
	// the search. Returned indices still refer to the unsmoothed series.
	Smoothing int
}

// DefaultConfig returns MinDistance 10 without smoothing.
func DefaultConfig() Config {
	return Config{MinDistance: DefaultMinDistance}
}

// Plateau is one detected plateau.
type Plateau struct {
	Index   int
	Time    float64
	Current float64
}

// Detect returns the ascending indices of local minima of signal that are at
// least cfg.MinDistance samples apart. A signal without minima yields an
// empty, non-nil slice.
func Detect(signal []float64, cfg Config) ([]int, error) {
	if cfg.MinDistance < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDistance, cfg.MinDistance)
	}

	x := signal
	if cfg.Smoothing > 1 && len(signal) > 0 {
		s, err := smooth.MovingAverage(signal, cfg.Smoothing)
		if err != nil {
			return nil, fmt.Errorf("plateau: smoothing: %w", err)
		}
		x = s
	}

	neg := make([]float64, len(x))
	for i, v := range x {
		neg[i] = -v
	}

	peaks := LocalMaxima(neg)
	heights := make([]float64, len(peaks))
	for i, p := range peaks {
		heights[i] = neg[p]
	}

	return SelectByDistance(peaks, heights, cfg.MinDistance), nil
}

// LocalMaxima returns the indices of samples larger than both neighbours.
// For a flat top the middle sample is reported, rounding down. The first and
// last samples are never maxima.
func LocalMaxima(x []float64) []int {
	peaks := []int{}
	last := len(x) - 1

	for i := 1; i < last; i++ {
		if !(x[i-1] < x[i]) {
			continue
		}

		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}

		if x[ahead] < x[i] {
			left, right := i, ahead-1
			peaks = append(peaks, (left+right)/2)
			i = ahead
		}
	}

	return peaks
}

// SelectByDistance thins ascending peak indices so that kept peaks are at
// least distance samples apart. Peaks are visited from highest to lowest and
// each kept peak removes its too-close neighbours. Ties go to the later peak.
func SelectByDistance(peaks []int, heights []float64, distance int) []int {
	n := len(peaks)
	if n == 0 || distance <= 1 {
		return append([]int{}, peaks...)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return heights[order[a]] < heights[order[b]]
	})

	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}

	for i := n - 1; i >= 0; i-- {
		j := order[i]
		if !keep[j] {
			continue
		}

		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}

		for k := j + 1; k < n && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	out := make([]int, 0, n)
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}

	return out
}

// Apply detects plateaus on the corrected current of tr and stores them.
func Apply(tr *trace.Trace, cfg Config) ([]int, error) {
	if !tr.IsCorrected() {
		return nil, ErrNotCorrected
	}

	idx, err := Detect(tr.Corrected, cfg)
	if err != nil {
		return nil, err
	}

	tr.Plateaus = idx

	return idx, nil
}

// Describe returns time and corrected current for each plateau of tr.
func Describe(tr *trace.Trace) []Plateau {
	if !tr.IsCorrected() {
		return nil
	}

	out := make([]Plateau, len(tr.Plateaus))
	for i, idx := range tr.Plateaus {
		out[i] = Plateau{Index: idx, Time: tr.Time[idx], Current: tr.Corrected[idx]}
	}

	return out
}
