// Package trace holds the time/current record produced by one rotating disk
// electrode experiment and loads such records from instrument CSV exports.
//
// A [Trace] is created by [LoadFile] or [Parse], receives its corrected
// current from the baseline stage and its plateau indices from the plateau
// stage. Every stage mutates the same value in place.
package trace

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by trace validation.
var (
	ErrEmptyTrace     = errors.New("trace: no samples")
	ErrLengthMismatch = errors.New("trace: series length mismatch")
	ErrTimeOrder      = errors.New("trace: time is not strictly increasing")
	ErrPlateauRange   = errors.New("trace: plateau index out of range")
)

// Trace is one experiment file's data.
type Trace struct {
	Name string // base file name
	Path string

	Time      []float64 // seconds, strictly increasing
	Raw       []float64 // amperes
	Corrected []float64 // nil until baseline correction
	Plateaus  []int     // ascending sample indices into Corrected

	// SkippedRows counts rows dropped under RowSkip.
	SkippedRows int
}

// New creates a trace from parallel time and current series.
// The slices are retained, not copied.
func New(name string, time, raw []float64) (*Trace, error) {
	tr := &Trace{Name: name, Time: time, Raw: raw}
	if err := tr.Validate(); err != nil {
		return nil, err
	}

	return tr, nil
}

// Len returns the number of samples.
func (t *Trace) Len() int { return len(t.Time) }

// IsCorrected reports whether baseline correction has been applied.
func (t *Trace) IsCorrected() bool { return t.Corrected != nil }

// Validate checks the length, ordering and index invariants.
func (t *Trace) Validate() error {
	if len(t.Time) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyTrace, t.Name)
	}

	if len(t.Raw) != len(t.Time) {
		return fmt.Errorf("%w: %s: time=%d raw=%d", ErrLengthMismatch, t.Name, len(t.Time), len(t.Raw))
	}

	if t.Corrected != nil && len(t.Corrected) != len(t.Time) {
		return fmt.Errorf("%w: %s: time=%d corrected=%d", ErrLengthMismatch, t.Name, len(t.Time), len(t.Corrected))
	}

	for i := 1; i < len(t.Time); i++ {
		if !(t.Time[i] > t.Time[i-1]) {
			return fmt.Errorf("%w: %s: sample %d", ErrTimeOrder, t.Name, i)
		}
	}

	for _, idx := range t.Plateaus {
		if idx < 0 || idx >= len(t.Time) {
			return fmt.Errorf("%w: %s: %d", ErrPlateauRange, t.Name, idx)
		}
	}

	return nil
}

// PlateauCurrents returns the corrected current at each plateau index.
// It returns nil for an uncorrected trace.
func (t *Trace) PlateauCurrents() []float64 {
	if t.Corrected == nil || len(t.Plateaus) == 0 {
		return nil
	}

	out := make([]float64, len(t.Plateaus))
	for i, idx := range t.Plateaus {
		out[i] = t.Corrected[idx]
	}

	return out
}

// Duration returns the time span covered by the trace.
func (t *Trace) Duration() float64 {
	if len(t.Time) < 2 {
		return 0
	}

	return t.Time[len(t.Time)-1] - t.Time[0]
}

// SampleInterval returns the mean time step, or NaN for fewer than two samples.
func (t *Trace) SampleInterval() float64 {
	if len(t.Time) < 2 {
		return math.NaN()
	}

	return t.Duration() / float64(len(t.Time)-1)
}
