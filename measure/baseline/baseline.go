// Package baseline removes linear drift from electrode current traces.
//
// A straight line is fitted by ordinary least squares to the samples inside
// a user-chosen time window, where the sensor is assumed to respond only to
// electrode or instrument drift. The fitted slope is then removed from the
// whole trace:
//
//	corrected[i] = raw[i] - slope*time[i]
//
// The intercept is reported but not subtracted by default, so corrected
// currents keep their absolute level. [ModeLine] subtracts the full line
// instead; it changes every corrected value by the intercept and is opt-in.
package baseline

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-rde/stats/regression"
	"github.com/cwbudde/algo-rde/trace"
)

// Errors returned by baseline fitting.
var (
	ErrInsufficientData     = errors.New("baseline: window selects fewer than two samples")
	ErrDegenerateRegression = errors.New("baseline: window samples share a single time value")
	ErrLengthMismatch       = errors.New("baseline: time and current length mismatch")
	ErrInvalidWindow        = errors.New("baseline: invalid window")
)

// Window is a closed time interval in seconds.
type Window struct {
	Start float64
	End   float64
}

// DefaultWindow returns the 5 s to 20 s window.
func DefaultWindow() Window {
	return Window{Start: 5, End: 20}
}

// Contains reports whether t lies in [Start, End].
func (w Window) Contains(t float64) bool {
	return t >= w.Start && t <= w.End
}

// Validate rejects non-finite bounds and Start > End.
func (w Window) Validate() error {
	if math.IsNaN(w.Start) || math.IsNaN(w.End) || math.IsInf(w.Start, 0) || math.IsInf(w.End, 0) {
		return fmt.Errorf("%w: bounds must be finite", ErrInvalidWindow)
	}
	if w.Start > w.End {
		return fmt.Errorf("%w: start %g after end %g", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

func (w Window) String() string {
	return fmt.Sprintf("[%g, %g]", w.Start, w.End)
}

// Mode selects what is subtracted from the raw current.
type Mode int

const (
	// ModeSlope subtracts slope*time only.
	ModeSlope Mode = iota
	// ModeLine subtracts slope*time + intercept.
	ModeLine
)

// String returns the configuration spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSlope:
		return "slope"
	case ModeLine:
		return "line"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "slope" or "line".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "slope":
		return ModeSlope, nil
	case "line":
		return ModeLine, nil
	default:
		return ModeSlope, fmt.Errorf("baseline: unknown mode %q", s)
	}
}

// Result describes a baseline fit.
type Result struct {
	Slope       float64 // A/s
	Intercept   float64 // A, computed but not applied in ModeSlope
	Samples     int     // rows inside the window
	ResidualRMS float64 // A, noise of the window around the fitted line
}

// Select returns the samples whose time lies inside w.
func Select(time, current []float64, w Window) (t, c []float64) {
	for i, x := range time {
		if w.Contains(x) {
			t = append(t, x)
			c = append(c, current[i])
		}
	}
	return t, c
}

// Fit regresses current on time over the samples inside w.
func Fit(time, current []float64, w Window) (Result, error) {
	if len(time) != len(current) {
		return Result{}, ErrLengthMismatch
	}
	if err := w.Validate(); err != nil {
		return Result{}, err
	}

	t, c := Select(time, current, w)
	if len(t) < 2 {
		return Result{}, fmt.Errorf("%w: %d in %s", ErrInsufficientData, len(t), w)
	}

	r, err := regression.Linear(t, c)
	if errors.Is(err, regression.ErrDegenerate) {
		return Result{}, fmt.Errorf("%w: t=%g", ErrDegenerateRegression, t[0])
	}
	if err != nil {
		return Result{}, fmt.Errorf("baseline: %w", err)
	}

	return Result{
		Slope:       r.Slope,
		Intercept:   r.Intercept,
		Samples:     len(t),
		ResidualRMS: r.ResidualRMS,
	}, nil
}

// Correct removes the fitted drift from every sample of raw, not only those
// inside the window. The result is a new slice.
func Correct(time, raw []float64, r Result, mode Mode) []float64 {
	offset := 0.0
	if mode == ModeLine {
		offset = r.Intercept
	}

	out := make([]float64, len(raw))
	for i := range raw {
		out[i] = raw[i] - r.Slope*time[i] - offset
	}

	return out
}

// Apply fits the baseline of tr and stores the corrected current in tr.
func Apply(tr *trace.Trace, w Window, mode Mode) (Result, error) {
	r, err := Fit(tr.Time, tr.Raw, w)
	if err != nil {
		return Result{}, err
	}

	tr.Corrected = Correct(tr.Time, tr.Raw, r, mode)

	return r, nil
}
