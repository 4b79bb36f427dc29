// Package calibration fits standard curves relating analyte concentration to
// plateau current.
//
// Each trace contributes one point: its known concentration paired with the
// corrected current at its first detected plateau. Pairing is positional, so
// a trace without a plateau is an error rather than being skipped; skipping
// would shift every later concentration onto the wrong trace.
package calibration

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-rde/stats/regression"
	"github.com/cwbudde/algo-rde/trace"
)

// Errors returned by calibration.
var (
	ErrNoPlateau            = errors.New("calibration: trace has no plateau")
	ErrCountMismatch        = errors.New("calibration: concentration count does not match trace count")
	ErrInvalidConcentration = errors.New("calibration: concentration must be finite and non-negative")
	ErrInsufficientPoints   = errors.New("calibration: at least two points required")
	ErrDegenerate           = errors.New("calibration: all concentrations are equal")
	ErrNotCorrected         = errors.New("calibration: trace has no corrected current")
	ErrZeroSlope            = errors.New("calibration: curve slope is zero")
)

// NoPlateauError reports a trace that cannot supply a plateau response.
type NoPlateauError struct {
	File     string
	Position int // index in the trace collection
}

func (e *NoPlateauError) Error() string {
	return fmt.Sprintf("calibration: %s (position %d): no plateau detected", e.File, e.Position)
}

// Is matches ErrNoPlateau.
func (e *NoPlateauError) Is(target error) bool { return target == ErrNoPlateau }

// Point pairs a known concentration with a measured plateau current.
type Point struct {
	File          string
	Concentration float64
	Current       float64 // A
}

// Curve is a fitted standard curve: Current = Slope*Concentration + Intercept.
type Curve struct {
	Slope     float64 // sensitivity, A per concentration unit
	Intercept float64 // blank-corrected baseline response, A
	RSquared  float64
	Points    []Point
}

// Response returns the current expected at concentration c.
func (c Curve) Response(concentration float64) float64 {
	return c.Slope*concentration + c.Intercept
}

// Predict inverts the curve, returning the concentration that produces current.
func (c Curve) Predict(current float64) (float64, error) {
	if c.Slope == 0 {
		return 0, ErrZeroSlope
	}

	return (current - c.Intercept) / c.Slope, nil
}

// Points pairs concentrations[i] with the first plateau current of traces[i].
func Points(concentrations []float64, traces []*trace.Trace) ([]Point, error) {
	if len(concentrations) != len(traces) {
		return nil, fmt.Errorf("%w: %d concentrations, %d traces", ErrCountMismatch, len(concentrations), len(traces))
	}

	points := make([]Point, len(traces))

	for i, tr := range traces {
		c := concentrations[i]
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			return nil, fmt.Errorf("%w: position %d: %g", ErrInvalidConcentration, i, c)
		}

		if !tr.IsCorrected() {
			return nil, fmt.Errorf("%w: %s", ErrNotCorrected, tr.Name)
		}

		if len(tr.Plateaus) == 0 {
			return nil, &NoPlateauError{File: tr.Name, Position: i}
		}

		points[i] = Point{
			File:          tr.Name,
			Concentration: c,
			Current:       tr.Corrected[tr.Plateaus[0]],
		}
	}

	return points, nil
}

// Fit builds the standard curve from positional concentrations and traces.
func Fit(concentrations []float64, traces []*trace.Trace) (Curve, error) {
	points, err := Points(concentrations, traces)
	if err != nil {
		return Curve{}, err
	}

	return FitPoints(points)
}

// FitPoints regresses plateau current on concentration.
func FitPoints(points []Point) (Curve, error) {
	if len(points) < 2 {
		return Curve{}, fmt.Errorf("%w: got %d", ErrInsufficientPoints, len(points))
	}

	x := make([]float64, len(points))
	y := make([]float64, len(points))

	for i, p := range points {
		x[i] = p.Concentration
		y[i] = p.Current
	}

	r, err := regression.Linear(x, y)
	if errors.Is(err, regression.ErrDegenerate) {
		return Curve{}, ErrDegenerate
	}
	if err != nil {
		return Curve{}, fmt.Errorf("calibration: %w", err)
	}

	return Curve{
		Slope:     r.Slope,
		Intercept: r.Intercept,
		RSquared:  r.RSquared,
		Points:    append([]Point(nil), points...),
	}, nil
}
