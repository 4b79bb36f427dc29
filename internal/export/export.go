// Package export writes analysis and calibration results as JSON and CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cwbudde/algo-rde/internal/analysis"
	"github.com/cwbudde/algo-rde/measure/calibration"
)

// Default file names inside the output directory.
const (
	AnalysisJSON    = "analysis.json"
	AnalysisCSV     = "analysis.csv"
	CalibrationJSON = "calibration.json"
)

// ErrNoPoints is returned when a calibration file holds no points.
var ErrNoPoints = errors.New("export: calibration has no points")

// Analysis is the JSON document of one run.
type Analysis struct {
	Traces   []Trace   `json:"traces"`
	Failures []Failure `json:"failures"`
}

// Trace is the exported form of one processed trace.
type Trace struct {
	FileName         string    `json:"file_name"`
	Source           string    `json:"source"` // path relative to the source directory
	Time             []float64 `json:"time"`
	RawCurrent       []float64 `json:"raw_current"`
	CorrectedCurrent []float64 `json:"corrected_current"`
	PlateauIndices   []int     `json:"plateau_indices"`
	SkippedRows      int       `json:"skipped_rows,omitempty"`
	Baseline         Baseline  `json:"baseline"`
}

// Baseline is the exported baseline fit.
type Baseline struct {
	Slope       float64 `json:"slope"`
	Intercept   float64 `json:"intercept"`
	Samples     int     `json:"samples"`
	ResidualRMS float64 `json:"residual_rms"`
}

// Failure is a file skipped under the skip policy.
type Failure struct {
	FileName string `json:"file_name"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
}

// Calibration is the exported standard curve.
type Calibration struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	Points    []Point `json:"points"`
}

// Point is one calibration standard.
type Point struct {
	FileName       string  `json:"file_name"`
	Concentration  float64 `json:"concentration"`
	PlateauCurrent float64 `json:"plateau_current"`
}

// FromResult converts a run result.
func FromResult(res *analysis.Result) Analysis {
	out := Analysis{
		Traces:   make([]Trace, 0, len(res.Traces)),
		Failures: make([]Failure, 0, len(res.Failures)),
	}

	for _, tr := range res.Traces {
		b, _ := res.Baseline(tr)
		plateaus := append([]int{}, tr.Plateaus...)

		out.Traces = append(out.Traces, Trace{
			FileName:         tr.Name,
			Source:           res.Source(tr),
			Time:             tr.Time,
			RawCurrent:       tr.Raw,
			CorrectedCurrent: tr.Corrected,
			PlateauIndices:   plateaus,
			SkippedRows:      tr.SkippedRows,
			Baseline: Baseline{
				Slope:       b.Slope,
				Intercept:   b.Intercept,
				Samples:     b.Samples,
				ResidualRMS: b.ResidualRMS,
			},
		})
	}

	for _, f := range res.Failures {
		out.Failures = append(out.Failures, Failure{
			FileName: f.File,
			Stage:    string(f.Stage),
			Error:    f.Err.Error(),
		})
	}

	return out
}

// FromCurve converts a standard curve.
func FromCurve(c calibration.Curve) Calibration {
	out := Calibration{
		Slope:     c.Slope,
		Intercept: c.Intercept,
		RSquared:  c.RSquared,
		Points:    make([]Point, len(c.Points)),
	}

	for i, p := range c.Points {
		out.Points[i] = Point{FileName: p.File, Concentration: p.Concentration, PlateauCurrent: p.Current}
	}

	return out
}

// Curve converts back to a standard curve.
func (c Calibration) Curve() calibration.Curve {
	curve := calibration.Curve{
		Slope:     c.Slope,
		Intercept: c.Intercept,
		RSquared:  c.RSquared,
		Points:    make([]calibration.Point, len(c.Points)),
	}

	for i, p := range c.Points {
		curve.Points[i] = calibration.Point{File: p.FileName, Concentration: p.Concentration, Current: p.PlateauCurrent}
	}

	return curve
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	return nil
}

// WriteCSV writes every sample of every trace in long format. The source
// column tells apart files sharing a name.
func WriteCSV(w io.Writer, res *analysis.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"file_name", "source", "index", "time", "raw_current", "corrected_current", "is_plateau"}); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	for _, tr := range res.Traces {
		source := res.Source(tr)
		plateau := make(map[int]bool, len(tr.Plateaus))
		for _, idx := range tr.Plateaus {
			plateau[idx] = true
		}

		for i := range tr.Time {
			corrected := ""
			if tr.IsCorrected() {
				corrected = formatFloat(tr.Corrected[i])
			}

			rec := []string{
				tr.Name,
				source,
				strconv.Itoa(i),
				formatFloat(tr.Time[i]),
				formatFloat(tr.Raw[i]),
				corrected,
				strconv.FormatBool(plateau[i]),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("export: %w", err)
			}
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	return nil
}

// ReadCalibration decodes a calibration document.
func ReadCalibration(r io.Reader) (calibration.Curve, error) {
	var c Calibration
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return calibration.Curve{}, fmt.Errorf("export: decode calibration: %w", err)
	}

	if len(c.Points) == 0 {
		return calibration.Curve{}, ErrNoPoints
	}

	return c.Curve(), nil
}

// SaveAnalysis writes AnalysisJSON and AnalysisCSV into dir and returns
// their paths.
func SaveAnalysis(dir string, res *analysis.Result) ([]string, error) {
	jsonPath := filepath.Join(dir, AnalysisJSON)
	if err := writeFile(jsonPath, func(w io.Writer) error { return WriteJSON(w, FromResult(res)) }); err != nil {
		return nil, err
	}

	csvPath := filepath.Join(dir, AnalysisCSV)
	if err := writeFile(csvPath, func(w io.Writer) error { return WriteCSV(w, res) }); err != nil {
		return nil, err
	}

	return []string{jsonPath, csvPath}, nil
}

// SaveCalibration writes the curve to path.
func SaveCalibration(path string, c calibration.Curve) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, FromCurve(c)) })
}

// LoadCalibration reads a curve written by SaveCalibration.
func LoadCalibration(path string) (calibration.Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return calibration.Curve{}, fmt.Errorf("export: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadCalibration(f)
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export: %w", cerr)
		}
	}()

	return write(f)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
