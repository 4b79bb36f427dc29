package analysis

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDroppedFiles is returned by calibration when the run lost files.
	ErrDroppedFiles = errors.New("analysis: files failed before calibration")
	// ErrPlotCollision marks traces whose plots would share a file name.
	ErrPlotCollision = errors.New("analysis: plot file name collision")
)

// Stage names a pipeline step.
type Stage string

// Pipeline stages.
const (
	StageLoad        Stage = "load"
	StageBaseline    Stage = "baseline"
	StagePlateau     Stage = "plateau"
	StagePlot        Stage = "plot"
	StageCalibration Stage = "calibration"
)

// drops reports whether a failure at s removes the file from the result.
func (s Stage) drops() bool {
	switch s {
	case StageLoad, StageBaseline, StagePlateau:
		return true
	default:
		return false
	}
}

// FileError attributes a failure to one trace file and pipeline stage.
type FileError struct {
	File  string
	Stage Stage
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("analysis: %s: %s: %v", e.File, e.Stage, e.Err)
}

// Unwrap returns the stage error.
func (e *FileError) Unwrap() error { return e.Err }

// FilePolicy decides what happens when a file fails.
type FilePolicy int

const (
	// FailFast aborts the run on the first failing file.
	FailFast FilePolicy = iota
	// SkipFile logs the failure, records it and continues.
	SkipFile
)

func (p FilePolicy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case SkipFile:
		return "skip"
	default:
		return fmt.Sprintf("FilePolicy(%d)", int(p))
	}
}

// ParseFilePolicy parses "fail-fast" or "skip".
func ParseFilePolicy(s string) (FilePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-fast":
		return FailFast, nil
	case "skip":
		return SkipFile, nil
	default:
		return FailFast, fmt.Errorf("analysis: unknown file policy %q", s)
	}
}
