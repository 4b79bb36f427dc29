package trace

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Default column names of the instrument export.
const (
	DefaultTimeColumn    = "Corrected time (s)"
	DefaultCurrentColumn = "WE(1).Current (A)"
)

// Errors returned by the loader.
var (
	ErrMissingColumn = errors.New("trace: missing column")
	ErrMalformedRow  = errors.New("trace: malformed row")
	ErrNoHeader      = errors.New("trace: missing header row")
	ErrNonFinite     = errors.New("trace: value is not finite")
	ErrSameColumn    = errors.New("trace: time and current name the same column")
)

// MissingColumnError reports a required column absent from the header.
type MissingColumnError struct {
	File   string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("trace: %s: missing column %q", e.File, e.Column)
}

// Is matches ErrMissingColumn.
func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// MalformedRowError reports a data row that could not be used.
// Row is 1-based and counts the header, so it matches the line in a
// spreadsheet view of the file.
type MalformedRowError struct {
	File   string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *MalformedRowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("trace: %s: row %d: %v", e.File, e.Row, e.Err)
	}

	return fmt.Sprintf("trace: %s: row %d: column %q value %q: %v", e.File, e.Row, e.Column, e.Value, e.Err)
}

// Unwrap returns the parse or ordering cause.
func (e *MalformedRowError) Unwrap() error { return e.Err }

// Is matches ErrMalformedRow.
func (e *MalformedRowError) Is(target error) bool { return target == ErrMalformedRow }

// Columns names the two series read from each file.
type Columns struct {
	Time    string
	Current string
}

// DefaultColumns returns the column names of the instrument export.
func DefaultColumns() Columns {
	return Columns{Time: DefaultTimeColumn, Current: DefaultCurrentColumn}
}

// RowPolicy decides what happens to a malformed row.
type RowPolicy int

const (
	// RowAbort fails the file on the first malformed row.
	RowAbort RowPolicy = iota
	// RowSkip drops malformed rows and counts them in Trace.SkippedRows.
	RowSkip
)

// String returns the configuration spelling of the policy.
func (p RowPolicy) String() string {
	switch p {
	case RowAbort:
		return "abort"
	case RowSkip:
		return "skip"
	default:
		return fmt.Sprintf("RowPolicy(%d)", int(p))
	}
}

// ParseRowPolicy parses "abort" or "skip".
func ParseRowPolicy(s string) (RowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return RowAbort, nil
	case "skip":
		return RowSkip, nil
	default:
		return RowAbort, fmt.Errorf("trace: unknown row policy %q", s)
	}
}

// Options configures parsing.
type Options struct {
	Columns   Columns
	RowPolicy RowPolicy
}

// DefaultOptions returns the instrument columns with the abort policy.
func DefaultOptions() Options {
	return Options{Columns: DefaultColumns(), RowPolicy: RowAbort}
}

func normalizeOptions(opts Options) (Options, error) {
	if opts.Columns.Time == "" {
		opts.Columns.Time = DefaultTimeColumn
	}
	if opts.Columns.Current == "" {
		opts.Columns.Current = DefaultCurrentColumn
	}
	if strings.TrimSpace(opts.Columns.Time) == strings.TrimSpace(opts.Columns.Current) {
		return opts, fmt.Errorf("%w: %q", ErrSameColumn, opts.Columns.Time)
	}
	return opts, nil
}

// Discover returns every regular file below root whose name ends in ".csv",
// sorted lexicographically. The suffix match is case-sensitive.
func Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("trace: source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("trace: source %s is not a directory", root)
	}

	var paths []string

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), ".csv") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("trace: walking %s: %w", root, err)
	}

	sort.Strings(paths)

	return paths, nil
}

// LoadFile opens and parses one CSV file. The file is closed on every path.
func LoadFile(path string, opts Options) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	tr, err := Parse(f, filepath.Base(path), opts)
	if err != nil {
		return nil, err
	}
	tr.Path = path

	return tr, nil
}

// LoadDir discovers and loads every CSV file below root, stopping at the
// first error.
func LoadDir(root string, opts Options) ([]*Trace, error) {
	paths, err := Discover(root)
	if err != nil {
		return nil, err
	}

	traces := make([]*Trace, 0, len(paths))
	for _, p := range paths {
		tr, err := LoadFile(p, opts)
		if err != nil {
			return nil, err
		}
		traces = append(traces, tr)
	}

	return traces, nil
}

// Parse reads a CSV stream whose first row names the columns.
func Parse(r io.Reader, name string, opts Options) (*Trace, error) {
	opts, err := normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s", ErrNoHeader, name)
	}
	if err != nil {
		return nil, fmt.Errorf("trace: %s: reading header: %w", name, err)
	}

	timeCol, curCol, err := locateColumns(header, name, opts.Columns)
	if err != nil {
		return nil, err
	}
	width := len(header)

	tr := &Trace{Name: name}
	row := 1

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++

		var bad *MalformedRowError

		switch {
		case err != nil:
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("trace: %s: reading row %d: %w", name, row, err)
			}
			bad = &MalformedRowError{File: name, Row: row, Err: err}
		case len(rec) != width:
			bad = &MalformedRowError{File: name, Row: row, Err: fmt.Errorf("%d fields, header has %d", len(rec), width)}
		default:
			bad = tr.appendRow(rec[timeCol], rec[curCol], opts.Columns)
			if bad != nil {
				bad.File, bad.Row = name, row
			}
		}

		if bad == nil {
			continue
		}
		if opts.RowPolicy != RowSkip {
			return nil, bad
		}
		tr.SkippedRows++
	}

	if len(tr.Time) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTrace, name)
	}

	return tr, nil
}

// appendRow parses one time/current pair and appends it when valid.
func (t *Trace) appendRow(timeCell, curCell string, cols Columns) *MalformedRowError {
	tv, err := parseCell(timeCell)
	if err != nil {
		return &MalformedRowError{Column: cols.Time, Value: timeCell, Err: err}
	}

	cv, err := parseCell(curCell)
	if err != nil {
		return &MalformedRowError{Column: cols.Current, Value: curCell, Err: err}
	}

	if n := len(t.Time); n > 0 && !(tv > t.Time[n-1]) {
		return &MalformedRowError{Column: cols.Time, Value: timeCell, Err: ErrTimeOrder}
	}

	t.Time = append(t.Time, tv)
	t.Raw = append(t.Raw, cv)

	return nil
}

func locateColumns(header []string, name string, cols Columns) (timeCol, curCol int, err error) {
	timeCol, curCol = -1, -1

	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case cols.Time:
			if timeCol < 0 {
				timeCol = i
			}
		case cols.Current:
			if curCol < 0 {
				curCol = i
			}
		}
	}

	if timeCol < 0 {
		return 0, 0, &MissingColumnError{File: name, Column: cols.Time}
	}
	if curCol < 0 {
		return 0, 0, &MissingColumnError{File: name, Column: cols.Current}
	}

	return timeCol, curCol, nil
}

func parseCell(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		var nerr *strconv.NumError
		if errors.As(err, &nerr) {
			return 0, nerr.Err
		}
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFinite
	}

	return v, nil
}
