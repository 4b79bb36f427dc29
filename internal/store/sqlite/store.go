// Package sqlite archives analysis runs and standard curves in a SQLite
// database so results can be compared across sessions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/cwbudde/algo-rde/internal/analysis"
	"github.com/cwbudde/algo-rde/internal/export"
	"github.com/cwbudde/algo-rde/measure/calibration"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("sqlite: not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	source_dir    TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	duration_ns   INTEGER NOT NULL,
	trace_count   INTEGER NOT NULL,
	failure_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS traces (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	position  INTEGER NOT NULL,
	file_name TEXT NOT NULL,
	slope     REAL NOT NULL,
	plateaus  INTEGER NOT NULL,
	payload   BLOB NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE TABLE IF NOT EXISTS calibrations (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	slope      REAL NOT NULL,
	intercept  REAL NOT NULL,
	r_squared  REAL NOT NULL,
	payload    BLOB NOT NULL
);`

// Run summarises one archived analysis run.
type Run struct {
	ID        string
	SourceDir string
	StartedAt time.Time
	Duration  time.Duration
	Traces    int
	Failures  int
}

// Store is an open archive.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the archive at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "rde.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("sqlite: create dirs: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun archives every trace of res and returns the new run id.
func (s *Store) SaveRun(ctx context.Context, sourceDir string, res *analysis.Result) (id string, retErr error) {
	id = uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, source_dir, started_at, duration_ns, trace_count, failure_count) VALUES (?, ?, ?, ?, ?, ?)`,
		id, sourceDir, res.Started.UTC().Format(time.RFC3339Nano), int64(res.Duration), len(res.Traces), len(res.Failures),
	); err != nil {
		return "", fmt.Errorf("sqlite: insert run: %w", err)
	}

	doc := export.FromResult(res)
	for i, tr := range doc.Traces {
		payload, err := json.Marshal(tr)
		if err != nil {
			return "", fmt.Errorf("sqlite: encode %s: %w", tr.FileName, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO traces (run_id, position, file_name, slope, plateaus, payload) VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, tr.FileName, tr.Baseline.Slope, len(tr.PlateauIndices), payload,
		); err != nil {
			return "", fmt.Errorf("sqlite: insert trace %s: %w", tr.FileName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("sqlite: commit: %w", err)
	}

	return id, nil
}

// SaveCalibration archives a standard curve fitted from run runID.
func (s *Store) SaveCalibration(ctx context.Context, runID string, c calibration.Curve) (string, error) {
	id := uuid.NewString()

	payload, err := json.Marshal(export.FromCurve(c))
	if err != nil {
		return "", fmt.Errorf("sqlite: encode calibration: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO calibrations (id, run_id, created_at, slope, intercept, r_squared, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, runID, time.Now().UTC().Format(time.RFC3339Nano), c.Slope, c.Intercept, c.RSquared, payload,
	); err != nil {
		return "", fmt.Errorf("sqlite: insert calibration: %w", err)
	}

	return id, nil
}

// Runs lists archived runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_dir, started_at, duration_ns, trace_count, failure_count FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
			dur     int64
		)
		if err := rows.Scan(&r.ID, &r.SourceDir, &started, &dur, &r.Traces, &r.Failures); err != nil {
			return nil, fmt.Errorf("sqlite: scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("sqlite: run %s: %w", r.ID, err)
		}
		r.Duration = time.Duration(dur)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	return runs, nil
}

// Traces returns the archived traces of a run in their original order.
func (s *Store) Traces(ctx context.Context, runID string) ([]export.Trace, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM traces WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select traces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []export.Trace
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite: scan trace: %w", err)
		}

		var tr export.Trace
		if err := json.Unmarshal(payload, &tr); err != nil {
			return nil, fmt.Errorf("sqlite: decode trace: %w", err)
		}
		out = append(out, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}

	return out, nil
}

// LatestCalibration returns the most recently archived standard curve.
func (s *Store) LatestCalibration(ctx context.Context) (calibration.Curve, error) {
	var payload []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM calibrations ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return calibration.Curve{}, fmt.Errorf("%w: no calibration archived", ErrNotFound)
	}
	if err != nil {
		return calibration.Curve{}, fmt.Errorf("sqlite: select calibration: %w", err)
	}

	var c export.Calibration
	if err := json.Unmarshal(payload, &c); err != nil {
		return calibration.Curve{}, fmt.Errorf("sqlite: decode calibration: %w", err)
	}

	return c.Curve(), nil
}
