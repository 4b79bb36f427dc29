package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Instrument export column names used by fixtures.
const (
	TimeHeader    = "Corrected time (s)"
	CurrentHeader = "WE(1).Current (A)"
)

// TraceCSV renders time and current series as an instrument-style export
// with an extra leading column, so loaders are exercised against column
// order and unused fields.
func TraceCSV(time, current []float64) string {
	var b strings.Builder
	b.WriteString("Index," + TimeHeader + "," + CurrentHeader + "\n")
	for i := range time {
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(time[i], 'g', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(current[i], 'g', -1, 64))
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteFile writes content to dir/name, creating parent directories, and
// returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
