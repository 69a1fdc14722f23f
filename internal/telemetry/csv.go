// Package telemetry records per-session dictation statistics. Only
// metrics leave the pipeline; transcript text is never written anywhere.
package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/voxtype/voxtype/pkg/logger"
)

// Import logger functions
var (
	String = logger.String
	Int    = logger.Int
	Error  = logger.Error
)

// csvHeaders is the column order for session stats files.
var csvHeaders = []string{
	"timestamp",
	"session_id",
	"speaker",
	"language",
	"fragments",
	"raw_chars",
	"cleaned_chars",
	"cleanup_mode",
	"cleanup_ms",
	"trigger_mode",
}

// SessionStats is one row of session telemetry.
type SessionStats struct {
	Timestamp    time.Time
	SessionID    string
	Speaker      string
	Language     string
	Fragments    int
	RawChars     int
	CleanedChars int
	CleanupMode  string
	CleanupMs    int64
	TriggerMode  string
}

// CSVWriter appends session stats to per-day CSV files. A new file is
// started at the first write of each day; every file begins with the
// header row.
type CSVWriter struct {
	outputDir string
	logger    *logger.Logger

	mu          sync.Mutex
	currentDate string
	currentPath string
}

// NewCSVWriter creates the output directory if needed.
func NewCSVWriter(outputDir string, log *logger.Logger) (*CSVWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}

	w := &CSVWriter{
		outputDir: outputDir,
		logger:    log.Named("csv-stats"),
	}
	w.logger.Info("Session stats writer initialized", String("output_dir", outputDir))
	return w, nil
}

func (w *CSVWriter) filePathFor(date string) string {
	return filepath.Join(w.outputDir, "session_stats_"+date+".csv")
}

// Write appends one row, rotating to a new file when the date changes.
func (w *CSVWriter) Write(stats SessionStats) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	date := stats.Timestamp.Format("2006-01-02")
	if w.currentDate != date {
		w.currentDate = date
		w.currentPath = w.filePathFor(date)
		if err := w.ensureFileExists(w.currentPath); err != nil {
			return err
		}
		w.logger.Info("Rotated to new session stats file", String("path", w.currentPath))
	}

	f, err := os.OpenFile(w.currentPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open stats file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	record := []string{
		stats.Timestamp.UTC().Format(time.RFC3339),
		stats.SessionID,
		stats.Speaker,
		stats.Language,
		strconv.Itoa(stats.Fragments),
		strconv.Itoa(stats.RawChars),
		strconv.Itoa(stats.CleanedChars),
		stats.CleanupMode,
		strconv.FormatInt(stats.CleanupMs, 10),
		stats.TriggerMode,
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("failed to write stats row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func (w *CSVWriter) ensureFileExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create stats file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write stats header: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
