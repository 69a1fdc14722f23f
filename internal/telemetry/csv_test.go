package telemetry

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voxtype/voxtype/internal/storage/sqlite"
	"github.com/voxtype/voxtype/internal/transcription"
	"github.com/voxtype/voxtype/pkg/logger"
)

func sampleStats(ts time.Time, id string) SessionStats {
	return SessionStats{
		Timestamp:    ts,
		SessionID:    id,
		Speaker:      "mic",
		Language:     "en",
		Fragments:    2,
		RawChars:     25,
		CleanedChars: 23,
		CleanupMode:  "rules",
		CleanupMs:    3,
		TriggerMode:  "push-to-talk",
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestCSVWriterCreatesFileWithHeader(t *testing.T) {
	dir := t.TempDir()
	w, err := NewCSVWriter(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}

	ts := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	if err := w.Write(sampleStats(ts, "s1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Write(sampleStats(ts.Add(time.Minute), "s2")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rows := readCSV(t, filepath.Join(dir, "session_stats_2026-03-14.csv"))
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d rows", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[0][1] != "session_id" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "s1" || rows[2][1] != "s2" {
		t.Errorf("rows out of order: %v / %v", rows[1], rows[2])
	}
	if rows[1][4] != "2" || rows[1][5] != "25" || rows[1][6] != "23" {
		t.Errorf("unexpected counters in row: %v", rows[1])
	}
}

func TestCSVWriterRotatesDaily(t *testing.T) {
	dir := t.TempDir()
	w, err := NewCSVWriter(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}

	day1 := time.Date(2026, 3, 14, 23, 55, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 15, 0, 5, 0, 0, time.UTC)
	if err := w.Write(sampleStats(day1, "s1")); err != nil {
		t.Fatalf("Write day1: %v", err)
	}
	if err := w.Write(sampleStats(day2, "s2")); err != nil {
		t.Fatalf("Write day2: %v", err)
	}

	rows1 := readCSV(t, filepath.Join(dir, "session_stats_2026-03-14.csv"))
	rows2 := readCSV(t, filepath.Join(dir, "session_stats_2026-03-15.csv"))
	if len(rows1) != 2 || len(rows2) != 2 {
		t.Errorf("expected one data row per file, got %d and %d rows", len(rows1), len(rows2))
	}
}

type fakeStore struct {
	records []*sqlite.SessionRecord
}

func (f *fakeStore) StoreSession(record *sqlite.SessionRecord) error {
	f.records = append(f.records, record)
	return nil
}

func TestRecorderFansOutToSinks(t *testing.T) {
	dir := t.TempDir()
	w, err := NewCSVWriter(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	store := &fakeStore{}
	rec := NewRecorder(w, store, "rules", "push-to-talk", logger.NewNop())

	u := transcription.Utterance{
		ID:            "u1",
		Text:          "um the raw text",
		SpeakerID:     "mic",
		LanguageTag:   "en",
		FragmentCount: 4,
		FlushedAt:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	rec.Record(u, "The raw text.", 7*time.Millisecond)

	if len(store.records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(store.records))
	}
	got := store.records[0]
	if got.ID != "u1" || got.Fragments != 4 {
		t.Errorf("record = %+v", got)
	}
	if got.RawChars != len(u.Text) || got.CleanedChars != len("The raw text.") {
		t.Errorf("char counts = %d/%d", got.RawChars, got.CleanedChars)
	}
	if got.CleanupMode != "rules" || got.CleanupMs != 7 || got.TriggerMode != "push-to-talk" {
		t.Errorf("cleanup fields = %+v", got)
	}

	rows := readCSV(t, filepath.Join(dir, "session_stats_2026-03-14.csv"))
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[1][1] != "u1" {
		t.Errorf("csv row = %v", rows[1])
	}
}

func TestRecorderNilSinks(t *testing.T) {
	rec := NewRecorder(nil, nil, "rules", "push-to-talk", logger.NewNop())
	// Must not panic.
	rec.Record(transcription.Utterance{ID: "u1", Text: "hi"}, "Hi.", time.Millisecond)
}
