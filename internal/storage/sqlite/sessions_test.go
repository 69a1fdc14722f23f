package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/voxtype/voxtype/pkg/logger"
)

func newTestStorage(t *testing.T) *SessionStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	storage, err := NewSessionStorage(dbPath, logger.NewNop())
	if err != nil {
		t.Fatalf("NewSessionStorage: %v", err)
	}
	t.Cleanup(func() {
		if err := storage.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return storage
}

func TestStoreAndRetrieveSessions(t *testing.T) {
	storage := newTestStorage(t)

	base := time.Now().Add(-time.Hour)
	records := []SessionRecord{
		{
			ID:           "session-1",
			FlushedAt:    base,
			Speaker:      "mic",
			Language:     "en",
			Fragments:    3,
			RawChars:     42,
			CleanedChars: 38,
			CleanupMode:  "rules",
			CleanupMs:    2,
			TriggerMode:  "push-to-talk",
		},
		{
			ID:           "session-2",
			FlushedAt:    base.Add(10 * time.Minute),
			RawChars:     100,
			CleanedChars: 90,
			CleanupMode:  "llm",
			CleanupMs:    640,
			TriggerMode:  "push-to-talk",
		},
	}
	for i := range records {
		if err := storage.StoreSession(&records[i]); err != nil {
			t.Fatalf("StoreSession(%s): %v", records[i].ID, err)
		}
	}

	got, err := storage.GetRecentSessions(10)
	if err != nil {
		t.Fatalf("GetRecentSessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	// Most recent first.
	if got[0].ID != "session-2" || got[1].ID != "session-1" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[1].Speaker != "mic" || got[1].Language != "en" || got[1].Fragments != 3 {
		t.Errorf("metadata not round-tripped: %+v", got[1])
	}
	if got[0].Speaker != "" {
		t.Errorf("expected empty speaker for session-2, got %q", got[0].Speaker)
	}
	if got[0].CleanupMode != "llm" || got[0].CleanupMs != 640 {
		t.Errorf("cleanup fields not round-tripped: %+v", got[0])
	}
}

func TestGetRecentSessionsLimit(t *testing.T) {
	storage := newTestStorage(t)

	base := time.Now()
	for i := 0; i < 5; i++ {
		rec := SessionRecord{
			ID:          "session-" + string(rune('a'+i)),
			FlushedAt:   base.Add(time.Duration(i) * time.Minute),
			CleanupMode: "rules",
			TriggerMode: "push-to-talk",
		}
		if err := storage.StoreSession(&rec); err != nil {
			t.Fatalf("StoreSession: %v", err)
		}
	}

	got, err := storage.GetRecentSessions(3)
	if err != nil {
		t.Fatalf("GetRecentSessions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(got))
	}
	if got[0].ID != "session-e" {
		t.Errorf("expected newest session first, got %s", got[0].ID)
	}
}

func TestGetStats(t *testing.T) {
	storage := newTestStorage(t)

	stats, err := storage.GetStats()
	if err != nil {
		t.Fatalf("GetStats on empty db: %v", err)
	}
	if stats.TotalSessions != 0 || stats.TotalRawChars != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}

	now := time.Now()
	records := []SessionRecord{
		{ID: "s1", FlushedAt: now.Add(-48 * time.Hour), RawChars: 10, CleanedChars: 8, CleanupMode: "rules", CleanupMs: 4, TriggerMode: "push-to-talk"},
		{ID: "s2", FlushedAt: now, RawChars: 20, CleanedChars: 18, CleanupMode: "rules", CleanupMs: 6, TriggerMode: "push-to-talk"},
	}
	for i := range records {
		if err := storage.StoreSession(&records[i]); err != nil {
			t.Fatalf("StoreSession: %v", err)
		}
	}

	stats, err = storage.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalSessions != 2 {
		t.Errorf("TotalSessions = %d, want 2", stats.TotalSessions)
	}
	if stats.TotalRawChars != 30 || stats.TotalCleanedChars != 26 {
		t.Errorf("char totals = %d/%d, want 30/26", stats.TotalRawChars, stats.TotalCleanedChars)
	}
	if stats.AvgCleanupMs != 5 {
		t.Errorf("AvgCleanupMs = %v, want 5", stats.AvgCleanupMs)
	}
	if stats.SessionsToday != 1 {
		t.Errorf("SessionsToday = %d, want 1", stats.SessionsToday)
	}
}
