package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/voxtype/voxtype/internal/config"
	"github.com/voxtype/voxtype/internal/storage/sqlite"
	"github.com/voxtype/voxtype/internal/websocket"
	"github.com/voxtype/voxtype/pkg/logger"
)

func newTestRouter(t *testing.T) (*Router, *sqlite.SessionStorage) {
	t.Helper()

	storage, err := sqlite.NewSessionStorage(filepath.Join(t.TempDir(), "test.db"), logger.NewNop())
	if err != nil {
		t.Fatalf("NewSessionStorage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })

	cfg := &config.Config{}
	cfg.Hotkey.Key = "ctrl_r"
	cfg.Dictation.TriggerMode = "push-to-talk"
	cfg.Transcription.Model = "gpt-4o-transcribe"
	cfg.Cleanup.Mode = "rules"

	wsServer := websocket.NewServer(logger.NewNop())
	return NewRouter(nil, storage, cfg, logger.NewNop(), wsServer), storage
}

func TestGetStatus(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/status")
	if err != nil {
		t.Fatalf("GET /api/v1/status: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["trigger_mode"] != "push-to-talk" {
		t.Errorf("trigger_mode = %v", body["trigger_mode"])
	}
	if body["state"] != "unknown" {
		t.Errorf("state = %v (no controller attached)", body["state"])
	}
}

func TestGetSessions(t *testing.T) {
	router, storage := newTestRouter(t)
	srv := httptest.NewServer(router.Routes())
	defer srv.Close()

	rec := sqlite.SessionRecord{
		ID:           "s1",
		FlushedAt:    time.Now().UTC(),
		Fragments:    2,
		RawChars:     10,
		CleanedChars: 9,
		CleanupMode:  "rules",
		TriggerMode:  "push-to-talk",
	}
	if err := storage.StoreSession(&rec); err != nil {
		t.Fatalf("StoreSession: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/v1/sessions?limit=10")
	if err != nil {
		t.Fatalf("GET /api/v1/sessions: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Sessions []sqlite.SessionRecord `json:"sessions"`
		Count    int                    `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || len(body.Sessions) != 1 {
		t.Fatalf("count = %d, sessions = %d", body.Count, len(body.Sessions))
	}
	if body.Sessions[0].ID != "s1" {
		t.Errorf("session id = %s", body.Sessions[0].ID)
	}
}

func TestGetSessionsLimitCapped(t *testing.T) {
	router, storage := newTestRouter(t)
	srv := httptest.NewServer(router.Routes())
	defer srv.Close()

	base := time.Now().UTC()
	for i := 0; i < maxSessionsLimit+5; i++ {
		rec := sqlite.SessionRecord{
			ID:          fmt.Sprintf("s%d", i),
			FlushedAt:   base.Add(time.Duration(i) * time.Second),
			CleanupMode: "rules",
			TriggerMode: "push-to-talk",
		}
		if err := storage.StoreSession(&rec); err != nil {
			t.Fatalf("StoreSession: %v", err)
		}
	}

	resp, err := http.Get(srv.URL + "/api/v1/sessions?limit=100000")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != maxSessionsLimit {
		t.Errorf("count = %d, want %d", body.Count, maxSessionsLimit)
	}
}

func TestGetSessionsInvalidLimit(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/sessions?limit=bogus")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetStats(t *testing.T) {
	router, storage := newTestRouter(t)
	srv := httptest.NewServer(router.Routes())
	defer srv.Close()

	for i, id := range []string{"a", "b"} {
		rec := sqlite.SessionRecord{
			ID:           id,
			FlushedAt:    time.Now().UTC(),
			RawChars:     10 * (i + 1),
			CleanedChars: 8 * (i + 1),
			CleanupMode:  "rules",
			TriggerMode:  "push-to-talk",
		}
		if err := storage.StoreSession(&rec); err != nil {
			t.Fatalf("StoreSession: %v", err)
		}
	}

	resp, err := http.Get(srv.URL + "/api/v1/stats")
	if err != nil {
		t.Fatalf("GET /api/v1/stats: %v", err)
	}
	defer resp.Body.Close()

	var stats sqlite.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalSessions != 2 {
		t.Errorf("TotalSessions = %d, want 2", stats.TotalSessions)
	}
	if stats.TotalRawChars != 30 {
		t.Errorf("TotalRawChars = %d, want 30", stats.TotalRawChars)
	}
}
