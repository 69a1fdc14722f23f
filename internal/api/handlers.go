package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/voxtype/voxtype/internal/config"
	"github.com/voxtype/voxtype/internal/dictation"
	"github.com/voxtype/voxtype/internal/storage/sqlite"
	"github.com/voxtype/voxtype/internal/websocket"
	"github.com/voxtype/voxtype/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	controller     *dictation.Controller
	sessionStorage *sqlite.SessionStorage
	config         *config.Config
	logger         *logger.Logger
	wsServer       *websocket.Server
	startedAt      time.Time
}

// NewHandler creates a new API handler
func NewHandler(controller *dictation.Controller, sessionStorage *sqlite.SessionStorage, config *config.Config, logger *logger.Logger, wsServer *websocket.Server) *Handler {
	return &Handler{
		controller:     controller,
		sessionStorage: sessionStorage,
		config:         config,
		logger:         logger.Named("api-handler"),
		wsServer:       wsServer,
		startedAt:      time.Now().UTC(),
	}
}

// GetStatus returns the current dictation state and active configuration.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	state := "unknown"
	if h.controller != nil {
		state = h.controller.State().String()
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"state":          state,
		"trigger_mode":   h.config.Dictation.TriggerMode,
		"hotkey":         h.config.Hotkey.Key,
		"stt_model":      h.config.Transcription.Model,
		"cleanup_mode":   h.config.Cleanup.Mode,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}

// maxSessionsLimit caps the ?limit= query parameter.
const maxSessionsLimit = 500

// GetSessions returns recent session records, newest first.
// Supports a ?limit=N query parameter (default 50, capped at 500).
func (h *Handler) GetSessions(w http.ResponseWriter, r *http.Request) {
	if h.sessionStorage == nil {
		http.Error(w, "Session storage not available", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		if parsed > maxSessionsLimit {
			parsed = maxSessionsLimit
		}
		limit = parsed
	}

	sessions, err := h.sessionStorage.GetRecentSessions(limit)
	if err != nil {
		h.logger.Error("Failed to query sessions", logger.Error(err))
		http.Error(w, "Failed to query sessions", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []sqlite.SessionRecord{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetStats returns aggregate session statistics.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.sessionStorage == nil {
		http.Error(w, "Session storage not available", http.StatusServiceUnavailable)
		return
	}

	stats, err := h.sessionStorage.GetStats()
	if err != nil {
		h.logger.Error("Failed to aggregate stats", logger.Error(err))
		http.Error(w, "Failed to aggregate stats", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
