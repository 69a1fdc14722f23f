package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/voxtype/voxtype/internal/api"
	"github.com/voxtype/voxtype/internal/cleanup"
	"github.com/voxtype/voxtype/internal/config"
	"github.com/voxtype/voxtype/internal/dictation"
	"github.com/voxtype/voxtype/internal/storage/sqlite"
	"github.com/voxtype/voxtype/internal/telemetry"
	"github.com/voxtype/voxtype/internal/websocket"
	"github.com/voxtype/voxtype/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

// Client message types for the dictation protocol.
const (
	messageTypeStartRecording  = "start_recording"
	messageTypeStopRecording   = "stop_recording"
	messageTypeAudioChunk      = "audio_chunk"
	messageTypeDictationResult = "dictation_result"
)

// dictationHandler manages one remote dictation session per connected
// WebSocket client. Audio arrives as base64 PCM16 chunks, and the
// cleaned utterance is sent back when the client stops recording.
type dictationHandler struct {
	ctx      context.Context
	cfg      *config.Config
	cleaner  cleanup.Cleaner
	recorder *telemetry.Recorder
	logger   *logger.Logger

	mu       sync.Mutex
	sessions map[*websocket.Client]*dictation.RemoteSession
}

func newDictationHandler(ctx context.Context, cfg *config.Config, cleaner cleanup.Cleaner, recorder *telemetry.Recorder, log *logger.Logger) *dictationHandler {
	return &dictationHandler{
		ctx:      ctx,
		cfg:      cfg,
		cleaner:  cleaner,
		recorder: recorder,
		logger:   log.Named("dictation-handler"),
		sessions: make(map[*websocket.Client]*dictation.RemoteSession),
	}
}

func (h *dictationHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	switch messageType {
	case messageTypeStartRecording:
		return h.startRecording(client)
	case messageTypeAudioChunk:
		return h.pushAudio(client, data)
	case messageTypeStopRecording:
		return h.stopRecording(client)
	default:
		h.logger.Debug("Ignoring unknown message type", logger.String("type", messageType))
		return nil
	}
}

func (h *dictationHandler) startRecording(client *websocket.Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[client]; ok {
		// Recording already in progress for this client
		return nil
	}

	session, err := dictation.NewRemoteSession(h.ctx, h.cfg, h.cleaner,
		func(text string) {
			client.SendMessage(&websocket.Message{
				Type: websocket.MessageTypeTranscriptPartial,
				Data: map[string]any{"text": text},
			})
		}, h.logger)
	if err != nil {
		return fmt.Errorf("failed to start remote session: %w", err)
	}

	h.sessions[client] = session
	h.logger.Info("Remote recording started")
	return nil
}

func (h *dictationHandler) pushAudio(client *websocket.Client, data map[string]any) error {
	h.mu.Lock()
	session, ok := h.sessions[client]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("audio chunk before start_recording")
	}

	encoded, _ := data["audio"].(string)
	if encoded == "" {
		return fmt.Errorf("audio chunk with no audio payload")
	}
	pcm, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode audio chunk: %w", err)
	}
	return session.PushAudio(pcm)
}

func (h *dictationHandler) stopRecording(client *websocket.Client) error {
	h.mu.Lock()
	session, ok := h.sessions[client]
	delete(h.sessions, client)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("stop_recording without an active recording")
	}
	defer session.Close()

	result, ok := session.StopRecording()
	if !ok {
		client.SendMessage(&websocket.Message{
			Type: messageTypeDictationResult,
			Data: map[string]any{"text": ""},
		})
		return nil
	}

	client.SendMessage(&websocket.Message{
		Type: messageTypeDictationResult,
		Data: map[string]any{
			"id":         result.Utterance.ID,
			"text":       result.Cleaned,
			"raw_text":   result.Utterance.Text,
			"cleanup_ms": result.CleanupDuration.Milliseconds(),
		},
	})

	if h.recorder != nil {
		h.recorder.Record(result.Utterance, result.Cleaned, result.CleanupDuration)
	}
	return nil
}

// dropClient tears down the session of a disconnected client.
func (h *dictationHandler) dropClient(client *websocket.Client) {
	h.mu.Lock()
	session, ok := h.sessions[client]
	delete(h.sessions, client)
	h.mu.Unlock()
	if ok {
		h.logger.Info("Client disconnected mid-recording, discarding session")
		session.Close()
	}
}

// closeAll tears down every active session on shutdown.
func (h *dictationHandler) closeAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[*websocket.Client]*dictation.RemoteSession)
	h.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: "console", // Always use console format for better readability
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting voxtype server",
		logger.String("version", Version),
		logger.String("cleanup_mode", cfg.Cleanup.Mode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session telemetry (optional)
	var (
		sessionStorage *sqlite.SessionStorage
		recorder       *telemetry.Recorder
	)
	if cfg.Telemetry.Enabled {
		if err := os.MkdirAll(cfg.Telemetry.SQLiteBasePath, 0755); err != nil {
			log.Error("Failed to create database directory", logger.Error(err))
			os.Exit(1)
		}

		today := time.Now().Format("2006-01-02")
		dbPath := filepath.Join(cfg.Telemetry.SQLiteBasePath, fmt.Sprintf("voxtype-%s.db", today))
		sessionStorage, err = sqlite.NewSessionStorage(dbPath, log)
		if err != nil {
			log.Error("Failed to create SQLite storage", logger.Error(err))
			os.Exit(1)
		}
		defer sessionStorage.Close()
		log.Info("Using daily database", logger.String("path", dbPath))

		csvWriter, err := telemetry.NewCSVWriter(cfg.Telemetry.CSVOutputDir, log)
		if err != nil {
			log.Error("Failed to create session stats writer", logger.Error(err))
			os.Exit(1)
		}
		recorder = telemetry.NewRecorder(csvWriter, sessionStorage, cfg.Cleanup.Mode, "remote", log)
	}

	cleaner := cleanup.FromConfig(cfg, log)

	// WebSocket server with the dictation protocol handler
	wsServer := websocket.NewServer(log)
	handler := newDictationHandler(ctx, cfg, cleaner, recorder, log)
	wsServer.SetMessageHandler(handler)
	wsServer.SetDisconnectHandler(handler.dropClient)
	go wsServer.Run()

	// REST API and dashboard (no local capture controller in server mode)
	router := api.NewRouter(nil, sessionStorage, cfg, log, wsServer)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}
	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	handler.closeAll()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Shutdown complete")
}
