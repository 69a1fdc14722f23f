package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/voxtype/voxtype/internal/api"
	"github.com/voxtype/voxtype/internal/audio"
	"github.com/voxtype/voxtype/internal/cleanup"
	"github.com/voxtype/voxtype/internal/config"
	"github.com/voxtype/voxtype/internal/dictation"
	"github.com/voxtype/voxtype/internal/storage/sqlite"
	"github.com/voxtype/voxtype/internal/telemetry"
	"github.com/voxtype/voxtype/internal/transcription"
	"github.com/voxtype/voxtype/internal/typer"
	"github.com/voxtype/voxtype/internal/websocket"
	"github.com/voxtype/voxtype/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	hotkeyName := flag.String("hotkey", "", "Push-to-talk hotkey override (ctrl_r, ctrl_l, alt_r, alt_l, shift_r, shift_l)")
	typingDelayMs := flag.Int("typing-delay-ms", -1, "Delay between typed characters in milliseconds (overrides config)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	listDevices := flag.Bool("list-devices", false, "List available audio input devices and exit")
	flag.Parse()

	if *listDevices {
		printInputDevices()
		return
	}

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Apply flag overrides before validation so they get the same checks
	if *hotkeyName != "" {
		cfg.Hotkey.Key = *hotkeyName
	}
	if *typingDelayMs >= 0 {
		cfg.Dictation.TypingDelayMs = *typingDelayMs
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

	log.Info("Starting voxtype",
		logger.String("version", Version),
		logger.String("hotkey", cfg.Hotkey.Key),
		logger.String("trigger_mode", cfg.Dictation.TriggerMode),
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

		// Daily database file
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

		recorder = telemetry.NewRecorder(csvWriter, sessionStorage, cfg.Cleanup.Mode, cfg.Dictation.TriggerMode, log)
	}

	// Keystroke sink and typing worker
	sink := typer.NewRobotgoSink(typer.RobotgoConfig{
		PreTypingDelayMs: cfg.Dictation.PreTypingDelayMs,
		TypingDelayMs:    cfg.Dictation.TypingDelayMs,
	}, log)
	typingWorker := typer.NewWorker(sink, log)

	// WebSocket server for the live transcript feed
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	cleaner := cleanup.FromConfig(cfg, log)

	events := dictation.Events{
		OnPartial: func(text string) {
			wsServer.Broadcast(&websocket.Message{
				Type: websocket.MessageTypeTranscriptPartial,
				Data: map[string]any{"text": text},
			})
		},
		OnUtterance: func(u transcription.Utterance) {
			wsServer.Broadcast(&websocket.Message{
				Type: websocket.MessageTypeUtteranceFinal,
				Data: map[string]any{
					"id":        u.ID,
					"text":      u.Text,
					"fragments": u.FragmentCount,
				},
			})
		},
		OnCleaned: func(u transcription.Utterance, cleaned string, cleanupDuration time.Duration) {
			wsServer.Broadcast(&websocket.Message{
				Type: websocket.MessageTypeUtteranceCleaned,
				Data: map[string]any{
					"id":         u.ID,
					"text":       cleaned,
					"cleanup_ms": cleanupDuration.Milliseconds(),
				},
			})
			if recorder != nil {
				recorder.Record(u, cleaned, cleanupDuration)
			}
		},
	}

	service, err := dictation.NewService(ctx, cfg, cleaner, typingWorker, events, log)
	if err != nil {
		log.Error("Failed to create dictation service", logger.Error(err))
		os.Exit(1)
	}

	if err := service.Start(); err != nil {
		log.Error("Failed to start dictation service", logger.Error(err))
		os.Exit(1)
	}

	// Local stats dashboard and API
	router := api.NewRouter(service.Controller(), sessionStorage, cfg, log, wsServer)
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

	log.Info("Ready - hold the hotkey and speak", logger.String("hotkey", cfg.Hotkey.Key))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")

	service.Shutdown()
	typingWorker.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Shutdown complete")
}

func printInputDevices() {
	devices, err := audio.ListInputDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing audio devices: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Available input devices:")
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s [%d] %s (%d ch, %.0f Hz)\n", marker, d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
}
