package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server        ServerConfig        `toml:"server"`        // HTTP server settings (server mode / dashboard)
	Logging       LoggingConfig       `toml:"logging"`       // Application logging settings
	Hotkey        HotkeyConfig        `toml:"hotkey"`        // Push-to-talk hotkey settings
	Audio         AudioConfig         `toml:"audio"`         // Microphone capture settings
	Dictation     DictationConfig     `toml:"dictation"`     // Dictation pipeline settings
	Transcription TranscriptionConfig `toml:"transcription"` // Realtime STT provider settings
	Cleanup       CleanupConfig       `toml:"cleanup"`       // Text cleanup settings
	Telemetry     TelemetryConfig     `toml:"telemetry"`     // Session statistics settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only)
	Port             int    `toml:"port"`                  // Primary HTTP port for the server
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request
	StaticFilesDir   string `toml:"static_files_dir"`      // Directory to serve the stats dashboard from (empty = disabled)
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// HotkeyConfig contains push-to-talk hotkey configuration
type HotkeyConfig struct {
	// Key is one of the named hotkeys: "ctrl_r", "ctrl_l", "alt_r", "alt_l",
	// "shift_r", "shift_l". Each maps to modifier+Space since the OS hotkey
	// API cannot register a bare modifier.
	Key string `toml:"key"`
}

// AudioConfig contains microphone capture configuration
type AudioConfig struct {
	SampleRate      int    `toml:"sample_rate"`       // Capture sample rate in Hz (24000 for OpenAI-realtime providers)
	Channels        int    `toml:"channels"`          // Number of channels (1 = mono)
	FramesPerBuffer int    `toml:"frames_per_buffer"` // PortAudio buffer size in frames
	DeviceName      string `toml:"device_name"`       // Input device name (empty = system default)
	ChunkMs         int    `toml:"chunk_ms"`          // Size of audio chunks sent to the STT provider in milliseconds

	// StreamReadyTimeoutSecs bounds how long the controller waits for the
	// capture stream to finish hardware initialization while armed.
	StreamReadyTimeoutSecs int `toml:"stream_ready_timeout_seconds"`
}

// DictationConfig contains dictation pipeline configuration
type DictationConfig struct {
	// TriggerMode selects how an utterance is ended: "push-to-talk" (hotkey
	// release) or "vad" (hands-free, trailing-silence detection).
	TriggerMode string `toml:"trigger_mode"`

	TypingDelayMs    int `toml:"typing_delay_ms"`     // Delay between typed characters in milliseconds (0 = as fast as possible)
	PreTypingDelayMs int `toml:"pre_typing_delay_ms"` // Delay before typing starts, to let the target window settle

	// VAD settings (used when trigger_mode = "vad")
	VADMode             int `toml:"vad_mode"`               // WebRTC VAD aggressiveness (0-3)
	SilenceDurationMs   int `toml:"silence_duration_ms"`    // Trailing silence that ends an utterance
	MinSpeechDurationMs int `toml:"min_speech_duration_ms"` // Minimum speech run before silence counts
}

// TranscriptionConfig contains settings for the realtime STT provider
type TranscriptionConfig struct {
	APIKey  string `toml:"api_key"`  // Provider API key; falls back to the STT_API_KEY environment variable
	BaseURL string `toml:"base_url"` // Provider base URL (OpenAI-realtime-compatible). Defaults to https://api.openai.com

	Model    string `toml:"model"`    // Transcription model (e.g., "gpt-4o-transcribe")
	Language string `toml:"language"` // Primary language hint (e.g., "en")
	Prompt   string `toml:"prompt"`   // Optional transcription prompt

	NoiseReduction string `toml:"noise_reduction"` // "near_field", "far_field", or "" (off)

	// Connection management
	TimeoutSeconds        int `toml:"timeout_seconds"`          // HTTP timeout for session-creation requests
	RetryMaxAttempts      int `toml:"retry_max_attempts"`       // Maximum websocket reconnect attempts
	RetryInitialBackoffMs int `toml:"retry_initial_backoff_ms"` // Initial reconnect backoff in milliseconds
	RetryMaxBackoffMs     int `toml:"retry_max_backoff_ms"`     // Maximum reconnect backoff in milliseconds
	SessionRefreshMinutes int `toml:"session_refresh_minutes"`  // Proactive session refresh interval
}

// CleanupConfig contains settings for the post-flush text cleanup stage
type CleanupConfig struct {
	// Mode selects the cleanup strategy: "rules" (deterministic formatter),
	// "llm" (external rewrite with fallback), or "off".
	Mode string `toml:"mode"`

	Provider       string  `toml:"provider"`        // LLM provider: "openai" (any OpenAI-compatible endpoint) or "gemini"
	APIKey         string  `toml:"api_key"`         // LLM API key; falls back to the CLEANUP_API_KEY environment variable
	BaseURL        string  `toml:"base_url"`        // OpenAI-compatible chat completions base URL
	Model          string  `toml:"model"`           // Chat model used for cleanup
	Temperature    float64 `toml:"temperature"`     // Sampling temperature (low for consistent cleanup)
	MaxTokens      int     `toml:"max_tokens"`      // Response token cap
	TimeoutSeconds int     `toml:"timeout_seconds"` // Per-request timeout
}

// TelemetryConfig contains session statistics configuration
type TelemetryConfig struct {
	Enabled        bool   `toml:"enabled"`          // Enable session statistics recording
	CSVOutputDir   string `toml:"csv_output_dir"`   // Directory for per-day session CSV files
	SQLiteBasePath string `toml:"sqlite_base_path"` // Base path for SQLite database files
}

// HotkeyNames is the fixed set of accepted hotkey identifiers.
var HotkeyNames = []string{"ctrl_r", "ctrl_l", "alt_r", "alt_l", "shift_r", "shift_l"}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.loadEnvSecrets()

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations
// in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,
		"configs/config.toml",
		"config.toml",
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// loadEnvSecrets fills API keys from the environment (and a .env file, if
// present) so secrets can stay out of the TOML file.
func (c *Config) loadEnvSecrets() {
	// Best effort; a missing .env file is not an error.
	_ = godotenv.Load()

	if c.Transcription.APIKey == "" {
		c.Transcription.APIKey = os.Getenv("STT_API_KEY")
	}
	if c.Cleanup.APIKey == "" {
		c.Cleanup.APIKey = os.Getenv("CLEANUP_API_KEY")
	}
}

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	if c.Hotkey.Key == "" {
		c.Hotkey.Key = "ctrl_r"
	}
	if !isValidHotkey(c.Hotkey.Key) {
		return fmt.Errorf("invalid hotkey %q (valid: %v)", c.Hotkey.Key, HotkeyNames)
	}

	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 24000
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.FramesPerBuffer == 0 {
		c.Audio.FramesPerBuffer = 512
	}
	if c.Audio.ChunkMs == 0 {
		c.Audio.ChunkMs = 100
	}
	if c.Audio.StreamReadyTimeoutSecs == 0 {
		c.Audio.StreamReadyTimeoutSecs = 10
	}

	switch c.Dictation.TriggerMode {
	case "":
		c.Dictation.TriggerMode = "push-to-talk"
	case "push-to-talk", "vad":
	default:
		return fmt.Errorf("invalid trigger_mode %q (valid: push-to-talk, vad)", c.Dictation.TriggerMode)
	}
	if c.Dictation.TypingDelayMs < 0 {
		return fmt.Errorf("typing_delay_ms must be >= 0, got %d", c.Dictation.TypingDelayMs)
	}
	if c.Dictation.PreTypingDelayMs == 0 {
		c.Dictation.PreTypingDelayMs = 100
	}
	if c.Dictation.VADMode < 0 || c.Dictation.VADMode > 3 {
		return fmt.Errorf("vad_mode must be 0-3, got %d", c.Dictation.VADMode)
	}
	if c.Dictation.SilenceDurationMs == 0 {
		c.Dictation.SilenceDurationMs = 800
	}
	if c.Dictation.MinSpeechDurationMs == 0 {
		c.Dictation.MinSpeechDurationMs = 200
	}

	if c.Transcription.Model == "" {
		c.Transcription.Model = "gpt-4o-transcribe"
	}
	if c.Transcription.TimeoutSeconds == 0 {
		c.Transcription.TimeoutSeconds = 30
	}
	if c.Transcription.RetryMaxAttempts == 0 {
		c.Transcription.RetryMaxAttempts = 5
	}
	if c.Transcription.RetryInitialBackoffMs == 0 {
		c.Transcription.RetryInitialBackoffMs = 1000
	}
	if c.Transcription.RetryMaxBackoffMs == 0 {
		c.Transcription.RetryMaxBackoffMs = 60000
	}
	if c.Transcription.SessionRefreshMinutes == 0 {
		c.Transcription.SessionRefreshMinutes = 25
	}

	switch c.Cleanup.Mode {
	case "":
		c.Cleanup.Mode = "rules"
	case "rules", "llm", "off":
	default:
		return fmt.Errorf("invalid cleanup mode %q (valid: rules, llm, off)", c.Cleanup.Mode)
	}
	if c.Cleanup.Mode == "llm" {
		switch c.Cleanup.Provider {
		case "":
			c.Cleanup.Provider = "openai"
		case "openai", "gemini":
		default:
			return fmt.Errorf("invalid cleanup provider %q (valid: openai, gemini)", c.Cleanup.Provider)
		}
		if c.Cleanup.Model == "" {
			return fmt.Errorf("cleanup model is required when cleanup mode is llm")
		}
		if c.Cleanup.Temperature == 0 {
			c.Cleanup.Temperature = 0.3
		}
		if c.Cleanup.MaxTokens == 0 {
			c.Cleanup.MaxTokens = 500
		}
		if c.Cleanup.TimeoutSeconds == 0 {
			c.Cleanup.TimeoutSeconds = 15
		}
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.CSVOutputDir == "" {
			c.Telemetry.CSVOutputDir = "data/session_stats"
		}
		if c.Telemetry.SQLiteBasePath == "" {
			c.Telemetry.SQLiteBasePath = "data"
		}
	}

	if c.Server.Port != 0 && (c.Server.Port < 0 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.StaticFilesDir != "" {
		if _, err := os.Stat(c.Server.StaticFilesDir); os.IsNotExist(err) {
			return fmt.Errorf("static files directory does not exist: %s", c.Server.StaticFilesDir)
		}
	}

	return nil
}

func isValidHotkey(name string) bool {
	for _, n := range HotkeyNames {
		if n == name {
			return true
		}
	}
	return false
}
