package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadAndValidateDefaults(t *testing.T) {
	path := writeConfig(t, `
[hotkey]
key = "ctrl_r"

[transcription]
api_key = "test-key"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Audio.SampleRate != 24000 {
		t.Errorf("default sample rate = %d, want 24000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.StreamReadyTimeoutSecs != 10 {
		t.Errorf("default stream ready timeout = %d, want 10", cfg.Audio.StreamReadyTimeoutSecs)
	}
	if cfg.Dictation.TriggerMode != "push-to-talk" {
		t.Errorf("default trigger mode = %q, want push-to-talk", cfg.Dictation.TriggerMode)
	}
	if cfg.Cleanup.Mode != "rules" {
		t.Errorf("default cleanup mode = %q, want rules", cfg.Cleanup.Mode)
	}
	if cfg.Transcription.Model != "gpt-4o-transcribe" {
		t.Errorf("default model = %q, want gpt-4o-transcribe", cfg.Transcription.Model)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadHotkey(t *testing.T) {
	cfg := &Config{Hotkey: HotkeyConfig{Key: "super_l"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid hotkey name")
	}
}

func TestValidateRejectsBadTriggerMode(t *testing.T) {
	cfg := &Config{Dictation: DictationConfig{TriggerMode: "toggle"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid trigger mode")
	}
}

func TestValidateLLMCleanupRequiresModel(t *testing.T) {
	cfg := &Config{Cleanup: CleanupConfig{Mode: "llm"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when llm cleanup has no model")
	}

	cfg.Cleanup.Model = "gpt-4o-mini"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Cleanup.Temperature != 0.3 {
		t.Errorf("default cleanup temperature = %v, want 0.3", cfg.Cleanup.Temperature)
	}
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("STT_API_KEY", "env-key")
	path := writeConfig(t, `
[hotkey]
key = "alt_r"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transcription.APIKey != "env-key" {
		t.Errorf("api key = %q, want env-key", cfg.Transcription.APIKey)
	}
}

func TestLoadWithFallbackPrefersExplicitPath(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"
`)

	cfg, err := LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", cfg.Logging.Level)
	}
}
