package transcription

import (
	"time"
)

// TranscriptFragment is a partial transcript emitted by the recognizer.
// Fragments are immutable and ordered by arrival.
type TranscriptFragment struct {
	Text             string
	SpeakerID        string
	LanguageTag      string // optional, empty when the recognizer omits it
	SessionTimestamp time.Time
}

// Utterance is the immutable snapshot produced when the fragment buffer
// is flushed at end of utterance. Consumed once by the cleanup stage.
type Utterance struct {
	ID            string
	Text          string // trimmed
	SpeakerID     string
	LanguageTag   string
	FragmentCount int
	FlushedAt     time.Time
}

// Config represents the configuration for the transcription service
type Config struct {
	// API keys and base URLs are handled by the client directly.

	Model          string
	Language       string
	Prompt         string
	NoiseReduction string

	// Turn detection (server-side VAD); empty type disables it, which
	// is what push-to-talk mode wants.
	TurnDetectionType string
	PrefixPaddingMs   int
	SilenceDurationMs int
	VADThreshold      float64

	TimeoutSeconds        int // HTTP timeout for API requests
	RetryMaxAttempts      int
	RetryInitialBackoffMs int
	RetryMaxBackoffMs     int
	SessionRefreshMinutes int
}
