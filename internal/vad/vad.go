// Package vad provides voice activity detection for hands-free
// dictation. The detector classifies audio frames as speech or
// silence; the tracker turns that stream of classifications into an
// end-of-utterance decision.
package vad

import "time"

// Detector classifies audio frames as speech or silence.
type Detector interface {
	Process(samples []float32) (bool, error)
	ProcessInt16(samples []int16) (bool, error)
	Close() error
}

// Config holds VAD configuration
type Config struct {
	SampleRate int // must be 8000, 16000, 32000, or 48000
	Mode       int // aggressiveness 0-3, higher filters more

	// SilenceDuration is the trailing silence that ends an utterance.
	SilenceDuration time.Duration

	// MinSpeechDuration is the minimum speech run required before
	// trailing silence counts as end-of-utterance.
	MinSpeechDuration time.Duration
}

// SilenceTracker accumulates per-frame speech decisions and reports
// when an utterance has ended: enough speech was heard, followed by
// enough uninterrupted silence.
type SilenceTracker struct {
	config Config

	lastUpdate    time.Time
	speechStarted bool
	speechStart   time.Time
	speechTotal   time.Duration
	silenceStart  time.Time
	silenceTotal  time.Duration
}

// NewSilenceTracker creates a tracker for the given thresholds.
func NewSilenceTracker(cfg Config) *SilenceTracker {
	return &SilenceTracker{config: cfg}
}

// Update records one frame's speech decision.
func (t *SilenceTracker) Update(isSpeech bool) {
	t.update(time.Now(), isSpeech)
}

func (t *SilenceTracker) update(now time.Time, isSpeech bool) {
	prev := t.lastUpdate
	t.lastUpdate = now

	if isSpeech {
		if !t.speechStarted {
			t.speechStarted = true
			t.speechStart = now
		}
		t.speechTotal = now.Sub(t.speechStart)
		t.silenceStart = time.Time{}
		t.silenceTotal = 0
		return
	}

	if !t.speechStarted {
		return
	}
	if t.silenceStart.IsZero() {
		// Trailing silence runs from the last speech frame, not from
		// the first silent frame that happens to arrive.
		t.silenceStart = prev
	}
	t.silenceTotal = now.Sub(t.silenceStart)
}

// UtteranceEnded reports whether the utterance should be flushed:
// speech ran at least MinSpeechDuration and has been followed by at
// least SilenceDuration of silence.
func (t *SilenceTracker) UtteranceEnded() bool {
	return t.speechStarted &&
		t.speechTotal >= t.config.MinSpeechDuration &&
		t.silenceTotal >= t.config.SilenceDuration
}

// HasSpeech reports whether any qualifying speech has been heard.
func (t *SilenceTracker) HasSpeech() bool {
	return t.speechStarted && t.speechTotal >= t.config.MinSpeechDuration
}

// Reset clears all tracked state for the next utterance.
func (t *SilenceTracker) Reset() {
	t.lastUpdate = time.Time{}
	t.speechStarted = false
	t.speechStart = time.Time{}
	t.speechTotal = 0
	t.silenceStart = time.Time{}
	t.silenceTotal = 0
}
