package dictation

import (
	"context"
	"fmt"
	"time"

	"github.com/voxtype/voxtype/internal/cleanup"
	"github.com/voxtype/voxtype/internal/config"
	"github.com/voxtype/voxtype/internal/transcription"
	"github.com/voxtype/voxtype/pkg/logger"
)

// RemoteSession is the server-mode pipeline for one connected client.
// Audio arrives over the network instead of a local microphone, and the
// cleaned text goes back to the client instead of being typed. The
// recognizer, consolidator and cleanup stages are the same as in local
// mode.
type RemoteSession struct {
	processor    *transcription.Processor
	consolidator *transcription.Consolidator
	cleaner      cleanup.Cleaner
	logger       *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// SessionResult is the outcome of one remote recording.
type SessionResult struct {
	Utterance       transcription.Utterance
	Cleaned         string
	CleanupDuration time.Duration
}

// NewRemoteSession builds and starts a recognizer session for one
// remote client. OnPartial fires for every incremental transcript.
func NewRemoteSession(
	ctx context.Context,
	cfg *config.Config,
	cleaner cleanup.Cleaner,
	onPartial func(string),
	log *logger.Logger,
) (*RemoteSession, error) {
	sessionCtx, cancel := context.WithCancel(ctx)

	sttClient := transcription.NewClient(
		cfg.Transcription.APIKey,
		cfg.Transcription.Model,
		cfg.Transcription.TimeoutSeconds,
		log,
		cfg.Transcription.BaseURL,
	)

	sttConfig := transcription.Config{
		Model:                 cfg.Transcription.Model,
		Language:              cfg.Transcription.Language,
		Prompt:                cfg.Transcription.Prompt,
		NoiseReduction:        cfg.Transcription.NoiseReduction,
		TurnDetectionType:     "server_vad",
		TimeoutSeconds:        cfg.Transcription.TimeoutSeconds,
		RetryMaxAttempts:      cfg.Transcription.RetryMaxAttempts,
		RetryInitialBackoffMs: cfg.Transcription.RetryInitialBackoffMs,
		RetryMaxBackoffMs:     cfg.Transcription.RetryMaxBackoffMs,
		SessionRefreshMinutes: cfg.Transcription.SessionRefreshMinutes,
	}

	processor := transcription.NewProcessor(sessionCtx, sttConfig, sttClient, log)
	processor.OnPartial = onPartial

	s := &RemoteSession{
		processor:    processor,
		consolidator: transcription.NewConsolidator(log),
		cleaner:      cleaner,
		logger:       log.Named("remote-session"),
		ctx:          sessionCtx,
		cancel:       cancel,
	}

	if err := processor.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start transcription processor: %w", err)
	}
	go s.pumpFragments()

	return s, nil
}

func (s *RemoteSession) pumpFragments() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case frag, ok := <-s.processor.Fragments():
			if !ok {
				return
			}
			s.consolidator.Append(frag)
		}
	}
}

// PushAudio forwards one PCM16 chunk from the client to the recognizer.
func (s *RemoteSession) PushAudio(pcm []byte) error {
	return s.processor.SendChunk(pcm)
}

// StopRecording ends the current recording: the audio buffer is
// committed, pending fragments are awaited, and the consolidated
// utterance is cleaned. Returns ok=false when nothing was transcribed.
func (s *RemoteSession) StopRecording() (SessionResult, bool) {
	if err := s.processor.Commit(); err != nil {
		s.logger.Error("Failed to commit audio buffer", Error(err))
	}

	if !s.consolidator.Pending() {
		deadline := time.Now().Add(flushWaitTimeout)
		for time.Now().Before(deadline) && !s.consolidator.Pending() {
			select {
			case <-s.ctx.Done():
				return SessionResult{}, false
			case <-time.After(flushPollEvery):
			}
		}
	}
	if s.consolidator.Pending() {
		time.Sleep(flushSettleDelay)
	}

	u, ok := s.consolidator.Flush()
	if !ok {
		s.logger.Debug("Remote recording produced no transcript")
		return SessionResult{}, false
	}

	start := time.Now()
	cleaned := s.cleaner.Clean(s.ctx, u.Text)
	cleanupDuration := time.Since(start)

	s.logger.Info("Remote utterance ready",
		String("utterance_id", u.ID),
		Int("raw_len", len(u.Text)),
		Int("cleaned_len", len(cleaned)))

	return SessionResult{
		Utterance:       u,
		Cleaned:         cleaned,
		CleanupDuration: cleanupDuration,
	}, true
}

// Close tears the session down.
func (s *RemoteSession) Close() {
	s.cancel()
	if err := s.processor.Stop(); err != nil {
		s.logger.Error("Failed to stop transcription processor", Error(err))
	}
}
