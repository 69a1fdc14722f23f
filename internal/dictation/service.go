package dictation

import (
	"context"
	"fmt"
	"time"

	"github.com/voxtype/voxtype/internal/audio"
	"github.com/voxtype/voxtype/internal/cleanup"
	"github.com/voxtype/voxtype/internal/config"
	"github.com/voxtype/voxtype/internal/hotkey"
	"github.com/voxtype/voxtype/internal/transcription"
	"github.com/voxtype/voxtype/internal/typer"
	"github.com/voxtype/voxtype/internal/vad"
	"github.com/voxtype/voxtype/pkg/logger"
)

// Events are optional hooks observers (server broadcast, telemetry)
// attach to the pipeline. Callbacks run on pipeline goroutines and
// must not block.
type Events struct {
	// OnPartial receives delta text from the recognizer.
	OnPartial func(text string)
	// OnUtterance receives every flushed utterance before cleanup.
	OnUtterance func(u transcription.Utterance)
	// OnCleaned receives the cleaned text for a flushed utterance.
	OnCleaned func(u transcription.Utterance, cleaned string, cleanupDuration time.Duration)
}

// Service owns the dictation pipeline: capture, gate, recognizer,
// consolidator, cleanup and the keystroke sink, bound together by the
// capture controller.
type Service struct {
	cfg    *config.Config
	logger *logger.Logger
	events Events

	capture      *audio.Capture
	gate         *audio.Gate
	chunker      *audio.Chunker
	processor    *transcription.Processor
	consolidator *transcription.Consolidator
	cleaner      cleanup.Cleaner
	typing       *typer.Worker
	controller   *Controller
	listener     *hotkey.Listener

	detector vad.Detector
	tracker  *vad.SilenceTracker

	ctx    context.Context
	cancel context.CancelFunc
}

// flush timing: after a release the recognizer still needs time to
// transcribe the committed audio, so the flush waits for fragments to
// land before snapshotting the buffer.
const (
	flushWaitTimeout = 3 * time.Second
	flushPollEvery   = 50 * time.Millisecond
	flushSettleDelay = 200 * time.Millisecond
)

// NewService builds the pipeline from configuration. The typing worker
// and cleaner are injected so the server deployment can substitute its
// own sink.
func NewService(
	ctx context.Context,
	cfg *config.Config,
	cleaner cleanup.Cleaner,
	typing *typer.Worker,
	events Events,
	log *logger.Logger,
) (*Service, error) {
	svcCtx, cancel := context.WithCancel(ctx)

	capture, err := audio.NewCapture(audio.CaptureConfig{
		SampleRate:      cfg.Audio.SampleRate,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		Channels:        cfg.Audio.Channels,
		DeviceName:      cfg.Audio.DeviceName,
	}, log)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create audio capture: %w", err)
	}

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
		TimeoutSeconds:        cfg.Transcription.TimeoutSeconds,
		RetryMaxAttempts:      cfg.Transcription.RetryMaxAttempts,
		RetryInitialBackoffMs: cfg.Transcription.RetryInitialBackoffMs,
		RetryMaxBackoffMs:     cfg.Transcription.RetryMaxBackoffMs,
		SessionRefreshMinutes: cfg.Transcription.SessionRefreshMinutes,
	}
	// Server-side turn detection segments speech into completed
	// fragments while the key is held.
	sttConfig.TurnDetectionType = "server_vad"

	processor := transcription.NewProcessor(svcCtx, sttConfig, sttClient, log)

	s := &Service{
		cfg:          cfg,
		logger:       log.Named("dictation"),
		events:       events,
		capture:      capture,
		gate:         audio.NewGate(log),
		chunker:      audio.NewChunker(cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.ChunkMs),
		processor:    processor,
		consolidator: transcription.NewConsolidator(log),
		cleaner:      cleaner,
		typing:       typing,
		ctx:          svcCtx,
		cancel:       cancel,
	}

	processor.OnPartial = func(text string) {
		if s.events.OnPartial != nil {
			s.events.OnPartial(text)
		}
	}

	s.controller = NewController(s.gate, s.flush, ControllerConfig{
		StreamReadyTimeout: time.Duration(cfg.Audio.StreamReadyTimeoutSecs) * time.Second,
	}, log)

	if cfg.Dictation.TriggerMode == "vad" {
		detector, err := vad.NewWebRTCDetector(vad.Config{
			SampleRate: vadSampleRate(cfg.Audio.SampleRate),
			Mode:       cfg.Dictation.VADMode,
		})
		if err != nil {
			cancel()
			capture.Close()
			return nil, fmt.Errorf("failed to create VAD: %w", err)
		}
		s.detector = detector
		s.tracker = vad.NewSilenceTracker(vad.Config{
			SilenceDuration:   time.Duration(cfg.Dictation.SilenceDurationMs) * time.Millisecond,
			MinSpeechDuration: time.Duration(cfg.Dictation.MinSpeechDurationMs) * time.Millisecond,
		})
	}

	return s, nil
}

// vadSampleRate maps the capture rate to the nearest rate the WebRTC
// VAD accepts. 24kHz capture is classified at 16kHz frame sizes, which
// is close enough for silence detection.
func vadSampleRate(captureRate int) int {
	switch captureRate {
	case 8000, 16000, 32000, 48000:
		return captureRate
	default:
		return 16000
	}
}

// Controller exposes the state machine for status reporting and for
// server-driven start/stop commands.
func (s *Service) Controller() *Controller {
	return s.controller
}

// Start connects the recognizer, starts microphone capture and, in
// push-to-talk mode, registers the global hotkey.
func (s *Service) Start() error {
	if err := s.processor.Start(); err != nil {
		return fmt.Errorf("failed to start transcription: %w", err)
	}

	go s.pumpFragments()

	if err := s.capture.Start(s.ctx); err != nil {
		return fmt.Errorf("failed to start audio capture: %w", err)
	}

	go s.watchStreamReady()
	go s.pumpAudio()

	if s.cfg.Dictation.TriggerMode == "push-to-talk" {
		listener, err := hotkey.NewListener(s.cfg.Hotkey.Key, s.logger)
		if err != nil {
			return err
		}
		if err := listener.Start(); err != nil {
			return err
		}
		s.listener = listener
		go s.pumpHotkeyEdges()
	} else {
		// Hands-free mode records continuously; arm immediately.
		s.controller.OnHotkeyPress()
	}

	s.logger.Info("Dictation service started",
		String("trigger_mode", s.cfg.Dictation.TriggerMode),
		String("hotkey", s.cfg.Hotkey.Key))
	return nil
}

// watchStreamReady binds the capture resource to the gate once the
// hardware stream is live, then delivers the one-shot ready signal.
func (s *Service) watchStreamReady() {
	select {
	case <-s.ctx.Done():
		return
	case <-s.capture.Ready():
	}
	s.gate.Bind(s.capture)
	s.controller.OnResourceReady()
}

func (s *Service) pumpHotkeyEdges() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case edge := <-s.listener.Edges():
			switch edge {
			case hotkey.Pressed:
				s.controller.OnHotkeyPress()
			case hotkey.Released:
				s.controller.OnHotkeyRelease()
			}
		}
	}
}

// pumpAudio forwards captured samples to the recognizer as fixed-size
// PCM chunks. In hands-free mode it also feeds the VAD and raises the
// end-of-utterance signal on trailing silence.
func (s *Service) pumpAudio() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case samples, ok := <-s.capture.Output():
			if !ok {
				return
			}

			if s.detector != nil {
				isSpeech, err := s.detector.Process(samples)
				if err != nil {
					s.logger.Error("VAD error", Error(err))
				} else {
					s.tracker.Update(isSpeech)
					if s.tracker.UtteranceEnded() {
						s.tracker.Reset()
						// Same end-of-utterance path as a hotkey
						// release.
						s.controller.OnHotkeyRelease()
						s.controller.OnHotkeyPress()
					}
				}
			}

			for _, chunk := range s.chunker.Push(samples) {
				if err := s.processor.SendChunk(chunk); err != nil {
					s.logger.Error("Failed to send audio chunk", Error(err))
				}
			}
		}
	}
}

// pumpFragments delivers completed transcript fragments to the
// consolidator in arrival order.
func (s *Service) pumpFragments() {
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

// flush is the end-of-utterance path, invoked by the controller after
// Pause. It runs on the controller goroutine, so a new recording
// cannot begin until the previous session's buffer has been flushed.
func (s *Service) flush() {
	if remainder := s.chunker.Flush(); remainder != nil {
		if err := s.processor.SendChunk(remainder); err != nil {
			s.logger.Error("Failed to send final audio chunk", Error(err))
		}
	}
	if err := s.processor.Commit(); err != nil {
		s.logger.Error("Failed to commit audio buffer", Error(err))
	}

	// The recognizer transcribes committed audio asynchronously; wait
	// for fragments to land before snapshotting.
	if !s.consolidator.Pending() {
		deadline := time.Now().Add(flushWaitTimeout)
		for time.Now().Before(deadline) && !s.consolidator.Pending() {
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(flushPollEvery):
			}
		}
	}
	if s.consolidator.Pending() {
		time.Sleep(flushSettleDelay)
	}

	u, ok := s.consolidator.Flush()
	if !ok {
		s.logger.Debug("Nothing to flush for this session")
		return
	}
	if s.events.OnUtterance != nil {
		s.events.OnUtterance(u)
	}

	start := time.Now()
	cleaned := s.cleaner.Clean(s.ctx, u.Text)
	cleanupDuration := time.Since(start)

	s.logger.Info("Utterance ready",
		String("utterance_id", u.ID),
		Int("raw_len", len(u.Text)),
		Int("cleaned_len", len(cleaned)))

	if s.events.OnCleaned != nil {
		s.events.OnCleaned(u, cleaned, cleanupDuration)
	}

	s.typing.Enqueue(cleaned)
}

// Shutdown tears the pipeline down: listener first, then gate and
// capture, then the recognizer connection.
func (s *Service) Shutdown() {
	s.logger.Info("Shutting down dictation service")

	var stopper ListenerStopper
	if s.listener != nil {
		stopper = s.listener
	}
	s.controller.Shutdown(stopper)
	s.gate.Teardown()

	s.cancel()

	if err := s.processor.Stop(); err != nil {
		s.logger.Error("Failed to stop transcription processor", Error(err))
	}
	if err := s.capture.Close(); err != nil {
		s.logger.Error("Failed to close audio capture", Error(err))
	}
	if s.detector != nil {
		s.detector.Close()
	}

	s.logger.Info("Dictation service stopped")
}
