package transcription

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/voxtype/voxtype/pkg/logger"
)

// Import the logger package's exported functions
var (
	String = logger.String
	Int    = logger.Int
	Int64  = logger.Int64
	Error  = logger.Error
)

// Processor manages one realtime transcription session: it streams PCM
// chunks to the recognizer and emits transcript fragments as they
// complete. Partial (delta) text is surfaced through an optional
// callback for live display; only completed segments become fragments.
type Processor struct {
	client *Client
	config Config
	logger *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	fragments chan TranscriptFragment

	// OnPartial, if set, receives delta text as it arrives. Called from
	// the receive goroutine; must not block.
	OnPartial func(text string)

	sessionID        string
	clientSecret     string
	wsConn           *WebSocketConn
	sessionStartTime time.Time
	sessionMu        sync.Mutex

	chunkCount   int
	chunkCountMu sync.Mutex
}

// NewProcessor creates a processor. Start must be called before audio
// can be sent.
func NewProcessor(ctx context.Context, config Config, client *Client, log *logger.Logger) *Processor {
	procCtx, procCancel := context.WithCancel(ctx)
	return &Processor{
		client:    client,
		config:    config,
		logger:    log.Named("stt-processor"),
		ctx:       procCtx,
		cancel:    procCancel,
		fragments: make(chan TranscriptFragment, 64),
	}
}

// Fragments returns the channel completed transcript fragments are
// delivered on. Closed when the processor stops.
func (p *Processor) Fragments() <-chan TranscriptFragment {
	return p.fragments
}

// Start creates the transcription session and connects the websocket.
func (p *Processor) Start() error {
	p.logger.Info("Starting transcription processor")

	var err error
	p.sessionID, p.clientSecret, err = p.client.CreateSession(p.ctx, p.config)
	if err != nil {
		return fmt.Errorf("failed to create transcription session: %w", err)
	}
	p.logger.Info("Created transcription session", String("session_id", p.sessionID))

	p.sessionStartTime = time.Now()

	p.wsConn, err = p.client.ConnectWebSocket(p.ctx, p.sessionID, p.clientSecret)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}

	go p.receiveLoop()
	go p.monitorSessionDuration()

	return nil
}

// Stop shuts the processor down and closes the fragment channel.
func (p *Processor) Stop() error {
	p.logger.Info("Stopping transcription processor")
	p.cancel()

	p.sessionMu.Lock()
	if p.wsConn != nil {
		p.wsConn.Close()
	}
	p.sessionMu.Unlock()

	return nil
}

// SendChunk streams one PCM16 chunk to the recognizer.
func (p *Processor) SendChunk(pcm []byte) error {
	message := map[string]interface{}{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(pcm),
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal audio chunk message: %w", err)
	}

	p.chunkCountMu.Lock()
	p.chunkCount++
	count := p.chunkCount
	p.chunkCountMu.Unlock()
	if count%100 == 0 {
		p.logger.Debug("Sending audio chunk", Int("chunk_number", count))
	}

	p.sessionMu.Lock()
	conn := p.wsConn
	p.sessionMu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket not connected")
	}

	if err := conn.Send(string(data)); err != nil {
		return fmt.Errorf("failed to send audio chunk: %w", err)
	}
	return nil
}

// Commit asks the recognizer to transcribe whatever audio is buffered.
// Used at the end of a push-to-talk hold so trailing speech is not left
// waiting on server-side turn detection.
func (p *Processor) Commit() error {
	p.sessionMu.Lock()
	conn := p.wsConn
	p.sessionMu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket not connected")
	}

	data, err := json.Marshal(map[string]interface{}{"type": "input_audio_buffer.commit"})
	if err != nil {
		return fmt.Errorf("failed to marshal commit message: %w", err)
	}
	return conn.Send(string(data))
}

// receiveLoop reads recognizer events, reconnecting with exponential
// backoff on transient websocket failures.
func (p *Processor) receiveLoop() {
	defer close(p.fragments)

	reconnectAttempts := 0
	maxReconnectAttempts := p.config.RetryMaxAttempts
	if maxReconnectAttempts <= 0 {
		maxReconnectAttempts = 5
	}
	backoff := time.Duration(p.config.RetryInitialBackoffMs) * time.Millisecond
	if backoff <= 0 {
		backoff = time.Second
	}
	maxBackoff := time.Duration(p.config.RetryMaxBackoffMs) * time.Millisecond
	if maxBackoff <= 0 {
		maxBackoff = 60 * time.Second
	}
	initialBackoff := backoff
	lastReconnect := time.Now()

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		p.sessionMu.Lock()
		conn := p.wsConn
		p.sessionMu.Unlock()
		if conn == nil {
			return
		}

		message, err := conn.Receive()
		if err != nil {
			if p.ctx.Err() != nil {
				p.logger.Info("Websocket closed during shutdown")
				return
			}

			if !isReconnectableError(err) {
				p.logger.Error("Error receiving websocket message", Error(err))
				return
			}

			if reconnectAttempts >= maxReconnectAttempts {
				if time.Since(lastReconnect) > 5*time.Minute {
					p.logger.Info("Resetting reconnection counter after cooling period")
					reconnectAttempts = 0
					backoff = initialBackoff
				} else {
					p.logger.Error("Exceeded maximum reconnection attempts",
						Int("max_attempts", maxReconnectAttempts))
					return
				}
			}

			p.logger.Warn("Websocket connection issue, reconnecting",
				Error(err), Int("attempt", reconnectAttempts+1))
			time.Sleep(backoff)

			if err := p.reconnect(); err != nil {
				reconnectAttempts++
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				p.logger.Error("Failed to reconnect", Error(err),
					Int("reconnect_attempts", reconnectAttempts))
			} else {
				reconnectAttempts = 0
				backoff = initialBackoff
				lastReconnect = time.Now()
			}
			continue
		}

		if reconnectAttempts > 0 {
			reconnectAttempts = 0
			backoff = initialBackoff
		}

		p.handleEvent(message)
	}
}

func (p *Processor) handleEvent(message string) {
	var event map[string]interface{}
	if err := json.Unmarshal([]byte(message), &event); err != nil {
		p.logger.Error("Error parsing event", Error(err))
		return
	}

	eventType, ok := event["type"].(string)
	if !ok {
		p.logger.Error("Event missing type field", String("event", message))
		return
	}

	switch eventType {
	case "conversation.item.input_audio_transcription.delta":
		deltaText, ok := event["delta"].(string)
		if !ok {
			p.logger.Error("Delta event missing delta field", String("event", message))
			return
		}
		p.logger.Debug("Received delta transcription", String("text", deltaText))
		if p.OnPartial != nil {
			p.OnPartial(deltaText)
		}

	case "conversation.item.input_audio_transcription.completed":
		transcript, ok := event["transcript"].(string)
		if !ok {
			p.logger.Error("Completed event missing transcript field", String("event", message))
			return
		}
		p.logger.Debug("Received completed transcription", String("text", transcript))

		frag := TranscriptFragment{
			Text:             transcript,
			SpeakerID:        "mic",
			LanguageTag:      p.config.Language,
			SessionTimestamp: time.Now().UTC(),
		}
		select {
		case p.fragments <- frag:
		case <-p.ctx.Done():
		}

	case "error":
		errorObj, ok := event["error"].(map[string]interface{})
		if !ok {
			p.logger.Error("Error event missing error field", String("event", message))
			return
		}
		errorMessage, _ := errorObj["message"].(string)
		p.logger.Error("Received error from recognizer", String("error", errorMessage))

		if code, ok := errorObj["code"].(string); ok && code == "session_expired" {
			p.logger.Info("Session expired, reconnecting")
			if err := p.reconnect(); err != nil {
				p.logger.Error("Failed to reconnect after session expiry", Error(err))
			}
		}
	}
}

// reconnect tears down the current websocket and establishes a fresh
// session.
func (p *Processor) reconnect() error {
	p.sessionMu.Lock()
	defer p.sessionMu.Unlock()

	if p.wsConn != nil {
		p.wsConn.Close()
	}

	var err error
	p.sessionID, p.clientSecret, err = p.client.CreateSession(p.ctx, p.config)
	if err != nil {
		return fmt.Errorf("failed to create new transcription session: %w", err)
	}
	p.logger.Info("Created new transcription session", String("session_id", p.sessionID))

	p.sessionStartTime = time.Now()

	p.wsConn, err = p.client.ConnectWebSocket(p.ctx, p.sessionID, p.clientSecret)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	return nil
}

// monitorSessionDuration refreshes the session before the provider
// expires it.
func (p *Processor) monitorSessionDuration() {
	refreshAfter := time.Duration(p.config.SessionRefreshMinutes) * time.Minute
	if refreshAfter <= 0 {
		refreshAfter = 25 * time.Minute
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-time.After(time.Minute):
			p.sessionMu.Lock()
			age := time.Since(p.sessionStartTime)
			p.sessionMu.Unlock()

			if age >= refreshAfter {
				p.logger.Info("Session approaching expiration, proactively refreshing",
					String("session_age", age.String()))
				if err := p.reconnect(); err != nil {
					p.logger.Error("Failed to proactively refresh session", Error(err))
				}
			}
		}
	}
}

func isReconnectableError(err error) bool {
	msg := err.Error()
	reconnectable := []string{
		"websocket: close 1000 (normal)",
		"websocket: close 1001 (going away)",
		"websocket: close 1006 (abnormal closure)",
		"use of closed network connection",
		"connection reset by peer",
		"EOF",
		"websocket: close sent",
		"websocket: close received",
		"i/o timeout",
	}
	for _, r := range reconnectable {
		if strings.Contains(msg, r) {
			return true
		}
	}
	return false
}
