package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxtype/voxtype/pkg/logger"
)

const defaultBaseURL = "https://api.openai.com"

// Client talks to an OpenAI-compatible Realtime Transcription API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string // no trailing slash
	httpClient *http.Client
	logger     *logger.Logger
}

// WebSocketConn is a realtime transcription websocket connection.
type WebSocketConn struct {
	conn      *websocket.Conn
	mu        sync.Mutex
	closed    bool
	closeChan chan struct{}
}

// NewClient creates a transcription client. The base URL resolves in
// order: explicit parameter, OPENAI_API_BASE environment variable,
// then the upstream default.
func NewClient(apiKey, model string, timeoutSeconds int, log *logger.Logger, baseURL string) *Client {
	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	if apiKey == "" {
		log.Warn("Transcription API key is empty - dictation will not work")
	}

	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		if env := os.Getenv("OPENAI_API_BASE"); env != "" {
			base = strings.TrimRight(env, "/")
		} else {
			base = defaultBaseURL
		}
	}

	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    base,
		logger:     log.Named("stt-client"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateSession creates a new transcription session and returns the
// session ID and ephemeral client secret for the websocket connection.
func (c *Client) CreateSession(ctx context.Context, config Config) (string, string, error) {
	if c.apiKey == "" {
		return "", "", fmt.Errorf("API key is required for transcription sessions")
	}

	c.logger.Info("Creating transcription session",
		String("model", c.model),
		String("language", config.Language))

	type inputAudioNoiseReduction struct {
		Type string `json:"type"`
	}
	type inputAudioTranscription struct {
		Model    string `json:"model"`
		Language string `json:"language,omitempty"`
		Prompt   string `json:"prompt,omitempty"`
	}
	type turnDetection struct {
		Type              string   `json:"type,omitempty"`
		PrefixPaddingMs   *int     `json:"prefix_padding_ms,omitempty"`
		SilenceDurationMs *int     `json:"silence_duration_ms,omitempty"`
		Threshold         *float64 `json:"threshold,omitempty"`
	}
	type sessionRequest struct {
		InputAudioFormat         string                    `json:"input_audio_format"`
		InputAudioTranscription  *inputAudioTranscription  `json:"input_audio_transcription"`
		InputAudioNoiseReduction *inputAudioNoiseReduction `json:"input_audio_noise_reduction,omitempty"`
		TurnDetection            *turnDetection            `json:"turn_detection,omitempty"`
	}

	reqBody := sessionRequest{
		InputAudioFormat: "pcm16",
		InputAudioTranscription: &inputAudioTranscription{
			Model:    c.model,
			Language: config.Language,
			Prompt:   config.Prompt,
		},
	}

	if config.NoiseReduction != "" {
		reqBody.InputAudioNoiseReduction = &inputAudioNoiseReduction{Type: config.NoiseReduction}
	}

	if config.TurnDetectionType != "" {
		td := &turnDetection{Type: config.TurnDetectionType}
		if config.PrefixPaddingMs > 0 {
			v := config.PrefixPaddingMs
			td.PrefixPaddingMs = &v
		}
		if config.SilenceDurationMs > 0 {
			v := config.SilenceDurationMs
			td.SilenceDurationMs = &v
		}
		if config.VADThreshold > 0 {
			v := config.VADThreshold
			td.Threshold = &v
		}
		reqBody.TurnDetection = td
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	apiURL := c.baseURL + "/v1/realtime/transcription_sessions"
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("openai-beta", "realtime=v1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, string(bodyBytes))
	}

	var result struct {
		SessionID    string `json:"session_id"`
		ID           string `json:"id"`
		ClientSecret struct {
			Value     string `json:"value"`
			ExpiresAt int64  `json:"expires_at"`
		} `json:"client_secret"`
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return "", "", fmt.Errorf("failed to parse response: %w", err)
	}

	sessionID := result.SessionID
	if sessionID == "" {
		sessionID = result.ID
	}

	c.logger.Debug("Created transcription session",
		String("session_id", sessionID),
		Int64("client_secret_expires_at", result.ClientSecret.ExpiresAt))

	return sessionID, result.ClientSecret.Value, nil
}

// ConnectWebSocket establishes a websocket connection to the realtime
// transcription endpoint, retrying a few times on transient failures.
func (c *Client) ConnectWebSocket(ctx context.Context, sessionID, clientSecret string) (*WebSocketConn, error) {
	wsURL := fmt.Sprintf("%s/v1/realtime?session_id=%s", toWebSocketBase(c.baseURL), url.QueryEscape(sessionID))
	c.logger.Debug("Connecting to realtime websocket", String("url", wsURL))

	dialer := websocket.Dialer{HandshakeTimeout: 45 * time.Second}

	headers := http.Header{}
	headers.Set("Authorization", fmt.Sprintf("Bearer %s", clientSecret))
	headers.Set("openai-beta", "realtime=v1")

	var conn *websocket.Conn
	var err error

	maxRetries := 3
	retryInterval := 2 * time.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		conn, _, err = dialer.DialContext(ctx, wsURL, headers)
		if err == nil {
			break
		}

		c.logger.Error("Failed to connect to realtime websocket",
			Int("attempt", attempt+1), Error(err))

		if attempt == maxRetries-1 {
			return nil, fmt.Errorf("failed to connect to websocket after %d attempts: %w", maxRetries, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	return &WebSocketConn{
		conn:      conn,
		closeChan: make(chan struct{}),
	}, nil
}

// toWebSocketBase converts an http(s) base URL to the matching ws(s) URL.
func toWebSocketBase(httpBase string) string {
	b := strings.TrimRight(httpBase, "/")
	if strings.HasPrefix(b, "https://") {
		return "wss://" + strings.TrimPrefix(b, "https://")
	} else if strings.HasPrefix(b, "http://") {
		return "ws://" + strings.TrimPrefix(b, "http://")
	}
	return b
}

// Send sends a text message on the websocket.
func (ws *WebSocketConn) Send(message string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.closed {
		return fmt.Errorf("websocket connection is closed")
	}
	return ws.conn.WriteMessage(websocket.TextMessage, []byte(message))
}

// Receive blocks for the next text message from the websocket.
func (ws *WebSocketConn) Receive() (string, error) {
	_, message, err := ws.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(message), nil
}

// Close closes the websocket connection. Safe to call more than once.
func (ws *WebSocketConn) Close() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.closed {
		return nil
	}
	ws.closed = true
	close(ws.closeChan)
	return ws.conn.Close()
}
