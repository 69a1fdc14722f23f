package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/voxtype/voxtype/internal/ai"
	"github.com/voxtype/voxtype/pkg/logger"
)

// Client implements ai.ChatProvider against an OpenAI-compatible
// chat completions endpoint.
type Client struct {
	apiKey     string
	baseURL    string // stored without trailing slash
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new OpenAI client. The base URL resolves in
// order: explicit parameter, OPENAI_API_BASE environment variable,
// then the upstream default.
func NewClient(apiKey string, timeoutSeconds int, log *logger.Logger, baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		if env := os.Getenv("OPENAI_API_BASE"); env != "" {
			base = strings.TrimRight(env, "/")
		} else {
			base = "https://api.openai.com"
		}
	}

	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    base,
		logger:     log.Named("openai"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ChatCompletion sends a conversation and returns the model's reply.
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OpenAI API key is required")
	}

	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type request struct {
		Model       string    `json:"model"`
		Messages    []message `json:"messages"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
		Temperature float64   `json:"temperature"`
	}

	reqMessages := make([]message, len(messages))
	for i, msg := range messages {
		reqMessages[i] = message{Role: msg.Role, Content: msg.Content}
	}

	jsonData, err := json.Marshal(request{
		Model:       config.Model,
		Messages:    reqMessages,
		MaxTokens:   config.MaxTokens,
		Temperature: config.Temperature,
	})
	if err != nil {
		return "", err
	}

	apiURL := c.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat completion failed: %s %s", resp.Status, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}
