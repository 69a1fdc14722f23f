package cleanup

import (
	"context"
	"strings"
	"time"

	"github.com/voxtype/voxtype/internal/ai"
	"github.com/voxtype/voxtype/pkg/logger"
)

// cleanupSystemPrompt is the fixed instruction for the rewrite model.
const cleanupSystemPrompt = `You are a dictation cleanup assistant. Your task is to clean up transcribed speech.

Rules:
- Remove filler words (um, uh, like, you know, basically, actually, literally, sort of, kind of)
- Fix grammar and punctuation
- Capitalize sentences properly
- Keep the original meaning and tone intact
- Do NOT add any new information or change the intent
- Output ONLY the cleaned text, nothing else - no explanations, no quotes, no prefixes

Example:
Input: "um so basically I was like thinking we should uh you know update the readme file"
Output: I was thinking we should update the readme file.`

// LLMCleaner delegates cleanup to a chat model. On any failure of the
// external call (error, timeout, empty response) the original text is
// returned unchanged.
type LLMCleaner struct {
	provider ai.ChatProvider
	logger   *logger.Logger

	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// LLMCleanerConfig configures the LLM cleanup strategy.
type LLMCleanerConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
}

// NewLLMCleaner creates a cleaner backed by the given chat provider.
func NewLLMCleaner(provider ai.ChatProvider, cfg LLMCleanerConfig, log *logger.Logger) *LLMCleaner {
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &LLMCleaner{
		provider:    provider,
		logger:      log.Named("cleanup-llm"),
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
	}
}

// Clean rewrites the text through the chat model, falling back to the
// input on any failure. The pre/post pair is logged for traceability.
func (c *LLMCleaner) Clean(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []ai.ChatMessage{
		{Role: "system", Content: cleanupSystemPrompt},
		{Role: "user", Content: text},
	}
	config := ai.ChatConfig{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	cleaned, err := c.provider.ChatCompletion(callCtx, messages, config)
	if err != nil {
		c.logger.Warn("Cleanup call failed, falling back to raw text", Error(err))
		return text
	}

	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		c.logger.Warn("Cleanup returned empty response, falling back to raw text")
		return text
	}

	c.logger.Debug("Cleaned utterance text",
		String("original", text),
		String("cleaned", cleaned))

	return cleaned
}
