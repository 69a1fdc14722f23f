package cleanup

import (
	"github.com/voxtype/voxtype/internal/ai"
	"github.com/voxtype/voxtype/internal/ai/gemini"
	"github.com/voxtype/voxtype/internal/ai/openai"
	"github.com/voxtype/voxtype/internal/config"
	"github.com/voxtype/voxtype/pkg/logger"
)

// FromConfig builds the cleaner selected by the cleanup configuration.
func FromConfig(cfg *config.Config, log *logger.Logger) Cleaner {
	switch cfg.Cleanup.Mode {
	case "off":
		return NoopCleaner{}
	case "llm":
		var provider ai.ChatProvider
		switch cfg.Cleanup.Provider {
		case "gemini":
			provider = gemini.NewClient(cfg.Cleanup.APIKey, log)
		default:
			provider = openai.NewClient(cfg.Cleanup.APIKey, cfg.Cleanup.TimeoutSeconds, log, cfg.Cleanup.BaseURL)
		}
		return NewLLMCleaner(provider, LLMCleanerConfig{
			Model:          cfg.Cleanup.Model,
			Temperature:    cfg.Cleanup.Temperature,
			MaxTokens:      cfg.Cleanup.MaxTokens,
			TimeoutSeconds: cfg.Cleanup.TimeoutSeconds,
		}, log)
	default:
		return NewRuleBasedCleaner(log)
	}
}
