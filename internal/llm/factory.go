package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"compass.dev/tracker/internal/config"
)

// NewClient builds the backend selected by cfg.Provider.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		logger.Info("Using Ollama LLM backend",
			zap.String("host", cfg.OllamaHost), zap.String("model", cfg.OllamaModel))
		return NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, cfg.AvailabilityTTL, logger), nil
	case config.ProviderGemini:
		logger.Info("Using Gemini LLM backend", zap.String("model", cfg.GeminiModel))
		c, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AvailabilityTTL, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderNone, "":
		logger.Info("LLM enrichment disabled")
		return Disabled{}, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}
