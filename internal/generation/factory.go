package generation

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
)

// New builds the configured generation provider. apiKey is only used by the openai provider.
func New(cfg *config.Config, apiKey string, logger *zap.Logger) (Generator, error) {
	gc := cfg.Generation
	timeout := time.Duration(gc.TimeoutSecs) * time.Second
	temperature := gc.TemperatureOrDefault()

	var gen Generator
	switch gc.Provider {
	case config.ProviderOpenAI:
		gen = NewOpenAIGenerator(apiKey, cfg.OpenAI.BaseURL, gc.Model, temperature, timeout)
	case config.ProviderOllama:
		o, err := NewOllamaGenerator(cfg.Ollama.BaseURL, gc.Model, temperature, timeout)
		if err != nil {
			return nil, err
		}
		gen = o
	case config.ProviderMock:
		gen = NewMockGenerator()
	default:
		return nil, fmt.Errorf("unknown generation provider %q", gc.Provider)
	}
	logger.Debug("generation provider ready",
		zap.String("provider", gc.Provider),
		zap.String("model", gc.Model),
		zap.Float64("temperature", temperature))
	return gen, nil
}
