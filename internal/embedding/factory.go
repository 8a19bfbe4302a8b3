package embedding

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
)

// New builds the configured provider and wraps it with retries and caching.
// apiKey is only used by the openai provider.
func New(cfg *config.Config, apiKey string, logger *zap.Logger) (Embedder, error) {
	ec := cfg.Embedding
	timeout := time.Duration(ec.TimeoutSecs) * time.Second

	var base Embedder
	switch ec.Provider {
	case config.ProviderOpenAI:
		base = NewOpenAIEmbedder(apiKey, cfg.OpenAI.BaseURL, ec.Model, ec.Dimensions, timeout)
	case config.ProviderOllama:
		o, err := NewOllamaEmbedder(cfg.Ollama.BaseURL, ec.Model, ec.Dimensions, timeout)
		if err != nil {
			return nil, err
		}
		base = o
	case config.ProviderMock:
		return wrapCache(NewMockEmbedder(ec.Dimensions), ec.CacheSizeOrDefault()), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", ec.Provider)
	}

	var emb Embedder = base
	if retries := ec.MaxRetriesOrDefault(); retries > 0 {
		emb = NewRetryEmbedder(emb, retries, WithRetryLogger(logger))
	}
	logger.Debug("embedding provider ready",
		zap.String("provider", ec.Provider),
		zap.String("model", ec.Model),
		zap.Int("dimensions", ec.Dimensions))
	return wrapCache(emb, ec.CacheSizeOrDefault()), nil
}

func wrapCache(e Embedder, size int) Embedder {
	if size <= 0 {
		return e
	}
	return NewCachedEmbedder(e, size)
}
