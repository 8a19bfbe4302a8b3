// Package embedding provides text embedding providers, caching, and retries.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations wrap provider
// failures with models.ErrEmbeddingProvider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
