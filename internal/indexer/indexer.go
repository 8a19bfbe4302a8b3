package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// Loader loads a document from a path.
type Loader interface {
	Load(ctx context.Context, path string) (*models.Document, error)
}

// BuildStats describes a completed index build.
type BuildStats struct {
	DocumentID string        `json:"document_id"`
	Source     string        `json:"source"`
	Pages      int           `json:"pages"`
	Chunks     int           `json:"chunks"`
	Dimensions int           `json:"dimensions"`
	Duration   time.Duration `json:"duration_ns"`
}

// Indexer runs load, chunk, embed, and index in that order.
type Indexer struct {
	loader      Loader
	chunker     *Chunker
	embedder    embedding.Embedder
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build progress.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets how many chunks are sent per embedding request.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithConcurrency sets how many embedding requests may be in flight at once.
func WithConcurrency(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.concurrency = n
		}
	}
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(loader Loader, chunker *Chunker, embedder embedding.Embedder, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		loader:      loader,
		chunker:     chunker,
		embedder:    embedder,
		batchSize:   64,
		concurrency: 4,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build loads the document at path and returns a built, read-only index over its chunks.
// A document with no text yields an index with zero entries rather than an error.
func (idx *Indexer) Build(ctx context.Context, path string) (*vector.MemoryIndex, *BuildStats, error) {
	start := time.Now()
	idx.logger.Debug("indexer loading document", zap.String("path", path))
	doc, err := idx.loader.Load(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("load document: %w", err)
	}

	chunks := idx.chunker.Chunk(doc)
	idx.logger.Debug("indexer chunked document",
		zap.String("doc_id", doc.ID),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("chunks", len(chunks)))

	vectors, err := idx.embedChunks(ctx, chunks)
	if err != nil {
		return nil, nil, fmt.Errorf("embed chunks: %w", err)
	}

	index, err := vector.NewMemoryIndex(idx.embedder.Dimensions())
	if err != nil {
		return nil, nil, fmt.Errorf("create vector index: %w", err)
	}
	entries := make([]vector.Entry, len(chunks))
	for i, ch := range chunks {
		entries[i] = vector.Entry{Chunk: ch, Vector: vectors[i]}
	}
	if err := index.Build(ctx, entries); err != nil {
		return nil, nil, fmt.Errorf("build vector index: %w", err)
	}

	stats := &BuildStats{
		DocumentID: doc.ID,
		Source:     doc.Source,
		Pages:      len(doc.Pages),
		Chunks:     len(chunks),
		Dimensions: index.Dimensions(),
		Duration:   time.Since(start),
	}
	idx.logger.Info("index built",
		zap.String("source", stats.Source),
		zap.Int("pages", stats.Pages),
		zap.Int("chunks", stats.Chunks),
		zap.Duration("duration", stats.Duration))
	return index, stats, nil
}

// embedChunks embeds chunk contents in batches, running up to idx.concurrency
// batches at once. Output order matches chunks.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []*models.Chunk) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	if len(chunks) == 0 {
		return out, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	for start := 0; start < len(chunks); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			texts := make([]string, end-start)
			for i, ch := range chunks[start:end] {
				texts[i] = ch.Content
			}
			vecs, err := idx.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("%w: got %d embeddings for %d chunks", models.ErrEmbeddingProvider, len(vecs), len(texts))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
