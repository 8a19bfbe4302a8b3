package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// MemoryIndex is an in-memory vector index using brute-force cosine similarity.
// It is populated exactly once by Build and is read-only afterwards.
type MemoryIndex struct {
	dimensions int
	chunks     []*models.Chunk
	vectors    [][]float32
	norms      []float64
	built      bool
	mu         sync.RWMutex
}

// NewMemoryIndex creates an empty, unbuilt index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Build stores entries in order. Zero entries is allowed and yields an index
// on which Search returns models.ErrEmptyIndex.
func (m *MemoryIndex) Build(ctx context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.built {
		return ErrAlreadyBuilt
	}
	chunks := make([]*models.Chunk, 0, len(entries))
	vectors := make([][]float32, 0, len(entries))
	norms := make([]float64, 0, len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(e.Vector) != m.dimensions {
			return fmt.Errorf("entry %d: vector dimension mismatch: got %d, expected %d", i, len(e.Vector), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		chunks = append(chunks, e.Chunk)
		vectors = append(vectors, vec)
		norms = append(norms, L2Norm(vec))
	}
	m.chunks, m.vectors, m.norms = chunks, vectors, norms
	m.built = true
	return nil
}

// Search returns up to k entries ordered by cosine similarity, highest first.
// Equal scores keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.built {
		return nil, ErrNotBuilt
	}
	if len(m.chunks) == 0 {
		return nil, models.ErrEmptyIndex
	}
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qNorm := L2Norm(query)
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(m.vectors))
	for i, vec := range m.vectors {
		scores[i] = scored{pos: i, score: cosine(query, vec, qNorm, m.norms[i])}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]*Result, k)
	for i := 0; i < k; i++ {
		result[i] = &Result{Chunk: m.chunks[scores[i].pos], Score: scores[i].score}
	}
	return result, nil
}

// Built reports whether Build has completed.
func (m *MemoryIndex) Built() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.built
}

// Size returns the number of entries in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}
