// Package vector provides the in-memory nearest-neighbour index over chunk embeddings.
package vector

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

var (
	// ErrNotBuilt is returned by Search before Build has completed.
	ErrNotBuilt = errors.New("vector index not built")
	// ErrAlreadyBuilt is returned by a second call to Build.
	ErrAlreadyBuilt = errors.New("vector index already built")
)

// Index is the read side of a built vector index.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Size() int
	Dimensions() int
}

// Entry pairs a chunk with its embedding.
type Entry struct {
	Chunk  *models.Chunk
	Vector []float32
}

// Result is a single search hit.
type Result struct {
	Chunk *models.Chunk
	Score float64 // cosine similarity in [-1, 1]
}
