package session

import (
	"context"
	"sync"

	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/vector"
)

// IndexSource supplies the built index a session answers from.
type IndexSource interface {
	Index(ctx context.Context) (vector.Index, error)
}

// BuildFunc builds an index from scratch.
type BuildFunc func(ctx context.Context) (*vector.MemoryIndex, *indexer.BuildStats, error)

// SharedIndex builds its index on first use and hands the same read-only index
// to every caller afterwards. A failed build is not cached; the next call retries.
// The build runs detached from the caller that started it, so a canceled request
// stops waiting without aborting the build for everyone else.
type SharedIndex struct {
	build   BuildFunc
	mu      sync.Mutex
	index   *vector.MemoryIndex
	stats   *indexer.BuildStats
	pending *buildCall
}

// buildCall is one build in flight. index and err are set before done is closed.
type buildCall struct {
	done  chan struct{}
	index *vector.MemoryIndex
	err   error
}

// NewSharedIndex returns a SharedIndex backed by build.
func NewSharedIndex(build BuildFunc) *SharedIndex {
	return &SharedIndex{build: build}
}

// FromIndexer returns a SharedIndex that builds the document at path with idx.
func FromIndexer(idx *indexer.Indexer, path string) *SharedIndex {
	return NewSharedIndex(func(ctx context.Context) (*vector.MemoryIndex, *indexer.BuildStats, error) {
		return idx.Build(ctx, path)
	})
}

// Index returns the built index, starting a build if none has succeeded yet.
// Concurrent callers share the build in progress. If ctx ends first, Index
// returns ctx.Err() and the build carries on.
func (s *SharedIndex) Index(ctx context.Context) (vector.Index, error) {
	s.mu.Lock()
	if s.index != nil {
		index := s.index
		s.mu.Unlock()
		return index, nil
	}
	call := s.pending
	if call == nil {
		call = &buildCall{done: make(chan struct{})}
		s.pending = call
		go s.run(context.WithoutCancel(ctx), call)
	}
	s.mu.Unlock()

	select {
	case <-call.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if call.err != nil {
		return nil, call.err
	}
	return call.index, nil
}

func (s *SharedIndex) run(ctx context.Context, call *buildCall) {
	index, stats, err := s.build(ctx)
	s.mu.Lock()
	if err == nil {
		s.index, s.stats = index, stats
	}
	s.pending = nil
	s.mu.Unlock()
	call.index, call.err = index, err
	close(call.done)
}

// Stats returns the statistics of the successful build, or nil before one.
func (s *SharedIndex) Stats() *indexer.BuildStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
